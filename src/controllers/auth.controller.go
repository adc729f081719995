package controllers

import (
	"cabin/src/config"
	"cabin/src/db"
	"cabin/src/lib"
	"cabin/src/models"
	"cabin/src/types"
	"cabin/src/utils"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func AuthLogin(ctx *gin.Context) (token *string, status int, err error) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}

	db := db.GetDb()
	var muser models.User
	if err = db.
		Model(&models.User{}).
		Where(&models.User{Email: body.Email}).
		First(&muser).
		Error; err != nil {
		log.Printf("error: %s\n", err.Error())
		return nil, http.StatusUnauthorized, errors.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(muser.PasswordHash), []byte(body.Password)); err != nil {
		return nil, http.StatusUnauthorized, errors.New("invalid email or password")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.User{}).
			Where("id", muser.ID).
			Update("last_active", time.Now()).
			Error
	})
	if err != nil {
		log.Printf("Error logging in user [%d]: %s\n", muser.ID, err.Error())
		return nil, http.StatusBadRequest, err
	}

	rd := lib.GetRedisClient()
	if err := utils.GetCredentials(&muser); err != nil {
		log.Printf("Could not retrieve credentials for user [%d]: %s\n", muser.ID, err.Error())
		return nil, http.StatusBadRequest, err
	}
	if ctx.Request.Header.Get("origin") != "app:mobile" && len(muser.StoredCredentials) > 0 {
		flowId := uuid.NewString()
		bNonce := make([]byte, 32)
		rand.Read(bNonce)
		secret, _ := hex.DecodeString(config.API_SECRET)
		nonce := hex.EncodeToString(bNonce)
		enc, err := utils.EncryptMessage(secret, nonce)
		if err != nil {
			log.Printf("Error encrypting message: %s\n", err.Error())
			return nil, http.StatusInternalServerError, err
		}
		exp := 5 * time.Minute
		rd.JSONSet(ctx, fmt.Sprintf("%s:mfa_state", muser.UID), "$", &map[string]any{
			"nonce":     enc,
			"state":     "pending",
			"flow_id":   flowId,
			"user_id":   int(muser.ID),
			"timestamp": time.Now().UnixMilli(),
		})
		rd.Expire(ctx, fmt.Sprintf("%s:mfa_state", muser.UID), exp)
		rd.Set(ctx, fmt.Sprintf("%d:mfa_state", muser.ID), fmt.Sprintf("%s:mfa_state", muser.UID), exp)
		ctx.Header("X-Authenticate-MFA", "true")
		ctx.Header("X-MFA-Flow-ID", flowId)
		ctx.Header("X-MFA-Challenge", nonce)
		log.Println("Credentials found: initializing secondary auth")
		return nil, http.StatusUnauthorized, nil
	}

	jwt, _ := utils.GenerateJWT(muser.Email, muser.ID, muser.Role, muser.UID)

	if _, err := rd.JSONSet(ctx, fmt.Sprintf("%d:user", muser.ID), "$", &muser).Result(); err != nil {
		log.Printf("[redis] Error updating user cache: %s\n", err.Error())
	}
	go func(uid string) {
		val := lib.GetRedisClient().JSONGet(context.Background(), fmt.Sprintf("%s:fcm", uid), "$.token").Val()
		if val == "" {
			return
		}
		fcm, err := lib.GetFirebaseMessaging()
		if err != nil {
			return
		}
		fcm.SubscribeToTopic(context.Background(), []string{val}, "Notifications")
	}(muser.UID)

	return &jwt, http.StatusOK, nil
}

// AuthRegister is invitation-gated: the request must carry a pending,
// unexpired invitation token issued for the same email address.
func AuthRegister(ctx *gin.Context) (uid *string, status int, err error) {
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	newUser := models.User{
		UID:          uuid.NewString(),
		Name:         body.Name,
		Email:        body.Email,
		PasswordHash: string(hash),
	}
	var invitation models.Invitation
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where(&models.Invitation{Token: body.InviteToken}).
			First(&invitation).
			Error; err != nil {
			return errors.New("invitation not found")
		}
		if invitation.Email != body.Email {
			return errors.New("invitation was issued for a different email address")
		}
		if !invitation.IsValid() {
			return errors.New("invitation is no longer valid")
		}

		var count int64
		if err := tx.
			Model(&models.User{}).
			Where("email = ?", body.Email).
			Count(&count).
			Error; err != nil {
			return errors.New("could not complete transaction")
		}
		if count > 0 {
			err := errors.New("user is already registered in the system. Please proceed to Log In")
			log.Printf("error: %s\n", err.Error())
			return err
		}

		newUser.Role = invitation.Role
		if err := tx.Create(&newUser).Error; err != nil {
			log.Printf("Error creating user: %s\n", err.Error())
			return fmt.Errorf("error creating user: %s", body.Email)
		}

		now := time.Now()
		if err := tx.
			Model(&models.Invitation{}).
			Where(&models.Invitation{ID: invitation.ID}).
			Updates(map[string]any{
				"status":      types.INVITATION_ACCEPTED,
				"accepted_at": now,
			}).Error; err != nil {
			return err
		}

		notification := models.Notification{
			UserID:  invitation.InvitedBy,
			Type:    types.NOTIFY_INVITE_ACCEPTED,
			Title:   "Invitation accepted",
			Message: fmt.Sprintf("%s accepted your invitation and joined the cabin calendar", body.Name),
			Metadata: &types.JSONB{
				"user_id": newUser.ID,
			},
		}
		if err := tx.Create(&notification).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	go func() {
		var inviter models.User
		if err := db.Where(&models.User{ID: invitation.InvitedBy}).First(&inviter).Error; err != nil {
			return
		}
		utils.NotifyPush(inviter.UID, "Invitation accepted", fmt.Sprintf("%s joined the cabin calendar", newUser.Name), nil)
		lib.EmitNotification(inviter.UID, map[string]any{
			"type":    string(types.NOTIFY_INVITE_ACCEPTED),
			"user_id": newUser.ID,
		})
	}()

	return &newUser.UID, http.StatusOK, nil
}
