package controllers

import (
	"cabin/src/db"
	"cabin/src/lib"
	"cabin/src/models"
	"cabin/src/types"
	"cabin/src/utils"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"gorm.io/gorm"
)

func AccountsPasskeyRegisterStart(ctx *gin.Context) (opts *protocol.CredentialCreation, status int, err error) {
	userId := ctx.GetUint("id")
	var user models.User
	db := db.GetDb()
	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.User{ID: userId}).First(&user).Error; err != nil {
			return err
		}
		return nil
	}); err != nil {
		return nil, http.StatusBadRequest, err
	}
	wa, err := lib.GetWebAuthn()
	if err != nil {
		log.Printf("Failed to init webauthn: %s\n", err.Error())
		return nil, http.StatusInternalServerError, err
	}
	opts, ses, err := wa.BeginRegistration(
		user,
		webauthn.WithAuthenticatorSelection(wa.Config.AuthenticatorSelection),
	)
	if err != nil {
		log.Printf("Failed to begin registration: %s\n", err.Error())
		return nil, http.StatusInternalServerError, err
	}
	rd := lib.GetRedisClient()
	_, err = rd.JSONSet(context.Background(), fmt.Sprintf("%d:passkey:reg", userId), "$", ses).Result()
	if err != nil {
		log.Printf("Could not save session: %s\n", err.Error())
		return nil, http.StatusInternalServerError, err
	}
	return opts, http.StatusOK, nil
}

func AccountsPasskeyRegisterFinish(ctx *gin.Context) (status int, err error) {
	userId := ctx.GetUint("id")
	var user models.User
	db := db.GetDb()
	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.User{ID: userId}).First(&user).Error; err != nil {
			return err
		}
		return nil
	}); err != nil {
		return http.StatusBadRequest, err
	}
	rd := lib.GetRedisClient()
	val := rd.JSONGet(context.Background(), fmt.Sprintf("%d:passkey:reg", userId)).Val()
	var ses webauthn.SessionData
	json.Unmarshal([]byte(val), &ses)
	wa, _ := lib.GetWebAuthn()

	cred, err := wa.FinishRegistration(user, ses, ctx.Request)
	if err != nil {
		log.Printf("Could not finish passkey registration: %s\n", err.Error())
		return http.StatusInternalServerError, err
	}
	user.AddCredential(*cred)
	if err := utils.SaveCredentials(&user); err != nil {
		log.Printf("Failed to store credentials for user [%d]: %s\n", userId, err.Error())
		ctx.Status(http.StatusInternalServerError)
		return http.StatusInternalServerError, err
	}
	return http.StatusOK, nil
}

func AccountsGetProfile(ctx *gin.Context) (user *models.User, status int, err error) {
	userId := ctx.GetUint("id")
	var muser models.User
	db := db.GetDb()
	if err := db.
		Model(&models.User{}).
		Omit("password_hash").
		Where(&models.User{ID: userId}).
		First(&muser).
		Error; err != nil {
		return nil, http.StatusNotFound, err
	}
	return &muser, http.StatusOK, nil
}

func AccountsUpdateProfile(ctx *gin.Context) (status int, err error) {
	userId := ctx.GetUint("id")
	var body types.UpdateProfileRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	updates := map[string]any{}
	if body.Name != nil {
		updates["name"] = *body.Name
	}
	if body.Phone != nil {
		updates["phone"] = *body.Phone
	}
	if len(updates) == 0 {
		return http.StatusOK, nil
	}
	db := db.GetDb()
	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.User{}).
			Where(&models.User{ID: userId}).
			Updates(updates).
			Error
	}); err != nil {
		return http.StatusBadRequest, err
	}
	return http.StatusOK, nil
}

func AccountsListCredentials(ctx *gin.Context) (creds []models.Credential, status int, err error) {
	userId := ctx.GetUint("id")
	creds, err = utils.GetCredentialsByUser(userId)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return creds, http.StatusOK, nil
}

func AccountsRevokeCredential(ctx *gin.Context) (status int, err error) {
	userId := ctx.GetUint("id")
	var body struct {
		DeviceName string `json:"device_name" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	if err := utils.RevokeCredential(userId, body.DeviceName); err != nil {
		return http.StatusBadRequest, err
	}
	return http.StatusOK, nil
}
