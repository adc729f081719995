package utils

import (
	"cabin/src/config"
	"cabin/src/db"
	"cabin/src/lib"
	awslib "cabin/src/lib/aws"
	"cabin/src/lib/mailer"
	"cabin/src/models"
	"cabin/src/models/scopes"
	"cabin/src/types"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/yeqown/go-qrcode"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

var (
	ErrSwapTokenNotFound    = errors.New("swap request not found")
	ErrSwapTokenExpired     = errors.New("swap request has expired")
	ErrSwapAlreadyProcessed = errors.New("swap request has already been processed")
	ErrSwapInvalidAction    = errors.New("unrecognized swap action")
)

func IsProd() bool {
	return config.API_ENV == string(types.Production)
}

func GenerateJWT(email string, userId uint, role string, uid string) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		Username: email,
		Role:     role,
		UID:      uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userId),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// GenerateToken returns a 32-byte random token in hex, used for swap and
// invitation links.
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func EncryptMessage(key []byte, message string) (string, error) {
	plaintext := []byte(message)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	cipherText := gcm.Seal(nonce, nonce, plaintext, nil)
	encodedString := hex.EncodeToString(cipherText)

	return encodedString, nil
}

func DecryptMessage(key []byte, message string) (*string, error) {
	cipherText, err := hex.DecodeString(message)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	decryptedData, err := gcm.Open(nil, cipherText[:gcm.NonceSize()], cipherText[gcm.NonceSize():], nil)
	if err != nil {
		return nil, err
	}
	decodedString := string(decryptedData)

	return &decodedString, nil
}

func Today() string {
	return time.Now().Format(config.DATE_PARSE_FORMAT)
}

func GetReservations(filters *types.ReservationsQueryFilters, userId uint) ([]models.Reservation, error) {
	var reservations []models.Reservation
	db := db.GetDb()
	tx := db.Model(&models.Reservation{}).Preload("User")
	if filters != nil {
		if filters.From != nil {
			tx = tx.Where("end_date >= ?", *filters.From)
		}
		if filters.To != nil {
			tx = tx.Where("start_date <= ?", *filters.To)
		}
		if filters.Own {
			tx = tx.Where("user_id = ?", userId)
		}
		if filters.Upcoming {
			tx = tx.Where("end_date >= ?", Today())
		}
	}
	err := tx.Order("start_date asc").Find(&reservations).Error
	return reservations, err
}

func GetReservation(id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	db := db.GetDb()
	if err := db.
		Model(&models.Reservation{}).
		Scopes(scopes.WithID(id)).
		Preload("User").
		First(&reservation).
		Error; err != nil {
		return nil, errors.New("reservation not found")
	}
	return &reservation, nil
}

// CheckConflicts runs the advisory overlap check against a fresh fetch of the
// reservation table. The result is informational until re-checked inside the
// create/update transaction.
func CheckConflicts(candidate DateRange, excludeID uint) ([]models.Reservation, error) {
	var existing []models.Reservation
	db := db.GetDb()
	if err := db.
		Model(&models.Reservation{}).
		Preload("User").
		Where("start_date <= ? AND end_date >= ?", candidate.End, candidate.Start).
		Order("start_date asc").
		Find(&existing).
		Error; err != nil {
		return nil, err
	}
	return FindConflicts(candidate, existing, excludeID), nil
}

// CreateReservation validates, re-checks conflicts inside the transaction and
// persists. A non-empty conflict slice with a nil error means submission was
// blocked. On success the caller's create-mode draft is purged.
func CreateReservation(userId uint, body *types.CreateReservationRequestBody) (*models.Reservation, []models.Reservation, error) {
	candidate := DateRange{Start: body.StartDate, End: body.EndDate}
	reservation := models.Reservation{
		StartDate:  body.StartDate,
		EndDate:    body.EndDate,
		GuestCount: body.GuestCount,
		Notes:      body.Notes,
	}
	if body.CustomName != nil && *body.CustomName != "" {
		reservation.CustomName = body.CustomName
	} else {
		reservation.UserID = &userId
	}
	var conflicts []models.Reservation
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing []models.Reservation
		if err := tx.
			Model(&models.Reservation{}).
			Preload("User").
			Where("start_date <= ? AND end_date >= ?", candidate.End, candidate.Start).
			Find(&existing).
			Error; err != nil {
			return err
		}
		conflicts = FindConflicts(candidate, existing, 0)
		if len(conflicts) > 0 {
			return nil
		}
		if err := tx.Create(&reservation).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("CreateReservation failed: %s\n", err.Error())
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, nil
	}

	go ScheduleStayReminder(&reservation)
	go PurgeDraft(userId, "create", 0)

	return &reservation, nil, nil
}

func UpdateReservation(userId uint, id uint, body *types.UpdateReservationRequestBody, isAdmin bool) (*models.Reservation, []models.Reservation, error) {
	candidate := DateRange{Start: body.StartDate, End: body.EndDate}
	var conflicts []models.Reservation
	var reservation models.Reservation
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where(&models.Reservation{ID: id}).
			First(&reservation).
			Error; err != nil {
			return errors.New("reservation not found")
		}
		if !isAdmin && (reservation.UserID == nil || *reservation.UserID != userId) {
			return errors.New("not enough permissions to perform this action")
		}
		var existing []models.Reservation
		if err := tx.
			Model(&models.Reservation{}).
			Preload("User").
			Where("start_date <= ? AND end_date >= ?", candidate.End, candidate.Start).
			Find(&existing).
			Error; err != nil {
			return err
		}
		conflicts = FindConflicts(candidate, existing, id)
		if len(conflicts) > 0 {
			return nil
		}
		if err := tx.
			Model(&models.Reservation{}).
			Where(&models.Reservation{ID: id}).
			Updates(map[string]any{
				"start_date":  body.StartDate,
				"end_date":    body.EndDate,
				"guest_count": body.GuestCount,
				"notes":       body.Notes,
			}).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("UpdateReservation failed: %s\n", err.Error())
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, nil
	}
	reservation.StartDate = body.StartDate
	reservation.EndDate = body.EndDate
	reservation.GuestCount = body.GuestCount
	reservation.Notes = body.Notes

	go PurgeDraft(userId, "edit", id)

	return &reservation, nil, nil
}

// ScheduleStayReminder queues a reminder job two days before the stay begins.
func ScheduleStayReminder(r *models.Reservation) {
	start, err := time.Parse(config.DATE_PARSE_FORMAT, r.StartDate)
	if err != nil {
		log.Printf("Error parsing start date for reservation [%d]: %s\n", r.ID, err.Error())
		return
	}
	runsAt := start.AddDate(0, 0, -2)
	if runsAt.Before(time.Now()) {
		return
	}
	jobTaskID := uuid.New()
	payloadId := jobTaskID.String()
	jobTask := models.JobTask{
		Name:      fmt.Sprintf("Reservation_%d_StayReminder", r.ID),
		JobType:   "OneTimeJobStartDateTime",
		RunsAt:    runsAt,
		PayloadID: payloadId,
		Payload: map[string]any{
			"payloadId":        payloadId,
			"id":               int64(r.ID),
			"producerClientId": "StayRemindersProducer",
			"topic":            "StayReminders",
			"table":            "reservations",
		},
		Source:     "Reservations",
		SourceType: "table",
		Topic:      "StayReminders",
	}
	id, err := jobTask.CreateAndEnqueueJobTask(jobTask)
	if err != nil {
		log.Printf("Error creating job for Reservation: id=%d error=%s\n", r.ID, err.Error())
		return
	}
	log.Printf("Created job for Reservation[%d] with ID %s\n", r.ID, id)
}

// PurgeDraft removes the autosaved form state for a mode once a save or an
// explicit cancel makes it stale.
func PurgeDraft(userId uint, mode string, reservationId uint) {
	store := lib.GetDraftStore()
	key := lib.DraftKey(userId, mode, reservationId)
	if err := store.Remove(context.Background(), key); err != nil {
		log.Printf("Error removing draft [%s]: %s\n", key, err.Error())
	}
}

const swapRequestTTL = 7 * 24 * time.Hour

// CreateSwapRequest creates the pending swap row and the target's in-app
// notification in one transaction, then fires the email/push side channel
// best-effort after commit.
func CreateSwapRequest(requesterId uint, body *types.CreateSwapRequestBody) (*models.ReservationSwapRequest, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	swap := models.ReservationSwapRequest{
		RequesterID:            requesterId,
		RequesterReservationID: body.OfferedReservationID,
		TargetReservationID:    body.TargetReservationID,
		Message:                body.Message,
		Token:                  token,
		ExpiresAt:              time.Now().Add(swapRequestTTL),
		Status:                 types.SWAP_PENDING,
	}
	var requester models.User
	var target models.Reservation
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var offered models.Reservation
		if err := tx.
			Where(&models.Reservation{ID: body.OfferedReservationID}).
			First(&offered).
			Error; err != nil {
			return errors.New("offered reservation not found")
		}
		if offered.UserID == nil || *offered.UserID != requesterId {
			return errors.New("you can only offer your own reservation")
		}
		if offered.EndDate < Today() {
			return errors.New("only future reservations can be offered for a swap")
		}
		if err := tx.
			Where(&models.Reservation{ID: body.TargetReservationID}).
			Preload("User").
			First(&target).
			Error; err != nil {
			return errors.New("target reservation not found")
		}
		if target.UserID == nil {
			return errors.New("target reservation is not linked to a user")
		}
		if *target.UserID == requesterId {
			return errors.New("cannot request a swap against your own reservation")
		}
		if err := tx.
			Where(&models.User{ID: requesterId}).
			First(&requester).
			Error; err != nil {
			return err
		}
		swap.TargetUserID = *target.UserID
		if err := tx.Create(&swap).Error; err != nil {
			return err
		}
		notification := models.Notification{
			UserID:  swap.TargetUserID,
			Type:    types.NOTIFY_SWAP_REQUESTED,
			Title:   "New swap request",
			Message: fmt.Sprintf("%s wants to swap their stay %s..%s for yours %s..%s", requester.Name, offered.StartDate, offered.EndDate, target.StartDate, target.EndDate),
			Metadata: &types.JSONB{
				"swap_request_id": swap.ID,
			},
		}
		if err := tx.Create(&notification).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("CreateSwapRequest failed: %s\n", err.Error())
		return nil, err
	}

	go sendSwapRequestEmail(&swap, &requester, &target)
	go NotifyPush(target.User.UID, "New swap request", fmt.Sprintf("%s proposed a reservation swap", requester.Name), map[string]string{
		"swap_request_id": fmt.Sprint(swap.ID),
	})
	go lib.EmitNotification(target.User.UID, map[string]any{
		"type":            string(types.NOTIFY_SWAP_REQUESTED),
		"swap_request_id": swap.ID,
	})

	return &swap, nil
}

func sendSwapRequestEmail(swap *models.ReservationSwapRequest, requester *models.User, target *models.Reservation) {
	if target.User == nil {
		return
	}
	acceptLink := fmt.Sprintf("%s/api/v1/handle-swap-response?token=%s&action=%s", config.API_HOST, swap.Token, types.SWAP_ACTION_ACCEPT)
	declineLink := fmt.Sprintf("%s/api/v1/handle-swap-response?token=%s&action=%s", config.API_HOST, swap.Token, types.SWAP_ACTION_DECLINE)
	message := ""
	if swap.Message != nil && *swap.Message != "" {
		message = fmt.Sprintf("<p>Message from %s: %s</p>", requester.Name, *swap.Message)
	}
	input := &lib.SendMailInput{
		From:     config.SMTP_FROM,
		FromName: "Cabin Calendar",
		Subject:  fmt.Sprintf("%s wants to swap cabin reservations with you", requester.Name),
		To:       []string{target.User.Email},
		Body: fmt.Sprintf(`
			<p>%s has proposed a reservation swap.</p>
			%s
			<p><a href="%s">Accept the swap</a></p>
			<p><a href="%s">Decline the swap</a></p>
			<p>This request expires on %s.</p>
		`, requester.Name, message, acceptLink, declineLink, swap.ExpiresAt.Format(config.DATE_PARSE_FORMAT)),
		Html: true,
	}
	if err := mailer.NewMailerMessage(input); err != nil {
		log.Printf("Could not send swap request email to [%s]: %s\n", target.User.Email, err.Error())
	}
}

// ResolveSwap consumes a swap token exactly once. On accept both
// reservations' owners are exchanged and the status flips to accepted in a
// single transaction; on decline only the status changes. Token failures are
// terminal and leave no state behind.
func ResolveSwap(token string, action string) (*models.ReservationSwapRequest, error) {
	if action != types.SWAP_ACTION_ACCEPT && action != types.SWAP_ACTION_DECLINE {
		return nil, ErrSwapInvalidAction
	}
	var swap models.ReservationSwapRequest
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.ReservationSwapRequest{Token: token}).
			First(&swap).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSwapTokenNotFound
			}
			return err
		}
		if swap.Status != types.SWAP_PENDING {
			return ErrSwapAlreadyProcessed
		}
		if swap.IsExpired() {
			return ErrSwapTokenExpired
		}
		now := time.Now()
		newStatus := types.SWAP_DECLINED
		if action == types.SWAP_ACTION_ACCEPT {
			newStatus = types.SWAP_ACCEPTED
			// lock both rows in ID order so concurrent accepts cannot deadlock
			// or half-apply the exchange
			var reservations []models.Reservation
			if err := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Scopes(scopes.WithIDs(swap.RequesterReservationID, swap.TargetReservationID)).
				Order("id asc").
				Find(&reservations).
				Error; err != nil {
				return err
			}
			if len(reservations) != 2 {
				return errors.New("one of the swapped reservations no longer exists")
			}
			if err := tx.
				Model(&models.Reservation{}).
				Where("id = ?", swap.RequesterReservationID).
				Update("user_id", swap.TargetUserID).
				Error; err != nil {
				return err
			}
			if err := tx.
				Model(&models.Reservation{}).
				Where("id = ?", swap.TargetReservationID).
				Update("user_id", swap.RequesterID).
				Error; err != nil {
				return err
			}
		}
		if err := tx.
			Model(&models.ReservationSwapRequest{}).
			Where(&models.ReservationSwapRequest{ID: swap.ID}).
			Updates(map[string]any{
				"status":       newStatus,
				"responded_at": now,
			}).Error; err != nil {
			return err
		}
		swap.Status = newStatus
		swap.RespondedAt = &now
		notifType := types.NOTIFY_SWAP_DECLINED
		title := "Swap request declined"
		if newStatus == types.SWAP_ACCEPTED {
			notifType = types.NOTIFY_SWAP_ACCEPTED
			title = "Swap request accepted"
		}
		notification := models.Notification{
			UserID:  swap.RequesterID,
			Type:    notifType,
			Title:   title,
			Message: fmt.Sprintf("Your swap request was %s", newStatus),
			Metadata: &types.JSONB{
				"swap_request_id": swap.ID,
			},
		}
		if err := tx.Create(&notification).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go notifySwapResolved(&swap)

	return &swap, nil
}

func notifySwapResolved(swap *models.ReservationSwapRequest) {
	var requester models.User
	db := db.GetDb()
	if err := db.
		Where(&models.User{ID: swap.RequesterID}).
		First(&requester).
		Error; err != nil {
		log.Printf("Error retrieving requester [%d]: %s\n", swap.RequesterID, err.Error())
		return
	}
	subject := "Your swap request was declined"
	body := "<p>Your cabin reservation swap request was declined. Your reservation is unchanged.</p>"
	if swap.Status == types.SWAP_ACCEPTED {
		subject = "Your swap request was accepted"
		body = "<p>Your cabin reservation swap request was accepted. The reservations have been exchanged.</p>"
	}
	if err := mailer.NewMailerMessage(&lib.SendMailInput{
		From:     config.SMTP_FROM,
		FromName: "Cabin Calendar",
		Subject:  subject,
		To:       []string{requester.Email},
		Body:     body,
		Html:     true,
	}); err != nil {
		log.Printf("Could not send swap resolution email to [%s]: %s\n", requester.Email, err.Error())
	}
	go NotifyPush(requester.UID, subject, "", map[string]string{
		"swap_request_id": fmt.Sprint(swap.ID),
	})
	go lib.EmitNotification(requester.UID, map[string]any{
		"type":            string(swap.Status),
		"swap_request_id": swap.ID,
	})
}

func GetSwaps(userId uint, filters *types.SwapsQueryFilters) ([]models.ReservationSwapRequest, error) {
	var swaps []models.ReservationSwapRequest
	db := db.GetDb()
	tx := db.
		Model(&models.ReservationSwapRequest{}).
		Preload("Requester").
		Preload("RequesterReservation").
		Preload("TargetUser").
		Preload("TargetReservation")
	switch filters.Direction {
	case "incoming":
		tx = tx.Where(&models.ReservationSwapRequest{TargetUserID: userId})
	case "outgoing":
		tx = tx.Where(&models.ReservationSwapRequest{RequesterID: userId})
	default:
		tx = tx.Where("requester_id = ? OR target_user_id = ?", userId, userId)
	}
	if filters.Status != "" {
		tx = tx.Where("status = ?", filters.Status)
	}
	err := tx.Order("created_at desc").Find(&swaps).Error
	return swaps, err
}

// ExpireOverdueSwaps flips pending swaps past their expiry. The resolve path
// checks expires_at directly, so this sweep only keeps listings tidy.
func ExpireOverdueSwaps() {
	db := db.GetDb()
	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.ReservationSwapRequest{}).
			Scopes(scopes.WithPendingStatus).
			Where("expires_at < ?", time.Now()).
			Update("status", types.SWAP_EXPIRED).
			Error
	}); err != nil {
		log.Printf("Error while processing expired swaps: %s\n", err.Error())
	}
}

const invitationTTL = 7 * 24 * time.Hour

// CreateInvitation writes the pending invitation and sends the registration
// link by email with a QR code attached, best-effort.
func CreateInvitation(inviterId uint, body *types.CreateInvitationRequestBody) (*models.Invitation, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	role := body.Role
	if role == "" {
		role = types.ROLE_MEMBER
	}
	invitation := models.Invitation{
		Email:     body.Email,
		Token:     token,
		InvitedBy: inviterId,
		Role:      role,
		Message:   body.Message,
		Status:    types.INVITATION_PENDING,
		ExpiresAt: time.Now().Add(invitationTTL),
	}
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.
			Model(&models.User{}).
			Where("email = ?", body.Email).
			Count(&count).
			Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.New("a user with this email is already registered")
		}
		if err := tx.
			Model(&models.Invitation{}).
			Where(&models.Invitation{Email: body.Email, Status: types.INVITATION_PENDING}).
			Update("status", types.INVITATION_REVOKED).
			Error; err != nil {
			return err
		}
		if err := tx.Create(&invitation).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go SendInvitationEmail(&invitation)

	return &invitation, nil
}

func SendInvitationEmail(invitation *models.Invitation) {
	registerLink := fmt.Sprintf("%s/register?token=%s", config.APP_HOST, invitation.Token)
	qrURL := ""
	qrc, err := qrcode.New(registerLink)
	if err != nil {
		log.Printf("Could not create qrcode for invitation [%d]: %s\n", invitation.ID, err.Error())
	} else {
		tempdir := os.Getenv("TEMP_DIR")
		filename := fmt.Sprintf("invite_%d", invitation.ID)
		filepath := path.Join(tempdir, fmt.Sprintf("%s.jpeg", filename))
		if err := qrc.Save(filepath); err != nil {
			log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
		} else if url, err := awslib.S3UploadAsset(fmt.Sprintf("invites/%s.jpeg", filename), filepath); err != nil {
			log.Printf("Error uploading asset to S3 bucket: %s\n", err.Error())
		} else {
			qrURL = fmt.Sprintf(`<p><img src="%s" alt="registration QR code" /></p>`, *url)
		}
	}
	message := ""
	if invitation.Message != nil && *invitation.Message != "" {
		message = fmt.Sprintf("<p>%s</p>", *invitation.Message)
	}
	if err := mailer.NewMailerMessage(&lib.SendMailInput{
		From:     config.SMTP_FROM,
		FromName: "Cabin Calendar",
		Subject:  "You have been invited to the family cabin",
		To:       []string{invitation.Email},
		Body: fmt.Sprintf(`
			<p>You have been invited to join the family cabin calendar.</p>
			%s
			<p><a href="%s">Create your account</a></p>
			%s
			<p>This invitation expires on %s.</p>
		`, message, registerLink, qrURL, invitation.ExpiresAt.Format(config.DATE_PARSE_FORMAT)),
		Html: true,
	}); err != nil {
		log.Printf("Could not send invitation email to [%s]: %s\n", invitation.Email, err.Error())
	}
}

func ValidateInvitationToken(token string) (*models.Invitation, error) {
	var invitation models.Invitation
	db := db.GetDb()
	if err := db.
		Where(&models.Invitation{Token: token}).
		First(&invitation).
		Error; err != nil {
		return nil, errors.New("invitation not found")
	}
	if !invitation.IsValid() {
		return nil, errors.New("invitation is no longer valid")
	}
	return &invitation, nil
}

func ExpireOverdueInvitations() {
	db := db.GetDb()
	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.Invitation{}).
			Scopes(scopes.WithPendingStatus).
			Where("expires_at < ?", time.Now()).
			Update("status", types.INVITATION_EXPIRED).
			Error
	}); err != nil {
		log.Printf("Error while processing expired invitations: %s\n", err.Error())
	}
}

// NotifyPush sends an FCM message to the user's topic, best-effort.
func NotifyPush(uid string, title string, body string, data map[string]string) {
	if uid == "" {
		return
	}
	fcm, err := lib.GetFirebaseMessaging()
	if err != nil {
		log.Printf("Could not retrieve FCM instance: %v\n", err)
		return
	}
	res, err := fcm.Send(context.Background(), &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Topic: uid,
	})
	if err != nil {
		log.Printf("[FCM] error sending message to topic [%s]: %v\n", uid, err)
		return
	}
	log.Println("successfully sent message:", res)
}

func GetCredentials(user *models.User) error {
	db := db.GetDb()
	var stored []models.Credential
	if err := db.
		Where(&models.Credential{UserID: user.ID}).
		Find(&stored).
		Error; err != nil {
		return err
	}
	user.StoredCredentials = stored
	user.Credentials = nil
	for _, c := range stored {
		rc, err := c.UnmarshalRawCredentials()
		if err != nil {
			log.Printf("Skipping credential [%s]: %s\n", c.ID, err.Error())
			continue
		}
		user.Credentials = append(user.Credentials, *rc)
	}
	return nil
}

func SaveCredentials(user *models.User) error {
	db := db.GetDb()
	return db.Transaction(func(tx *gorm.DB) error {
		for _, c := range user.Credentials {
			id := hex.EncodeToString(c.ID)
			var count int64
			if err := tx.
				Model(&models.Credential{}).
				Where("id = ?", id).
				Count(&count).
				Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			b, err := json.Marshal(c)
			if err != nil {
				return err
			}
			raw := types.JSONB{}
			if err := json.Unmarshal(b, &raw); err != nil {
				return err
			}
			cred := models.Credential{
				ID:         id,
				DeviceName: fmt.Sprintf("device_%s", id[:8]),
				UserID:     user.ID,
				PublicKey:  hex.EncodeToString(c.PublicKey),
				RawCreds:   &raw,
			}
			if err := tx.Create(&cred).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func GetCredentialsByUser(userId uint) ([]models.Credential, error) {
	var creds []models.Credential
	db := db.GetDb()
	err := db.
		Where(&models.Credential{UserID: userId}).
		Find(&creds).
		Error
	return creds, err
}

func RevokeCredential(userId uint, deviceName string) error {
	db := db.GetDb()
	return db.Transaction(func(tx *gorm.DB) error {
		var cred models.Credential
		if err := tx.
			Where(&models.Credential{UserID: userId, DeviceName: deviceName}).
			First(&cred).
			Error; err != nil {
			return err
		}
		return tx.Delete(&cred).Error
	})
}
