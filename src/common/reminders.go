package common

import (
	"cabin/src/config"
	"cabin/src/db"
	"cabin/src/lib"
	awslib "cabin/src/lib/aws"
	"cabin/src/lib/mailer"
	"cabin/src/models"
	"cabin/src/types"
	"cabin/src/utils"
	"encoding/json"
	"fmt"
	"log"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// StayRemindersConsumer handles the scheduled jobs that fire two days before
// a stay begins: reminder email, in-app notification, push, then the JobTask
// is marked done.
func StayRemindersConsumer() {
	qname := lib.WithSuffix("StayReminders")
	log.Printf("%s: Listening for messages...", qname)
	c := awslib.NewSQSConsumer(qname, func(body string) {
		if !gjson.Valid(body) {
			log.Printf("[%s]: Received invalid json body. Aborting", qname)
			return
		}
		var payload types.JSONB
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			log.Printf("Error deserializing JSON: %s\n", err.Error())
			return
		}
		// SNS wraps the scheduler payload in a Message envelope; direct
		// Kafka deliveries are already the bare payload
		msg := payload
		if raw, ok := payload["Message"].(string); ok {
			msg = types.JSONB{}
			json.Unmarshal([]byte(raw), &msg)
		}
		id, ok := msg["id"].(float64)
		if !ok {
			log.Printf("[%s]: payload carries no reservation id. Aborting", qname)
			return
		}
		reservationId := uint(id)
		log.Printf("[StayReminders]: %d", reservationId)

		go func() {
			db := db.GetDb()
			var reservation models.Reservation
			if err := db.
				Model(&models.Reservation{}).
				Preload("User").
				Where(&models.Reservation{ID: reservationId}).
				First(&reservation).
				Error; err != nil {
				log.Printf("Error retrieving reservation [%d]: %s\n", reservationId, err.Error())
				return
			}
			if reservation.User == nil {
				return
			}
			err := db.Transaction(func(tx *gorm.DB) error {
				notification := models.Notification{
					UserID:  *reservation.UserID,
					Type:    types.NOTIFY_STAY_REMINDER,
					Title:   "Your cabin stay is coming up",
					Message: fmt.Sprintf("Your stay starts on %s", reservation.StartDate),
					Metadata: &types.JSONB{
						"reservation_id": reservation.ID,
					},
				}
				return tx.Create(&notification).Error
			})
			if err != nil {
				log.Printf("Error creating reminder notification: %s\n", err.Error())
			}
			if err := mailer.NewMailerMessage(&lib.SendMailInput{
				From:     config.SMTP_FROM,
				FromName: "Cabin Calendar",
				Subject:  "Your cabin stay is coming up",
				To:       []string{reservation.User.Email},
				Body: fmt.Sprintf(`
					<p>A reminder that your cabin stay runs %s to %s.</p>
					<p>Safe travels!</p>
				`, reservation.StartDate, reservation.EndDate),
				Html: true,
			}); err != nil {
				log.Printf("Could not send reminder email to [%s]: %s\n", reservation.User.Email, err.Error())
			}
			go utils.NotifyPush(reservation.User.UID, "Your cabin stay is coming up", fmt.Sprintf("Your stay starts on %s", reservation.StartDate), map[string]string{
				"reservation_id": fmt.Sprint(reservation.ID),
			})
			go lib.EmitNotification(reservation.User.UID, map[string]any{
				"type":           string(types.NOTIFY_STAY_REMINDER),
				"reservation_id": reservation.ID,
			})
		}()

		payloadId, ok := msg["payloadId"].(string)
		if !ok {
			return
		}
		go func() {
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				return tx.
					Where(&models.JobTask{PayloadID: payloadId}).
					Updates(&models.JobTask{Status: "done"}).
					Error
			})
			if err != nil {
				log.Printf("Error updating job status: %s\n", err.Error())
			}
		}()
	})
	c.Listen()
}
