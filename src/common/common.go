package common

import (
	"cabin/src/lib"
	awslib "cabin/src/lib/aws"
	"encoding/json"
	"log"

	"github.com/tidwall/gjson"
)

func SQSConsumers() {
	dlq := awslib.NewSQSConsumer(lib.WithSuffix("DLQ"), func(payload string) {
		log.Println("DLQ: message received")
	})
	dlq.Listen()
	emails := awslib.NewSQSConsumer(lib.WithSuffix("Emails"), EmailsHandler)
	emails.Listen()

	go StayRemindersConsumer()
}

func SNSSubscribes() {
	stayReminders := awslib.NewSNSSubscriber(lib.WithSuffix("StayReminders"))
	stayReminders.Subscribe("sqs", lib.GetQueueArn(lib.WithSuffix("StayReminders")))
}

// EmailsHandler delivers a queued mailer message over SMTP. The payload is
// the JSON body the SQS/Kafka mailer transports enqueue.
func EmailsHandler(body string) {
	if !gjson.Valid(body) {
		log.Println("[Emails]: Received invalid json body. Aborting")
		return
	}
	var input struct {
		From     string   `json:"from"`
		FromName string   `json:"from-name"`
		To       []string `json:"to"`
		Cc       []string `json:"cc"`
		Bcc      []string `json:"bcc"`
		ReplyTo  string   `json:"reply-to"`
		Subject  string   `json:"subject"`
		Body     string   `json:"body"`
		Html     bool     `json:"html"`
	}
	if err := json.Unmarshal([]byte(body), &input); err != nil {
		log.Printf("Error deserializing JSON: %s\n", err.Error())
		return
	}
	if err := lib.SendMail(&lib.SendMailInput{
		From:     input.From,
		FromName: input.FromName,
		To:       input.To,
		Cc:       input.Cc,
		Bcc:      input.Bcc,
		ReplyTo:  input.ReplyTo,
		Subject:  input.Subject,
		Body:     input.Body,
		Html:     input.Html,
	}); err != nil {
		log.Printf("[Emails] delivery failed: %s\n", err.Error())
	}
}
