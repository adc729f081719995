package mailer

import (
	"cabin/src/lib"
	awslib "cabin/src/lib/aws"
	"cabin/src/types"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Mailer is one delivery transport. SMTP and SES send synchronously; SQS and
// Kafka enqueue for the email worker.
type Mailer interface {
	Name() string
	Send(input *lib.SendMailInput) error
}

type SMTPMailer struct{}

func (m *SMTPMailer) Name() string { return "smtp" }
func (m *SMTPMailer) Send(input *lib.SendMailInput) error {
	return lib.SendMail(input)
}

type SESMailer struct{}

func (m *SESMailer) Name() string { return "ses" }
func (m *SESMailer) Send(input *lib.SendMailInput) error {
	body := &sestypes.Body{}
	if input.Html {
		body.Html = &sestypes.Content{Data: aws.String(input.Body)}
	} else {
		body.Text = &sestypes.Content{Data: aws.String(input.Body)}
	}
	return awslib.SESSendMessage(
		aws.String(input.From),
		&sestypes.Destination{
			ToAddresses:  input.To,
			CcAddresses:  input.Cc,
			BccAddresses: input.Bcc,
		},
		&sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(input.Subject)},
			Body:    body,
		},
	)
}

func queueBody(input *lib.SendMailInput) *types.JSONB {
	return &types.JSONB{
		"from":      input.From,
		"from-name": input.FromName,
		"to":        input.To,
		"cc":        input.Cc,
		"bcc":       input.Bcc,
		"reply-to":  input.ReplyTo,
		"body":      input.Body,
		"html":      input.Html,
		"subject":   input.Subject,
	}
}

type SQSMailer struct{}

func (m *SQSMailer) Name() string { return "sqs" }
func (m *SQSMailer) Send(input *lib.SendMailInput) error {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	body, err := json.Marshal(queueBody(input))
	if err != nil {
		return err
	}
	if err := lib.SQSProduceMessage(lib.WithSuffix(emailQueue), string(body)); err != nil {
		return fmt.Errorf("error sending message to queue: %s", err.Error())
	}
	return nil
}

type KafkaMailer struct{}

func (m *KafkaMailer) Name() string { return "kafka" }
func (m *KafkaMailer) Send(input *lib.SendMailInput) error {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	if err := lib.KafkaProduceMessage("emails", lib.WithSuffix(emailQueue), queueBody(input)); err != nil {
		return fmt.Errorf("error sending message to queue: %s", err.Error())
	}
	return nil
}

// GetMailer picks the transport named by MAILER_TRANSPORT, falling back to
// plain SMTP.
func GetMailer() Mailer {
	switch os.Getenv("MAILER_TRANSPORT") {
	case "ses":
		return &SESMailer{}
	case "sqs":
		return &SQSMailer{}
	case "kafka":
		return &KafkaMailer{}
	default:
		return &SMTPMailer{}
	}
}

func NewMailerMessage(input *lib.SendMailInput) error {
	return GetMailer().Send(input)
}
