package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// EmailSender delivers a plain text email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers a text message
type SMSSender interface {
	SendSMS(ctx context.Context, phone, body string) error
}

// SESAPI is the subset of the SES client used here
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSAPI is the subset of the SNS client used here
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SESMailer sends email through Amazon SES
type SESMailer struct {
	client SESAPI
	from   string
}

// NewSESMailer wraps an SES client
func NewSESMailer(client SESAPI, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

// SendEmail implements EmailSender
func (m *SESMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(m.from),
	})
	return err
}

// SNSTexter sends SMS through Amazon SNS
type SNSTexter struct {
	client SNSAPI
}

// NewSNSTexter wraps an SNS client
func NewSNSTexter(client SNSAPI) *SNSTexter {
	return &SNSTexter{client: client}
}

// SendSMS implements SMSSender
func (t *SNSTexter) SendSMS(ctx context.Context, phone, body string) error {
	_, err := t.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(body),
	})
	return err
}

// NewAWSSenders loads the default AWS credential chain for region.
// The SMS sender is nil unless smsEnabled.
func NewAWSSenders(ctx context.Context, region, from string, smsEnabled bool) (EmailSender, SMSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, nil, err
	}

	email := NewSESMailer(ses.NewFromConfig(awsCfg), from)
	if !smsEnabled {
		return email, nil, nil
	}
	return email, NewSNSTexter(sns.NewFromConfig(awsCfg)), nil
}
