// internal/mailer/ses.go
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESMailer sends email through AWS SES.
type SESMailer struct {
	client    *ses.Client
	fromEmail string
	fromName  string
}

func NewSESMailer(ctx context.Context, region, fromEmail, fromName string) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	source := fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	charset := "UTF-8"

	input := &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: []string{msg.Recipient},
		},
		ReplyToAddresses: []string{m.fromEmail},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTMLContent), Charset: aws.String(charset)},
				Text: &types.Content{Data: aws.String(msg.TextContent), Charset: aws.String(charset)},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send to %s: %w", msg.Recipient, err)
	}
	return nil
}
