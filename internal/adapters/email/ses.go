package email

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"certmailer/internal/domain"
)

// sesMailer delivers through AWS SES. SES cannot authenticate with
// per-organizer app passwords, so the configured SES identity sends on the
// organizer's behalf; the organizer address is used as From and must be a
// verified identity.
type sesMailer struct {
	client   *ses.Client
	fromName string
}

func newSESMailer(config SESConfig, fromName string) (domain.Mailer, error) {
	if config.Region == "" {
		return nil, fmt.Errorf("ses mailer: region is required")
	}
	awsCfg := aws.Config{
		Region: config.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			),
		),
	}
	return &sesMailer{
		client:   ses.NewFromConfig(awsCfg),
		fromName: fromName,
	}, nil
}

func (s *sesMailer) Send(ctx context.Context, creds domain.SenderCredentials, to, subject, body string, attachment *domain.Attachment) error {
	if creds.Email == "" {
		return domain.ErrNoSenderCredentials
	}

	// Attachments require the raw API; reuse the same MIME assembly as the
	// SMTP path.
	msg := buildMessage(s.fromName, creds.Email, to, subject, body, attachment)
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	input := &ses.SendRawEmailInput{
		Source:       aws.String(creds.Email),
		Destinations: []string{to},
		RawMessage:   &types.RawMessage{Data: buf.Bytes()},
	}
	result, err := s.client.SendRawEmail(ctx, input)
	if err != nil {
		return &domain.TransportError{Err: fmt.Errorf("ses: %w", err)}
	}
	log.Printf("[MAILER] Email sent via SES. MessageID: %s", aws.ToString(result.MessageId))
	return nil
}
