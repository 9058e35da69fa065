package email

import (
	"context"
	"log"

	"certmailer/internal/domain"
)

// SMTPConfig holds configuration for the SMTP transport. Credentials are not
// configured here: every send authenticates with the caller's organizer
// credentials.
type SMTPConfig struct {
	Host string
	Port int
}

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// MailerConfig holds configuration for creating a mailer.
type MailerConfig struct {
	Provider string
	FromName string
	SMTP     SMTPConfig
	SES      SESConfig
}

// NewMailer creates a mailer from config. Provider "smtp" authenticates with
// per-call sender credentials; "ses" uses AWS SES; "noop" or unknown logs
// instead of sending.
func NewMailer(config MailerConfig) (domain.Mailer, error) {
	switch config.Provider {
	case "smtp":
		return &smtpMailer{
			host:     config.SMTP.Host,
			port:     config.SMTP.Port,
			fromName: config.FromName,
		}, nil
	case "ses":
		return newSESMailer(config.SES, config.FromName)
	case "noop":
		return &noopMailer{}, nil
	default:
		log.Printf("[MAILER] Unknown email provider %q, using noop", config.Provider)
		return &noopMailer{}, nil
	}
}

type noopMailer struct{}

func (n *noopMailer) Send(_ context.Context, creds domain.SenderCredentials, to, subject, _ string, attachment *domain.Attachment) error {
	log.Printf("[MAILER] Email would be sent (noop) from=%s to=%s subject=%q attachment=%v",
		creds.Email, to, subject, attachment != nil)
	return nil
}
