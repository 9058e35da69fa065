package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"certmailer/internal/domain"
)

// smtpMailer sends over an authenticated, encrypted SMTP session using the
// organizer credentials supplied per call. Each Send opens its own session:
// connect, authenticate, send, close. No retry happens here.
type smtpMailer struct {
	host     string
	port     int
	fromName string
}

func (s *smtpMailer) Send(ctx context.Context, creds domain.SenderCredentials, to, subject, body string, attachment *domain.Attachment) error {
	if creds.Email == "" || creds.AppPassword == "" {
		return domain.ErrNoSenderCredentials
	}

	msg := buildMessage(s.fromName, creds.Email, to, subject, body, attachment)

	dialer := gomail.NewDialer(s.host, s.port, creds.Email, creds.AppPassword)
	// Port 465 is implicit TLS; anything else negotiates STARTTLS.
	dialer.SSL = s.port == 465

	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return &domain.TransportError{Err: fmt.Errorf("smtp %s:%d: %w", s.host, s.port, err)}
		}
		return nil
	case <-ctx.Done():
		return &domain.TransportError{Err: ctx.Err()}
	}
}

// buildMessage assembles the MIME message shared by the SMTP and SES paths.
func buildMessage(fromName, from, to, subject, body string, attachment *domain.Attachment) *gomail.Message {
	msg := gomail.NewMessage()
	if fromName != "" {
		msg.SetAddressHeader("From", from, fromName)
	} else {
		msg.SetHeader("From", from)
	}
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if attachment != nil {
		msg.Attach(attachment.Path, gomail.Rename(attachment.Filename))
	}
	return msg
}
