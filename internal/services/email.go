package services

import (
	"context"
	"fmt"
	"log/slog"

	"certmailer/internal/domain"
)

type emailDispatcher struct {
	mailer domain.Mailer
	logger *slog.Logger
}

// NewEmailDispatcher returns an EmailDispatcher that renders event email copy
// and sends it through the given Mailer.
func NewEmailDispatcher(mailer domain.Mailer, logger *slog.Logger) domain.EmailDispatcher {
	return &emailDispatcher{mailer: mailer, logger: logger}
}

// SendCertificate sends the certificate email with the PDF attached under a
// filename derived from the participant's name.
func (s *emailDispatcher) SendCertificate(ctx context.Context, p *domain.Participant, ev *domain.Event, creds domain.SenderCredentials, pdfPath string) error {
	data := domain.EmailTemplateData{Name: p.Name, EventName: ev.Name}
	subject := domain.RenderEmailTemplate(ev.EmailSubject, data)
	body := domain.RenderEmailTemplate(ev.EmailBody, data)

	attachment := &domain.Attachment{Path: pdfPath, Filename: p.AttachmentFileName()}
	if err := s.mailer.Send(ctx, creds, p.Email, subject, body, attachment); err != nil {
		return fmt.Errorf("send certificate email: %w", err)
	}
	s.logger.Info("certificate email sent", "to", p.Email, "event", ev.ID)
	return nil
}

// SendFeedbackRequest sends the feedback-request email carrying the
// participant's one-time feedback link.
func (s *emailDispatcher) SendFeedbackRequest(ctx context.Context, p *domain.Participant, ev *domain.Event, creds domain.SenderCredentials, feedbackURL string) error {
	data := domain.EmailTemplateData{Name: p.Name, EventName: ev.Name, FeedbackURL: feedbackURL}
	subject := domain.RenderEmailTemplate(ev.FeedbackEmailSubject, data)
	body := domain.RenderEmailTemplate(ev.FeedbackEmailBody, data)

	if err := s.mailer.Send(ctx, creds, p.Email, subject, body, nil); err != nil {
		return fmt.Errorf("send feedback request email: %w", err)
	}
	s.logger.Info("feedback request sent", "to", p.Email, "event", ev.ID)
	return nil
}
