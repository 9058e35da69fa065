package domain

import (
	"context"
	"strings"
)

// SenderCredentials are the organizer's outbound credentials, already
// decrypted at call time.
type SenderCredentials struct {
	Email       string
	AppPassword string
}

// Attachment is a file attached to an outbound email under a display name.
type Attachment struct {
	Path     string
	Filename string
}

// Mailer is the raw mail transport (infrastructure port). Send blocks until
// the session completes (connect, authenticate, send, close) or fails. No
// retry happens here; retry is a dispatch-run concern.
type Mailer interface {
	Send(ctx context.Context, creds SenderCredentials, to, subject, body string, attachment *Attachment) error
}

// EmailTemplateData holds the values substituted into email copy.
type EmailTemplateData struct {
	Name        string
	EventName   string
	FeedbackURL string
}

// RenderEmailTemplate substitutes the recognized placeholders into s.
// The placeholder set is fixed: {name}, {event_name}, {feedback_url}.
// Substitution is literal; this is deliberately not a template engine.
func RenderEmailTemplate(s string, data EmailTemplateData) string {
	s = strings.ReplaceAll(s, "{name}", data.Name)
	s = strings.ReplaceAll(s, "{event_name}", data.EventName)
	s = strings.ReplaceAll(s, "{feedback_url}", data.FeedbackURL)
	return s
}

// EmailDispatcher renders event email copy for a participant and sends it.
type EmailDispatcher interface {
	// SendCertificate sends the certificate email with the rendered PDF
	// attached under the participant-derived filename.
	SendCertificate(ctx context.Context, p *Participant, ev *Event, creds SenderCredentials, pdfPath string) error
	// SendFeedbackRequest sends the feedback-request email containing the
	// participant's one-time feedback link.
	SendFeedbackRequest(ctx context.Context, p *Participant, ev *Event, creds SenderCredentials, feedbackURL string) error
}
