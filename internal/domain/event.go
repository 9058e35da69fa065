package domain

import (
	"context"
	"time"
)

// EventStatus is the campaign lifecycle state.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventSending   EventStatus = "sending"
	EventCompleted EventStatus = "completed"
)

// Template formats accepted for certificate backgrounds.
const (
	TemplateImage = "image"
	TemplatePDF   = "pdf"
)

// Default email copy. Subject and body accept the {name}, {event_name} and
// {feedback_url} placeholders; substitution is literal, not a template engine.
const (
	DefaultEmailSubject = "Your Participation Certificate"
	DefaultEmailBody    = "Dear {name},\n\nCongratulations! Please find attached your participation certificate.\n\nBest regards"

	DefaultFeedbackEmailSubject = "Complete Feedback to Receive Your Certificate"
	DefaultFeedbackEmailBody    = "Dear {name},\n\nThank you for your participation in {event_name}!\n\nTo receive your certificate, please complete our quick feedback form:\n\n{feedback_url}\n\nYour certificate will be sent to this email address immediately after submitting the feedback.\n\nBest regards,\nThe Event Team"
)

// TextSettings positions the participant name on the template. YPosition is
// the vertical center of the rendered text in final output and the top edge
// in live previews.
type TextSettings struct {
	YPosition int    `json:"y_position"`
	FontName  string `json:"font_name"`
	FontSize  int    `json:"font_size"`
	TextColor string `json:"text_color"`
}

// DefaultTextSettings returns the placement used until the organizer adjusts it.
func DefaultTextSettings() TextSettings {
	return TextSettings{
		YPosition: 500,
		FontName:  "Roboto",
		FontSize:  60,
		TextColor: "#000000",
	}
}

// FeedbackQuestion is one question on an event's feedback form.
type FeedbackQuestion struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Type      string   `json:"type"` // text, rating, multiple_choice
	Options   []string `json:"options,omitempty"`
	Required  bool     `json:"required"`
	RatingMin int      `json:"rating_min"`
	RatingMax int      `json:"rating_max"`
}

// Event represents an organizer's certificate campaign
// swagger:model Event
type Event struct {
	ID          string `json:"id"`
	OwnerID     string `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	TemplatePath   string `json:"-"`
	TemplateFormat string `json:"template_format,omitempty"` // image or pdf
	TemplateWidth  int    `json:"template_width,omitempty"`
	TemplateHeight int    `json:"template_height,omitempty"`

	TextSettings      TextSettings       `json:"text_settings"`
	FeedbackEnabled   bool               `json:"feedback_enabled"`
	FeedbackQuestions []FeedbackQuestion `json:"feedback_questions"`

	EmailSubject         string `json:"email_subject"`
	EmailBody            string `json:"email_body"`
	FeedbackEmailSubject string `json:"feedback_email_subject"`
	FeedbackEmailBody    string `json:"feedback_email_body"`

	Status    EventStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewEvent returns a draft Event with default settings and email copy.
// ID is typically set by the repository on create.
func NewEvent(ownerID, name, description string, createdAt, updatedAt time.Time) *Event {
	return &Event{
		OwnerID:              ownerID,
		Name:                 name,
		Description:          description,
		TextSettings:         DefaultTextSettings(),
		FeedbackEnabled:      true,
		FeedbackQuestions:    []FeedbackQuestion{},
		EmailSubject:         DefaultEmailSubject,
		EmailBody:            DefaultEmailBody,
		FeedbackEmailSubject: DefaultFeedbackEmailSubject,
		FeedbackEmailBody:    DefaultFeedbackEmailBody,
		Status:               EventDraft,
		CreatedAt:            createdAt,
		UpdatedAt:            updatedAt,
	}
}

// HasTemplate reports whether a certificate template has been uploaded.
func (e *Event) HasTemplate() bool {
	return e.TemplatePath != ""
}

// EventUpdate carries the organizer-editable fields of an event. Nil fields
// are left untouched.
type EventUpdate struct {
	Name                 *string             `json:"name,omitempty"`
	Description          *string             `json:"description,omitempty"`
	TextSettings         *TextSettings       `json:"text_settings,omitempty"`
	FeedbackEnabled      *bool               `json:"feedback_enabled,omitempty"`
	FeedbackQuestions    *[]FeedbackQuestion `json:"feedback_questions,omitempty"`
	EmailSubject         *string             `json:"email_subject,omitempty"`
	EmailBody            *string             `json:"email_body,omitempty"`
	FeedbackEmailSubject *string             `json:"feedback_email_subject,omitempty"`
	FeedbackEmailBody    *string             `json:"feedback_email_body,omitempty"`
}

// EventService defines organizer-facing event configuration operations.
type EventService interface {
	CreateEvent(ctx context.Context, ownerID, name, description string) (*Event, error)
	GetEvent(ctx context.Context, id, ownerID string) (*Event, error)
	ListEvents(ctx context.Context, ownerID string) ([]*Event, error)
	UpdateEvent(ctx context.Context, id, ownerID string, update EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, id, ownerID string) error
	// SetTemplate records an uploaded template and its measured dimensions.
	SetTemplate(ctx context.Context, id, ownerID, path, format string) (*Event, error)
	// Preview renders a positioned-text preview PNG and returns its path.
	Preview(ctx context.Context, id, ownerID, text string, x, y int, settings TextSettings) (string, error)
}

// EventRepository defines storage operations for events.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// GetByIDAndOwner returns ErrNotFound when the event does not exist or
	// belongs to another organizer.
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*Event, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Event, error)
	Update(ctx context.Context, event *Event) error
	UpdateStatus(ctx context.Context, id string, status EventStatus, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}
