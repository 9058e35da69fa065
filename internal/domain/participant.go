package domain

import (
	"context"
	"io"
	"strings"
	"time"
)

// ParticipantStatus is the per-participant delivery lifecycle. The status
// column is written only through the transition methods below; no other
// component mutates it directly.
type ParticipantStatus string

const (
	StatusPending          ParticipantStatus = "pending"
	StatusFeedbackSent     ParticipantStatus = "feedback_sent"
	StatusFeedbackReceived ParticipantStatus = "feedback_received"
	StatusCertificateSent  ParticipantStatus = "certificate_sent"
	StatusFailed           ParticipantStatus = "failed"
)

// Valid reports whether s is a known status value.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case StatusPending, StatusFeedbackSent, StatusFeedbackReceived, StatusCertificateSent, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to target is a legal lifecycle
// step. Failed is reachable from anywhere; resend runs reopen feedback_sent
// and certificate_sent; feedback_received is only entered by token redemption.
func (s ParticipantStatus) CanTransition(target ParticipantStatus) bool {
	switch target {
	case StatusFailed:
		return true
	case StatusFeedbackSent:
		switch s {
		case StatusPending, StatusFailed, StatusFeedbackSent, StatusCertificateSent:
			return true
		}
	case StatusFeedbackReceived:
		return s == StatusFeedbackSent
	case StatusCertificateSent:
		switch s {
		case StatusPending, StatusFailed, StatusFeedbackReceived, StatusCertificateSent:
			return true
		}
	}
	return false
}

// Participant is one recipient row within an event.
// swagger:model Participant
type Participant struct {
	ID      string `json:"id"`
	EventID string `json:"-"`
	Name    string `json:"name"`
	// Email is stored lower-cased; (event, email) is unique.
	Email  string            `json:"email"`
	Status ParticipantStatus `json:"status"`

	FeedbackToken       string     `json:"-"`
	FeedbackSubmittedAt *time.Time `json:"feedback_submitted_at,omitempty"`
	CertificateSentAt   *time.Time `json:"certificate_sent_at,omitempty"`
	ErrorMessage        *string    `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewParticipant returns a pending Participant with a normalized email.
// ID is typically set by the repository on create.
func NewParticipant(eventID, name, email string, createdAt time.Time) *Participant {
	return &Participant{
		EventID:   eventID,
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Status:    StatusPending,
		CreatedAt: createdAt,
	}
}

// SafeFileName returns the participant name with path separators replaced,
// used as the artifact base name on disk.
func (p *Participant) SafeFileName() string {
	name := strings.ReplaceAll(p.Name, "/", "_")
	return strings.ReplaceAll(name, "\\", "_")
}

// AttachmentFileName is the certificate file name used in outbound email.
func (p *Participant) AttachmentFileName() string {
	return "Certificate_" + strings.ReplaceAll(p.Name, " ", "_") + ".pdf"
}

// RosterImportResult reports an xlsx import: rows added plus the rows
// skipped as duplicates or invalid.
type RosterImportResult struct {
	Added    int      `json:"added"`
	Skipped  int      `json:"skipped"`
	Problems []string `json:"problems,omitempty"`
}

// RosterService manages an event's participant list.
type RosterService interface {
	AddParticipant(ctx context.Context, eventID, ownerID, name, email string) (*Participant, error)
	ListParticipants(ctx context.Context, eventID, ownerID string) ([]*Participant, error)
	DeleteParticipant(ctx context.Context, eventID, ownerID, participantID string) error
	// ImportXLSX reads an .xlsx roster with Name and Email columns.
	ImportXLSX(ctx context.Context, eventID, ownerID string, r io.Reader) (*RosterImportResult, error)
}

// ParticipantRepository defines storage operations for participants. Each
// status-changing method is a single UPDATE so a transition is atomic.
type ParticipantRepository interface {
	Create(ctx context.Context, p *Participant) error
	GetByID(ctx context.Context, id string) (*Participant, error)
	GetByEventAndEmail(ctx context.Context, eventID, email string) (*Participant, error)
	ListByEvent(ctx context.Context, eventID string) ([]*Participant, error)
	ListByEventAndStatus(ctx context.Context, eventID string, statuses []ParticipantStatus) ([]*Participant, error)
	CountByStatus(ctx context.Context, eventID string) (map[ParticipantStatus]int, error)
	Delete(ctx context.Context, id string) error

	// MarkFeedbackSent stores the active token, sets status feedback_sent and
	// clears any previous error.
	MarkFeedbackSent(ctx context.Context, id, token string) error
	// MarkFeedbackReceived sets status feedback_received and stamps the
	// submission time.
	MarkFeedbackReceived(ctx context.Context, id string, at time.Time) error
	// MarkCertificateSent sets status certificate_sent, stamps the sent time
	// and clears any previous error.
	MarkCertificateSent(ctx context.Context, id string, at time.Time) error
	// MarkFailed sets status failed with the given error message.
	MarkFailed(ctx context.Context, id, errorMessage string) error
}
