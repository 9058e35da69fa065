package domain

import (
	"context"
	"io"
)

// SelectionPolicy chooses which participants a dispatch run processes.
type SelectionPolicy string

const (
	// ResendAll reprocesses everyone except those mid-feedback who already
	// finished: pending, failed, feedback_sent and certificate_sent.
	ResendAll SelectionPolicy = "resend_all"
	// PendingOnly processes participants that were never attempted.
	PendingOnly SelectionPolicy = "pending_only"
)

// Statuses returns the participant statuses the policy selects.
func (p SelectionPolicy) Statuses() []ParticipantStatus {
	if p == ResendAll {
		return []ParticipantStatus{StatusPending, StatusFailed, StatusFeedbackSent, StatusCertificateSent}
	}
	return []ParticipantStatus{StatusPending}
}

// DispatchDetail is the per-participant outcome of a dispatch run.
type DispatchDetail struct {
	ParticipantID string            `json:"participant_id"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Status        ParticipantStatus `json:"status"`
	Error         string            `json:"error,omitempty"`
}

// DispatchResult aggregates a dispatch run. One participant's failure never
// aborts the run; it is recorded here and on the participant.
type DispatchResult struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Details    []DispatchDetail `json:"details"`
}

// EventStatistics summarizes delivery progress for an event.
type EventStatistics struct {
	Total            int `json:"total"`
	Pending          int `json:"pending"`
	FeedbackSent     int `json:"feedback_sent"`
	FeedbackReceived int `json:"feedback_received"`
	CertificateSent  int `json:"certificate_sent"`
	Failed           int `json:"failed"`
}

// DispatchService runs the batch engine over an event's participants.
type DispatchService interface {
	Dispatch(ctx context.Context, eventID, ownerID string, policy SelectionPolicy) (*DispatchResult, error)
}

// StatsService reports delivery progress and exports results.
type StatsService interface {
	Statistics(ctx context.Context, eventID, ownerID string) (*EventStatistics, error)
	// WriteResultsCSV writes the per-participant results table.
	WriteResultsCSV(ctx context.Context, eventID, ownerID string, w io.Writer) error
	// WriteFeedbackCSV writes submitted feedback; anonymous omits identities.
	WriteFeedbackCSV(ctx context.Context, eventID, ownerID string, anonymous bool, w io.Writer) error
}
