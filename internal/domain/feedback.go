package domain

import (
	"context"
	"time"
)

// FeedbackAnswer is one answer in a submission, keyed to a question on the
// event's feedback form. Rating answers are carried as their decimal string.
type FeedbackAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// FeedbackToken is a one-time capability binding a participant to a pending
// certificate release. A non-nil SubmittedAt makes the token terminal.
type FeedbackToken struct {
	ID            string           `json:"id"`
	ParticipantID string           `json:"participant_id"`
	EventID       string           `json:"event_id"`
	Token         string           `json:"token"`
	Answers       []FeedbackAnswer `json:"answers"`
	SubmittedAt   *time.Time       `json:"submitted_at,omitempty"`
}

// FeedbackTokenRepository defines storage operations for feedback tokens.
type FeedbackTokenRepository interface {
	// Upsert stores the token keyed by participant: re-issuing for the same
	// participant replaces the prior token and resets answers and SubmittedAt.
	Upsert(ctx context.Context, t *FeedbackToken) error
	GetByToken(ctx context.Context, token string) (*FeedbackToken, error)
	// MarkSubmitted stores the answers and stamps the submission time.
	MarkSubmitted(ctx context.Context, token string, answers []FeedbackAnswer, at time.Time) error
	// ListSubmittedByEvent returns tokens whose feedback has been submitted,
	// for feedback export.
	ListSubmittedByEvent(ctx context.Context, eventID string) ([]*FeedbackToken, error)
}

// FeedbackForm is the public payload shown to a participant opening their
// feedback link.
type FeedbackForm struct {
	ParticipantName  string             `json:"participant_name"`
	ParticipantEmail string             `json:"participant_email"`
	EventName        string             `json:"event_name"`
	Questions        []FeedbackQuestion `json:"questions"`
}

// FeedbackService is the feedback gate: token issuance happens inside a
// dispatch run; Form and Redeem serve the participant-facing link.
type FeedbackService interface {
	Form(ctx context.Context, token string) (*FeedbackForm, error)
	// Redeem stores the answers and triggers certificate render+send. The
	// submission is never rolled back: if delivery fails afterwards the
	// participant is marked failed and the error returned, but answers and
	// the submission timestamp are preserved.
	Redeem(ctx context.Context, token string, answers []FeedbackAnswer) error
}
