package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"certmailer/internal/domain"
)

type feedbackTokenRepository struct {
	DB *sql.DB
}

func NewFeedbackTokenRepository(db *sql.DB) domain.FeedbackTokenRepository {
	return &feedbackTokenRepository{
		DB: db,
	}
}

// Upsert is keyed by participant: issuing a new token for the same
// participant replaces the old one and resets answers and submitted_at.
func (r *feedbackTokenRepository) Upsert(ctx context.Context, t *domain.FeedbackToken) error {
	answers, err := json.Marshal(t.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	query := `
		INSERT INTO feedback_tokens (participant_id, event_id, token, answers, submitted_at)
		VALUES ($1, $2, $3, $4, NULL)
		ON CONFLICT (participant_id)
		DO UPDATE SET token = $3, answers = $4, submitted_at = NULL
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, t.ParticipantID, t.EventID, t.Token, answers).Scan(&t.ID)
}

func (r *feedbackTokenRepository) GetByToken(ctx context.Context, token string) (*domain.FeedbackToken, error) {
	query := `
		SELECT id, participant_id, event_id, token, answers, submitted_at
		FROM feedback_tokens
		WHERE token = $1
	`
	return r.scanToken(r.DB.QueryRowContext(ctx, query, token))
}

func (r *feedbackTokenRepository) MarkSubmitted(ctx context.Context, token string, answers []domain.FeedbackAnswer, at time.Time) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	query := `
		UPDATE feedback_tokens
		SET answers = $2, submitted_at = $3
		WHERE token = $1 AND submitted_at IS NULL
	`
	res, err := r.DB.ExecContext(ctx, query, token, data, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either unknown token or already submitted; the service checks
		// which before calling, so treat this as a lost race on reuse.
		return domain.ErrAlreadySubmitted
	}
	return nil
}

func (r *feedbackTokenRepository) ListSubmittedByEvent(ctx context.Context, eventID string) ([]*domain.FeedbackToken, error) {
	query := `
		SELECT id, participant_id, event_id, token, answers, submitted_at
		FROM feedback_tokens
		WHERE event_id = $1 AND submitted_at IS NOT NULL
		ORDER BY submitted_at
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*domain.FeedbackToken
	for rows.Next() {
		t, err := r.scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = []*domain.FeedbackToken{}
	}
	return tokens, nil
}

func (r *feedbackTokenRepository) scanToken(row scanner) (*domain.FeedbackToken, error) {
	t := &domain.FeedbackToken{}
	var answers []byte
	var submittedNull sql.NullTime
	err := row.Scan(&t.ID, &t.ParticipantID, &t.EventID, &t.Token, &answers, &submittedNull)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	t.Answers = []domain.FeedbackAnswer{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &t.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	if submittedNull.Valid {
		t.SubmittedAt = &submittedNull.Time
	}
	return t, nil
}
