package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"certmailer/internal/domain"
)

type participantRepository struct {
	DB *sql.DB
}

func NewParticipantRepository(db *sql.DB) domain.ParticipantRepository {
	return &participantRepository{
		DB: db,
	}
}

const participantColumns = `id, event_id, name, email, status, feedback_token,
	feedback_submitted_at, certificate_sent_at, error_message, created_at`

func (r *participantRepository) Create(ctx context.Context, p *domain.Participant) error {
	query := `
		INSERT INTO participants (event_id, name, email, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.EventID, p.Name, p.Email, p.Status, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *participantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	return r.scanParticipant(r.DB.QueryRowContext(ctx, query, id))
}

func (r *participantRepository) GetByEventAndEmail(ctx context.Context, eventID, email string) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE event_id = $1 AND email = $2`
	return r.scanParticipant(r.DB.QueryRowContext(ctx, query, eventID, strings.ToLower(email)))
}

func (r *participantRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE event_id = $1 ORDER BY name`
	return r.queryParticipants(ctx, query, eventID)
}

func (r *participantRepository) ListByEventAndStatus(ctx context.Context, eventID string, statuses []domain.ParticipantStatus) ([]*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE event_id = $1 AND status = ANY($2) ORDER BY name`
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	return r.queryParticipants(ctx, query, eventID, pq.Array(ss))
}

func (r *participantRepository) CountByStatus(ctx context.Context, eventID string) (map[domain.ParticipantStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM participants WHERE event_id = $1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ParticipantStatus]int)
	for rows.Next() {
		var status domain.ParticipantStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *participantRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *participantRepository) MarkFeedbackSent(ctx context.Context, id, token string) error {
	query := `
		UPDATE participants
		SET status = $2, feedback_token = $3, error_message = NULL
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, domain.StatusFeedbackSent, token)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *participantRepository) MarkFeedbackReceived(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE participants
		SET status = $2, feedback_submitted_at = $3
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, domain.StatusFeedbackReceived, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *participantRepository) MarkCertificateSent(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE participants
		SET status = $2, certificate_sent_at = $3, error_message = NULL
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, domain.StatusCertificateSent, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *participantRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	query := `
		UPDATE participants
		SET status = $2, error_message = $3
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, domain.StatusFailed, errorMessage)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *participantRepository) queryParticipants(ctx context.Context, query string, args ...any) ([]*domain.Participant, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*domain.Participant
	for rows.Next() {
		p, err := r.scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if participants == nil {
		participants = []*domain.Participant{}
	}
	return participants, nil
}

func (r *participantRepository) scanParticipant(row scanner) (*domain.Participant, error) {
	p := &domain.Participant{}
	var tokenNull, errNull sql.NullString
	var submittedNull, sentNull sql.NullTime
	err := row.Scan(
		&p.ID, &p.EventID, &p.Name, &p.Email, &p.Status, &tokenNull,
		&submittedNull, &sentNull, &errNull, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.FeedbackToken = tokenNull.String
	if submittedNull.Valid {
		p.FeedbackSubmittedAt = &submittedNull.Time
	}
	if sentNull.Valid {
		p.CertificateSentAt = &sentNull.Time
	}
	if errNull.Valid {
		p.ErrorMessage = &errNull.String
	}
	return p, nil
}
