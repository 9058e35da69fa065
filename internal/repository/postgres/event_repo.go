package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"certmailer/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const eventColumns = `id, owner_id, name, description, template_path, template_format,
	template_width, template_height, text_settings, feedback_enabled, feedback_questions,
	email_subject, email_body, feedback_email_subject, feedback_email_body,
	status, created_at, updated_at`

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	settings, err := json.Marshal(e.TextSettings)
	if err != nil {
		return fmt.Errorf("marshal text settings: %w", err)
	}
	questions, err := json.Marshal(e.FeedbackQuestions)
	if err != nil {
		return fmt.Errorf("marshal feedback questions: %w", err)
	}
	query := `
		INSERT INTO events (owner_id, name, description, text_settings, feedback_enabled,
			feedback_questions, email_subject, email_body, feedback_email_subject,
			feedback_email_body, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.OwnerID, e.Name, e.Description, settings, e.FeedbackEnabled, questions,
		e.EmailSubject, e.EmailBody, e.FeedbackEmailSubject, e.FeedbackEmailBody,
		e.Status, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

func (r *eventRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND owner_id = $2`
	return r.scanEvent(r.DB.QueryRowContext(ctx, query, id, ownerID))
}

func (r *eventRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	settings, err := json.Marshal(e.TextSettings)
	if err != nil {
		return fmt.Errorf("marshal text settings: %w", err)
	}
	questions, err := json.Marshal(e.FeedbackQuestions)
	if err != nil {
		return fmt.Errorf("marshal feedback questions: %w", err)
	}
	query := `
		UPDATE events
		SET name = $2, description = $3, template_path = $4, template_format = $5,
			template_width = $6, template_height = $7, text_settings = $8,
			feedback_enabled = $9, feedback_questions = $10, email_subject = $11,
			email_body = $12, feedback_email_subject = $13, feedback_email_body = $14,
			status = $15, updated_at = $16
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query,
		e.ID, e.Name, e.Description, nullString(e.TemplatePath), nullString(e.TemplateFormat),
		e.TemplateWidth, e.TemplateHeight, settings, e.FeedbackEnabled, questions,
		e.EmailSubject, e.EmailBody, e.FeedbackEmailSubject, e.FeedbackEmailBody,
		e.Status, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, status domain.EventStatus, updatedAt time.Time) error {
	query := `UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, status, updatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *eventRepository) scanEvent(row scanner) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull, pathNull, formatNull sql.NullString
	var widthNull, heightNull sql.NullInt64
	var settings, questions []byte
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.Name, &descNull, &pathNull, &formatNull,
		&widthNull, &heightNull, &settings, &e.FeedbackEnabled, &questions,
		&e.EmailSubject, &e.EmailBody, &e.FeedbackEmailSubject, &e.FeedbackEmailBody,
		&e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	e.Description = descNull.String
	e.TemplatePath = pathNull.String
	e.TemplateFormat = formatNull.String
	e.TemplateWidth = int(widthNull.Int64)
	e.TemplateHeight = int(heightNull.Int64)
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &e.TextSettings); err != nil {
			return nil, fmt.Errorf("unmarshal text settings: %w", err)
		}
	}
	e.FeedbackQuestions = []domain.FeedbackQuestion{}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &e.FeedbackQuestions); err != nil {
			return nil, fmt.Errorf("unmarshal feedback questions: %w", err)
		}
	}
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
