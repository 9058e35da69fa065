package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"certmailer/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestParticipantRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		participant *domain.Participant
		mock        func(mock sqlmock.Sqlmock)
		wantID      string
		wantErr     error
	}{
		{
			name:        "success",
			participant: domain.NewParticipant("ev-1", "Ada Lovelace", "Ada@Example.com", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO participants \(event_id, name, email, status, created_at\)`).
					WithArgs("ev-1", "Ada Lovelace", "ada@example.com", domain.StatusPending, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p-uuid-1"))
			},
			wantID: "p-uuid-1",
		},
		{
			name:        "db error",
			participant: domain.NewParticipant("ev-1", "Ada", "ada@example.com", time.Now()),
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO participants`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewParticipantRepository(db)
			err = repo.Create(ctx, tt.participant)
			if tt.wantErr != nil {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, tt.participant.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestParticipantRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	cols := []string{
		"id", "event_id", "name", "email", "status", "feedback_token",
		"feedback_submitted_at", "certificate_sent_at", "error_message", "created_at",
	}
	submitted := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("success with nullable fields set", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT .+ FROM participants`).
			WithArgs("p-1").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(
				"p-1", "ev-1", "Ada Lovelace", "ada@example.com", "feedback_received",
				"tok-abc", submitted, nil, nil, time.Now(),
			))

		repo := NewParticipantRepository(db)
		p, err := repo.GetByID(ctx, "p-1")
		require.NoError(t, err)
		require.Equal(t, domain.StatusFeedbackReceived, p.Status)
		require.Equal(t, "tok-abc", p.FeedbackToken)
		require.NotNil(t, p.FeedbackSubmittedAt)
		require.Equal(t, submitted, *p.FeedbackSubmittedAt)
		require.Nil(t, p.CertificateSentAt)
		require.Nil(t, p.ErrorMessage)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row returns ErrNotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT .+ FROM participants`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		repo := NewParticipantRepository(db)
		_, err = repo.GetByID(ctx, "missing")
		require.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestParticipantRepository_ListByEventAndStatus(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{
		"id", "event_id", "name", "email", "status", "feedback_token",
		"feedback_submitted_at", "certificate_sent_at", "error_message", "created_at",
	}
	mock.ExpectQuery(`SELECT .+ FROM participants WHERE event_id = \$1 AND status = ANY\(\$2\)`).
		WithArgs("ev-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p-1", "ev-1", "Ada", "ada@example.com", "pending", nil, nil, nil, nil, time.Now()).
			AddRow("p-2", "ev-1", "Grace", "grace@example.com", "failed", nil, nil, nil, "smtp auth failed", time.Now()))

	repo := NewParticipantRepository(db)
	got, err := repo.ListByEventAndStatus(ctx, "ev-1", domain.ResendAll.Statuses())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, domain.StatusFailed, got[1].Status)
	require.NotNil(t, got[1].ErrorMessage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipantRepository_StatusWrites(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		call    func(repo domain.ParticipantRepository) error
		wantErr error
	}{
		{
			name: "mark feedback sent stores token and clears error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE participants`).
					WithArgs("p-1", domain.StatusFeedbackSent, "tok-new").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			call: func(repo domain.ParticipantRepository) error {
				return repo.MarkFeedbackSent(ctx, "p-1", "tok-new")
			},
		},
		{
			name: "mark feedback received stamps time",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE participants`).
					WithArgs("p-1", domain.StatusFeedbackReceived, now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			call: func(repo domain.ParticipantRepository) error {
				return repo.MarkFeedbackReceived(ctx, "p-1", now)
			},
		},
		{
			name: "mark certificate sent stamps time",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE participants`).
					WithArgs("p-1", domain.StatusCertificateSent, now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			call: func(repo domain.ParticipantRepository) error {
				return repo.MarkCertificateSent(ctx, "p-1", now)
			},
		},
		{
			name: "mark failed stores message",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE participants`).
					WithArgs("p-1", domain.StatusFailed, "template not found").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			call: func(repo domain.ParticipantRepository) error {
				return repo.MarkFailed(ctx, "p-1", "template not found")
			},
		},
		{
			name: "missing participant returns ErrNotFound",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE participants`).
					WithArgs("missing", domain.StatusFailed, "x").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			call: func(repo domain.ParticipantRepository) error {
				return repo.MarkFailed(ctx, "missing", "x")
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewParticipantRepository(db)
			err = tt.call(repo)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
