package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"certmailer/internal/domain"
)

type rosterService struct {
	events       domain.EventRepository
	participants domain.ParticipantRepository
	now          func() time.Time
	logger       *slog.Logger
}

// NewRosterService creates the participant roster service.
func NewRosterService(events domain.EventRepository, participants domain.ParticipantRepository, logger *slog.Logger) domain.RosterService {
	return &rosterService{
		events:       events,
		participants: participants,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *rosterService) AddParticipant(ctx context.Context, eventID, ownerID, name, email string) (*domain.Participant, error) {
	if _, err := s.events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		return nil, err
	}
	p := domain.NewParticipant(eventID, name, email, s.now())
	if p.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !strings.Contains(p.Email, "@") {
		return nil, &domain.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if _, err := s.participants.GetByEventAndEmail(ctx, eventID, p.Email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check existing participant: %w", err)
	}
	if err := s.participants.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create participant: %w", err)
	}
	return p, nil
}

func (s *rosterService) ListParticipants(ctx context.Context, eventID, ownerID string) ([]*domain.Participant, error) {
	if _, err := s.events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		return nil, err
	}
	return s.participants.ListByEvent(ctx, eventID)
}

func (s *rosterService) DeleteParticipant(ctx context.Context, eventID, ownerID, participantID string) error {
	if _, err := s.events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		return err
	}
	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return err
	}
	if p.EventID != eventID {
		return domain.ErrNotFound
	}
	return s.participants.Delete(ctx, participantID)
}

// ImportXLSX reads an .xlsx roster. The first sheet must carry Name and Email
// columns (header row, any order, case-insensitive). Rows with a missing
// field or a duplicate email are skipped and reported, never fatal.
func (s *rosterService) ImportXLSX(ctx context.Context, eventID, ownerID string, r io.Reader) (*domain.RosterImportResult, error) {
	if _, err := s.events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &domain.ValidationError{Field: "file", Reason: "not a valid xlsx workbook"}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &domain.ValidationError{Field: "file", Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &domain.ValidationError{Field: "file", Reason: "sheet is empty"}
	}

	nameCol, emailCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			nameCol = i
		case "email":
			emailCol = i
		}
	}
	if nameCol < 0 || emailCol < 0 {
		return nil, &domain.ValidationError{Field: "file", Reason: "header row must contain Name and Email columns"}
	}

	result := &domain.RosterImportResult{}
	seen := map[string]bool{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		name, email := cell(row, nameCol), cell(row, emailCol)
		if name == "" && email == "" {
			continue
		}
		p := domain.NewParticipant(eventID, name, email, s.now())
		switch {
		case p.Name == "":
			result.Skipped++
			result.Problems = append(result.Problems, fmt.Sprintf("row %d: missing name", rowNum))
			continue
		case !strings.Contains(p.Email, "@"):
			result.Skipped++
			result.Problems = append(result.Problems, fmt.Sprintf("row %d: invalid email %q", rowNum, email))
			continue
		case seen[p.Email]:
			result.Skipped++
			result.Problems = append(result.Problems, fmt.Sprintf("row %d: duplicate email %q", rowNum, p.Email))
			continue
		}
		seen[p.Email] = true

		if err := s.participants.Create(ctx, p); err != nil {
			if errors.Is(err, domain.ErrDuplicateEmail) {
				result.Skipped++
				result.Problems = append(result.Problems, fmt.Sprintf("row %d: email %q already on roster", rowNum, p.Email))
				continue
			}
			return nil, fmt.Errorf("create participant (row %d): %w", rowNum, err)
		}
		result.Added++
	}
	s.logger.Info("roster imported", "event", eventID, "added", result.Added, "skipped", result.Skipped)
	return result, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
