package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"certmailer/internal/domain"
)

type statsService struct {
	events       domain.EventRepository
	participants domain.ParticipantRepository
	tokens       domain.FeedbackTokenRepository
}

// NewStatsService creates the statistics and export service.
func NewStatsService(events domain.EventRepository, participants domain.ParticipantRepository, tokens domain.FeedbackTokenRepository) domain.StatsService {
	return &statsService{
		events:       events,
		participants: participants,
		tokens:       tokens,
	}
}

func (s *statsService) Statistics(ctx context.Context, eventID, ownerID string) (*domain.EventStatistics, error) {
	if _, err := s.events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		return nil, err
	}
	counts, err := s.participants.CountByStatus(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	stats := &domain.EventStatistics{
		Pending:          counts[domain.StatusPending],
		FeedbackSent:     counts[domain.StatusFeedbackSent],
		FeedbackReceived: counts[domain.StatusFeedbackReceived],
		CertificateSent:  counts[domain.StatusCertificateSent],
		Failed:           counts[domain.StatusFailed],
	}
	stats.Total = stats.Pending + stats.FeedbackSent + stats.FeedbackReceived + stats.CertificateSent + stats.Failed
	return stats, nil
}

func (s *statsService) WriteResultsCSV(ctx context.Context, eventID, ownerID string, w io.Writer) error {
	if _, err := s.events.GetByIDAndOwner(ctx, eventID, ownerID); err != nil {
		return err
	}
	participants, err := s.participants.ListByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Email", "Status", "Feedback Submitted", "Certificate Sent", "Error"}); err != nil {
		return err
	}
	for _, p := range participants {
		errMsg := ""
		if p.ErrorMessage != nil {
			errMsg = *p.ErrorMessage
		}
		row := []string{
			p.Name,
			p.Email,
			string(p.Status),
			formatTime(p.FeedbackSubmittedAt),
			formatTime(p.CertificateSentAt),
			errMsg,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFeedbackCSV exports submitted feedback, one row per submission with a
// column per event question. With anonymous set, the identity columns are
// omitted entirely rather than blanked.
func (s *statsService) WriteFeedbackCSV(ctx context.Context, eventID, ownerID string, anonymous bool, w io.Writer) error {
	ev, err := s.events.GetByIDAndOwner(ctx, eventID, ownerID)
	if err != nil {
		return err
	}
	tokens, err := s.tokens.ListSubmittedByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("list feedback: %w", err)
	}

	header := []string{"Submitted At"}
	if !anonymous {
		header = append([]string{"Name", "Email"}, header...)
	}
	for _, q := range ev.FeedbackQuestions {
		header = append(header, q.Question)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range tokens {
		answers := map[string]string{}
		for _, a := range t.Answers {
			answers[a.QuestionID] = a.Answer
		}

		var row []string
		if !anonymous {
			p, err := s.participants.GetByID(ctx, t.ParticipantID)
			if err != nil {
				return fmt.Errorf("get participant: %w", err)
			}
			row = append(row, p.Name, p.Email)
		}
		row = append(row, formatTime(t.SubmittedAt))
		for _, q := range ev.FeedbackQuestions {
			row = append(row, answers[q.ID])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
