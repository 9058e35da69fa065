package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"certmailer/internal/domain"
)

// tokenBytes is the entropy of a feedback token before encoding.
const tokenBytes = 32

// FeedbackGate extends the public feedback service with token issuance,
// which only the dispatch engine calls.
type FeedbackGate interface {
	domain.FeedbackService
	// Issue upserts a fresh token for the participant (replacing any prior
	// unsubmitted one) and marks the participant feedback_sent.
	Issue(ctx context.Context, p *domain.Participant, ev *domain.Event) (string, error)
}

type feedbackService struct {
	tokens       domain.FeedbackTokenRepository
	participants domain.ParticipantRepository
	events       domain.EventRepository
	users        domain.UserRepository
	certs        CertificateSender
	cipher       domain.CredentialCipher
	locks        *keyedLock
	now          func() time.Time
	logger       *slog.Logger
}

// NewFeedbackService creates the feedback gate. locks must be the same
// keyed lock the dispatch engine uses so same-participant work serializes.
func NewFeedbackService(
	tokens domain.FeedbackTokenRepository,
	participants domain.ParticipantRepository,
	events domain.EventRepository,
	users domain.UserRepository,
	certs CertificateSender,
	cipher domain.CredentialCipher,
	locks *keyedLock,
	logger *slog.Logger,
) FeedbackGate {
	return &feedbackService{
		tokens:       tokens,
		participants: participants,
		events:       events,
		users:        users,
		certs:        certs,
		cipher:       cipher,
		locks:        locks,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *feedbackService) Issue(ctx context.Context, p *domain.Participant, ev *domain.Event) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	t := &domain.FeedbackToken{
		ParticipantID: p.ID,
		EventID:       ev.ID,
		Token:         token,
		Answers:       []domain.FeedbackAnswer{},
	}
	if err := s.tokens.Upsert(ctx, t); err != nil {
		return "", fmt.Errorf("store feedback token: %w", err)
	}
	if err := s.participants.MarkFeedbackSent(ctx, p.ID, token); err != nil {
		return "", fmt.Errorf("mark feedback sent: %w", err)
	}
	return token, nil
}

func (s *feedbackService) Form(ctx context.Context, token string) (*domain.FeedbackForm, error) {
	t, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if t.SubmittedAt != nil {
		return nil, domain.ErrAlreadySubmitted
	}
	p, err := s.participants.GetByID(ctx, t.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	ev, err := s.events.GetByID(ctx, t.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &domain.FeedbackForm{
		ParticipantName:  p.Name,
		ParticipantEmail: p.Email,
		EventName:        ev.Name,
		Questions:        ev.FeedbackQuestions,
	}, nil
}

// Redeem stores the answers and releases the certificate. The submission is
// recorded before delivery is attempted and is never rolled back: a failed
// delivery marks the participant failed for a later resend, with the
// feedback preserved.
func (s *feedbackService) Redeem(ctx context.Context, token string, answers []domain.FeedbackAnswer) error {
	t, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if t.SubmittedAt != nil {
		return domain.ErrAlreadySubmitted
	}

	unlock := s.locks.Lock(t.ParticipantID)
	defer unlock()

	p, err := s.participants.GetByID(ctx, t.ParticipantID)
	if err != nil {
		return fmt.Errorf("get participant: %w", err)
	}
	ev, err := s.events.GetByID(ctx, t.EventID)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	creds, err := s.senderCredentials(ctx, ev.OwnerID)
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.tokens.MarkSubmitted(ctx, token, answers, now); err != nil {
		// A concurrent redeem won the race.
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			return domain.ErrAlreadySubmitted
		}
		return fmt.Errorf("store answers: %w", err)
	}
	if err := s.participants.MarkFeedbackReceived(ctx, p.ID, now); err != nil {
		return fmt.Errorf("mark feedback received: %w", err)
	}

	if err := s.certs.RenderAndSend(ctx, ev, p, creds); err != nil {
		if markErr := s.participants.MarkFailed(ctx, p.ID, err.Error()); markErr != nil {
			s.logger.Error("mark failed after delivery error", "participant", p.ID, "err", markErr)
		}
		return fmt.Errorf("certificate delivery failed: %w", err)
	}
	return nil
}

// senderCredentials loads and decrypts the event owner's outbound credentials.
func (s *feedbackService) senderCredentials(ctx context.Context, ownerID string) (domain.SenderCredentials, error) {
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return domain.SenderCredentials{}, fmt.Errorf("get event owner: %w", err)
	}
	if owner.EmailSettings == nil || owner.EmailSettings.Email == "" {
		return domain.SenderCredentials{}, domain.ErrNoSenderCredentials
	}
	password, err := s.cipher.Decrypt(owner.EmailSettings.AppPasswordEncrypted)
	if err != nil {
		return domain.SenderCredentials{}, fmt.Errorf("decrypt sender credentials: %w", err)
	}
	return domain.SenderCredentials{Email: owner.EmailSettings.Email, AppPassword: password}, nil
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
