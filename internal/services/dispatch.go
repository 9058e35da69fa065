package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"certmailer/internal/domain"
)

type dispatchService struct {
	events       domain.EventRepository
	participants domain.ParticipantRepository
	users        domain.UserRepository
	gate         FeedbackGate
	dispatcher   domain.EmailDispatcher
	certs        CertificateSender
	cipher       domain.CredentialCipher
	locks        *keyedLock
	frontendURL  string
	workers      int
	now          func() time.Time
	logger       *slog.Logger
}

// NewDispatchService creates the batch dispatch engine. workers bounds the
// number of participants processed concurrently; locks must be shared with
// the feedback gate.
func NewDispatchService(
	events domain.EventRepository,
	participants domain.ParticipantRepository,
	users domain.UserRepository,
	gate FeedbackGate,
	dispatcher domain.EmailDispatcher,
	certs CertificateSender,
	cipher domain.CredentialCipher,
	locks *keyedLock,
	frontendURL string,
	workers int,
	logger *slog.Logger,
) domain.DispatchService {
	if workers < 1 {
		workers = 1
	}
	return &dispatchService{
		events:       events,
		participants: participants,
		users:        users,
		gate:         gate,
		dispatcher:   dispatcher,
		certs:        certs,
		cipher:       cipher,
		locks:        locks,
		frontendURL:  frontendURL,
		workers:      workers,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *dispatchService) Dispatch(ctx context.Context, eventID, ownerID string, policy domain.SelectionPolicy) (*domain.DispatchResult, error) {
	ev, err := s.events.GetByIDAndOwner(ctx, eventID, ownerID)
	if err != nil {
		return nil, err
	}
	if !ev.HasTemplate() {
		return nil, &domain.ValidationError{Field: "template", Reason: "no template uploaded"}
	}

	// Resolve credentials before touching any participant so a
	// misconfigured sender aborts the run with zero state changes.
	creds, err := s.senderCredentials(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	selected, err := s.participants.ListByEventAndStatus(ctx, eventID, policy.Statuses())
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	if err := s.certs.EnsureOutputDirs(eventID); err != nil {
		return nil, fmt.Errorf("prepare output dirs: %w", err)
	}

	result := &domain.DispatchResult{Total: len(selected)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, p := range selected {
		if gctx.Err() != nil {
			break
		}
		p := p
		g.Go(func() error {
			detail := s.processOne(gctx, ev, p, creds)
			mu.Lock()
			if detail.Error == "" {
				result.Successful++
			} else {
				result.Failed++
			}
			result.Details = append(result.Details, detail)
			mu.Unlock()
			// Per-participant failures are recorded, never propagated:
			// one bad address must not cancel the rest of the run.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	status := domain.EventCompleted
	if result.Failed > 0 {
		status = domain.EventSending
	}
	if err := s.events.UpdateStatus(ctx, eventID, status, s.now()); err != nil {
		s.logger.Error("update event status after dispatch", "event", eventID, "err", err)
	}
	s.logger.Info("dispatch run finished",
		"event", eventID, "total", result.Total,
		"successful", result.Successful, "failed", result.Failed)
	return result, nil
}

// processOne handles a single participant end to end and returns its outcome.
// With feedback enabled, participants who have not submitted get a feedback
// request; everyone else gets the certificate directly.
func (s *dispatchService) processOne(ctx context.Context, ev *domain.Event, p *domain.Participant, creds domain.SenderCredentials) domain.DispatchDetail {
	unlock := s.locks.Lock(p.ID)
	defer unlock()

	detail := domain.DispatchDetail{ParticipantID: p.ID, Name: p.Name, Email: p.Email}

	var err error
	if ev.FeedbackEnabled && p.FeedbackSubmittedAt == nil {
		err = s.sendFeedbackRequest(ctx, ev, p, creds)
		detail.Status = domain.StatusFeedbackSent
	} else {
		err = s.certs.RenderAndSend(ctx, ev, p, creds)
		detail.Status = domain.StatusCertificateSent
	}
	if err != nil {
		s.logger.Warn("participant dispatch failed", "participant", p.ID, "email", p.Email, "err", err)
		if markErr := s.participants.MarkFailed(ctx, p.ID, err.Error()); markErr != nil {
			s.logger.Error("mark participant failed", "participant", p.ID, "err", markErr)
		}
		detail.Status = domain.StatusFailed
		detail.Error = err.Error()
	}
	return detail
}

func (s *dispatchService) sendFeedbackRequest(ctx context.Context, ev *domain.Event, p *domain.Participant, creds domain.SenderCredentials) error {
	token, err := s.gate.Issue(ctx, p, ev)
	if err != nil {
		return fmt.Errorf("issue feedback token: %w", err)
	}
	url := s.frontendURL + "/feedback/" + token
	if err := s.dispatcher.SendFeedbackRequest(ctx, p, ev, creds, url); err != nil {
		return err
	}
	return nil
}

func (s *dispatchService) senderCredentials(ctx context.Context, ownerID string) (domain.SenderCredentials, error) {
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
