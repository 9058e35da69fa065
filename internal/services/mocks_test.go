package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"certmailer/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockEventRepository struct {
	mu           sync.Mutex
	events       map[string]*domain.Event
	statusWrites map[string]domain.EventStatus
	created      []*domain.Event
}

func (m *mockEventRepository) Create(ctx context.Context, ev *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = "ev-new"
	m.created = append(m.created, ev)
	return nil
}

func (m *mockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ev, ok := m.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

func (m *mockEventRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Event, error) {
	ev, ok := m.events[id]
	if !ok || ev.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

func (m *mockEventRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, ev := range m.events {
		if ev.OwnerID == ownerID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockEventRepository) Update(ctx context.Context, ev *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
	return nil
}

func (m *mockEventRepository) UpdateStatus(ctx context.Context, id string, status domain.EventStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusWrites == nil {
		m.statusWrites = map[string]domain.EventStatus{}
	}
	m.statusWrites[id] = status
	return nil
}

func (m *mockEventRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, id)
	return nil
}

type mockParticipantRepository struct {
	mu           sync.Mutex
	participants map[string]*domain.Participant
	createErr    error
	created      []*domain.Participant
}

func (m *mockParticipantRepository) Create(ctx context.Context, p *domain.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.participants {
		if existing.EventID == p.EventID && existing.Email == p.Email {
			return domain.ErrDuplicateEmail
		}
	}
	if p.ID == "" {
		p.ID = "p-" + p.Email
	}
	if m.participants == nil {
		m.participants = map[string]*domain.Participant{}
	}
	m.participants[p.ID] = p
	m.created = append(m.created, p)
	return nil
}

func (m *mockParticipantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockParticipantRepository) GetByEventAndEmail(ctx context.Context, eventID, email string) (*domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants {
		if p.EventID == eventID && p.Email == email {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockParticipantRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Participant
	for _, p := range m.participants {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockParticipantRepository) ListByEventAndStatus(ctx context.Context, eventID string, statuses []domain.ParticipantStatus) ([]*domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Participant
	for _, p := range m.participants {
		if p.EventID != eventID {
			continue
		}
		for _, st := range statuses {
			if p.Status == st {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (m *mockParticipantRepository) CountByStatus(ctx context.Context, eventID string) (map[domain.ParticipantStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[domain.ParticipantStatus]int{}
	for _, p := range m.participants {
		if p.EventID == eventID {
			counts[p.Status]++
		}
	}
	return counts, nil
}

func (m *mockParticipantRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.participants, id)
	return nil
}

func (m *mockParticipantRepository) MarkFeedbackSent(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = domain.StatusFeedbackSent
	p.FeedbackToken = token
	p.ErrorMessage = nil
	return nil
}

func (m *mockParticipantRepository) MarkFeedbackReceived(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = domain.StatusFeedbackReceived
	p.FeedbackSubmittedAt = &at
	return nil
}

func (m *mockParticipantRepository) MarkCertificateSent(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = domain.StatusCertificateSent
	p.CertificateSentAt = &at
	p.ErrorMessage = nil
	return nil
}

func (m *mockParticipantRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = domain.StatusFailed
	p.ErrorMessage = &errorMessage
	return nil
}

type mockUserRepository struct {
	users map[string]*domain.User
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	u.ID = "u-new"
	if m.users == nil {
		m.users = map[string]*domain.User{}
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepository) UpdateEmailSettings(ctx context.Context, userID string, settings *domain.EmailSettings) error {
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.EmailSettings = settings
	return nil
}

type mockFeedbackTokenRepository struct {
	mu            sync.Mutex
	byToken       map[string]*domain.FeedbackToken
	byParticipant map[string]*domain.FeedbackToken
}

func (m *mockFeedbackTokenRepository) Upsert(ctx context.Context, t *domain.FeedbackToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byToken == nil {
		m.byToken = map[string]*domain.FeedbackToken{}
	}
	if m.byParticipant == nil {
		m.byParticipant = map[string]*domain.FeedbackToken{}
	}
	if old, ok := m.byParticipant[t.ParticipantID]; ok {
		delete(m.byToken, old.Token)
	}
	cp := *t
	cp.SubmittedAt = nil
	m.byToken[cp.Token] = &cp
	m.byParticipant[cp.ParticipantID] = &cp
	return nil
}

func (m *mockFeedbackTokenRepository) GetByToken(ctx context.Context, token string) (*domain.FeedbackToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byToken[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (m *mockFeedbackTokenRepository) MarkSubmitted(ctx context.Context, token string, answers []domain.FeedbackAnswer, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byToken[token]
	if !ok {
		return domain.ErrNotFound
	}
	if t.SubmittedAt != nil {
		return domain.ErrAlreadySubmitted
	}
	t.Answers = answers
	t.SubmittedAt = &at
	return nil
}

func (m *mockFeedbackTokenRepository) ListSubmittedByEvent(ctx context.Context, eventID string) ([]*domain.FeedbackToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.FeedbackToken
	for _, t := range m.byToken {
		if t.EventID == eventID && t.SubmittedAt != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

// mockCertificateSender fails RenderAndSend for participant IDs in failFor.
type mockCertificateSender struct {
	mu      sync.Mutex
	failFor map[string]error
	sent    []string
}

func (m *mockCertificateSender) EnsureOutputDirs(eventID string) error { return nil }

func (m *mockCertificateSender) RenderAndSend(ctx context.Context, ev *domain.Event, p *domain.Participant, creds domain.SenderCredentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[p.ID]; ok {
		return err
	}
	m.sent = append(m.sent, p.ID)
	return nil
}

type mockEmailDispatcher struct {
	mu               sync.Mutex
	feedbackSent     []string
	certificatesSent []string
	failFor          map[string]error
}

func (m *mockEmailDispatcher) SendCertificate(ctx context.Context, p *domain.Participant, ev *domain.Event, creds domain.SenderCredentials, pdfPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[p.ID]; ok {
		return err
	}
	m.certificatesSent = append(m.certificatesSent, p.ID)
	return nil
}

func (m *mockEmailDispatcher) SendFeedbackRequest(ctx context.Context, p *domain.Participant, ev *domain.Event, creds domain.SenderCredentials, feedbackURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[p.ID]; ok {
		return err
	}
	m.feedbackSent = append(m.feedbackSent, feedbackURL)
	return nil
}

// mockCipher is a reversible stand-in for the AES credential cipher.
type mockCipher struct{}

func (mockCipher) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }

func (mockCipher) Decrypt(ciphertext string) (string, error) {
	if len(ciphertext) > 4 && ciphertext[:4] == "enc:" {
		return ciphertext[4:], nil
	}
	return ciphertext, nil
}
