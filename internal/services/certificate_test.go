package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"certmailer/internal/domain"
)

type mockCompositor struct {
	requests []domain.RenderRequest
	err      error
}

func (m *mockCompositor) Render(ctx context.Context, req domain.RenderRequest) error {
	if m.err != nil {
		return m.err
	}
	m.requests = append(m.requests, req)
	return nil
}

func (m *mockCompositor) TemplateSize(path, format string, dpi int) (int, int, error) {
	return 1240, 874, nil
}

func TestCertificateSender_RenderAndSend(t *testing.T) {
	ev := &domain.Event{
		ID:             "e1",
		Name:           "Go Conf",
		TemplatePath:   "/uploads/template.pdf",
		TemplateFormat: domain.TemplatePDF,
		TextSettings:   domain.DefaultTextSettings(),
	}
	p := &domain.Participant{
		ID: "p1", EventID: "e1",
		Name: "Ada/Love\\lace", Email: "ada@example.com",
		Status: domain.StatusPending,
	}
	creds := domain.SenderCredentials{Email: "org@example.com", AppPassword: "pass"}

	compositor := &mockCompositor{}
	participants := &mockParticipantRepository{participants: map[string]*domain.Participant{"p1": p}}
	sender := &certificateSender{
		compositor:   compositor,
		dispatcher:   &mockEmailDispatcher{},
		participants: participants,
		outputDir:    "/var/out",
		dpi:          300,
		now:          time.Now,
		logger:       discardLogger(),
	}

	if err := sender.RenderAndSend(context.Background(), ev, p, creds); err != nil {
		t.Fatalf("RenderAndSend: %v", err)
	}

	if len(compositor.requests) != 1 {
		t.Fatalf("expected 1 render, got %d", len(compositor.requests))
	}
	req := compositor.requests[0]
	wantPNG := filepath.Join("/var/out", "e1", "png", "Ada_Love_lace.png")
	wantPDF := filepath.Join("/var/out", "e1", "pdf", "Ada_Love_lace.pdf")
	if req.OutputPNG != wantPNG || req.OutputPDF != wantPDF {
		t.Errorf("artifact paths = %q, %q; want %q, %q", req.OutputPNG, req.OutputPDF, wantPNG, wantPDF)
	}
	if !req.AutoCenter || !req.YIsCenter {
		t.Errorf("final render must center: AutoCenter=%v YIsCenter=%v", req.AutoCenter, req.YIsCenter)
	}
	if req.DPI != 300 || req.Y != 500 {
		t.Errorf("unexpected placement: DPI=%d Y=%d", req.DPI, req.Y)
	}

	if p.Status != domain.StatusCertificateSent || p.CertificateSentAt == nil {
		t.Fatalf("participant not stamped: %+v", p)
	}
}

func TestCertificateSender_Errors(t *testing.T) {
	ev := &domain.Event{
		ID: "e1", Name: "Go Conf",
		TemplatePath: "/uploads/template.png", TemplateFormat: domain.TemplateImage,
		TextSettings: domain.DefaultTextSettings(),
	}
	p := &domain.Participant{ID: "p1", EventID: "e1", Name: "Ada", Email: "ada@example.com"}
	creds := domain.SenderCredentials{Email: "org@example.com", AppPassword: "pass"}

	t.Run("no template", func(t *testing.T) {
		bare := &domain.Event{ID: "e2"}
		sender := &certificateSender{
			compositor: &mockCompositor{}, dispatcher: &mockEmailDispatcher{},
			participants: &mockParticipantRepository{}, outputDir: "/var/out", dpi: 300,
			now: time.Now, logger: discardLogger(),
		}
		err := sender.RenderAndSend(context.Background(), bare, p, creds)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("render failure leaves status alone", func(t *testing.T) {
		p := &domain.Participant{ID: "p1", Name: "Ada", Status: domain.StatusPending}
		participants := &mockParticipantRepository{participants: map[string]*domain.Participant{"p1": p}}
		sender := &certificateSender{
			compositor:   &mockCompositor{err: errors.New("font parse failed")},
			dispatcher:   &mockEmailDispatcher{},
			participants: participants,
			outputDir:    "/var/out", dpi: 300,
			now: time.Now, logger: discardLogger(),
		}
		if err := sender.RenderAndSend(context.Background(), ev, p, creds); err == nil {
			t.Fatal("expected render error")
		}
		if p.Status != domain.StatusPending {
			t.Fatalf("status must be left to the caller, got %s", p.Status)
		}
	})

	t.Run("send failure leaves status alone", func(t *testing.T) {
		p := &domain.Participant{ID: "p1", Name: "Ada", Status: domain.StatusPending}
		participants := &mockParticipantRepository{participants: map[string]*domain.Participant{"p1": p}}
		sender := &certificateSender{
			compositor:   &mockCompositor{},
			dispatcher:   &mockEmailDispatcher{failFor: map[string]error{"p1": errors.New("relay refused")}},
			participants: participants,
			outputDir:    "/var/out", dpi: 300,
			now: time.Now, logger: discardLogger(),
		}
		if err := sender.RenderAndSend(context.Background(), ev, p, creds); err == nil {
			t.Fatal("expected send error")
		}
		if p.Status != domain.StatusPending {
			t.Fatalf("status must be left to the caller, got %s", p.Status)
		}
	})
}

func TestKeyedLock(t *testing.T) {
	l := NewKeyedLock()

	unlock := l.Lock("p1")
	acquired := make(chan struct{})
	go func() {
		u := l.Lock("p1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock on same key must block")
	case <-time.After(20 * time.Millisecond):
	}

	// A different key is independent.
	u2 := l.Lock("p2")
	u2()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock not released")
	}
}
