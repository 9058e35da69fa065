package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"certmailer/internal/domain"
)

// CertificateSender renders a participant's certificate and delivers it by
// email. It is the shared tail of the direct dispatch path and the feedback
// redemption path.
type CertificateSender interface {
	// EnsureOutputDirs creates the event's artifact directories. Called once
	// before a dispatch run fans out.
	EnsureOutputDirs(eventID string) error
	// RenderAndSend produces the artifacts, emails the PDF, and stamps the
	// participant certificate_sent. The caller handles the failure
	// transition.
	RenderAndSend(ctx context.Context, ev *domain.Event, p *domain.Participant, creds domain.SenderCredentials) error
}

type certificateSender struct {
	compositor   domain.Compositor
	dispatcher   domain.EmailDispatcher
	participants domain.ParticipantRepository
	outputDir    string
	dpi          int
	now          func() time.Time
	logger       *slog.Logger
}

// NewCertificateSender wires the compositor and email dispatcher into the
// render+send pipeline. Artifacts land under outputDir/<eventID>/{png,pdf}.
func NewCertificateSender(
	compositor domain.Compositor,
	dispatcher domain.EmailDispatcher,
	participants domain.ParticipantRepository,
	outputDir string,
	dpi int,
	logger *slog.Logger,
) CertificateSender {
	return &certificateSender{
		compositor:   compositor,
		dispatcher:   dispatcher,
		participants: participants,
		outputDir:    outputDir,
		dpi:          dpi,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *certificateSender) EnsureOutputDirs(eventID string) error {
	for _, dir := range []string{s.pngDir(eventID), s.pdfDir(eventID)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	return nil
}

func (s *certificateSender) RenderAndSend(ctx context.Context, ev *domain.Event, p *domain.Participant, creds domain.SenderCredentials) error {
	if !ev.HasTemplate() {
		return &domain.ValidationError{Field: "template", Reason: "no template uploaded"}
	}

	safe := p.SafeFileName()
	pngPath := filepath.Join(s.pngDir(ev.ID), safe+".png")
	pdfPath := filepath.Join(s.pdfDir(ev.ID), safe+".pdf")

	// Regeneration always overwrites; artifacts are keyed by name only.
	req := domain.RenderRequest{
		TemplatePath:   ev.TemplatePath,
		TemplateFormat: ev.TemplateFormat,
		Name:           p.Name,
		AutoCenter:     true,
		Y:              ev.TextSettings.YPosition,
		YIsCenter:      true,
		FontName:       ev.TextSettings.FontName,
		FontSize:       ev.TextSettings.FontSize,
		TextColor:      ev.TextSettings.TextColor,
		DPI:            s.dpi,
		OutputPNG:      pngPath,
		OutputPDF:      pdfPath,
	}
	if err := s.compositor.Render(ctx, req); err != nil {
		return fmt.Errorf("render certificate: %w", err)
	}

	if err := s.dispatcher.SendCertificate(ctx, p, ev, creds, pdfPath); err != nil {
		return err
	}

	if err := s.participants.MarkCertificateSent(ctx, p.ID, s.now()); err != nil {
		return fmt.Errorf("mark certificate sent: %w", err)
	}
	s.logger.Info("certificate delivered", "participant", p.ID, "event", ev.ID)
	return nil
}

func (s *certificateSender) pngDir(eventID string) string {
	return filepath.Join(s.outputDir, eventID, "png")
}

func (s *certificateSender) pdfDir(eventID string) string {
	return filepath.Join(s.outputDir, eventID, "pdf")
}
