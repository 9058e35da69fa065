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

type eventService struct {
	events     domain.EventRepository
	compositor domain.Compositor
	staticDir  string
	previewDPI int
	now        func() time.Time
	logger     *slog.Logger
}

// NewEventService creates the organizer-facing event service. staticDir is
// where preview renders are written; previewDPI is the rasterization DPI for
// previews and recorded template dimensions.
func NewEventService(events domain.EventRepository, compositor domain.Compositor, staticDir string, previewDPI int, logger *slog.Logger) domain.EventService {
	return &eventService{
		events:     events,
		compositor: compositor,
		staticDir:  staticDir,
		previewDPI: previewDPI,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, ownerID, name, description string) (*domain.Event, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	now := s.now()
	ev := domain.NewEvent(ownerID, name, description, now, now)
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

func (s *eventService) GetEvent(ctx context.Context, id, ownerID string) (*domain.Event, error) {
	return s.events.GetByIDAndOwner(ctx, id, ownerID)
}

func (s *eventService) ListEvents(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	return s.events.ListByOwner(ctx, ownerID)
}

func (s *eventService) UpdateEvent(ctx context.Context, id, ownerID string, update domain.EventUpdate) (*domain.Event, error) {
	ev, err := s.events.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		if *update.Name == "" {
			return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
		}
		ev.Name = *update.Name
	}
	if update.Description != nil {
		ev.Description = *update.Description
	}
	if update.TextSettings != nil {
		if update.TextSettings.FontSize <= 0 {
			return nil, &domain.ValidationError{Field: "text_settings.font_size", Reason: "must be positive"}
		}
		ev.TextSettings = *update.TextSettings
	}
	if update.FeedbackEnabled != nil {
		ev.FeedbackEnabled = *update.FeedbackEnabled
	}
	if update.FeedbackQuestions != nil {
		ev.FeedbackQuestions = *update.FeedbackQuestions
	}
	if update.EmailSubject != nil {
		ev.EmailSubject = *update.EmailSubject
	}
	if update.EmailBody != nil {
		ev.EmailBody = *update.EmailBody
	}
	if update.FeedbackEmailSubject != nil {
		ev.FeedbackEmailSubject = *update.FeedbackEmailSubject
	}
	if update.FeedbackEmailBody != nil {
		ev.FeedbackEmailBody = *update.FeedbackEmailBody
	}
	ev.UpdatedAt = s.now()
	if err := s.events.Update(ctx, ev); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return ev, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id, ownerID string) error {
	ev, err := s.events.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, ev.ID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if ev.TemplatePath != "" {
		if err := os.Remove(ev.TemplatePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove template file", "event", ev.ID, "err", err)
		}
	}
	return nil
}

// SetTemplate records an uploaded template. Dimensions are measured at the
// preview DPI so the positioning UI and previews agree on the coordinate space.
func (s *eventService) SetTemplate(ctx context.Context, id, ownerID, path, format string) (*domain.Event, error) {
	ev, err := s.events.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if format != domain.TemplateImage && format != domain.TemplatePDF {
		return nil, &domain.ValidationError{Field: "template", Reason: "format must be image or pdf"}
	}
	w, h, err := s.compositor.TemplateSize(path, format, s.previewDPI)
	if err != nil {
		return nil, fmt.Errorf("measure template: %w", err)
	}
	old := ev.TemplatePath
	ev.TemplatePath = path
	ev.TemplateFormat = format
	ev.TemplateWidth = w
	ev.TemplateHeight = h
	ev.UpdatedAt = s.now()
	if err := s.events.Update(ctx, ev); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if old != "" && old != path {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove replaced template", "event", ev.ID, "err", err)
		}
	}
	return ev, nil
}

// Preview renders sample text onto the template and returns the PNG path.
// y is the top edge of the text here, unlike final renders where the stored
// y position is the vertical center. A negative x centers horizontally.
func (s *eventService) Preview(ctx context.Context, id, ownerID, text string, x, y int, settings domain.TextSettings) (string, error) {
	ev, err := s.events.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return "", err
	}
	if !ev.HasTemplate() {
		return "", &domain.ValidationError{Field: "template", Reason: "no template uploaded"}
	}
	if text == "" {
		text = "Sample Name"
	}
	dir := filepath.Join(s.staticDir, "previews")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create preview dir: %w", err)
	}
	out := filepath.Join(dir, ev.ID+".png")
	req := domain.RenderRequest{
		TemplatePath:   ev.TemplatePath,
		TemplateFormat: ev.TemplateFormat,
		Name:           text,
		X:              x,
		AutoCenter:     x < 0,
		Y:              y,
		YIsCenter:      false,
		FontName:       settings.FontName,
		FontSize:       settings.FontSize,
		TextColor:      settings.TextColor,
		DPI:            s.previewDPI,
		OutputPNG:      out,
	}
	if err := s.compositor.Render(ctx, req); err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return out, nil
}
