package controllers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"certmailer/internal/delivery/http/helpers"
	"certmailer/internal/delivery/http/middleware"
	"certmailer/internal/domain"
)

// maxTemplateUpload bounds multipart template uploads (20 MiB).
const maxTemplateUpload = 20 << 20

// CreateEventRequest is the request body for POST /api/events
type CreateEventRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	return errs
}

// PreviewRequest is the request body for POST /api/events/{eventID}/preview.
// X may be -1 to center the text horizontally; Y is the top edge of the text.
type PreviewRequest struct {
	Text         string               `json:"text"`
	X            int                  `json:"x"`
	Y            int                  `json:"y"`
	TextSettings *domain.TextSettings `json:"text_settings"`
}

// SendRequest is the request body for POST /api/events/{eventID}/send
type SendRequest struct {
	ResendAll bool `json:"resend_all"`
}

// EventController handles event configuration, template upload, preview,
// dispatch, and export endpoints.
type EventController struct {
	Logger    *slog.Logger
	Events    domain.EventService
	Dispatch  domain.DispatchService
	Stats     domain.StatsService
	UploadDir string
}

// NewEventController creates an EventController. Uploaded templates are
// stored under uploadDir/templates.
func NewEventController(logger *slog.Logger, events domain.EventService, dispatch domain.DispatchService, stats domain.StatsService, uploadDir string) *EventController {
	return &EventController{
		Logger:    logger,
		Events:    events,
		Dispatch:  dispatch,
		Stats:     stats,
		UploadDir: uploadDir,
	}
}

func (c *EventController) ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates a draft event with default text settings and email copy.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	ev, err := c.Events.CreateEvent(r.Context(), ownerID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Description))
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, ev)
}

// ListEvents godoc
// @Summary List events
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	events, err := c.Events.ListEvents(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	ev, err := c.Events.GetEvent(r.Context(), r.PathValue("eventID"), ownerID)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ev)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Updates any subset of the organizer-editable fields. Omitted fields are untouched.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body domain.EventUpdate true "Fields to update"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	var update domain.EventUpdate
	if !helpers.DecodeAndValidate(w, r, &update) {
		return
	}
	ev, err := c.Events.UpdateEvent(r.Context(), r.PathValue("eventID"), ownerID, update)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ev)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	if err := c.Events.DeleteEvent(r.Context(), r.PathValue("eventID"), ownerID); err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UploadTemplate godoc
// @Summary Upload a certificate template
// @Description Accepts a PNG, JPEG, or PDF file in the "template" form field. Records the template and its pixel dimensions.
// @Tags events
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param template formData file true "Template file"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/template [post]
func (c *EventController) UploadTemplate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	eventID := r.PathValue("eventID")

	r.Body = http.MaxBytesReader(w, r.Body, maxTemplateUpload)
	file, header, err := r.FormFile("template")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing template file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	var format string
	switch ext {
	case ".png", ".jpg", ".jpeg":
		format = domain.TemplateImage
	case ".pdf":
		format = domain.TemplatePDF
	default:
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "template must be png, jpg, or pdf")
		return
	}

	dir := filepath.Join(c.UploadDir, "templates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	path := filepath.Join(dir, eventID+ext)
	dst, err := os.Create(path)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeDomainError(w, r, c.Logger, fmt.Errorf("store template: %w", err))
		return
	}
	if err := dst.Close(); err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}

	ev, err := c.Events.SetTemplate(r.Context(), eventID, ownerID, path, format)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ev)
}

// Preview godoc
// @Summary Render a text-placement preview
// @Description Renders sample text on the template and returns the preview image URL. Y is the top edge of the text; X of -1 centers horizontally.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body PreviewRequest true "Preview parameters"
// @Success 200 {object} helpers.APIResponse "data contains preview_url"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/preview [post]
func (c *EventController) Preview(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	var req PreviewRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	eventID := r.PathValue("eventID")
	settings := domain.DefaultTextSettings()
	if req.TextSettings != nil {
		settings = *req.TextSettings
	}
	path, err := c.Events.Preview(r.Context(), eventID, ownerID, req.Text, req.X, req.Y, settings)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{
		"preview_url": "/static/previews/" + filepath.Base(path),
	})
}

// Send godoc
// @Summary Dispatch certificates or feedback requests
// @Description Runs the batch engine over the event's participants. With resend_all, previously processed participants are reprocessed; participants who submitted feedback keep their submission and get the certificate directly.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body SendRequest true "Dispatch options"
// @Success 200 {object} helpers.APIResponse "data contains the dispatch result"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (no template or sender settings)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/send [post]
func (c *EventController) Send(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	var req SendRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	policy := domain.PendingOnly
	if req.ResendAll {
		policy = domain.ResendAll
	}
	result, err := c.Dispatch.Dispatch(r.Context(), r.PathValue("eventID"), ownerID, policy)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// Statistics godoc
// @Summary Get delivery statistics
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains per-status counts"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/statistics [get]
func (c *EventController) Statistics(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	stats, err := c.Stats.Statistics(r.Context(), r.PathValue("eventID"), ownerID)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ResultsCSV godoc
// @Summary Export delivery results as CSV
// @Tags events
// @Produce text/csv
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {string} string "CSV file"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/results.csv [get]
func (c *EventController) ResultsCSV(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	eventID := r.PathValue("eventID")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "results_"+eventID+".csv"))
	if err := c.Stats.WriteResultsCSV(r.Context(), eventID, ownerID, w); err != nil {
		// Ownership is checked before any row is written, so the envelope
		// is still clean here.
		writeDomainError(w, r, c.Logger, err)
	}
}

// FeedbackCSV godoc
// @Summary Export submitted feedback as CSV
// @Description One row per submission, one column per question. With anonymous=true the name and email columns are omitted.
// @Tags events
// @Produce text/csv
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param anonymous query bool false "Omit participant identities"
// @Success 200 {string} string "CSV file"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/feedback.csv [get]
func (c *EventController) FeedbackCSV(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	eventID := r.PathValue("eventID")
	anonymous := helpers.QueryBool(r, "anonymous", false)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "feedback_"+eventID+".csv"))
	if err := c.Stats.WriteFeedbackCSV(r.Context(), eventID, ownerID, anonymous, w); err != nil {
		writeDomainError(w, r, c.Logger, err)
	}
}
