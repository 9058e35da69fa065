package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"certmailer/internal/delivery/http/helpers"
	"certmailer/internal/delivery/http/middleware"
	"certmailer/internal/domain"
)

// maxRosterUpload bounds multipart roster uploads (10 MiB).
const maxRosterUpload = 10 << 20

// AddParticipantRequest is the request body for POST /api/events/{eventID}/participants
type AddParticipantRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate implements Validator.
func (a AddParticipantRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(a.Name) == "" {
		errs = append(errs, "name is required")
	}
	email := strings.TrimSpace(strings.ToLower(a.Email))
	if email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegexp.MatchString(email) {
		errs = append(errs, "invalid email format")
	}
	return errs
}

// ParticipantController handles an event's roster endpoints.
type ParticipantController struct {
	Logger *slog.Logger
	Roster domain.RosterService
}

// NewParticipantController creates a ParticipantController.
func NewParticipantController(logger *slog.Logger, roster domain.RosterService) *ParticipantController {
	return &ParticipantController{Logger: logger, Roster: roster}
}

func (c *ParticipantController) ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

// Add godoc
// @Summary Add a participant
// @Tags participants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body AddParticipantRequest true "Participant data"
// @Success 201 {object} helpers.APIResponse "data contains the participant"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (duplicate email)"
// @Router /events/{eventID}/participants [post]
func (c *ParticipantController) Add(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	var req AddParticipantRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.Roster.AddParticipant(r.Context(), r.PathValue("eventID"), ownerID, req.Name, req.Email)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, p)
}

// List godoc
// @Summary List participants
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the participants"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/participants [get]
func (c *ParticipantController) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	participants, err := c.Roster.ListParticipants(r.Context(), r.PathValue("eventID"), ownerID)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	if participants == nil {
		participants = []*domain.Participant{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, participants)
}

// Delete godoc
// @Summary Delete a participant
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param participantID path string true "Participant ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/participants/{participantID} [delete]
func (c *ParticipantController) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	if err := c.Roster.DeleteParticipant(r.Context(), r.PathValue("eventID"), ownerID, r.PathValue("participantID")); err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ImportXLSX godoc
// @Summary Import participants from an xlsx roster
// @Description Accepts an .xlsx file in the "roster" form field with Name and Email columns. Invalid and duplicate rows are skipped and reported.
// @Tags participants
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param roster formData file true "Roster file"
// @Success 200 {object} helpers.APIResponse "data contains added, skipped, and problems"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/participants/import [post]
func (c *ParticipantController) ImportXLSX(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := c.ownerID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRosterUpload)
	file, _, err := r.FormFile("roster")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing roster file")
		return
	}
	defer file.Close()

	result, err := c.Roster.ImportXLSX(r.Context(), r.PathValue("eventID"), ownerID, file)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
