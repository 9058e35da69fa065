package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"certmailer/internal/delivery/http/helpers"
	"certmailer/internal/domain"
)

// SubmitFeedbackRequest is the request body for POST /api/feedback/{token}
type SubmitFeedbackRequest struct {
	Answers []domain.FeedbackAnswer `json:"answers"`
}

// FeedbackController handles the public, unauthenticated feedback link.
type FeedbackController struct {
	Logger   *slog.Logger
	Feedback domain.FeedbackService
}

// NewFeedbackController creates a FeedbackController.
func NewFeedbackController(logger *slog.Logger, feedback domain.FeedbackService) *FeedbackController {
	return &FeedbackController{Logger: logger, Feedback: feedback}
}

// GetForm godoc
// @Summary Get the feedback form for a token
// @Description Public endpoint opened from the feedback email link. Returns the event name and questions for an unredeemed token.
// @Tags feedback
// @Produce json
// @Param token path string true "Feedback token"
// @Success 200 {object} helpers.APIResponse "data contains the form"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already submitted)"
// @Router /feedback/{token} [get]
func (c *FeedbackController) GetForm(w http.ResponseWriter, r *http.Request) {
	form, err := c.Feedback.Form(r.Context(), r.PathValue("token"))
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, form)
}

// Submit godoc
// @Summary Submit feedback and release the certificate
// @Description Public endpoint. Stores the answers and sends the certificate to the participant's email. The submission is kept even if certificate delivery fails; delivery is retried via the organizer's resend.
// @Tags feedback
// @Accept json
// @Produce json
// @Param token path string true "Feedback token"
// @Param body body SubmitFeedbackRequest true "Answers"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already submitted)"
// @Failure 502 {object} helpers.APIResponse "feedback stored but certificate delivery failed"
// @Router /feedback/{token} [post]
func (c *FeedbackController) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitFeedbackRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	token := r.PathValue("token")
	err := c.Feedback.Redeem(r.Context(), token, req.Answers)
	if err == nil {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "certificate_sent"})
		return
	}

	var terr *domain.TransportError
	if errors.As(err, &terr) {
		// The feedback is stored; only the outbound mail failed.
		c.Logger.ErrorContext(r.Context(), "certificate delivery failed after feedback", "err", err)
		helpers.WriteJSONError(w, http.StatusBadGateway, helpers.ErrCodeInternalError,
			"feedback received, but certificate delivery failed; the organizer can resend it")
		return
	}
	writeDomainError(w, r, c.Logger, err)
}
