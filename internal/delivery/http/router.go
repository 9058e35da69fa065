package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"certmailer/internal/delivery/http/controllers"
	"certmailer/internal/delivery/http/middleware"
	"certmailer/internal/domain"
)

// RouterConfig carries the controllers and middleware dependencies for NewRouter.
type RouterConfig struct {
	Auth         *controllers.AuthController
	Events       *controllers.EventController
	Participants *controllers.ParticipantController
	Feedback     *controllers.FeedbackController

	Verifier  domain.TokenVerifier
	StaticDir string
	Logger    *slog.Logger
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(cfg.Verifier, cfg.Logger)

	// Auth
	mux.HandleFunc("POST /api/auth/signup", cfg.Auth.SignUp)
	mux.HandleFunc("POST /api/auth/login", cfg.Auth.Login)
	mux.HandleFunc("GET /api/me", auth(cfg.Auth.GetMe))
	mux.HandleFunc("PUT /api/me/email-settings", auth(cfg.Auth.SaveEmailSettings))

	// Events
	mux.HandleFunc("POST /api/events", auth(cfg.Events.CreateEvent))
	mux.HandleFunc("GET /api/events", auth(cfg.Events.ListEvents))
	mux.HandleFunc("GET /api/events/{eventID}", auth(cfg.Events.GetEvent))
	mux.HandleFunc("PATCH /api/events/{eventID}", auth(cfg.Events.UpdateEvent))
	mux.HandleFunc("DELETE /api/events/{eventID}", auth(cfg.Events.DeleteEvent))
	mux.HandleFunc("POST /api/events/{eventID}/template", auth(cfg.Events.UploadTemplate))
	mux.HandleFunc("POST /api/events/{eventID}/preview", auth(cfg.Events.Preview))
	mux.HandleFunc("POST /api/events/{eventID}/send", auth(cfg.Events.Send))
	mux.HandleFunc("GET /api/events/{eventID}/statistics", auth(cfg.Events.Statistics))
	mux.HandleFunc("GET /api/events/{eventID}/results.csv", auth(cfg.Events.ResultsCSV))
	mux.HandleFunc("GET /api/events/{eventID}/feedback.csv", auth(cfg.Events.FeedbackCSV))

	// Participants
	mux.HandleFunc("POST /api/events/{eventID}/participants", auth(cfg.Participants.Add))
	mux.HandleFunc("GET /api/events/{eventID}/participants", auth(cfg.Participants.List))
	mux.HandleFunc("DELETE /api/events/{eventID}/participants/{participantID}", auth(cfg.Participants.Delete))
	mux.HandleFunc("POST /api/events/{eventID}/participants/import", auth(cfg.Participants.ImportXLSX))

	// Public feedback link
	mux.HandleFunc("GET /api/feedback/{token}", cfg.Feedback.GetForm)
	mux.HandleFunc("POST /api/feedback/{token}", cfg.Feedback.Submit)

	// Previews
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
