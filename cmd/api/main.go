package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"certmailer/config"
	httpdelivery "certmailer/internal/delivery/http"
	"certmailer/internal/delivery/http/controllers"
	"certmailer/internal/delivery/http/middleware"

	authadapter "certmailer/internal/adapters/auth"
	emailadapter "certmailer/internal/adapters/email"
	"certmailer/internal/adapters/fonts"
	"certmailer/internal/adapters/render"
	"certmailer/internal/repository/postgres"
	"certmailer/internal/services"
)

// @title certmailer API
// @version 1.0
// @description Certificate generation and feedback-gated delivery service.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger()

	if err := cfg.EnsureDirs(); err != nil {
		logger.Error("create storage dirs", "err", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrations(cfg.DBUrl, cfg.MigrationsPath); err != nil {
		logger.Error("run migrations", "err", err)
		os.Exit(1)
	}
	db, err := postgres.Open(cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	users := postgres.NewUserRepository(db)
	events := postgres.NewEventRepository(db)
	participants := postgres.NewParticipantRepository(db)
	tokens := postgres.NewFeedbackTokenRepository(db)

	jwt := authadapter.NewJWTManager(cfg.JWTSecret)
	hasher := authadapter.NewBcryptHasher(10)
	cipher, err := authadapter.NewAESCipher(cfg.CredEncryptionKey)
	if err != nil {
		logger.Error("init credential cipher", "err", err)
		os.Exit(1)
	}

	mailer, err := emailadapter.NewMailer(emailadapter.MailerConfig{
		Provider: cfg.EmailProvider,
		FromName: cfg.FromName,
		SMTP:     emailadapter.SMTPConfig{Host: cfg.SMTPHost, Port: cfg.SMTPPort},
		SES: emailadapter.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKey,
			SecretAccessKey: cfg.SESSecretKey,
		},
	})
	if err != nil {
		logger.Error("init mailer", "err", err)
		os.Exit(1)
	}

	resolver := fonts.NewResolver(cfg.FontsDir, logger)
	compositor := render.NewCompositor(resolver)

	dispatcher := services.NewEmailDispatcher(mailer, logger)
	locks := services.NewKeyedLock()
	certs := services.NewCertificateSender(compositor, dispatcher, participants, cfg.OutputDir, cfg.PDFDPI, logger)
	gate := services.NewFeedbackService(tokens, participants, events, users, certs, cipher, locks, logger)
	dispatch := services.NewDispatchService(events, participants, users, gate, dispatcher, certs, cipher, locks, cfg.FrontendURL, cfg.DispatchWorkers, logger)

	authSvc := services.NewAuthService(users, hasher, jwt, cipher)
	eventSvc := services.NewEventService(events, compositor, cfg.StaticDir, cfg.PreviewDPI, logger)
	rosterSvc := services.NewRosterService(events, participants, logger)
	statsSvc := services.NewStatsService(events, participants, tokens)

	mux := httpdelivery.NewRouter(httpdelivery.RouterConfig{
		Auth:         controllers.NewAuthController(logger, authSvc),
		Events:       controllers.NewEventController(logger, eventSvc, dispatch, statsSvc, cfg.UploadDir),
		Participants: controllers.NewParticipantController(logger, rosterSvc),
		Feedback:     controllers.NewFeedbackController(logger, gate),
		Verifier:     jwt,
		StaticDir:    cfg.StaticDir,
		Logger:       logger,
	})

	handler := middleware.CORS(cfg.CORSOrigins, middleware.LoggingMiddleware(logger, mux))
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		// Long enough for a dispatch run over a big roster.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
