// @title Visitor Pass API
// @version 1.0
// @description Visitor registration, time-bound passes and gate scanning.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visitorpass/config"
	_ "visitorpass/docs"
	"visitorpass/internal/adapters/auth"
	"visitorpass/internal/adapters/credential"
	"visitorpass/internal/adapters/email"
	"visitorpass/internal/adapters/events"
	"visitorpass/internal/adapters/storage"
	"visitorpass/internal/adapters/tokenstore"
	httpdelivery "visitorpass/internal/delivery/http"
	"visitorpass/internal/delivery/http/controllers"
	"visitorpass/internal/delivery/http/middleware"
	"visitorpass/internal/domain"
	"visitorpass/internal/metrics"
	"visitorpass/internal/repository/postgres"
	"visitorpass/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownGrace = 10 * time.Second

func main() {
	logger := config.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	store := postgres.NewStore(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	checks := map[string]httpdelivery.HealthCheck{
		"db": func(ctx context.Context) bool { return db.PingContext(ctx) == nil },
	}

	var denylist domain.TokenDenylist = tokenstore.NewMemory()
	if cfg.RedisAddr != "" {
		redisStore := tokenstore.NewRedis(cfg.RedisAddr)
		defer redisStore.Close()
		denylist = redisStore
		checks["redis"] = redisStore.Healthy
	}

	var publisher domain.EventPublisher = events.NoopPublisher{}
	if cfg.NATSUrl != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSUrl, logger)
		if err != nil {
			return err
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.AWS.Region,
			AccessKeyID:        cfg.AWS.AccessKeyID,
			SecretAccessKey:    cfg.AWS.SecretAccessKey,
			InsecureSkipVerify: cfg.AWS.InsecureSkipVerify,
		},
		MailerSendAPIKey: cfg.Email.MailerSendAPIKey,
	}, logger)
	if err != nil {
		return err
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return err
	}
	emailService := services.NewEmailService(mailer, renderer, logger)

	artifacts := storage.NewArtifactStore(storage.S3Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		PublicBaseURL:   cfg.S3.PublicBaseURL,
	})

	jwt := auth.NewJWT(cfg.JWTSecret)
	notifier := services.NewNotifier(publisher, emailService, m, logger)
	issuer := services.NewPassIssuer(credential.NewGenerator(), artifacts, emailService, notifier, cfg.PublicBaseURL, m, logger)

	visitorService := services.NewVisitorService(store, issuer, notifier, logger, cfg.RequestTimeout)
	passService := services.NewPassService(store, issuer, notifier, logger, cfg.RequestTimeout)
	authService := services.NewAuthService(store.Users(), auth.NewBcryptHasher(cfg.BcryptCost), jwt, jwt, denylist,
		services.TokenTTLs{Access: cfg.AccessTokenTTL, Refresh: cfg.RefreshTokenTTL}, logger, cfg.RequestTimeout)
	userService := services.NewUserService(store.Users(), store.Visitors(), cfg.RequestTimeout)
	notificationService := services.NewNotificationService(store.Notifications(), cfg.RequestTimeout)

	mux := httpdelivery.NewRouter(httpdelivery.Controllers{
		Auth:         controllers.NewAuthController(logger, authService),
		User:         controllers.NewUserController(logger, userService),
		Visitor:      controllers.NewVisitorController(logger, visitorService, passService),
		Pass:         controllers.NewPassController(logger, passService),
		Guard:        controllers.NewGuardController(logger, visitorService, passService),
		Notification: controllers.NewNotificationController(logger, notificationService),
	}, jwt, reg, checks, logger)

	handler := middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, m, mux))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
