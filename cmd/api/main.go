// @title Event RSVP API
// @version 1.0
// @description Events, ticket inventory, RSVPs, door check-in and single-session auth.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eventrsvp/config"
	_ "eventrsvp/docs"
	"eventrsvp/internal/adapters/auth"
	"eventrsvp/internal/adapters/broker"
	"eventrsvp/internal/adapters/email"
	"eventrsvp/internal/adapters/qr"
	"eventrsvp/internal/clock"
	httpdelivery "eventrsvp/internal/delivery/http"
	"eventrsvp/internal/delivery/http/controllers"
	"eventrsvp/internal/delivery/http/middleware"
	"eventrsvp/internal/repository/postgres"
	"eventrsvp/internal/services"
	"eventrsvp/migrations"
)

const (
	qrSize          = 256
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return err
	}
	if err := migrations.Apply(ctx, db); err != nil {
		return err
	}
	logger.Info("database ready")

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
		MailerSendAPIKey: cfg.Email.MailerSendAPIKey,
	}, logger)
	if err != nil {
		return err
	}
	publisher, err := broker.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange, logger)
	if err != nil {
		return err
	}
	if c, ok := publisher.(io.Closer); ok {
		defer c.Close()
	}

	sysClock := clock.NewSystem()
	tx := postgres.NewTransactor(db)
	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	ticketTypeRepo := postgres.NewTicketTypeRepository(db)
	rsvpRepo := postgres.NewRSVPRepository(db)

	emailSvc := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	ledger := services.NewInventoryLedger(ticketTypeRepo, sysClock)
	authSvc := services.NewAuthService(services.AuthDeps{
		Users:      userRepo,
		Sessions:   sessionRepo,
		Hasher:     auth.NewBcryptHasher(0),
		Issuer:     auth.NewJWTIssuer(cfg.JWTSecret),
		Verifier:   auth.NewJWTVerifier(cfg.JWTSecret),
		Email:      emailSvc,
		Clock:      sysClock,
		Logger:     logger,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		OTPTTL:     cfg.OTPTTL,
	})
	userSvc := services.NewUserService(userRepo, sysClock)
	eventSvc := services.NewEventService(tx, eventRepo, ticketTypeRepo, ledger, sysClock, cfg.RequestTimeout)
	rsvpSvc := services.NewRSVPService(services.RSVPDeps{
		Tx:          tx,
		Events:      eventRepo,
		TicketTypes: ticketTypeRepo,
		RSVPs:       rsvpRepo,
		Users:       userRepo,
		Ledger:      ledger,
		Email:       emailSvc,
		QR:          qr.NewGenerator(qrSize),
		Publisher:   publisher,
		Clock:       sysClock,
		Logger:      logger,
	})
	checkInSvc := services.NewCheckInService(tx, eventRepo, rsvpRepo, publisher, sysClock, logger)

	mux := httpdelivery.NewRouter(httpdelivery.Controllers{
		Auth:    controllers.NewAuthController(logger, authSvc),
		Users:   controllers.NewUserController(logger, userSvc, authSvc),
		Events:  controllers.NewEventController(logger, eventSvc),
		RSVPs:   controllers.NewRSVPController(logger, rsvpSvc),
		CheckIn: controllers.NewCheckInController(logger, checkInSvc),
	}, authSvc, logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpdelivery.NewHandler(mux, logger, cfg.CORSOrigins, limiter),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
