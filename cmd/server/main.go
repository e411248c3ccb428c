package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"konzertticketing/config"
	_ "konzertticketing/docs"
	"konzertticketing/internal/adapters/auth"
	"konzertticketing/internal/adapters/email"
	"konzertticketing/internal/adapters/payment"
	httpdelivery "konzertticketing/internal/delivery/http"
	"konzertticketing/internal/delivery/http/middleware"
	"konzertticketing/internal/repository/postgres"
	"konzertticketing/internal/services"
)

// @title Konzert Ticketing API
// @version 1.0
// @description Seat reservation and ticketing backend for a single fixed-capacity concert.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "err", err)
		os.Exit(1)
	}

	// Repositories
	seatRepo := postgres.NewSeatRepository(db)
	codeRepo := postgres.NewTicketCodeRepository(db)
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)

	// Adapters
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	tokenIssuer := auth.NewJWTIssuer(cfg.JWTSecret)
	tokenVerifier := auth.NewJWTVerifier(cfg.JWTSecret)
	paymentProvider := payment.NewStripeClient(nil, payment.Config{
		SecretKey:     cfg.PaymentSecretKey,
		WebhookSecret: cfg.PaymentWebhookSecret,
		APIBaseURL:    cfg.PaymentAPIBaseURL,
	})
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretAccessKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}

	// Services
	reservationService := services.NewReservationService(seatRepo)
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer())
	paymentService := services.NewPaymentService(paymentProvider, reservationService, userRepo, emailService, services.PaymentConfig{
		EventName:      cfg.EventName,
		SeatPriceCents: cfg.SeatPriceCents,
		Currency:       cfg.Currency,
		SuccessURL:     cfg.AppBaseURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      cfg.AppBaseURL + "/",
	}, logger)
	ticketCodeService := services.NewTicketCodeService(codeRepo, seatRepo, reservationService, cfg.TicketCodePrefix, logger)
	userService := services.NewUserService(userRepo, roleRepo, hasher, tokenIssuer, time.Duration(cfg.TokenExpiryHours)*time.Hour)

	// Controllers
	seatController := httpdelivery.NewSeatController(reservationService)
	paymentController := httpdelivery.NewPaymentController(paymentService)
	ticketController := httpdelivery.NewTicketController(ticketCodeService)
	authController := httpdelivery.NewAuthController(userService)

	mux := httpdelivery.NewRouter(seatController, paymentController, ticketController, authController, tokenVerifier, logger)

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORSAllowedOrigins, handler)
	handler = middleware.LoggingMiddleware(logger, handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
