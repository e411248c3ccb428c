package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"konzertticketing/internal/delivery/http/middleware"
	"konzertticketing/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	seatController *SeatController,
	paymentController *PaymentController,
	ticketController *TicketController,
	authController *AuthController,
	verifier domain.TokenVerifier,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Seats
	mux.HandleFunc("GET /seats", seatController.List)
	mux.HandleFunc("POST /seats", auth(seatController.Reserve))
	mux.HandleFunc("DELETE /seats", auth(middleware.RequireAdmin(seatController.Release)))
	mux.HandleFunc("PATCH /seats/{row}/{number}", auth(middleware.RequireAdmin(seatController.UpdateMetadata)))

	// Payments
	mux.HandleFunc("POST /checkout", auth(paymentController.CreateCheckout))
	mux.HandleFunc("GET /payment-success", paymentController.ConfirmCheckout)
	mux.HandleFunc("POST /webhook", paymentController.Webhook)

	// Free tickets
	mux.HandleFunc("POST /free-ticket", auth(ticketController.Redeem))
	mux.HandleFunc("POST /admin/free-ticket", auth(middleware.RequireAdmin(ticketController.Generate)))

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)
	mux.HandleFunc("GET /users/me", auth(authController.GetMe))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
