package domain

import (
	"context"
	"errors"
)

// Sentinel errors for payment reconciliation.
var (
	ErrInvalidSignature       = errors.New("invalid webhook signature")
	ErrInvalidPaymentMetadata = errors.New("invalid payment metadata")
	ErrPaymentNotCompleted    = errors.New("payment not completed")
)

// PaymentStatusPaid is the provider's authoritative "money received" status.
const PaymentStatusPaid = "paid"

// CheckoutEventCompleted is the provider event type that confirms a checkout.
const CheckoutEventCompleted = "checkout.session.completed"

// CheckoutSessionParams describes a checkout session to be created at the
// provider. Metadata travels opaquely with the session and is echoed back on
// confirmation; it is the only link between a payment and the seats it buys.
type CheckoutSessionParams struct {
	ProductName     string
	Description     string
	Currency        string
	UnitAmountCents int64
	Quantity        int
	SuccessURL      string
	CancelURL       string
	Metadata        map[string]string
}

// CheckoutSession is the provider's view of a checkout session.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// WebhookEvent is a provider-pushed notification, already signature-verified.
type WebhookEvent struct {
	Type    string
	Session CheckoutSession
}

// PaymentProvider is the port to the external payment provider.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	// VerifyWebhookSignature checks the provider signature header over the raw
	// payload. Returns ErrInvalidSignature on any mismatch.
	VerifyWebhookSignature(payload []byte, signatureHeader string) error
	ParseWebhookEvent(payload []byte) (*WebhookEvent, error)
}

// CheckoutIntent is the handle returned to the client to complete payment.
// swagger:model CheckoutIntent
type CheckoutIntent struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PaymentService creates checkout intents and reconciles confirmations.
// Both confirmation paths (client pull and provider push) converge on the
// same idempotent commit.
type PaymentService interface {
	CreateCheckout(ctx context.Context, buyerID int64, refs []SeatRef) (*CheckoutIntent, error)
	ConfirmCheckout(ctx context.Context, sessionID string) ([]SeatRef, error)
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
}
