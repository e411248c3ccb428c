package http

import (
	"errors"
	"io"
	"net/http"

	h "konzertticketing/internal/delivery/http/helpers"
	"konzertticketing/internal/delivery/http/middleware"
	"konzertticketing/internal/domain"
)

// Providers cap webhook payloads well below this; the limit only guards
// against unbounded reads.
const maxWebhookBodyBytes = 1 << 20

// CreateCheckoutRequest is the request body for POST /checkout.
type CreateCheckoutRequest struct {
	Seats []SeatRequest `json:"seats"`
}

// Validate implements Validator.
func (r CreateCheckoutRequest) Validate() []string {
	var errs []string
	if len(r.Seats) == 0 {
		errs = append(errs, "seats is required")
	}
	for _, s := range r.Seats {
		if s.Row == "" {
			errs = append(errs, "seat row is required")
		}
		if s.Number < 1 {
			errs = append(errs, "seat number must be positive")
		}
	}
	return errs
}

// ConfirmCheckoutResponse is the response body for GET /payment-success.
type ConfirmCheckoutResponse struct {
	Seats []string `json:"seats"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

type PaymentController struct {
	Service domain.PaymentService
}

func NewPaymentController(svc domain.PaymentService) *PaymentController {
	return &PaymentController{Service: svc}
}

// CreateCheckout godoc
// @Summary Start a checkout
// @Description Create a payment session for the selected seats. Returns the provider URL the client must visit to pay. Seats are not held until payment completes.
// @Tags payments
// @Accept json
// @Produce json
// @Param body body CreateCheckoutRequest true "Seats to buy"
// @Success 201 {object} helpers.APIResponse "data contains session_id and url"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Security BearerAuth
// @Router /checkout [post]
func (c *PaymentController) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "authentication required")
		return
	}

	refs := make([]domain.SeatRef, len(req.Seats))
	for i, s := range req.Seats {
		refs[i] = domain.SeatRef{Row: s.Row, Number: s.Number}
	}

	intent, err := c.Service.CreateCheckout(r.Context(), userID, refs)
	if err != nil {
		if errors.Is(err, domain.ErrEmptySelection) || errors.Is(err, domain.ErrInvalidSeatRef) {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
			return
		}
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, intent)
}

// ConfirmCheckout godoc
// @Summary Confirm a completed payment
// @Description Pull-based confirmation used by the success redirect page. Fetches the session from the provider and, if paid, commits the purchased seats. Safe to call repeatedly.
// @Tags payments
// @Produce json
// @Param session_id query string true "Checkout session ID"
// @Success 200 {object} helpers.APIResponse "data contains the committed seats"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: payment_not_completed"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /payment-success [get]
func (c *PaymentController) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "session_id is required")
		return
	}

	refs, err := c.Service.ConfirmCheckout(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotCompleted):
			h.WriteJSONError(w, http.StatusConflict, h.ErrCodePaymentNotCompleted, "payment has not completed")
		case errors.Is(err, domain.ErrInvalidPaymentMetadata):
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "payment session is not linked to a seat purchase")
		default:
			h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		}
		return
	}

	seats := make([]string, len(refs))
	for i, ref := range refs {
		seats[i] = ref.String()
	}
	h.WriteJSONSuccess(w, http.StatusOK, ConfirmCheckoutResponse{Seats: seats})
}

// Webhook godoc
// @Summary Payment provider webhook
// @Description Push-based confirmation endpoint registered with the payment provider. The signature header authenticates the payload; a valid delivery is always acknowledged with 200 so the provider stops retrying.
// @Tags payments
// @Accept json
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains received: true"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_signature"
// @Router /webhook [post]
func (c *PaymentController) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "failed to read body")
		return
	}

	if err := c.Service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeInvalidSignature, "invalid signature")
			return
		}
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, WebhookResponse{Received: true})
}
