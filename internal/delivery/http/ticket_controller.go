package http

import (
	"errors"
	"net/http"
	"strings"

	h "konzertticketing/internal/delivery/http/helpers"
	"konzertticketing/internal/delivery/http/middleware"
	"konzertticketing/internal/domain"
)

// RedeemTicketRequest is the request body for POST /free-ticket.
type RedeemTicketRequest struct {
	Code  string        `json:"code"`
	Seats []SeatRequest `json:"seats"`
}

// Validate implements Validator.
func (r RedeemTicketRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.Code) == "" {
		errs = append(errs, "code is required")
	}
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

// RedeemTicketResponse is the response body for POST /free-ticket.
type RedeemTicketResponse struct {
	Seats []string `json:"seats"`
}

// GenerateTicketResponse is the response body for POST /admin/free-ticket.
type GenerateTicketResponse struct {
	Code string `json:"code"`
}

type TicketController struct {
	Service domain.TicketCodeService
}

func NewTicketController(svc domain.TicketCodeService) *TicketController {
	return &TicketController{Service: svc}
}

// Redeem godoc
// @Summary Redeem a free-ticket code
// @Description Exchange a single-use code for the selected seats. The seats are committed as paid for the authenticated user. A code already redeemed, or a selection with a taken seat, leaves everything unchanged.
// @Tags tickets
// @Accept json
// @Produce json
// @Param body body RedeemTicketRequest true "Code and seat selection"
// @Success 200 {object} helpers.APIResponse "data contains the committed seats"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, invalid_code, or code_already_used"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: seat_unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Security BearerAuth
// @Router /free-ticket [post]
func (c *TicketController) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemTicketRequest
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

	committed, err := c.Service.Redeem(r.Context(), req.Code, userID, refs)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCodeNotFound):
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeInvalidCode, "unknown ticket code")
		case errors.Is(err, domain.ErrCodeAlreadyUsed):
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeCodeAlreadyUsed, "ticket code already redeemed")
		case errors.Is(err, domain.ErrSeatUnavailable):
			h.WriteJSONError(w, http.StatusConflict, h.ErrCodeSeatUnavailable, err.Error())
		case errors.Is(err, domain.ErrEmptySelection) || errors.Is(err, domain.ErrInvalidSeatRef):
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
		default:
			h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		}
		return
	}

	seats := make([]string, len(committed))
	for i, ref := range committed {
		seats[i] = ref.String()
	}
	h.WriteJSONSuccess(w, http.StatusOK, RedeemTicketResponse{Seats: seats})
}

// Generate godoc
// @Summary Generate a free-ticket code
// @Description Create a new single-use free-ticket code. Admin only.
// @Tags tickets
// @Produce json
// @Success 201 {object} helpers.APIResponse "data contains the new code"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Security BearerAuth
// @Router /admin/free-ticket [post]
func (c *TicketController) Generate(w http.ResponseWriter, r *http.Request) {
	tc, err := c.Service.Generate(r.Context())
	if err != nil {
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, GenerateTicketResponse{Code: tc.Code})
}
