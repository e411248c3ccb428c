package http

import (
	"errors"
	"net/http"
	"strconv"

	h "konzertticketing/internal/delivery/http/helpers"
	"konzertticketing/internal/delivery/http/middleware"
	"konzertticketing/internal/domain"
)

// SeatRequest is one seat in a reservation or release request body.
type SeatRequest struct {
	Row       string  `json:"row"`
	Number    int     `json:"number"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Note      *string `json:"note,omitempty"`
}

// ReserveSeatsRequest is the request body for POST /seats.
type ReserveSeatsRequest struct {
	Seats []SeatRequest `json:"seats"`
}

// Validate implements Validator.
func (r ReserveSeatsRequest) Validate() []string {
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

// SeatOutcomeResponse is the per-seat result in a batch response.
type SeatOutcomeResponse struct {
	Seat   string `json:"seat"`
	Reason string `json:"reason,omitempty"`
}

// ReserveSeatsResponse is the response body for POST /seats.
type ReserveSeatsResponse struct {
	Reserved []string              `json:"reserved"`
	Failed   []SeatOutcomeResponse `json:"failed,omitempty"`
}

// ReleaseSeatsRequest is the request body for DELETE /seats.
type ReleaseSeatsRequest struct {
	Seats []SeatRequest `json:"seats"`
}

// Validate implements Validator.
func (r ReleaseSeatsRequest) Validate() []string {
	if len(r.Seats) == 0 {
		return []string{"seats is required"}
	}
	return nil
}

// ReleaseSeatsResponse is the response body for DELETE /seats.
type ReleaseSeatsResponse struct {
	Released int `json:"released"`
}

// UpdateSeatMetadataRequest is the request body for PATCH /seats/{row}/{number}.
// All three fields are replaced; omitted fields clear the stored value.
type UpdateSeatMetadataRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Note      *string `json:"note"`
}

type SeatController struct {
	Service domain.ReservationService
}

func NewSeatController(svc domain.ReservationService) *SeatController {
	return &SeatController{Service: svc}
}

// List godoc
// @Summary List occupied seats
// @Description Returns all seats that are currently occupied or paid. Seats absent from the list are free.
// @Tags seats
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains the seat list"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /seats [get]
func (c *SeatController) List(w http.ResponseWriter, r *http.Request) {
	seats, err := c.Service.ListOccupied(r.Context())
	if err != nil {
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	if seats == nil {
		seats = []*domain.Seat{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, seats)
}

// Reserve godoc
// @Summary Reserve seats
// @Description Reserve one or more seats for the authenticated user. Each seat succeeds or fails independently; admins may override existing claims.
// @Tags seats
// @Accept json
// @Produce json
// @Param body body ReserveSeatsRequest true "Seats to reserve"
// @Success 200 {object} helpers.APIResponse "data contains reserved and failed seats"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Security BearerAuth
// @Router /seats [post]
func (c *SeatController) Reserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveSeatsRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	claims, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "authentication required")
		return
	}
	actor := domain.Actor{UserID: claims.UserID, Admin: claims.IsAdmin()}

	reservations := make([]domain.SeatReservation, len(req.Seats))
	for i, s := range req.Seats {
		reservations[i] = domain.SeatReservation{
			SeatRef:   domain.SeatRef{Row: s.Row, Number: s.Number},
			FirstName: s.FirstName,
			LastName:  s.LastName,
			Note:      s.Note,
		}
	}

	outcomes, err := c.Service.Reserve(r.Context(), actor, reservations)
	if err != nil {
		if errors.Is(err, domain.ErrEmptySelection) || errors.Is(err, domain.ErrInvalidSeatRef) {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
			return
		}
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}

	h.WriteJSONSuccess(w, http.StatusOK, outcomesToResponse(outcomes))
}

// Release godoc
// @Summary Release seats
// @Description Delete seat records, returning them to free. Releasing an already free seat is a no-op. Admin only.
// @Tags seats
// @Accept json
// @Produce json
// @Param body body ReleaseSeatsRequest true "Seats to release"
// @Success 200 {object} helpers.APIResponse "data contains the released count"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Security BearerAuth
// @Router /seats [delete]
func (c *SeatController) Release(w http.ResponseWriter, r *http.Request) {
	var req ReleaseSeatsRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	refs := make([]domain.SeatRef, len(req.Seats))
	for i, s := range req.Seats {
		refs[i] = domain.SeatRef{Row: s.Row, Number: s.Number}
	}

	released, err := c.Service.Release(r.Context(), refs)
	if err != nil {
		if errors.Is(err, domain.ErrEmptySelection) || errors.Is(err, domain.ErrInvalidSeatRef) {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
			return
		}
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, ReleaseSeatsResponse{Released: released})
}

// UpdateMetadata godoc
// @Summary Update seat metadata
// @Description Replace the first name, last name, and note of an occupied seat. Omitted fields are cleared. Admin only.
// @Tags seats
// @Accept json
// @Produce json
// @Param row path string true "Row letter(s)"
// @Param number path int true "Seat number"
// @Param body body UpdateSeatMetadataRequest true "New metadata"
// @Success 200 {object} helpers.APIResponse "data contains the updated seat"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Security BearerAuth
// @Router /seats/{row}/{number} [patch]
func (c *SeatController) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	row := r.PathValue("row")
	number, err := strconv.Atoi(r.PathValue("number"))
	if row == "" || err != nil || number < 1 {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid seat reference")
		return
	}
	var req UpdateSeatMetadataRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}

	seat, err := c.Service.UpdateMetadata(r.Context(), row, number, req.FirstName, req.LastName, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSeatNotFound):
			h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "seat not found")
		case errors.Is(err, domain.ErrInvalidSeatRef):
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
		default:
			h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		}
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, seat)
}

func outcomesToResponse(outcomes []domain.SeatOutcome) ReserveSeatsResponse {
	resp := ReserveSeatsResponse{Reserved: []string{}}
	for _, o := range outcomes {
		if o.Err != nil {
			resp.Failed = append(resp.Failed, SeatOutcomeResponse{Seat: o.Seat.String(), Reason: o.Err.Error()})
			continue
		}
		resp.Reserved = append(resp.Reserved, o.Seat.String())
	}
	return resp
}
