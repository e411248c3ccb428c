package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"konzertticketing/internal/delivery/http/helpers"
	"konzertticketing/internal/delivery/http/middleware"
	"konzertticketing/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReservationService implements domain.ReservationService for handler tests.
type fakeReservationService struct {
	seats        []*domain.Seat
	listErr      error
	outcomes     []domain.SeatOutcome
	reserveErr   error
	released     int
	releaseErr   error
	updatedSeat  *domain.Seat
	updateErr    error
	lastActor    domain.Actor
	lastReserve  []domain.SeatReservation
	lastRelease  []domain.SeatRef
	lastCommitID int64
}

func (f *fakeReservationService) ListOccupied(ctx context.Context) ([]*domain.Seat, error) {
	return f.seats, f.listErr
}

func (f *fakeReservationService) Reserve(ctx context.Context, actor domain.Actor, reservations []domain.SeatReservation) ([]domain.SeatOutcome, error) {
	f.lastActor = actor
	f.lastReserve = reservations
	return f.outcomes, f.reserveErr
}

func (f *fakeReservationService) Release(ctx context.Context, refs []domain.SeatRef) (int, error) {
	f.lastRelease = refs
	return f.released, f.releaseErr
}

func (f *fakeReservationService) UpdateMetadata(ctx context.Context, row string, number int, firstName, lastName, note *string) (*domain.Seat, error) {
	return f.updatedSeat, f.updateErr
}

func (f *fakeReservationService) CommitPaid(ctx context.Context, buyerID int64, refs []domain.SeatRef) []domain.SeatOutcome {
	f.lastCommitID = buyerID
	return f.outcomes
}

func authedRequest(req *http.Request, claims *domain.TokenClaims) *http.Request {
	return req.WithContext(middleware.SetIdentity(req.Context(), claims))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	return envelope
}

func TestSeatController_List(t *testing.T) {
	t.Run("returns occupied seats", func(t *testing.T) {
		fake := &fakeReservationService{seats: []*domain.Seat{
			{Row: "A", Number: 1, Status: domain.SeatStatusOccupied},
			{Row: "B", Number: 5, Status: domain.SeatStatusPaid},
		}}
		ctrl := NewSeatController(fake)
		rr := httptest.NewRecorder()

		ctrl.List(rr, httptest.NewRequest(http.MethodGet, "/seats", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		envelope := decodeEnvelope(t, rr)
		require.Nil(t, envelope.Error)
		seats, ok := envelope.Data.([]any)
		require.True(t, ok)
		assert.Len(t, seats, 2)
	})

	t.Run("empty list is a JSON array", func(t *testing.T) {
		ctrl := NewSeatController(&fakeReservationService{})
		rr := httptest.NewRecorder()

		ctrl.List(rr, httptest.NewRequest(http.MethodGet, "/seats", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"data":[]`)
	})

	t.Run("service error", func(t *testing.T) {
		ctrl := NewSeatController(&fakeReservationService{listErr: errors.New("db down")})
		rr := httptest.NewRecorder()

		ctrl.List(rr, httptest.NewRequest(http.MethodGet, "/seats", nil))

		require.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestSeatController_Reserve(t *testing.T) {
	claims := &domain.TokenClaims{UserID: 7, Roles: []string{domain.RoleUser}}
	adminClaims := &domain.TokenClaims{UserID: 1, Roles: []string{domain.RoleAdmin}}

	t.Run("partial success reports both lists", func(t *testing.T) {
		fake := &fakeReservationService{outcomes: []domain.SeatOutcome{
			{Seat: domain.SeatRef{Row: "A", Number: 1}},
			{Seat: domain.SeatRef{Row: "A", Number: 2}, Err: domain.ErrSeatUnavailable},
		}}
		ctrl := NewSeatController(fake)
		body := `{"seats":[{"row":"A","number":1},{"row":"A","number":2}]}`
		req := authedRequest(httptest.NewRequest(http.MethodPost, "/seats", bytes.NewBufferString(body)), claims)
		rr := httptest.NewRecorder()

		ctrl.Reserve(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"reserved":["A1"]`)
		assert.Contains(t, rr.Body.String(), `"seat":"A2"`)
		assert.Equal(t, domain.Actor{UserID: 7, Admin: false}, fake.lastActor)
		require.Len(t, fake.lastReserve, 2)
	})

	t.Run("admin actor carries the override flag", func(t *testing.T) {
		fake := &fakeReservationService{outcomes: []domain.SeatOutcome{{Seat: domain.SeatRef{Row: "A", Number: 1}}}}
		ctrl := NewSeatController(fake)
		body := `{"seats":[{"row":"A","number":1,"first_name":"Max","last_name":"Mustermann"}]}`
		req := authedRequest(httptest.NewRequest(http.MethodPost, "/seats", bytes.NewBufferString(body)), adminClaims)
		rr := httptest.NewRecorder()

		ctrl.Reserve(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, fake.lastActor.Admin)
		require.NotNil(t, fake.lastReserve[0].FirstName)
		assert.Equal(t, "Max", *fake.lastReserve[0].FirstName)
	})

	t.Run("missing identity", func(t *testing.T) {
		ctrl := NewSeatController(&fakeReservationService{})
		body := `{"seats":[{"row":"A","number":1}]}`
		rr := httptest.NewRecorder()

		ctrl.Reserve(rr, httptest.NewRequest(http.MethodPost, "/seats", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("empty seats rejected before the service", func(t *testing.T) {
		fake := &fakeReservationService{}
		ctrl := NewSeatController(fake)
		req := authedRequest(httptest.NewRequest(http.MethodPost, "/seats", bytes.NewBufferString(`{"seats":[]}`)), claims)
		rr := httptest.NewRecorder()

		ctrl.Reserve(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Nil(t, fake.lastReserve)
	})

	t.Run("invalid seat ref from service", func(t *testing.T) {
		fake := &fakeReservationService{reserveErr: domain.ErrInvalidSeatRef}
		ctrl := NewSeatController(fake)
		body := `{"seats":[{"row":"toolong","number":1}]}`
		req := authedRequest(httptest.NewRequest(http.MethodPost, "/seats", bytes.NewBufferString(body)), claims)
		rr := httptest.NewRecorder()

		ctrl.Reserve(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSeatController_Release(t *testing.T) {
	t.Run("returns released count", func(t *testing.T) {
		fake := &fakeReservationService{released: 2}
		ctrl := NewSeatController(fake)
		body := `{"seats":[{"row":"A","number":1},{"row":"A","number":2}]}`
		rr := httptest.NewRecorder()

		ctrl.Release(rr, httptest.NewRequest(http.MethodDelete, "/seats", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"released":2`)
		require.Len(t, fake.lastRelease, 2)
	})

	t.Run("empty body rejected", func(t *testing.T) {
		ctrl := NewSeatController(&fakeReservationService{})
		rr := httptest.NewRecorder()

		ctrl.Release(rr, httptest.NewRequest(http.MethodDelete, "/seats", bytes.NewBufferString(`{"seats":[]}`)))

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSeatController_UpdateMetadata(t *testing.T) {
	newRequest := func(row, number, body string) *http.Request {
		req := httptest.NewRequest(http.MethodPatch, "/seats/"+row+"/"+number, bytes.NewBufferString(body))
		req.SetPathValue("row", row)
		req.SetPathValue("number", number)
		return req
	}

	t.Run("replaces metadata", func(t *testing.T) {
		first := "Erika"
		fake := &fakeReservationService{updatedSeat: &domain.Seat{Row: "B", Number: 3, Status: domain.SeatStatusOccupied, FirstName: &first}}
		ctrl := NewSeatController(fake)
		rr := httptest.NewRecorder()

		ctrl.UpdateMetadata(rr, newRequest("B", "3", `{"first_name":"Erika"}`))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"first_name":"Erika"`)
	})

	t.Run("seat not found", func(t *testing.T) {
		ctrl := NewSeatController(&fakeReservationService{updateErr: domain.ErrSeatNotFound})
		rr := httptest.NewRecorder()

		ctrl.UpdateMetadata(rr, newRequest("B", "3", `{}`))

		require.Equal(t, http.StatusNotFound, rr.Code)
		envelope := decodeEnvelope(t, rr)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, helpers.ErrCodeNotFound, envelope.Error.Code)
	})

	t.Run("bad seat number in path", func(t *testing.T) {
		ctrl := NewSeatController(&fakeReservationService{})
		rr := httptest.NewRecorder()

		ctrl.UpdateMetadata(rr, newRequest("B", "zero", `{}`))

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
