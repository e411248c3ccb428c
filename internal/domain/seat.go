package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for seat operations.
var (
	ErrSeatUnavailable = errors.New("seat is already taken")
	ErrSeatNotFound    = errors.New("seat not found")
	ErrEmptySelection  = errors.New("seat selection is empty")
	ErrInvalidSeatRef  = errors.New("invalid seat reference")
)

// SeatStatus is the occupancy state of a seat. A seat with no stored record is free.
type SeatStatus string

const (
	SeatStatusOccupied SeatStatus = "occupied"
	SeatStatusPaid     SeatStatus = "paid"
)

// SeatRef identifies a seat by its row letter(s) and number.
type SeatRef struct {
	Row    string `json:"row"`
	Number int    `json:"number"`
}

func (r SeatRef) String() string {
	return fmt.Sprintf("%s%d", r.Row, r.Number)
}

// Seat represents a claimed seat. Free seats have no record; their absence from
// the occupied listing is how clients infer availability.
// swagger:model Seat
type Seat struct {
	Row            string     `json:"row"`
	Number         int        `json:"number"`
	Status         SeatStatus `json:"status"`
	OccupantUserID *int64     `json:"user_id,omitempty"`
	FirstName      *string    `json:"first_name,omitempty"`
	LastName       *string    `json:"last_name,omitempty"`
	Note           *string    `json:"note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Ref returns the seat's identity.
func (s *Seat) Ref() SeatRef {
	return SeatRef{Row: s.Row, Number: s.Number}
}

// Actor is the identity on whose behalf a seat transition runs. Admin actors
// may override existing claims; everyone else is bound by the claim guard.
type Actor struct {
	UserID int64
	Admin  bool
}

// SeatReservation is one seat in a batch reserve request, with optional
// occupant metadata.
type SeatReservation struct {
	SeatRef
	FirstName *string
	LastName  *string
	Note      *string
}

// SeatOutcome is the per-seat result of a batch operation. Err is nil on
// success. Changed reports whether the seat actually transitioned state; a
// replayed commit succeeds with Changed false.
type SeatOutcome struct {
	Seat    SeatRef
	Err     error
	Changed bool
}

// SeatRepository defines the interface for seat storage.
//
// Claim must be atomic with respect to concurrent claims of the same
// (row, number): the availability check and the write happen in one
// storage-level statement, never read-then-write.
type SeatRepository interface {
	ListOccupied(ctx context.Context) ([]*Seat, error)
	Get(ctx context.Context, row string, number int) (*Seat, error)
	// Claim inserts the seat or, if it exists, overwrites it only when the
	// existing occupant matches the new one and the seat is not already paid.
	// Returns ErrSeatUnavailable when the seat is held by someone else or paid.
	Claim(ctx context.Context, seat *Seat) error
	// MarkPaid sets the seat to paid for the occupant, inserting it when free
	// and keeping any stored attendee details. It succeeds on a seat already
	// paid by the same occupant; changed reports whether the seat was not paid
	// before. Returns ErrSeatUnavailable when a different occupant holds it.
	MarkPaid(ctx context.Context, row string, number int, occupantID int64, now time.Time) (changed bool, err error)
	// Upsert unconditionally creates or overwrites the seat (admin override).
	Upsert(ctx context.Context, seat *Seat) error
	// UpdateMetadata replaces all three metadata fields of an existing seat.
	// Returns ErrSeatNotFound when the seat has no record.
	UpdateMetadata(ctx context.Context, row string, number int, firstName, lastName, note *string) (*Seat, error)
	// Delete releases the seat back to free. Deleting an absent seat is a no-op.
	Delete(ctx context.Context, row string, number int) (deleted bool, err error)
}

// ReservationService applies seat state transitions and enforces the claim
// invariants. It holds no state of its own.
type ReservationService interface {
	ListOccupied(ctx context.Context) ([]*Seat, error)
	Reserve(ctx context.Context, actor Actor, reservations []SeatReservation) ([]SeatOutcome, error)
	Release(ctx context.Context, refs []SeatRef) (released int, err error)
	UpdateMetadata(ctx context.Context, row string, number int, firstName, lastName, note *string) (*Seat, error)
	// CommitPaid marks the given seats paid for the buyer, keeping any
	// attendee details stored on them. Re-applying the same commit is a no-op
	// in effect; seats held by a different occupant fail individually with
	// ErrSeatUnavailable.
	CommitPaid(ctx context.Context, buyerID int64, refs []SeatRef) []SeatOutcome
}
