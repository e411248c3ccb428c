package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"konzertticketing/internal/domain"
)

var rowRegexp = regexp.MustCompile(`^[A-Z]{1,2}$`)

type reservationService struct {
	seatRepo domain.SeatRepository
}

// NewReservationService creates a ReservationService over the given seat store.
func NewReservationService(seatRepo domain.SeatRepository) domain.ReservationService {
	return &reservationService{seatRepo: seatRepo}
}

func (s *reservationService) ListOccupied(ctx context.Context) ([]*domain.Seat, error) {
	seats, err := s.seatRepo.ListOccupied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	return seats, nil
}

// Reserve applies the batch seat by seat. A conflict on one seat does not
// abort the rest; callers report partial success from the outcomes. Admin
// actors overwrite existing claims; everyone else is bound by the claim
// guard, which also keeps a paid seat paid — there is no way back to
// occupied short of an admin release.
func (s *reservationService) Reserve(ctx context.Context, actor domain.Actor, reservations []domain.SeatReservation) ([]domain.SeatOutcome, error) {
	if len(reservations) == 0 {
		return nil, domain.ErrEmptySelection
	}
	refs := make([]domain.SeatRef, len(reservations))
	for i, res := range reservations {
		ref, err := normalizeSeatRef(res.SeatRef)
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}

	now := time.Now()
	outcomes := make([]domain.SeatOutcome, 0, len(reservations))
	for i, res := range reservations {
		seat := &domain.Seat{
			Row:       refs[i].Row,
			Number:    refs[i].Number,
			Status:    domain.SeatStatusOccupied,
			FirstName: res.FirstName,
			LastName:  res.LastName,
			Note:      res.Note,
			CreatedAt: now,
			UpdatedAt: now,
		}
		var err error
		if actor.Admin {
			err = s.seatRepo.Upsert(ctx, seat)
		} else {
			buyerID := actor.UserID
			seat.OccupantUserID = &buyerID
			err = s.seatRepo.Claim(ctx, seat)
		}
		if err != nil && !errors.Is(err, domain.ErrSeatUnavailable) {
			err = fmt.Errorf("failed to reserve seat %s: %w", refs[i], err)
		}
		outcomes = append(outcomes, domain.SeatOutcome{Seat: refs[i], Err: err})
	}
	return outcomes, nil
}

// Release deletes the seat records, returning how many existed. Releasing an
// already-free seat is a no-op, not an error.
func (s *reservationService) Release(ctx context.Context, refs []domain.SeatRef) (int, error) {
	if len(refs) == 0 {
		return 0, domain.ErrEmptySelection
	}
	released := 0
	var errs []error
	for _, raw := range refs {
		ref, err := normalizeSeatRef(raw)
		if err != nil {
			return released, err
		}
		deleted, err := s.seatRepo.Delete(ctx, ref.Row, ref.Number)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to release seat %s: %w", ref, err))
			continue
		}
		if deleted {
			released++
		}
	}
	return released, errors.Join(errs...)
}

func (s *reservationService) UpdateMetadata(ctx context.Context, row string, number int, firstName, lastName, note *string) (*domain.Seat, error) {
	ref, err := normalizeSeatRef(domain.SeatRef{Row: row, Number: number})
	if err != nil {
		return nil, err
	}
	seat, err := s.seatRepo.UpdateMetadata(ctx, ref.Row, ref.Number, firstName, lastName, note)
	if err != nil {
		if errors.Is(err, domain.ErrSeatNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update seat %s: %w", ref, err)
	}
	return seat, nil
}

// CommitPaid sets each seat to paid for the buyer, touching only status and
// occupant so attendee details from an earlier reservation are kept. Replaying
// the same commit converges to the same final state and reports Changed false.
// Seats held by a different occupant fail individually.
func (s *reservationService) CommitPaid(ctx context.Context, buyerID int64, refs []domain.SeatRef) []domain.SeatOutcome {
	now := time.Now()
	outcomes := make([]domain.SeatOutcome, 0, len(refs))
	for _, raw := range refs {
		ref, err := normalizeSeatRef(raw)
		if err != nil {
			outcomes = append(outcomes, domain.SeatOutcome{Seat: raw, Err: err})
			continue
		}
		changed, err := s.seatRepo.MarkPaid(ctx, ref.Row, ref.Number, buyerID, now)
		if err != nil {
			if !errors.Is(err, domain.ErrSeatUnavailable) {
				err = fmt.Errorf("failed to commit seat %s: %w", ref, err)
			}
			outcomes = append(outcomes, domain.SeatOutcome{Seat: ref, Err: err})
			continue
		}
		outcomes = append(outcomes, domain.SeatOutcome{Seat: ref, Changed: changed})
	}
	return outcomes
}

func normalizeSeatRef(ref domain.SeatRef) (domain.SeatRef, error) {
	ref.Row = strings.ToUpper(strings.TrimSpace(ref.Row))
	if !rowRegexp.MatchString(ref.Row) {
		return ref, fmt.Errorf("%w: row %q", domain.ErrInvalidSeatRef, ref.Row)
	}
	if ref.Number < 1 {
		return ref, fmt.Errorf("%w: number %d", domain.ErrInvalidSeatRef, ref.Number)
	}
	return ref, nil
}

func normalizeSeatRefs(refs []domain.SeatRef) ([]domain.SeatRef, error) {
	if len(refs) == 0 {
		return nil, domain.ErrEmptySelection
	}
	out := make([]domain.SeatRef, len(refs))
	for i, ref := range refs {
		normalized, err := normalizeSeatRef(ref)
		if err != nil {
			return nil, err
		}
		out[i] = normalized
	}
	return out, nil
}
