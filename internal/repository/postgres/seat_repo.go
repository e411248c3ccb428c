package postgres

import (
	"context"
	"database/sql"
	"time"

	"konzertticketing/internal/domain"
)

type seatRepository struct {
	DB *sql.DB
}

// NewSeatRepository returns a domain.SeatRepository implemented with Postgres.
func NewSeatRepository(db *sql.DB) domain.SeatRepository {
	return &seatRepository{DB: db}
}

func (r *seatRepository) ListOccupied(ctx context.Context) ([]*domain.Seat, error) {
	query := `
		SELECT seat_row, seat_number, status, occupant_user_id, first_name, last_name, note, created_at, updated_at
		FROM seats
		WHERE status IN ('occupied', 'paid')
		ORDER BY seat_row, seat_number
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []*domain.Seat
	for rows.Next() {
		seat := &domain.Seat{}
		if err := rows.Scan(&seat.Row, &seat.Number, &seat.Status, &seat.OccupantUserID, &seat.FirstName, &seat.LastName, &seat.Note, &seat.CreatedAt, &seat.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func (r *seatRepository) Get(ctx context.Context, row string, number int) (*domain.Seat, error) {
	query := `
		SELECT seat_row, seat_number, status, occupant_user_id, first_name, last_name, note, created_at, updated_at
		FROM seats
		WHERE seat_row = $1 AND seat_number = $2
	`
	seat := &domain.Seat{}
	err := r.DB.QueryRowContext(ctx, query, row, number).Scan(&seat.Row, &seat.Number, &seat.Status, &seat.OccupantUserID, &seat.FirstName, &seat.LastName, &seat.Note, &seat.CreatedAt, &seat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSeatNotFound
		}
		return nil, err
	}
	return seat, nil
}

// Claim writes the seat only when it is free or held unpaid by the same
// occupant. The guard lives in the ON CONFLICT clause so the availability
// check and the write are one statement; two concurrent claims of the same
// seat serialize on the (seat_row, seat_number) uniqueness constraint. A paid
// seat never matches the guard, so it cannot be talked back down to occupied.
func (r *seatRepository) Claim(ctx context.Context, seat *domain.Seat) error {
	query := `
		INSERT INTO seats (seat_row, seat_number, status, occupant_user_id, first_name, last_name, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (seat_row, seat_number) DO UPDATE
		SET status = EXCLUDED.status, occupant_user_id = EXCLUDED.occupant_user_id,
			first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			note = EXCLUDED.note, updated_at = EXCLUDED.updated_at
		WHERE seats.status <> 'paid'
			AND seats.occupant_user_id IS NOT DISTINCT FROM EXCLUDED.occupant_user_id
		RETURNING created_at
	`
	err := r.DB.QueryRowContext(ctx, query,
		seat.Row, seat.Number, seat.Status, seat.OccupantUserID,
		seat.FirstName, seat.LastName, seat.Note, seat.CreatedAt, seat.UpdatedAt,
	).Scan(&seat.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrSeatUnavailable
		}
		return err
	}
	return nil
}

// MarkPaid flips the seat to paid without naming the attendee columns, so
// details stored on an earlier reservation survive the payment. The CTE reads
// the pre-statement status; a NULL subselect means the seat was inserted.
func (r *seatRepository) MarkPaid(ctx context.Context, row string, number int, occupantID int64, now time.Time) (bool, error) {
	query := `
		WITH existing AS (
			SELECT status FROM seats WHERE seat_row = $1 AND seat_number = $2
		)
		INSERT INTO seats (seat_row, seat_number, status, occupant_user_id, created_at, updated_at)
		VALUES ($1, $2, 'paid', $3, $4, $4)
		ON CONFLICT (seat_row, seat_number) DO UPDATE
		SET status = 'paid', occupant_user_id = EXCLUDED.occupant_user_id, updated_at = EXCLUDED.updated_at
		WHERE seats.occupant_user_id = EXCLUDED.occupant_user_id
		RETURNING (SELECT status FROM existing) IS DISTINCT FROM 'paid' AS newly_paid
	`
	var changed bool
	err := r.DB.QueryRowContext(ctx, query, row, number, occupantID, now).Scan(&changed)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, domain.ErrSeatUnavailable
		}
		return false, err
	}
	return changed, nil
}

func (r *seatRepository) Upsert(ctx context.Context, seat *domain.Seat) error {
	query := `
		INSERT INTO seats (seat_row, seat_number, status, occupant_user_id, first_name, last_name, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (seat_row, seat_number) DO UPDATE
		SET status = EXCLUDED.status, occupant_user_id = EXCLUDED.occupant_user_id,
			first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			note = EXCLUDED.note, updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`
	return r.DB.QueryRowContext(ctx, query,
		seat.Row, seat.Number, seat.Status, seat.OccupantUserID,
		seat.FirstName, seat.LastName, seat.Note, seat.CreatedAt, seat.UpdatedAt,
	).Scan(&seat.CreatedAt)
}

func (r *seatRepository) UpdateMetadata(ctx context.Context, row string, number int, firstName, lastName, note *string) (*domain.Seat, error) {
	query := `
		UPDATE seats
		SET first_name = $3, last_name = $4, note = $5, updated_at = NOW()
		WHERE seat_row = $1 AND seat_number = $2
		RETURNING seat_row, seat_number, status, occupant_user_id, first_name, last_name, note, created_at, updated_at
	`
	seat := &domain.Seat{}
	err := r.DB.QueryRowContext(ctx, query, row, number, firstName, lastName, note).Scan(
		&seat.Row, &seat.Number, &seat.Status, &seat.OccupantUserID,
		&seat.FirstName, &seat.LastName, &seat.Note, &seat.CreatedAt, &seat.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSeatNotFound
		}
		return nil, err
	}
	return seat, nil
}

func (r *seatRepository) Delete(ctx context.Context, row string, number int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM seats WHERE seat_row = $1 AND seat_number = $2`, row, number)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
