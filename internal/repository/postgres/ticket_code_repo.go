package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"konzertticketing/internal/domain"
)

type ticketCodeRepository struct {
	DB *sql.DB
}

// NewTicketCodeRepository returns a domain.TicketCodeRepository implemented with Postgres.
func NewTicketCodeRepository(db *sql.DB) domain.TicketCodeRepository {
	return &ticketCodeRepository{DB: db}
}

func (r *ticketCodeRepository) Create(ctx context.Context, code *domain.FreeTicketCode) error {
	query := `
		INSERT INTO free_tickets (code, used, created_at)
		VALUES ($1, FALSE, $2)
	`
	_, err := r.DB.ExecContext(ctx, query, code.Code, code.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (r *ticketCodeRepository) GetByCode(ctx context.Context, code string) (*domain.FreeTicketCode, error) {
	query := `
		SELECT code, used, used_by_user_id, used_at, created_at
		FROM free_tickets
		WHERE code = $1
	`
	tc := &domain.FreeTicketCode{}
	err := r.DB.QueryRowContext(ctx, query, code).Scan(&tc.Code, &tc.Used, &tc.UsedByUserID, &tc.UsedAt, &tc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}
	return tc, nil
}

// MarkUsed flips the code in one conditional UPDATE. The WHERE used = FALSE
// clause is the compare-and-set: of N concurrent callers exactly one sees a
// row affected.
func (r *ticketCodeRepository) MarkUsed(ctx context.Context, code string, userID int64) (bool, error) {
	query := `
		UPDATE free_tickets
		SET used = TRUE, used_by_user_id = $2, used_at = NOW()
		WHERE code = $1 AND used = FALSE
	`
	res, err := r.DB.ExecContext(ctx, query, code, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
