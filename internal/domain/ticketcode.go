package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for free-ticket code operations.
var (
	ErrCodeNotFound    = errors.New("free-ticket code not found")
	ErrCodeAlreadyUsed = errors.New("free-ticket code already used")
	ErrDuplicateCode   = errors.New("free-ticket code already exists")
)

// FreeTicketCode is a single-use voucher that converts directly to paid seats.
// Once Used is true it never transitions back.
// swagger:model FreeTicketCode
type FreeTicketCode struct {
	Code         string     `json:"code"`
	Used         bool       `json:"used"`
	UsedByUserID *int64     `json:"used_by_user_id,omitempty"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TicketCodeRepository defines the interface for free-ticket code storage.
type TicketCodeRepository interface {
	Create(ctx context.Context, code *FreeTicketCode) error
	GetByCode(ctx context.Context, code string) (*FreeTicketCode, error)
	// MarkUsed flips used to true only if it is currently false, in a single
	// atomic statement. consumed reports whether this call won the flip.
	MarkUsed(ctx context.Context, code string, userID int64) (consumed bool, err error)
}

// TicketCodeService generates and redeems free-ticket codes.
type TicketCodeService interface {
	Generate(ctx context.Context) (*FreeTicketCode, error)
	// Redeem consumes the code exactly once and commits the seats as paid for
	// the buyer. Returns the committed seat refs.
	Redeem(ctx context.Context, code string, buyerID int64, refs []SeatRef) ([]SeatRef, error)
}
