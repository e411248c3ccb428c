package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"konzertticketing/internal/domain"
)

// Alphabet without 0/O/1/I so codes survive being read aloud or handwritten.
const (
	codeAlphabet       = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeSuffixLen      = 6
	codeCreateAttempts = 5
)

type ticketCodeService struct {
	codeRepo     domain.TicketCodeRepository
	seatRepo     domain.SeatRepository
	reservations domain.ReservationService
	prefix       string
	logger       *slog.Logger
}

// NewTicketCodeService creates a TicketCodeService. prefix is the event tag
// prepended to every generated code (e.g. "JOSEFI2026-").
func NewTicketCodeService(codeRepo domain.TicketCodeRepository, seatRepo domain.SeatRepository, reservations domain.ReservationService, prefix string, logger *slog.Logger) domain.TicketCodeService {
	return &ticketCodeService{
		codeRepo:     codeRepo,
		seatRepo:     seatRepo,
		reservations: reservations,
		prefix:       prefix,
		logger:       logger,
	}
}

// Generate creates a new unused code. Collisions are unlikely at this length
// but the uniqueness constraint is authoritative, so creation retries on a
// duplicate.
func (s *ticketCodeService) Generate(ctx context.Context) (*domain.FreeTicketCode, error) {
	for attempt := 0; attempt < codeCreateAttempts; attempt++ {
		suffix, err := generateCodeSuffix(codeSuffixLen)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}
		tc := &domain.FreeTicketCode{
			Code:      s.prefix + suffix,
			CreatedAt: time.Now(),
		}
		err = s.codeRepo.Create(ctx, tc)
		if err == nil {
			return tc, nil
		}
		if !errors.Is(err, domain.ErrDuplicateCode) {
			return nil, fmt.Errorf("failed to store code: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to generate a unique code after %d attempts", codeCreateAttempts)
}

// Redeem consumes the code and commits the seats as paid in that order. The
// mark-used compare-and-set is what guarantees single use: of N concurrent
// redemptions of the same code exactly one passes it. Availability is checked
// before the flip so a selection that is already taken does not burn the code.
func (s *ticketCodeService) Redeem(ctx context.Context, code string, buyerID int64, refs []domain.SeatRef) ([]domain.SeatRef, error) {
	refs, err := normalizeSeatRefs(refs)
	if err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrCodeNotFound
	}
	tc, err := s.codeRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up code: %w", err)
	}
	if tc.Used {
		return nil, domain.ErrCodeAlreadyUsed
	}

	for _, ref := range refs {
		seat, err := s.seatRepo.Get(ctx, ref.Row, ref.Number)
		if err != nil {
			if errors.Is(err, domain.ErrSeatNotFound) {
				continue // free
			}
			return nil, fmt.Errorf("failed to check seat %s: %w", ref, err)
		}
		if seat.OccupantUserID == nil || *seat.OccupantUserID != buyerID {
			return nil, fmt.Errorf("seat %s: %w", ref, domain.ErrSeatUnavailable)
		}
	}

	consumed, err := s.codeRepo.MarkUsed(ctx, code, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume code: %w", err)
	}
	if !consumed {
		return nil, domain.ErrCodeAlreadyUsed
	}

	outcomes := s.reservations.CommitPaid(ctx, buyerID, refs)
	committed := make([]domain.SeatRef, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			s.logger.ErrorContext(ctx, "free-ticket seat commit failed",
				"code", code, "seat", outcome.Seat.String(), "user_id", buyerID, "err", outcome.Err)
			continue
		}
		committed = append(committed, outcome.Seat)
	}
	return committed, nil
}

func generateCodeSuffix(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
