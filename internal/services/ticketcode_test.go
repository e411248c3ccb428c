package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"konzertticketing/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTicketCodeRepo implements domain.TicketCodeRepository for tests.
type fakeTicketCodeRepo struct {
	codes     map[string]*domain.FreeTicketCode
	createErr error
	// duplicateFirst makes the first Create fail with ErrDuplicateCode to
	// exercise the retry loop.
	duplicateFirst bool
	creates        int
}

func newFakeTicketCodeRepo() *fakeTicketCodeRepo {
	return &fakeTicketCodeRepo{codes: make(map[string]*domain.FreeTicketCode)}
}

func (f *fakeTicketCodeRepo) Create(ctx context.Context, code *domain.FreeTicketCode) error {
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	if f.duplicateFirst && f.creates == 1 {
		return domain.ErrDuplicateCode
	}
	if _, ok := f.codes[code.Code]; ok {
		return domain.ErrDuplicateCode
	}
	f.codes[code.Code] = code
	return nil
}

func (f *fakeTicketCodeRepo) GetByCode(ctx context.Context, code string) (*domain.FreeTicketCode, error) {
	if tc, ok := f.codes[code]; ok {
		cp := *tc
		return &cp, nil
	}
	return nil, domain.ErrCodeNotFound
}

func (f *fakeTicketCodeRepo) MarkUsed(ctx context.Context, code string, userID int64) (bool, error) {
	tc, ok := f.codes[code]
	if !ok {
		return false, nil
	}
	if tc.Used {
		return false, nil
	}
	now := time.Now()
	tc.Used = true
	tc.UsedByUserID = &userID
	tc.UsedAt = &now
	return true, nil
}

func newTicketCodeFixture() (domain.TicketCodeService, *fakeTicketCodeRepo, *fakeSeatRepo) {
	codeRepo := newFakeTicketCodeRepo()
	seatRepo := newFakeSeatRepo()
	reservations := NewReservationService(seatRepo)
	svc := NewTicketCodeService(codeRepo, seatRepo, reservations, "JOSEFI2026-", discardLogger())
	return svc, codeRepo, seatRepo
}

func TestTicketCodeService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("code has prefix and unambiguous alphabet", func(t *testing.T) {
		svc, _, _ := newTicketCodeFixture()
		tc, err := svc.Generate(ctx)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(tc.Code, "JOSEFI2026-"))
		suffix := strings.TrimPrefix(tc.Code, "JOSEFI2026-")
		assert.Len(t, suffix, 6)
		for _, ch := range suffix {
			assert.Contains(t, codeAlphabet, string(ch))
		}
		assert.False(t, tc.Used)
	})

	t.Run("retries on duplicate", func(t *testing.T) {
		svc, codeRepo, _ := newTicketCodeFixture()
		codeRepo.duplicateFirst = true
		tc, err := svc.Generate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, codeRepo.creates)
		assert.Contains(t, codeRepo.codes, tc.Code)
	})
}

func TestTicketCodeService_Redeem(t *testing.T) {
	ctx := context.Background()

	seed := func(codeRepo *fakeTicketCodeRepo) {
		codeRepo.codes["JOSEFI2026-AB12CD"] = &domain.FreeTicketCode{Code: "JOSEFI2026-AB12CD"}
	}

	t.Run("valid code commits seats as paid", func(t *testing.T) {
		svc, codeRepo, seatRepo := newTicketCodeFixture()
		seed(codeRepo)

		seats, err := svc.Redeem(ctx, "josefi2026-ab12cd", 3, []domain.SeatRef{
			{Row: "G", Number: 1},
			{Row: "G", Number: 2},
		})
		require.NoError(t, err)
		require.Len(t, seats, 2)

		for _, key := range []string{"G1", "G2"} {
			seat := seatRepo.seats[key]
			require.NotNil(t, seat)
			assert.Equal(t, domain.SeatStatusPaid, seat.Status)
			require.NotNil(t, seat.OccupantUserID)
			assert.Equal(t, int64(3), *seat.OccupantUserID)
		}
		assert.True(t, codeRepo.codes["JOSEFI2026-AB12CD"].Used)
		require.NotNil(t, codeRepo.codes["JOSEFI2026-AB12CD"].UsedByUserID)
		assert.Equal(t, int64(3), *codeRepo.codes["JOSEFI2026-AB12CD"].UsedByUserID)
	})

	t.Run("second redemption fails and leaves seats free", func(t *testing.T) {
		svc, codeRepo, seatRepo := newTicketCodeFixture()
		seed(codeRepo)

		_, err := svc.Redeem(ctx, "JOSEFI2026-AB12CD", 3, []domain.SeatRef{{Row: "G", Number: 1}})
		require.NoError(t, err)

		_, err = svc.Redeem(ctx, "JOSEFI2026-AB12CD", 4, []domain.SeatRef{{Row: "G", Number: 3}})
		require.ErrorIs(t, err, domain.ErrCodeAlreadyUsed)
		assert.NotContains(t, seatRepo.seats, "G3")
	})

	t.Run("unknown code", func(t *testing.T) {
		svc, _, _ := newTicketCodeFixture()
		_, err := svc.Redeem(ctx, "JOSEFI2026-XXXXXX", 3, []domain.SeatRef{{Row: "G", Number: 1}})
		require.ErrorIs(t, err, domain.ErrCodeNotFound)
	})

	t.Run("taken seat does not burn the code", func(t *testing.T) {
		svc, codeRepo, seatRepo := newTicketCodeFixture()
		seed(codeRepo)
		seatRepo.seats["G1"] = &domain.Seat{Row: "G", Number: 1, Status: domain.SeatStatusPaid, OccupantUserID: int64Ptr(9)}

		_, err := svc.Redeem(ctx, "JOSEFI2026-AB12CD", 3, []domain.SeatRef{{Row: "G", Number: 1}})
		require.ErrorIs(t, err, domain.ErrSeatUnavailable)
		assert.False(t, codeRepo.codes["JOSEFI2026-AB12CD"].Used)
	})

	t.Run("empty selection", func(t *testing.T) {
		svc, codeRepo, _ := newTicketCodeFixture()
		seed(codeRepo)
		_, err := svc.Redeem(ctx, "JOSEFI2026-AB12CD", 3, nil)
		require.ErrorIs(t, err, domain.ErrEmptySelection)
		assert.False(t, codeRepo.codes["JOSEFI2026-AB12CD"].Used)
	})
}
