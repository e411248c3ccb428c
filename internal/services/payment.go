package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"konzertticketing/internal/domain"
)

// Metadata keys attached to the provider checkout session. The session is the
// only carrier of the seat selection; there is no server-side pending record.
const (
	metadataKeyUserID = "user_id"
	metadataKeySeats  = "seats"
)

// PaymentConfig holds pricing and redirect settings for checkout sessions.
type PaymentConfig struct {
	EventName      string
	SeatPriceCents int64
	Currency       string
	SuccessURL     string
	CancelURL      string
}

type paymentService struct {
	provider     domain.PaymentProvider
	reservations domain.ReservationService
	userRepo     domain.UserRepository
	emailService domain.EmailService
	cfg          PaymentConfig
	logger       *slog.Logger
}

// NewPaymentService creates a PaymentService. emailService may be nil; the
// confirmation email is best-effort either way.
func NewPaymentService(provider domain.PaymentProvider, reservations domain.ReservationService, userRepo domain.UserRepository, emailService domain.EmailService, cfg PaymentConfig, logger *slog.Logger) domain.PaymentService {
	return &paymentService{
		provider:     provider,
		reservations: reservations,
		userRepo:     userRepo,
		emailService: emailService,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *paymentService) CreateCheckout(ctx context.Context, buyerID int64, refs []domain.SeatRef) (*domain.CheckoutIntent, error) {
	refs, err := normalizeSeatRefs(refs)
	if err != nil {
		return nil, err
	}
	seatsJSON, err := json.Marshal(refs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode seat selection: %w", err)
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.String()
	}
	session, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutSessionParams{
		ProductName:     s.cfg.EventName + " - Tickets",
		Description:     fmt.Sprintf("%d seat(s): %s", len(refs), strings.Join(names, ", ")),
		Currency:        s.cfg.Currency,
		UnitAmountCents: s.cfg.SeatPriceCents,
		Quantity:        len(refs),
		SuccessURL:      s.cfg.SuccessURL,
		CancelURL:       s.cfg.CancelURL,
		Metadata: map[string]string{
			metadataKeyUserID: strconv.FormatInt(buyerID, 10),
			metadataKeySeats:  string(seatsJSON),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &domain.CheckoutIntent{SessionID: session.ID, URL: session.URL}, nil
}

// ConfirmCheckout is the pull-side confirmation: the client returns from the
// provider with a session handle and we look up the authoritative status.
// Calling it again for an already-committed session re-applies the same
// absolute state and changes nothing.
func (s *paymentService) ConfirmCheckout(ctx context.Context, sessionID string) ([]domain.SeatRef, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: missing session id", domain.ErrInvalidPaymentMetadata)
	}
	session, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}
	if session.PaymentStatus != domain.PaymentStatusPaid {
		return nil, domain.ErrPaymentNotCompleted
	}
	buyerID, refs, err := parseSessionMetadata(session.Metadata)
	if err != nil {
		return nil, err
	}
	return s.commitSeats(ctx, buyerID, refs, session.ID), nil
}

// HandleWebhook is the push-side confirmation. The sender is authenticated by
// signature before anything in the payload is trusted. Once the signature
// checks out the delivery is always acknowledged: a payload we cannot act on
// stays broken no matter how often the provider resends it, so it is logged
// and dropped instead of surfaced as an error.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	if err := s.provider.VerifyWebhookSignature(payload, signatureHeader); err != nil {
		return err
	}
	event, err := s.provider.ParseWebhookEvent(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "discarding unreadable webhook payload", "err", err)
		return nil
	}
	if event.Type != domain.CheckoutEventCompleted {
		s.logger.InfoContext(ctx, "ignoring webhook event", "type", event.Type)
		return nil
	}
	buyerID, refs, err := parseSessionMetadata(event.Session.Metadata)
	if err != nil {
		s.logger.ErrorContext(ctx, "discarding webhook with bad metadata", "session_id", event.Session.ID, "err", err)
		return nil
	}
	s.commitSeats(ctx, buyerID, refs, event.Session.ID)
	return nil
}

// commitSeats applies the idempotent paid commit and returns the seats that
// ended up committed. Per-seat failures are logged, never propagated: a retry
// by either confirmation path converges without side effects on seats that
// are already paid. The confirmation email goes out only when a seat actually
// transitioned, so a replayed confirmation does not mail the buyer again.
func (s *paymentService) commitSeats(ctx context.Context, buyerID int64, refs []domain.SeatRef, sessionID string) []domain.SeatRef {
	outcomes := s.reservations.CommitPaid(ctx, buyerID, refs)
	committed := make([]domain.SeatRef, 0, len(outcomes))
	newlyPaid := false
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			s.logger.ErrorContext(ctx, "seat commit failed",
				"session_id", sessionID, "seat", outcome.Seat.String(), "user_id", buyerID, "err", outcome.Err)
			continue
		}
		if outcome.Changed {
			newlyPaid = true
		}
		committed = append(committed, outcome.Seat)
	}
	if newlyPaid {
		s.sendConfirmation(ctx, buyerID, committed)
	}
	return committed
}

func (s *paymentService) sendConfirmation(ctx context.Context, buyerID int64, refs []domain.SeatRef) {
	if s.emailService == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, buyerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "skipping confirmation email", "user_id", buyerID, "err", err)
		return
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.String()
	}
	data := &domain.TicketConfirmationEmailData{
		Email:      user.Email,
		Name:       user.Name,
		EventName:  s.cfg.EventName,
		Seats:      names,
		TotalCents: int64(len(refs)) * s.cfg.SeatPriceCents,
		Currency:   s.cfg.Currency,
	}
	if err := s.emailService.SendTicketConfirmation(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to send confirmation email", "user_id", buyerID, "err", err)
	}
}

func parseSessionMetadata(metadata map[string]string) (int64, []domain.SeatRef, error) {
	rawUserID, ok := metadata[metadataKeyUserID]
	if !ok {
		return 0, nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidPaymentMetadata, metadataKeyUserID)
	}
	buyerID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil || buyerID <= 0 {
		return 0, nil, fmt.Errorf("%w: bad %s %q", domain.ErrInvalidPaymentMetadata, metadataKeyUserID, rawUserID)
	}
	rawSeats, ok := metadata[metadataKeySeats]
	if !ok {
		return 0, nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidPaymentMetadata, metadataKeySeats)
	}
	var refs []domain.SeatRef
	if err := json.Unmarshal([]byte(rawSeats), &refs); err != nil {
		return 0, nil, fmt.Errorf("%w: bad %s: %v", domain.ErrInvalidPaymentMetadata, metadataKeySeats, err)
	}
	if len(refs) == 0 {
		return 0, nil, fmt.Errorf("%w: empty %s", domain.ErrInvalidPaymentMetadata, metadataKeySeats)
	}
	return buyerID, refs, nil
}
