package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/bogo-voucher/internal/clock"
	"github.com/fairyhunter13/bogo-voucher/internal/codegen"
	"github.com/fairyhunter13/bogo-voucher/internal/model"
	"github.com/fairyhunter13/bogo-voucher/internal/validity"
)

// ReservationService issues reservations with their vouchers and cancels them.
type ReservationService struct {
	pool            TxBeginner
	offerRepo       OfferRepositoryInterface
	ledger          CapacityLedger
	reservationRepo ReservationRepositoryInterface
	voucherRepo     VoucherRepositoryInterface
	codes           CodeGenerator
	signer          PayloadSigner
	clock           clock.Clock
}

// ReservationDeps groups the collaborators of ReservationService.
type ReservationDeps struct {
	OfferRepo       OfferRepositoryInterface
	Ledger          CapacityLedger
	ReservationRepo ReservationRepositoryInterface
	VoucherRepo     VoucherRepositoryInterface
	Codes           CodeGenerator
	Signer          PayloadSigner
	Clock           clock.Clock
}

// NewReservationService creates a new ReservationService backed by pool.
func NewReservationService(pool *pgxpool.Pool, deps ReservationDeps) *ReservationService {
	return NewReservationServiceWithTxBeginner(pool, deps)
}

// NewReservationServiceWithTxBeginner creates a ReservationService with a custom TxBeginner.
// Primarily used for testing.
func NewReservationServiceWithTxBeginner(pool TxBeginner, deps ReservationDeps) *ReservationService {
	return &ReservationService{
		pool:            pool,
		offerRepo:       deps.OfferRepo,
		ledger:          deps.Ledger,
		reservationRepo: deps.ReservationRepo,
		voucherRepo:     deps.VoucherRepo,
		codes:           deps.Codes,
		signer:          deps.Signer,
		clock:           deps.Clock,
	}
}

// Issue reserves one slot of an offer for customer and creates its voucher.
// Returns:
//   - ErrOfferNotFound if the offer doesn't exist
//   - ErrOfferInactive if the vendor switched the offer off
//   - *NotValidError (matching ErrNotCurrentlyValid) outside the validity window
//   - ErrSoldOut if every slot is taken
//   - ErrTransient if no unique code could be generated
//
// The capacity slot, reservation and voucher are written in one transaction, so any
// failure after admission rolls the slot back together with the records.
func (s *ReservationService) Issue(ctx context.Context, offerID uuid.UUID, customer model.Customer) (*model.IssueResult, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	if offer == nil {
		return nil, ErrOfferNotFound
	}
	if !offer.Active {
		return nil, ErrOfferInactive
	}

	now := s.clock.Now()
	if status := validity.Evaluate(offer.Rule, now); status != validity.Open {
		return nil, &NotValidError{Status: status}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Take a capacity slot (single conditional UPDATE)
	if err := s.ledger.TryAdmit(ctx, tx, offerID); err != nil {
		if errors.Is(err, ErrSoldOut) || errors.Is(err, ErrOfferInactive) || errors.Is(err, ErrOfferNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("admit: %w", err)
	}

	// 2. Codes, checked against rows visible to this transaction
	reservationCode, err := s.codes.ReservationCode(ctx, func(ctx context.Context, code string) (bool, error) {
		return s.reservationRepo.CodeExists(ctx, tx, code)
	})
	if err != nil {
		return nil, codeError("reservation code", err)
	}
	voucherCode, err := s.codes.VoucherCode(ctx, func(ctx context.Context, code string) (bool, error) {
		return s.voucherRepo.CodeExists(ctx, tx, code)
	})
	if err != nil {
		return nil, codeError("voucher code", err)
	}

	reservation := &model.Reservation{
		ID:              uuid.New(),
		OfferID:         offerID,
		Customer:        customer,
		Status:          model.ReservationConfirmed,
		ReservationCode: reservationCode,
		ReservedAt:      now,
	}

	payload, err := s.signer.Sign(codegen.Payload{
		ReservationID:   reservation.ID,
		ReservationCode: reservationCode,
		OfferID:         offerID,
		Email:           customer.Email,
		IssuedAt:        now,
	})
	if err != nil {
		return nil, fmt.Errorf("sign payload: %w", err)
	}

	expiresAt := validity.ExpiresAt(offer.Rule, now)
	voucher := &model.Voucher{
		ID:            uuid.New(),
		ReservationID: reservation.ID,
		OfferID:       offerID,
		Code:          voucherCode,
		Payload:       payload,
		ExpiresAt:     &expiresAt,
		CreatedAt:     now,
	}

	// 3. Persist both records as a unit
	if err := s.reservationRepo.Insert(ctx, tx, reservation); err != nil {
		return nil, insertError("insert reservation", err)
	}
	if err := s.voucherRepo.Insert(ctx, tx, voucher); err != nil {
		return nil, insertError("insert voucher", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &model.IssueResult{
		Reservation:   reservation,
		Voucher:       voucher,
		ValidityLabel: validity.DurationLabel(now, expiresAt),
	}, nil
}

// Cancel moves a pending or confirmed reservation to cancelled and releases its slot.
// Returns ErrReservationNotFound or ErrReservationNotCancellable.
func (s *ReservationService) Cancel(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	reservation, err := s.reservationRepo.GetByID(ctx, tx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}

	cancelled, err := s.reservationRepo.Cancel(ctx, tx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}
	if !cancelled {
		return nil, ErrReservationNotCancellable
	}

	if err := s.ledger.Release(ctx, tx, reservation.OfferID); err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	reservation.Status = model.ReservationCancelled
	return reservation, nil
}

// ListByOffer returns the reservations of an offer.
// Returns ErrOfferNotFound if the offer doesn't exist.
func (s *ReservationService) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]model.Reservation, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	if offer == nil {
		return nil, ErrOfferNotFound
	}

	reservations, err := s.reservationRepo.ListByOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

func codeError(what string, err error) error {
	if errors.Is(err, codegen.ErrCodeSpaceExhausted) {
		return fmt.Errorf("%w: %s: %v", ErrTransient, what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// insertError maps a code collision from a concurrent issuer to ErrTransient;
// the aborted transaction cannot be retried in place.
func insertError(what string, err error) error {
	if errors.Is(err, ErrCodeCollision) {
		return fmt.Errorf("%w: %s: %v", ErrTransient, what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
