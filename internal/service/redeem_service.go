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
)

// RedeemService marks vouchers used at the point of sale.
type RedeemService struct {
	pool            TxBeginner
	voucherRepo     VoucherRepositoryInterface
	reservationRepo ReservationRepositoryInterface
	signer          PayloadSigner
	clock           clock.Clock
}

// NewRedeemService creates a new RedeemService backed by pool.
func NewRedeemService(pool *pgxpool.Pool, voucherRepo VoucherRepositoryInterface, reservationRepo ReservationRepositoryInterface, signer PayloadSigner, clk clock.Clock) *RedeemService {
	return NewRedeemServiceWithTxBeginner(pool, voucherRepo, reservationRepo, signer, clk)
}

// NewRedeemServiceWithTxBeginner creates a RedeemService with a custom TxBeginner.
// Primarily used for testing.
func NewRedeemServiceWithTxBeginner(pool TxBeginner, voucherRepo VoucherRepositoryInterface, reservationRepo ReservationRepositoryInterface, signer PayloadSigner, clk clock.Clock) *RedeemService {
	return &RedeemService{
		pool:            pool,
		voucherRepo:     voucherRepo,
		reservationRepo: reservationRepo,
		signer:          signer,
		clock:           clk,
	}
}

// Redeem marks the voucher identified by input as used. input is either the short
// voucher code or the signed QR payload. When offerID is set the voucher must belong to it.
// Returns:
//   - ErrVoucherNotFound for unknown codes and unverifiable payloads
//   - ErrOfferMismatch if the voucher belongs to another offer
//   - ErrAlreadyUsed if the voucher was redeemed before or a concurrent scan won
//   - ErrVoucherExpired past the voucher's expiration
//   - ErrReservationCancelled if the reservation was cancelled
func (s *RedeemService) Redeem(ctx context.Context, input string, offerID *uuid.UUID) (*model.Reservation, error) {
	voucher, err := s.lookup(ctx, input)
	if err != nil {
		return nil, err
	}
	if offerID != nil && *offerID != voucher.OfferID {
		return nil, ErrOfferMismatch
	}
	if voucher.IsUsed {
		return nil, ErrAlreadyUsed
	}
	now := s.clock.Now()
	if voucher.Expired(now) {
		return nil, ErrVoucherExpired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Flip is_used only if still unused
	won, err := s.voucherRepo.MarkUsed(ctx, tx, voucher.ID, now)
	if err != nil {
		return nil, fmt.Errorf("mark voucher used: %w", err)
	}
	if !won {
		return nil, ErrAlreadyUsed
	}

	// 2. Reservation follows unless it was cancelled meanwhile
	moved, err := s.reservationRepo.MarkUsed(ctx, tx, voucher.ReservationID, now)
	if err != nil {
		return nil, fmt.Errorf("mark reservation used: %w", err)
	}
	if !moved {
		return nil, ErrReservationCancelled
	}

	reservation, err := s.reservationRepo.GetByID(ctx, tx, voucher.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return reservation, nil
}

// Voucher returns the voucher stored under code.
func (s *RedeemService) Voucher(ctx context.Context, code string) (*model.Voucher, error) {
	voucher, err := s.voucherRepo.GetByCode(ctx, codegen.Normalize(code))
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if voucher == nil {
		return nil, ErrVoucherNotFound
	}
	return voucher, nil
}

func (s *RedeemService) lookup(ctx context.Context, input string) (*model.Voucher, error) {
	if !codegen.LooksLikePayload(input) {
		return s.Voucher(ctx, input)
	}

	claims, err := s.signer.Verify(input)
	if err != nil {
		if errors.Is(err, codegen.ErrInvalidPayload) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("verify payload: %w", err)
	}
	voucher, err := s.voucherRepo.GetByReservationID(ctx, claims.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if voucher == nil || voucher.OfferID != claims.OfferID || voucher.Payload != input {
		return nil, ErrVoucherNotFound
	}
	return voucher, nil
}
