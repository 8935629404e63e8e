package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/bogo-voucher/internal/service"
	"github.com/fairyhunter13/bogo-voucher/pkg/database"
)

// CapacityLedger is the only writer of offers.issued_count.
//
// Admission is one conditional UPDATE: PostgreSQL takes the row lock, re-checks the
// WHERE clause against the latest committed count and increments in the same step,
// so concurrent callers can never push issued_count past max_reservations.
type CapacityLedger struct{}

// NewCapacityLedger creates a new CapacityLedger.
func NewCapacityLedger() *CapacityLedger {
	return &CapacityLedger{}
}

// TryAdmit takes one slot of the offer. It must run inside the transaction that
// creates the reservation so a rollback returns the slot.
// Returns service.ErrSoldOut, service.ErrOfferInactive or service.ErrOfferNotFound
// when no slot was taken.
func (l *CapacityLedger) TryAdmit(ctx context.Context, q database.TxQuerier, offerID uuid.UUID) error {
	query := `UPDATE offers SET issued_count = issued_count + 1, updated_at = NOW()
		WHERE id = $1 AND active
		AND (max_reservations IS NULL OR issued_count < max_reservations)`

	tag, err := q.Exec(ctx, query, offerID)
	if err != nil {
		return fmt.Errorf("admit offer %s: %w", offerID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing changed; find out why.
	var active bool
	err = q.QueryRow(ctx, `SELECT active FROM offers WHERE id = $1`, offerID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrOfferNotFound
		}
		return fmt.Errorf("inspect offer %s: %w", offerID, err)
	}
	if !active {
		return service.ErrOfferInactive
	}
	return service.ErrSoldOut
}

// Release gives one slot back. The count never drops below zero.
func (l *CapacityLedger) Release(ctx context.Context, q database.TxQuerier, offerID uuid.UUID) error {
	query := `UPDATE offers SET issued_count = issued_count - 1, updated_at = NOW()
		WHERE id = $1 AND issued_count > 0`

	if _, err := q.Exec(ctx, query, offerID); err != nil {
		return fmt.Errorf("release offer %s: %w", offerID, err)
	}
	return nil
}

// Issued returns the current issued_count of the offer.
// Returns service.ErrOfferNotFound if the offer doesn't exist.
func (l *CapacityLedger) Issued(ctx context.Context, q database.TxQuerier, offerID uuid.UUID) (int, error) {
	var issued int
	err := q.QueryRow(ctx, `SELECT issued_count FROM offers WHERE id = $1`, offerID).Scan(&issued)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, service.ErrOfferNotFound
		}
		return 0, fmt.Errorf("read issued count %s: %w", offerID, err)
	}
	return issued, nil
}
