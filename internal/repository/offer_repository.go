package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/bogo-voucher/internal/model"
	"github.com/fairyhunter13/bogo-voucher/internal/service"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const offerColumns = `id, vendor_id, title, active, max_reservations, issued_count,
	weekdays, from_hour, until_hour, from_date, until_date, created_at, updated_at`

// OfferRepository provides data access for offers using pgx.
// issued_count is never written here; see CapacityLedger.
type OfferRepository struct {
	pool PoolInterface
}

// NewOfferRepository creates a new OfferRepository with the given pool.
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// NewOfferRepositoryWithPool creates a new OfferRepository with a custom pool interface.
// This is primarily used for testing.
func NewOfferRepositoryWithPool(pool PoolInterface) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// Insert inserts a new offer with issued_count 0.
func (r *OfferRepository) Insert(ctx context.Context, offer *model.Offer) error {
	rule := offer.Rule
	err := r.pool.QueryRow(ctx,
		`INSERT INTO offers (id, vendor_id, title, active, max_reservations, issued_count,
			weekdays, from_hour, until_hour, from_date, until_date)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		offer.ID, offer.VendorID, offer.Title, offer.Active, offer.MaxReservations,
		toInt32s(rule.Weekdays), rule.FromHour, rule.UntilHour, rule.FromDate, rule.UntilDate,
	).Scan(&offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	offer.IssuedCount = 0
	return nil
}

// GetByID retrieves an offer by its id.
// Returns nil, nil if the offer is not found (service layer handles this).
func (r *OfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	offer, err := scanOffer(r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get offer %s: %w", id, err)
	}
	return offer, nil
}

// UpdateValidity replaces the validity rule of an offer.
// Returns service.ErrOfferNotFound if no offer has the id.
func (r *OfferRepository) UpdateValidity(ctx context.Context, id uuid.UUID, rule model.ValidityRule) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE offers SET weekdays = $2, from_hour = $3, until_hour = $4, from_date = $5, until_date = $6,
			updated_at = NOW()
		WHERE id = $1`,
		id, toInt32s(rule.Weekdays), rule.FromHour, rule.UntilHour, rule.FromDate, rule.UntilDate)
	if err != nil {
		return fmt.Errorf("update offer validity %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrOfferNotFound
	}
	return nil
}

// SetActive switches an offer on or off.
// Returns service.ErrOfferNotFound if no offer has the id.
func (r *OfferRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE offers SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set offer active %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrOfferNotFound
	}
	return nil
}

func scanOffer(row pgx.Row) (*model.Offer, error) {
	var offer model.Offer
	var weekdays []int32
	err := row.Scan(
		&offer.ID,
		&offer.VendorID,
		&offer.Title,
		&offer.Active,
		&offer.MaxReservations,
		&offer.IssuedCount,
		&weekdays,
		&offer.Rule.FromHour,
		&offer.Rule.UntilHour,
		&offer.Rule.FromDate,
		&offer.Rule.UntilDate,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	offer.Rule.Weekdays = fromInt32s(weekdays)
	return &offer, nil
}

func toInt32s(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func fromInt32s(in []int32) []int {
	if len(in) == 0 {
		return nil
	}
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
