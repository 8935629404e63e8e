package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/bogo-voucher/internal/model"
	"github.com/fairyhunter13/bogo-voucher/internal/service"
	"github.com/fairyhunter13/bogo-voucher/pkg/database"
)

const voucherColumns = `id, reservation_id, offer_id, code, payload, is_used, used_at, expires_at, created_at`

// VoucherRepository provides data access for vouchers using pgx.
type VoucherRepository struct {
	pool PoolInterface
}

// NewVoucherRepository creates a new VoucherRepository with the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// NewVoucherRepositoryWithPool creates a new VoucherRepository with a custom pool interface.
// This is primarily used for testing.
func NewVoucherRepositoryWithPool(pool PoolInterface) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// CodeExists reports whether a voucher already uses code.
func (r *VoucherRepository) CodeExists(ctx context.Context, q database.TxQuerier, code string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vouchers WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check voucher code: %w", err)
	}
	return exists, nil
}

// Insert inserts a new, unused voucher within a transaction.
// Returns service.ErrCodeCollision if the code or reservation is already taken.
func (r *VoucherRepository) Insert(ctx context.Context, q database.TxQuerier, v *model.Voucher) error {
	query := `INSERT INTO vouchers (id, reservation_id, offer_id, code, payload, is_used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`

	_, err := q.Exec(ctx, query, v.ID, v.ReservationID, v.OfferID, v.Code, v.Payload, v.ExpiresAt, v.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrCodeCollision
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

// GetByCode retrieves a voucher by its short code.
// Returns nil, nil if the voucher is not found.
func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	v, err := scanVoucher(r.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher by code: %w", err)
	}
	return v, nil
}

// GetByReservationID retrieves the voucher of a reservation.
// Returns nil, nil if the voucher is not found.
func (r *VoucherRepository) GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*model.Voucher, error) {
	v, err := scanVoucher(r.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE reservation_id = $1`, reservationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher for reservation %s: %w", reservationID, err)
	}
	return v, nil
}

// MarkUsed flips is_used from false to true. Only one caller can ever see true:
// the losing side of a concurrent scan matches zero rows.
func (r *VoucherRepository) MarkUsed(ctx context.Context, q database.TxQuerier, id uuid.UUID, usedAt time.Time) (bool, error) {
	query := `UPDATE vouchers SET is_used = TRUE, used_at = $2 WHERE id = $1 AND is_used = FALSE`

	tag, err := q.Exec(ctx, query, id, usedAt)
	if err != nil {
		return false, fmt.Errorf("mark voucher used %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	var v model.Voucher
	err := row.Scan(
		&v.ID,
		&v.ReservationID,
		&v.OfferID,
		&v.Code,
		&v.Payload,
		&v.IsUsed,
		&v.UsedAt,
		&v.ExpiresAt,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
