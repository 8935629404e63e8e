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

const reservationColumns = `id, offer_id, first_name, last_name, email, status, reservation_code, reserved_at, used_at`

// ReservationPoolInterface defines the database operations needed by ReservationRepository.
type ReservationPoolInterface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ReservationRepository provides data access for reservations using pgx.
type ReservationRepository struct {
	pool ReservationPoolInterface
}

// NewReservationRepository creates a new ReservationRepository with the given pool.
func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// NewReservationRepositoryWithPool creates a new ReservationRepository with a custom pool interface.
// This is primarily used for testing.
func NewReservationRepositoryWithPool(pool ReservationPoolInterface) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// ListByOffer returns the reservations of an offer, oldest first.
// On success, returns an empty slice (not nil) when none exist.
func (r *ReservationRepository) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE offer_id = $1 ORDER BY reserved_at, id`

	rows, err := r.pool.Query(ctx, query, offerID)
	if err != nil {
		return nil, fmt.Errorf("list reservations for offer %s: %w", offerID, err)
	}
	defer rows.Close()

	reservations := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, *res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation rows: %w", err)
	}
	return reservations, nil
}

// CodeExists reports whether a reservation already uses code.
func (r *ReservationRepository) CodeExists(ctx context.Context, q database.TxQuerier, code string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE reservation_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reservation code: %w", err)
	}
	return exists, nil
}

// Insert inserts a new reservation within a transaction.
// Returns service.ErrCodeCollision if the reservation code is already taken.
func (r *ReservationRepository) Insert(ctx context.Context, q database.TxQuerier, res *model.Reservation) error {
	query := `INSERT INTO reservations (id, offer_id, first_name, last_name, email, status, reservation_code, reserved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := q.Exec(ctx, query,
		res.ID, res.OfferID, res.Customer.FirstName, res.Customer.LastName, res.Customer.Email,
		string(res.Status), res.ReservationCode, res.ReservedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrCodeCollision
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation by id.
// Returns nil, nil if the reservation is not found.
func (r *ReservationRepository) GetByID(ctx context.Context, q database.TxQuerier, id uuid.UUID) (*model.Reservation, error) {
	res, err := scanReservation(q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return res, nil
}

// MarkUsed moves a pending or confirmed reservation to used.
// Returns false when the reservation is already terminal.
func (r *ReservationRepository) MarkUsed(ctx context.Context, q database.TxQuerier, id uuid.UUID, usedAt time.Time) (bool, error) {
	query := `UPDATE reservations SET status = 'used', used_at = $2
		WHERE id = $1 AND status IN ('pending', 'confirmed')`

	tag, err := q.Exec(ctx, query, id, usedAt)
	if err != nil {
		return false, fmt.Errorf("mark reservation used %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel moves a pending or confirmed reservation to cancelled.
// Returns false when the reservation is already terminal.
func (r *ReservationRepository) Cancel(ctx context.Context, q database.TxQuerier, id uuid.UUID) (bool, error) {
	query := `UPDATE reservations SET status = 'cancelled'
		WHERE id = $1 AND status IN ('pending', 'confirmed')`

	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("cancel reservation %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	var status string
	err := row.Scan(
		&res.ID,
		&res.OfferID,
		&res.Customer.FirstName,
		&res.Customer.LastName,
		&res.Customer.Email,
		&status,
		&res.ReservationCode,
		&res.ReservedAt,
		&res.UsedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	return &res, nil
}
