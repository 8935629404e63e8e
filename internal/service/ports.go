package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/bogo-voucher/internal/codegen"
	"github.com/fairyhunter13/bogo-voucher/internal/model"
	"github.com/fairyhunter13/bogo-voucher/pkg/database"
)

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OfferRepositoryInterface defines the interface for offer data access.
type OfferRepositoryInterface interface {
	Insert(ctx context.Context, offer *model.Offer) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	UpdateValidity(ctx context.Context, id uuid.UUID, rule model.ValidityRule) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// CapacityLedger owns Offer.IssuedCount. TryAdmit must decide and increment in one
// atomic step; Release never drops the count below zero.
type CapacityLedger interface {
	TryAdmit(ctx context.Context, q database.TxQuerier, offerID uuid.UUID) error
	Release(ctx context.Context, q database.TxQuerier, offerID uuid.UUID) error
	Issued(ctx context.Context, q database.TxQuerier, offerID uuid.UUID) (int, error)
}

// ReservationRepositoryInterface defines the interface for reservation data access.
type ReservationRepositoryInterface interface {
	ListByOffer(ctx context.Context, offerID uuid.UUID) ([]model.Reservation, error)
	CodeExists(ctx context.Context, q database.TxQuerier, code string) (bool, error)
	Insert(ctx context.Context, q database.TxQuerier, r *model.Reservation) error
	GetByID(ctx context.Context, q database.TxQuerier, id uuid.UUID) (*model.Reservation, error)
	MarkUsed(ctx context.Context, q database.TxQuerier, id uuid.UUID, usedAt time.Time) (bool, error)
	Cancel(ctx context.Context, q database.TxQuerier, id uuid.UUID) (bool, error)
}

// VoucherRepositoryInterface defines the interface for voucher data access.
type VoucherRepositoryInterface interface {
	CodeExists(ctx context.Context, q database.TxQuerier, code string) (bool, error)
	Insert(ctx context.Context, q database.TxQuerier, v *model.Voucher) error
	GetByCode(ctx context.Context, code string) (*model.Voucher, error)
	GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*model.Voucher, error)
	MarkUsed(ctx context.Context, q database.TxQuerier, id uuid.UUID, usedAt time.Time) (bool, error)
}

// OfferCache caches offers for the validity read path. Get returns nil, nil on a miss.
type OfferCache interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	Set(ctx context.Context, offer *model.Offer) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// CodeGenerator produces unique reservation and voucher codes.
type CodeGenerator interface {
	ReservationCode(ctx context.Context, exists codegen.ExistsFunc) (string, error)
	VoucherCode(ctx context.Context, exists codegen.ExistsFunc) (string, error)
}

// PayloadSigner signs and verifies voucher payloads.
type PayloadSigner interface {
	Sign(p codegen.Payload) (string, error)
	Verify(token string) (*codegen.Payload, error)
}
