package model

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationUsed      ReservationStatus = "used"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationUsed || s == ReservationCancelled
}

// Customer identifies the anonymous customer holding a reservation.
type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Reservation is a customer's claim on one slot of an offer.
type Reservation struct {
	ID              uuid.UUID         `json:"id"`
	OfferID         uuid.UUID         `json:"offer_id"`
	Customer        Customer          `json:"customer"`
	Status          ReservationStatus `json:"status"`
	ReservationCode string            `json:"reservation_code"`
	ReservedAt      time.Time         `json:"reserved_at"`
	UsedAt          *time.Time        `json:"used_at,omitempty"`
}

// Voucher is the redeemable artifact tied 1:1 to a reservation.
type Voucher struct {
	ID            uuid.UUID  `json:"id"`
	ReservationID uuid.UUID  `json:"reservation_id"`
	OfferID       uuid.UUID  `json:"offer_id"`
	Code          string     `json:"code"`
	Payload       string     `json:"payload"`
	IsUsed        bool       `json:"is_used"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"-"`
}

// Expired reports whether the voucher is past its expiration at now.
func (v *Voucher) Expired(now time.Time) bool {
	return v.ExpiresAt != nil && now.After(*v.ExpiresAt)
}

// IssueResult is returned by a successful reservation.
type IssueResult struct {
	Reservation   *Reservation
	Voucher       *Voucher
	ValidityLabel string
}

// CreateReservationRequest is the DTO for reserving an offer.
type CreateReservationRequest struct {
	FirstName string `json:"first_name" validate:"required,notblank,max=100"`
	LastName  string `json:"last_name" validate:"required,notblank,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
}

// ReservationResponse is the API response DTO for a successful reservation.
type ReservationResponse struct {
	ReservationID   uuid.UUID  `json:"reservation_id"`
	ReservationCode string     `json:"reservation_code"`
	VoucherCode     string     `json:"voucher_code"`
	QRPayload       string     `json:"qr_payload"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	ValidFor        string     `json:"valid_for"`
}

// RedeemVoucherRequest is the DTO for scanning a voucher at the point of sale.
// Code is either the short voucher code or the signed QR payload.
type RedeemVoucherRequest struct {
	Code    string `json:"code" validate:"required,notblank,max=2048"`
	OfferID string `json:"offer_id" validate:"omitempty,uuid"`
}

// RedeemResponse is the API response DTO for a successful redemption.
type RedeemResponse struct {
	ReservationID   uuid.UUID `json:"reservation_id"`
	ReservationCode string    `json:"reservation_code"`
	OfferID         uuid.UUID `json:"offer_id"`
	Customer        Customer  `json:"customer"`
	UsedAt          time.Time `json:"used_at"`
}
