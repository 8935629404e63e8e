package service

import (
	"errors"

	"github.com/fairyhunter13/bogo-voucher/internal/validity"
)

var (
	// ErrOfferNotFound is returned when an offer cannot be found
	ErrOfferNotFound = errors.New("offer not found")

	// ErrOfferInactive is returned when reserving an offer the vendor has switched off
	ErrOfferInactive = errors.New("offer is not active")

	// ErrNotCurrentlyValid is returned when the offer's validity window is closed
	ErrNotCurrentlyValid = errors.New("offer not currently valid")

	// ErrSoldOut is returned when every reservation slot of an offer is taken
	ErrSoldOut = errors.New("offer sold out")

	// ErrTransient is returned for retryable failures such as code generation exhaustion
	ErrTransient = errors.New("temporary failure, retry later")

	// ErrCodeCollision is returned when an insert hits an existing reservation or voucher code
	ErrCodeCollision = errors.New("generated code already exists")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrVoucherNotFound is returned for unknown codes and for payloads that fail verification
	ErrVoucherNotFound = errors.New("voucher not found")

	// ErrAlreadyUsed is returned when a voucher has already been redeemed
	ErrAlreadyUsed = errors.New("voucher already used")

	// ErrVoucherExpired is returned when a voucher is redeemed after its expiration
	ErrVoucherExpired = errors.New("voucher expired")

	// ErrOfferMismatch is returned when a voucher is scanned for a different offer
	ErrOfferMismatch = errors.New("voucher belongs to a different offer")

	// ErrReservationNotFound is returned when a reservation cannot be found
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationNotCancellable is returned when cancelling a used or cancelled reservation
	ErrReservationNotCancellable = errors.New("reservation cannot be cancelled")

	// ErrReservationCancelled is returned when redeeming the voucher of a cancelled reservation
	ErrReservationCancelled = errors.New("reservation was cancelled")
)

// NotValidError reports which validity check rejected a reservation.
type NotValidError struct {
	Status validity.Status
}

func (e *NotValidError) Error() string {
	return "offer not currently valid: " + string(e.Status)
}

func (e *NotValidError) Unwrap() error {
	return ErrNotCurrentlyValid
}
