package model

import (
	"time"

	"github.com/google/uuid"
)

// ValidityRule describes when an offer can be reserved and redeemed.
// Weekdays follow time.Weekday numbering (0 = Sunday); an empty set means every day.
// FromDate and UntilDate are calendar dates; only their year, month and day are used.
type ValidityRule struct {
	Weekdays  []int      `json:"weekdays"`
	FromHour  *int       `json:"from_hour,omitempty"`
	UntilHour *int       `json:"until_hour,omitempty"`
	FromDate  *time.Time `json:"from_date,omitempty"`
	UntilDate *time.Time `json:"until_date,omitempty"`
}

// Overnight reports whether the hour window wraps past midnight (e.g. 23 -> 2).
func (r ValidityRule) Overnight() bool {
	return r.FromHour != nil && r.UntilHour != nil && *r.FromHour > *r.UntilHour
}

// AllowsWeekday reports whether the given weekday is part of the rule.
func (r ValidityRule) AllowsWeekday(d time.Weekday) bool {
	if len(r.Weekdays) == 0 {
		return true
	}
	for _, w := range r.Weekdays {
		if w == int(d) {
			return true
		}
	}
	return false
}

// Offer is a vendor-published buy-one-get-one deal.
// IssuedCount is owned by the capacity ledger and is never written elsewhere.
type Offer struct {
	ID              uuid.UUID    `json:"id"`
	VendorID        string       `json:"vendor_id"`
	Title           string       `json:"title"`
	Active          bool         `json:"active"`
	MaxReservations *int         `json:"max_reservations,omitempty"`
	IssuedCount     int          `json:"issued_count"`
	Rule            ValidityRule `json:"validity"`
	CreatedAt       time.Time    `json:"-"`
	UpdatedAt       time.Time    `json:"-"`
}

// Remaining returns the number of free slots, or nil when the offer is unlimited.
func (o *Offer) Remaining() *int {
	if o.MaxReservations == nil {
		return nil
	}
	left := *o.MaxReservations - o.IssuedCount
	if left < 0 {
		left = 0
	}
	return &left
}

// SoldOut reports whether every slot has been issued.
func (o *Offer) SoldOut() bool {
	return o.MaxReservations != nil && o.IssuedCount >= *o.MaxReservations
}

// ValidityRuleRequest is the wire form of a validity rule. Dates use the 2006-01-02 layout.
type ValidityRuleRequest struct {
	Weekdays  []int  `json:"weekdays" validate:"omitempty,max=7,dive,gte=0,lte=6"`
	FromHour  *int   `json:"from_hour" validate:"omitempty,gte=0,lte=23"`
	UntilHour *int   `json:"until_hour" validate:"omitempty,gte=0,lte=23"`
	FromDate  string `json:"from_date" validate:"omitempty,datetime=2006-01-02"`
	UntilDate string `json:"until_date" validate:"omitempty,datetime=2006-01-02"`
}

// CreateOfferRequest is the DTO for publishing an offer.
type CreateOfferRequest struct {
	VendorID        string              `json:"vendor_id" validate:"required,notblank,max=255"`
	Title           string              `json:"title" validate:"required,notblank,max=255"`
	MaxReservations *int                `json:"max_reservations" validate:"omitempty,gte=1"`
	Active          *bool               `json:"active"`
	Validity        ValidityRuleRequest `json:"validity"`
}

// SetOfferStatusRequest is the DTO for activating or deactivating an offer.
type SetOfferStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// OfferResponse is the API response DTO for GET /api/offers/:id
type OfferResponse struct {
	ID              uuid.UUID    `json:"id"`
	VendorID        string       `json:"vendor_id"`
	Title           string       `json:"title"`
	Active          bool         `json:"active"`
	MaxReservations *int         `json:"max_reservations,omitempty"`
	IssuedCount     int          `json:"issued_count"`
	Remaining       *int         `json:"remaining,omitempty"`
	Validity        ValidityRule `json:"validity"`
}

// ValidityResponse is the API response DTO for GET /api/offers/:id/validity
type ValidityResponse struct {
	OfferID    uuid.UUID `json:"offer_id"`
	Status     string    `json:"status"`
	Reservable bool      `json:"reservable"`
	At         time.Time `json:"at"`
}
