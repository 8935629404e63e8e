package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bogo-voucher/internal/clock"
	"github.com/fairyhunter13/bogo-voucher/internal/model"
	"github.com/fairyhunter13/bogo-voucher/internal/validity"
	"github.com/fairyhunter13/bogo-voucher/pkg/database"
)

const dateLayout = "2006-01-02"

// OfferService manages offers and answers validity queries.
type OfferService struct {
	offerRepo OfferRepositoryInterface
	ledger    CapacityLedger
	reader    database.TxQuerier
	cache     OfferCache
	clock     clock.Clock
}

// NewOfferService creates a new OfferService. reader is used for capacity reads
// outside a transaction, usually the pool itself.
func NewOfferService(offerRepo OfferRepositoryInterface, ledger CapacityLedger, reader database.TxQuerier, cache OfferCache, clk clock.Clock) *OfferService {
	return &OfferService{
		offerRepo: offerRepo,
		ledger:    ledger,
		reader:    reader,
		cache:     cache,
		clock:     clk,
	}
}

// Create publishes a new offer. issuedCount starts at zero.
// Returns ErrInvalidRequest if the request or its validity rule is inconsistent.
func (s *OfferService) Create(ctx context.Context, req *model.CreateOfferRequest) (*model.Offer, error) {
	// nil when called outside the handler
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if req.MaxReservations != nil && *req.MaxReservations < 1 {
		return nil, fmt.Errorf("%w: max_reservations must be at least 1", ErrInvalidRequest)
	}

	rule, err := ParseRule(req.Validity, s.clock.Location())
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	offer := &model.Offer{
		ID:              uuid.New(),
		VendorID:        req.VendorID,
		Title:           req.Title,
		Active:          active,
		MaxReservations: req.MaxReservations,
		Rule:            rule,
	}
	if err := s.offerRepo.Insert(ctx, offer); err != nil {
		return nil, fmt.Errorf("insert offer: %w", err)
	}
	return offer, nil
}

// Get returns an offer read from storage.
func (s *OfferService) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	offer, err := s.offerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	if offer == nil {
		return nil, ErrOfferNotFound
	}
	return offer, nil
}

// UpdateValidity replaces the validity rule of an offer. Last write wins.
func (s *OfferService) UpdateValidity(ctx context.Context, id uuid.UUID, req model.ValidityRuleRequest) (*model.Offer, error) {
	rule, err := ParseRule(req, s.clock.Location())
	if err != nil {
		return nil, err
	}
	if err := s.offerRepo.UpdateValidity(ctx, id, rule); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

// SetActive switches an offer on or off.
func (s *OfferService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.Offer, error) {
	if err := s.offerRepo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

// EvaluateValidity reports the validity status of an offer at the given instant and
// whether a reservation could be made right now. A zero at means now. The offer rule
// may come from the cache; the issued count is always read from storage.
func (s *OfferService) EvaluateValidity(ctx context.Context, id uuid.UUID, at time.Time) (*model.ValidityResponse, error) {
	offer, err := s.cachedOffer(ctx, id)
	if err != nil {
		return nil, err
	}

	if at.IsZero() {
		at = s.clock.Now()
	}
	at = at.In(s.clock.Location())
	status := validity.Evaluate(offer.Rule, at)

	reservable := offer.Active && status == validity.Open
	if reservable && offer.MaxReservations != nil {
		issued, err := s.ledger.Issued(ctx, s.reader, id)
		if err != nil {
			return nil, fmt.Errorf("read issued count: %w", err)
		}
		reservable = issued < *offer.MaxReservations
	}

	return &model.ValidityResponse{
		OfferID:    id,
		Status:     string(status),
		Reservable: reservable,
		At:         at,
	}, nil
}

func (s *OfferService) cachedOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	offer, err := s.cache.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("offer_id", id.String()).Msg("offer cache read failed")
	}
	if offer != nil {
		return offer, nil
	}

	offer, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, offer); err != nil {
		log.Warn().Err(err).Str("offer_id", id.String()).Msg("offer cache write failed")
	}
	return offer, nil
}

func (s *OfferService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		log.Warn().Err(err).Str("offer_id", id.String()).Msg("offer cache invalidation failed")
	}
}

// ParseRule converts the wire form of a validity rule into a model.ValidityRule.
// Dates are interpreted as calendar days in loc. Weekdays are deduplicated and sorted.
func ParseRule(req model.ValidityRuleRequest, loc *time.Location) (model.ValidityRule, error) {
	var rule model.ValidityRule

	seen := make(map[int]bool, len(req.Weekdays))
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			return rule, fmt.Errorf("%w: weekday %d out of range 0..6", ErrInvalidRequest, d)
		}
		if !seen[d] {
			seen[d] = true
			rule.Weekdays = append(rule.Weekdays, d)
		}
	}
	sort.Ints(rule.Weekdays)

	for _, h := range []*int{req.FromHour, req.UntilHour} {
		if h != nil && (*h < 0 || *h > 23) {
			return rule, fmt.Errorf("%w: hour %d out of range 0..23", ErrInvalidRequest, *h)
		}
	}
	if req.FromHour != nil && req.UntilHour != nil && *req.FromHour == *req.UntilHour {
		return rule, fmt.Errorf("%w: from_hour and until_hour describe an empty window", ErrInvalidRequest)
	}
	rule.FromHour = req.FromHour
	rule.UntilHour = req.UntilHour

	var err error
	if rule.FromDate, err = parseDate(req.FromDate, loc); err != nil {
		return rule, err
	}
	if rule.UntilDate, err = parseDate(req.UntilDate, loc); err != nil {
		return rule, err
	}
	if rule.FromDate != nil && rule.UntilDate != nil && rule.UntilDate.Before(*rule.FromDate) {
		return rule, fmt.Errorf("%w: until_date before from_date", ErrInvalidRequest)
	}
	return rule, nil
}

func parseDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q: %v", ErrInvalidRequest, s, err)
	}
	return &d, nil
}
