package handler

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bogo-voucher/internal/model"
)

// OfferServiceInterface defines the interface for offer business logic.
type OfferServiceInterface interface {
	Create(ctx context.Context, req *model.CreateOfferRequest) (*model.Offer, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	UpdateValidity(ctx context.Context, id uuid.UUID, req model.ValidityRuleRequest) (*model.Offer, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.Offer, error)
	EvaluateValidity(ctx context.Context, id uuid.UUID, at time.Time) (*model.ValidityResponse, error)
}

// OfferHandler handles HTTP requests for offer operations.
type OfferHandler struct {
	service   OfferServiceInterface
	validator *validator.Validate
}

// NewOfferHandler creates a new OfferHandler with the given service and validator.
func NewOfferHandler(svc OfferServiceInterface, v *validator.Validate) *OfferHandler {
	return &OfferHandler{service: svc, validator: v}
}

// CreateOffer handles POST /api/offers requests to publish a new offer.
func (h *OfferHandler) CreateOffer(c *fiber.Ctx) error {
	var req model.CreateOfferRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, formatValidationError(err))
	}

	offer, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return respondError(c, err, "failed to create offer")
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("offer_id", offer.ID.String()).
		Str("vendor_id", offer.VendorID).
		Msg("offer created")

	return c.Status(fiber.StatusCreated).JSON(toOfferResponse(offer))
}

// GetOffer handles GET /api/offers/:id requests.
func (h *OfferHandler) GetOffer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid request: id must be a UUID")
	}

	offer, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err, "failed to get offer")
	}
	return c.JSON(toOfferResponse(offer))
}

// UpdateValidity handles PUT /api/offers/:id/validity requests. The body replaces the rule.
func (h *OfferHandler) UpdateValidity(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid request: id must be a UUID")
	}

	var req model.ValidityRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, formatValidationError(err))
	}

	offer, err := h.service.UpdateValidity(c.Context(), id, req)
	if err != nil {
		return respondError(c, err, "failed to update offer validity")
	}

	log.Info().Str("request_id", requestID(c)).Str("offer_id", id.String()).Msg("offer validity updated")
	return c.JSON(toOfferResponse(offer))
}

// SetStatus handles PUT /api/offers/:id/status requests.
func (h *OfferHandler) SetStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid request: id must be a UUID")
	}

	var req model.SetOfferStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, formatValidationError(err))
	}

	offer, err := h.service.SetActive(c.Context(), id, *req.Active)
	if err != nil {
		return respondError(c, err, "failed to set offer status")
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("offer_id", id.String()).
		Bool("active", offer.Active).
		Msg("offer status changed")
	return c.JSON(toOfferResponse(offer))
}

// GetValidity handles GET /api/offers/:id/validity?at=RFC3339 requests.
// Without at, the current time is used.
func (h *OfferHandler) GetValidity(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid request: id must be a UUID")
	}

	var at time.Time
	if raw := c.Query("at"); raw != "" {
		at, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "invalid request: at must be an RFC3339 timestamp")
		}
	}

	resp, err := h.service.EvaluateValidity(c.Context(), id, at)
	if err != nil {
		return respondError(c, err, "failed to evaluate offer validity")
	}
	return c.JSON(resp)
}

func toOfferResponse(o *model.Offer) model.OfferResponse {
	return model.OfferResponse{
		ID:              o.ID,
		VendorID:        o.VendorID,
		Title:           o.Title,
		Active:          o.Active,
		MaxReservations: o.MaxReservations,
		IssuedCount:     o.IssuedCount,
		Remaining:       o.Remaining(),
		Validity:        o.Rule,
	}
}
