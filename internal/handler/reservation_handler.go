package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bogo-voucher/internal/metrics"
	"github.com/fairyhunter13/bogo-voucher/internal/model"
	"github.com/fairyhunter13/bogo-voucher/internal/service"
)

// ReservationServiceInterface defines the interface for reservation business logic.
type ReservationServiceInterface interface {
	Issue(ctx context.Context, offerID uuid.UUID, customer model.Customer) (*model.IssueResult, error)
	Cancel(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error)
	ListByOffer(ctx context.Context, offerID uuid.UUID) ([]model.Reservation, error)
}

// ReservationHandler handles HTTP requests for reservation operations.
type ReservationHandler struct {
	service   ReservationServiceInterface
	validator *validator.Validate
}

// NewReservationHandler creates a new ReservationHandler with the given service and validator.
func NewReservationHandler(svc ReservationServiceInterface, v *validator.Validate) *ReservationHandler {
	return &ReservationHandler{service: svc, validator: v}
}

// Reserve handles POST /api/offers/:id/reservations requests.
func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	offerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid request: id must be a UUID")
	}

	var req model.CreateReservationRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, formatValidationError(err))
	}

	customer := model.Customer{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email}
	result, err := h.service.Issue(c.Context(), offerID, customer)
	if err != nil {
		metrics.Reservation(reservationResult(err))
		var notValid *service.NotValidError
		if errors.As(err, &notValid) {
			log.Info().
				Str("request_id", requestID(c)).
				Str("offer_id", offerID.String()).
				Str("validity", string(notValid.Status)).
				Msg("reservation rejected")
		}
		return respondError(c, err, "failed to reserve offer")
	}
	metrics.Reservation(metrics.ResultIssued)

	log.Info().
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("offer_id", offerID.String()).
		Str("reservation_code", result.Reservation.ReservationCode).
		Str("email", maskEmail(customer.Email)).
		Msg("reservation issued")

	return c.Status(fiber.StatusCreated).JSON(model.ReservationResponse{
		ReservationID:   result.Reservation.ID,
		ReservationCode: result.Reservation.ReservationCode,
		VoucherCode:     result.Voucher.Code,
		QRPayload:       result.Voucher.Payload,
		ExpiresAt:       result.Voucher.ExpiresAt,
		ValidFor:        result.ValidityLabel,
	})
}

// Cancel handles POST /api/reservations/:id/cancel requests.
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid request: id must be a UUID")
	}

	reservation, err := h.service.Cancel(c.Context(), id)
	if err != nil {
		return respondError(c, err, "failed to cancel reservation")
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("offer_id", reservation.OfferID.String()).
		Str("reservation_code", reservation.ReservationCode).
		Msg("reservation cancelled")

	return c.JSON(reservation)
}

// ListByOffer handles GET /api/offers/:id/reservations requests.
func (h *ReservationHandler) ListByOffer(c *fiber.Ctx) error {
	offerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid request: id must be a UUID")
	}

	reservations, err := h.service.ListByOffer(c.Context(), offerID)
	if err != nil {
		return respondError(c, err, "failed to list reservations")
	}
	return c.JSON(fiber.Map{"reservations": reservations})
}

func reservationResult(err error) string {
	switch {
	case errors.Is(err, service.ErrSoldOut):
		return metrics.ResultSoldOut
	case errors.Is(err, service.ErrNotCurrentlyValid):
		return metrics.ResultNotValid
	case errors.Is(err, service.ErrOfferInactive):
		return metrics.ResultInactive
	case errors.Is(err, service.ErrOfferNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, service.ErrTransient):
		return metrics.ResultTransient
	}
	return metrics.ResultError
}
