package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bogo-voucher/internal/metrics"
	"github.com/fairyhunter13/bogo-voucher/internal/model"
	"github.com/fairyhunter13/bogo-voucher/internal/service"
)

// qrSize is the edge length of rendered QR codes in pixels.
const qrSize = 256

// VoucherServiceInterface defines the interface for voucher business logic.
type VoucherServiceInterface interface {
	Redeem(ctx context.Context, input string, offerID *uuid.UUID) (*model.Reservation, error)
	Voucher(ctx context.Context, code string) (*model.Voucher, error)
}

// VoucherHandler handles HTTP requests for voucher operations.
type VoucherHandler struct {
	service   VoucherServiceInterface
	validator *validator.Validate
}

// NewVoucherHandler creates a new VoucherHandler with the given service and validator.
func NewVoucherHandler(svc VoucherServiceInterface, v *validator.Validate) *VoucherHandler {
	return &VoucherHandler{service: svc, validator: v}
}

// Redeem handles POST /api/vouchers/redeem requests from the scanning vendor.
func (h *VoucherHandler) Redeem(c *fiber.Ctx) error {
	var req model.RedeemVoucherRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, formatValidationError(err))
	}

	var offerID *uuid.UUID
	if req.OfferID != "" {
		id, err := uuid.Parse(req.OfferID)
		if err != nil {
			return badRequest(c, "invalid request: offer_id must be a UUID")
		}
		offerID = &id
	}

	reservation, err := h.service.Redeem(c.Context(), req.Code, offerID)
	if err != nil {
		result := redemptionResult(err)
		metrics.Redemption(result)
		if result != metrics.ResultError {
			log.Warn().
				Str("request_id", requestID(c)).
				Str("result", result).
				Msg("voucher redemption rejected")
		}
		return respondError(c, err, "failed to redeem voucher")
	}
	metrics.Redemption(metrics.ResultRedeemed)

	log.Info().
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("offer_id", reservation.OfferID.String()).
		Str("reservation_code", reservation.ReservationCode).
		Msg("voucher redeemed")

	resp := model.RedeemResponse{
		ReservationID:   reservation.ID,
		ReservationCode: reservation.ReservationCode,
		OfferID:         reservation.OfferID,
		Customer:        reservation.Customer,
	}
	if reservation.UsedAt != nil {
		resp.UsedAt = *reservation.UsedAt
	}
	return c.JSON(resp)
}

// QRCode handles GET /api/vouchers/:code/qr requests and renders the signed
// payload of the voucher as a PNG.
func (h *VoucherHandler) QRCode(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return badRequest(c, "invalid request: code is required")
	}

	voucher, err := h.service.Voucher(c.Context(), code)
	if err != nil {
		return respondError(c, err, "failed to load voucher")
	}

	img, err := renderQR(voucher.Payload)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID(c)).Msg("failed to render voucher QR code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(img)
}

func renderQR(payload string) ([]byte, error) {
	code, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	code, err = barcode.Scale(code, qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("scale qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, service.ErrAlreadyUsed):
		return metrics.ResultAlreadyUsed
	case errors.Is(err, service.ErrVoucherExpired):
		return metrics.ResultExpired
	case errors.Is(err, service.ErrVoucherNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, service.ErrOfferMismatch):
		return metrics.ResultOfferMismatch
	case errors.Is(err, service.ErrReservationCancelled):
		return metrics.ResultCancelled
	}
	return metrics.ResultError
}
