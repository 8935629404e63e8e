package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bogo-voucher/internal/service"
)

// formatValidationError converts the first validator error into a client message.
// Field names come from json tags (see validator.New).
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return "invalid request: " + field + " is required"
	case "notblank":
		return "invalid request: " + field + " cannot be whitespace only"
	case "max":
		if fe.Kind() == reflect.Slice {
			return "invalid request: " + field + " has too many entries"
		}
		return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
	case "gte":
		return "invalid request: " + field + " must be at least " + fe.Param()
	case "lte":
		return "invalid request: " + field + " must be at most " + fe.Param()
	case "email":
		return "invalid request: " + field + " must be a valid email address"
	case "uuid":
		return "invalid request: " + field + " must be a UUID"
	case "datetime":
		return "invalid request: " + field + " must use the YYYY-MM-DD format"
	case "hourwindow":
		return "invalid request: from_hour and until_hour must differ"
	case "daterange":
		return "invalid request: until_date must not be before from_date"
	default:
		return "invalid request: " + field + " is invalid"
	}
}

// errorStatus maps a service error to an HTTP status and client message.
// ok is false for unexpected errors.
func errorStatus(err error) (status int, message string, ok bool) {
	var notValid *service.NotValidError
	switch {
	case errors.As(err, &notValid):
		return fiber.StatusUnprocessableEntity, "offer not currently valid", true
	case errors.Is(err, service.ErrInvalidRequest):
		return fiber.StatusBadRequest, err.Error(), true
	case errors.Is(err, service.ErrOfferNotFound):
		return fiber.StatusNotFound, "offer not found", true
	case errors.Is(err, service.ErrReservationNotFound):
		return fiber.StatusNotFound, "reservation not found", true
	case errors.Is(err, service.ErrVoucherNotFound):
		return fiber.StatusNotFound, "voucher not found", true
	case errors.Is(err, service.ErrOfferInactive):
		return fiber.StatusUnprocessableEntity, "offer is not active", true
	case errors.Is(err, service.ErrNotCurrentlyValid):
		return fiber.StatusUnprocessableEntity, "offer not currently valid", true
	case errors.Is(err, service.ErrSoldOut):
		return fiber.StatusConflict, "offer sold out", true
	case errors.Is(err, service.ErrAlreadyUsed):
		return fiber.StatusConflict, "voucher already used", true
	case errors.Is(err, service.ErrReservationCancelled):
		return fiber.StatusConflict, "reservation was cancelled", true
	case errors.Is(err, service.ErrReservationNotCancellable):
		return fiber.StatusConflict, "reservation cannot be cancelled", true
	case errors.Is(err, service.ErrCodeCollision):
		return fiber.StatusConflict, "code collision, retry", true
	case errors.Is(err, service.ErrVoucherExpired):
		return fiber.StatusGone, "voucher expired", true
	case errors.Is(err, service.ErrOfferMismatch):
		return fiber.StatusForbidden, "voucher belongs to a different offer", true
	case errors.Is(err, service.ErrTransient):
		return fiber.StatusServiceUnavailable, "temporary failure, retry later", true
	}
	return fiber.StatusInternalServerError, "internal server error", false
}

// respondError writes the mapped error response. Unexpected errors are logged with
// the request context; expected outcomes are left to the caller's logging.
func respondError(c *fiber.Ctx, err error, msg string) error {
	status, message, ok := errorStatus(err)
	if !ok {
		log.Error().
			Err(err).
			Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg(msg)
	}

	body := fiber.Map{"error": message}
	var notValid *service.NotValidError
	if errors.As(err, &notValid) {
		body["status"] = string(notValid.Status)
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

// maskEmail keeps the first character and the domain: a***@example.com
func maskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
