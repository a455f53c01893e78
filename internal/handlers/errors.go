package handlers

import (
	"context"
	"errors"
	"log"

	"storefront/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// respondError maps an application error kind to an HTTP status.
// Validation, not-found and conflict messages are safe to return to the
// caller; unavailable and internal errors are logged and replaced with a
// generic message so internals do not leak.
func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		log.Printf("Request timed out: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Request timed out",
		})
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindValidation:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindConflict:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindUnauthorized:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindForbidden:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindUnavailable:
		log.Printf("Store unavailable: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Service temporarily unavailable",
		})
	default:
		log.Printf("Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
}
