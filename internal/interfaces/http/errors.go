package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
)

// respondError traduce los errores de dominio a la respuesta HTTP.
// El orden importa: los tipos con contexto van antes que los sentinelas que envuelven.
func respondError(c *fiber.Ctx, err error) error {
	var (
		conflict  *domain.ConflictError
		integrity *domain.IntegrityWarning
		invalid   *domain.ValidationError
	)
	switch {
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_TAKEN", Message: conflict.Error()})
	case errors.As(err, &integrity):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Code:    "INTEGRITY_WARNING",
			Message: "la operación quedó parcialmente registrada; operaciones fue notificado",
		})
	case errors.As(err, &invalid):
		resp := dto.ErrorResponse{Message: invalid.Error(), Available: invalid.Available, Status: invalid.Status}
		switch {
		case errors.Is(err, domain.ErrInsufficientStock):
			resp.Code = "INSUFFICIENT_STOCK"
			return c.Status(fiber.StatusConflict).JSON(resp)
		case errors.Is(err, domain.ErrInvalidTransition):
			resp.Code = "INVALID_TRANSITION"
			return c.Status(fiber.StatusConflict).JSON(resp)
		case errors.Is(err, domain.ErrSameLocation):
			resp.Code = "SAME_LOCATION"
			return c.Status(fiber.StatusBadRequest).JSON(resp)
		default:
			resp.Code = "VALIDATION"
			return c.Status(fiber.StatusBadRequest).JSON(resp)
		}
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrSweepInProgress):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "SWEEP_IN_PROGRESS", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "el recurso cambió durante la operación, reintente"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
