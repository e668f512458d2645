package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/mantenimiento-api/internal/application/dto"
	"github.com/jhoicas/mantenimiento-api/internal/domain"
)

// validate instancia compartida; validator cachea la metadata de cada struct.
var validate = validator.New()

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", ""},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED", "no autorizado"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN", "acceso denegado al recurso"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente"},
	{domain.ErrInsufficientReserved, fiber.StatusConflict, "INSUFFICIENT_RESERVED", "reserva insuficiente"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION", ""},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT", "el recurso cambió, reintente"},
}

// respondError traduce los errores de dominio a status HTTP. Lo no reconocido es 500 y se registra.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: msg})
		}
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
