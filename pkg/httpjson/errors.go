// Package httpjson adapts pkg/apperr's typed errors to fiber JSON responses,
// mirroring the teacher's common/net/http WithError dispatch.
package httpjson

import (
	"github.com/gofiber/fiber/v2"

	"github.com/poolcard/ledger-core/pkg/apperr"
)

type envelope struct {
	Code    string `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// WithError writes the appropriate status code and JSON body for err.
func WithError(c *fiber.Ctx, err error) error {
	switch e := err.(type) {
	case apperr.EntityNotFoundError:
		return c.Status(fiber.StatusNotFound).JSON(envelope{e.Code, e.Title, e.Error()})
	case apperr.EntityConflictError:
		return c.Status(fiber.StatusConflict).JSON(envelope{e.Code, e.Title, e.Error()})
	case apperr.ValidationError:
		return c.Status(fiber.StatusBadRequest).JSON(envelope{e.Code, e.Title, e.Error()})
	case apperr.UnprocessableOperationError:
		return c.Status(fiber.StatusBadRequest).JSON(envelope{e.Code, e.Title, e.Error()})
	case apperr.ForbiddenError:
		return c.Status(fiber.StatusForbidden).JSON(envelope{e.Code, e.Title, e.Error()})
	case apperr.UnauthorizedError:
		return c.Status(fiber.StatusUnauthorized).JSON(envelope{e.Code, e.Title, e.Error()})
	case apperr.ProviderUnavailableError:
		return c.Status(fiber.StatusServiceUnavailable).JSON(envelope{Message: e.Error()})
	case apperr.ProviderError:
		return c.Status(fiber.StatusBadGateway).JSON(envelope{e.Code, "", e.Error()})
	case apperr.InternalServerError:
		return c.Status(fiber.StatusInternalServerError).JSON(envelope{e.Code, e.Title, "internal server error"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(envelope{Message: "internal server error"})
	}
}

// Created writes a 201 with the given payload.
func Created(c *fiber.Ctx, body any) error {
	return c.Status(fiber.StatusCreated).JSON(body)
}

// OK writes a 200 with the given payload.
func OK(c *fiber.Ctx, body any) error {
	return c.Status(fiber.StatusOK).JSON(body)
}
