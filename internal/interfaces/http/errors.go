package http

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ti/internal/application/dto"
	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/pkg/undo"
)

var validate = validator.New()

type errorMapping struct {
	kind    error
	status  int
	code    string
	message string
}

// errorMappings en orden: gana la primera que coincida con errors.Is.
var errorMappings = []errorMapping{
	{undo.ErrExpiredAction, fiber.StatusGone, "EXPIRED_ACTION", "la acción venció o fue reemplazada"},
	{undo.ErrNothingToUndo, fiber.StatusNotFound, "NOTHING_TO_UNDO", "no hay acción para deshacer"},
	{domain.ErrAlreadyAllocated, fiber.StatusConflict, "ALREADY_ALLOCATED", ""},
	{domain.ErrNotAllocated, fiber.StatusConflict, "NOT_ALLOCATED", ""},
	{domain.ErrDuplicateSerial, fiber.StatusConflict, "DUPLICATE_SERIAL", ""},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK", ""},
	{domain.ErrInconsistentState, fiber.StatusConflict, "INCONSISTENT_STATE", ""},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE", "el recurso ya existe"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", ""},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", ""},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED", "no autorizado"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN", "acceso denegado al recurso"},
	{context.DeadlineExceeded, fiber.StatusServiceUnavailable, "TIMEOUT", "el producto está ocupado, intente de nuevo"},
}

// respondError traduce un error de dominio a su status HTTP y ErrorResponse.
// Sin message fijo se devuelve el texto del error, que incluye producto y serial.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: msg})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

// parseBody lee el JSON y valida los tags `validate`. Si falla ya escribió la respuesta 400.
func parseBody(c *fiber.Ctx, out any) bool {
	if err := c.BodyParser(out); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		return false
	}
	return validStruct(c, out)
}

// parseQuery como parseBody, para los parámetros de query.
func parseQuery(c *fiber.Ctx, out any) bool {
	if err := c.QueryParser(out); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
		return false
	}
	return validStruct(c, out)
}

func validStruct(c *fiber.Ctx, out any) bool {
	err := validate.Struct(out)
	if err == nil {
		return true
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		_ = respondError(c, err)
		return false
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Namespace()+": "+fe.Tag())
	}
	_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: strings.Join(msgs, "; ")})
	return false
}
