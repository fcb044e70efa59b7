package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Invariantes del pool de seriales.
	ErrAlreadyAllocated = errors.New("el serial ya está asignado")
	ErrNotAllocated     = errors.New("el serial no está asignado")
	ErrDuplicateSerial  = errors.New("serial duplicado para el producto")

	// ErrInconsistentState se reporta junto al estado derivado cuando el historial
	// tiene una asignación y una reparación abiertas a la vez.
	ErrInconsistentState = errors.New("historial inconsistente")
)

// SerialError agrega el producto y el serial a un error del pool.
type SerialError struct {
	ProductID string
	Serial    string
	Err       error
}

func (e *SerialError) Error() string {
	return fmt.Sprintf("producto %s, serial %s: %v", e.ProductID, e.Serial, e.Err)
}

func (e *SerialError) Unwrap() error { return e.Err }

// NewSerialError construye un SerialError.
func NewSerialError(productID, serial string, err error) error {
	return &SerialError{ProductID: productID, Serial: serial, Err: err}
}
