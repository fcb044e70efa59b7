package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento.
const (
	MovementTypeEntry        = "ENTRY"        // ingreso a stock
	MovementTypeAssignment   = "ASSIGNMENT"   // asignación a persona, área o sucursal
	MovementTypeReturn       = "RETURN"       // devolución a stock
	MovementTypeStockOut     = "STOCK_OUT"    // salida/consumo (solo fungibles)
	MovementTypeTransfer     = "TRANSFER"     // traslado entre ubicaciones
	MovementTypeDecommission = "DECOMMISSION" // baja administrativa (terminal)
	MovementTypeReversal     = "REVERSAL"     // compensa un hecho anterior (deshacer)
)

// Tipos de destino de una asignación.
const (
	DestinationPerson     = "person"
	DestinationDepartment = "department"
	DestinationBranch     = "branch"
)

// Destination identifica a quién o dónde se asigna un activo.
type Destination struct {
	Kind     string
	ID       string
	Name     string
	Location string // ubicación física del destino (oficina, sucursal)
}

// MovementEvent es un hecho inmutable del libro de inventario. Solo se agrega, nunca se modifica.
// Quantity aplica a productos fungibles; SerialNumbers a productos con serial.
type MovementEvent struct {
	ID            string
	ProductID     string
	Type          string
	Timestamp     time.Time
	Quantity      decimal.Decimal
	SerialNumbers []string
	Actor         string
	Destination   *Destination
	Location      string // bodega o sucursal (ENTRY, TRANSFER, RETURN)
	Notes         string
	Reverts       string // clave de historial del hecho revertido (solo REVERSAL)
}

// HasSerial indica si el evento involucra el serial indicado.
func (e *MovementEvent) HasSerial(serial string) bool {
	for _, s := range e.SerialNumbers {
		if s == serial {
			return true
		}
	}
	return false
}

// Before compara por la clave de orden (Timestamp, ID).
func (e *MovementEvent) Before(other *MovementEvent) bool {
	if !e.Timestamp.Equal(other.Timestamp) {
		return e.Timestamp.Before(other.Timestamp)
	}
	return e.ID < other.ID
}
