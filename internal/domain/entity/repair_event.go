package entity

import "time"

// RepairEvent registra el envío de un activo a reparación y, opcionalmente, su regreso.
// Son dos hechos lógicos en un registro: "enviado" (ReturnDate nil) y "regresado".
type RepairEvent struct {
	ID                string
	ProductID         string
	AssetSerialNumber string
	SentDate          time.Time
	ReturnDate        *time.Time
	Provider          string
	Problem           string
	Resolution        *string
	Actor             string
	ReturnActor       string
}

// IsOpen indica si el activo sigue en el proveedor.
func (r *RepairEvent) IsOpen() bool { return r.ReturnDate == nil }
