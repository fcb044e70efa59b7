package entity

import "time"

// Tipos de entrada del historial.
const (
	HistoryMovement     = "movement"
	HistoryRepairSent   = "repair_sent"
	HistoryRepairReturn = "repair_return"
)

// Prefijos de la clave sintética del historial (desempate determinista).
const (
	HistoryKeyMovement     = "m-"
	HistoryKeyRepairSent   = "r-send-"
	HistoryKeyRepairReturn = "r-return-"
)

// HistoryEntry es una línea del historial unificado de movimientos y reparaciones.
type HistoryEntry struct {
	Key           string
	Kind          string
	Type          string // tipo de movimiento cuando Kind es movement
	Timestamp     time.Time
	ProductID     string
	SerialNumbers []string
	Actor         string
	Description   string
	Notes         string
}
