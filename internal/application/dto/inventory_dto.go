package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementRequest body común de POST /api/inventory/{entries,returns,stock-outs,transfers,decommissions}.
// Productos con serial envían serial_numbers; fungibles envían quantity.
type MovementRequest struct {
	ProductID     string          `json:"product_id" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
	SerialNumbers []string        `json:"serial_numbers" validate:"omitempty,max=500,dive,required,max=100"`
	Location      string          `json:"location" validate:"max=200"`
	Notes         string          `json:"notes" validate:"max=1000"`
}

// DestinationRequest a quién o dónde se asigna.
type DestinationRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=person department branch"`
	ID       string `json:"id" validate:"required,max=100"`
	Name     string `json:"name" validate:"max=200"`
	Location string `json:"location" validate:"max=200"`
}

// AssignmentRequest body de POST /api/inventory/assignments.
type AssignmentRequest struct {
	MovementRequest
	Destination DestinationRequest `json:"destination"`
}

// RepairRequest body de POST /api/inventory/repairs.
type RepairRequest struct {
	ProductID    string `json:"product_id" validate:"required"`
	SerialNumber string `json:"serial_number" validate:"required,max=100"`
	Provider     string `json:"provider" validate:"required,max=200"`
	Problem      string `json:"problem" validate:"max=1000"`
}

// RepairReturnRequest body de POST /api/inventory/repairs/:id/return.
type RepairReturnRequest struct {
	Resolution string `json:"resolution" validate:"max=1000"`
}

// CommandResponse resultado de un comando: el hecho agregado y cómo deshacerlo.
type CommandResponse struct {
	EventID      string    `json:"event_id"`
	HistoryKey   string    `json:"history_key"`
	UndoID       string    `json:"undo_id"`
	UndoDeadline time.Time `json:"undo_deadline"`
}

// PendingActionResponse salida de GET /api/inventory/undo.
type PendingActionResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Actor       string    `json:"actor"`
	CommittedAt time.Time `json:"committed_at"`
	Deadline    time.Time `json:"deadline"`
}

// UndoRequest body opcional de POST /api/inventory/undo; sin id deshace la última acción.
type UndoRequest struct {
	ID string `json:"id"`
}

// DestinationResponse poseedor actual.
type DestinationResponse struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// StatusResponse estado derivado de un activo o producto.
type StatusResponse struct {
	ProductID    string               `json:"product_id"`
	SerialNumber string               `json:"serial_number,omitempty"`
	Status       string               `json:"status"`
	Holder       *DestinationResponse `json:"holder,omitempty"`
	Location     string               `json:"location"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// HistoryEntryResponse una línea del historial.
type HistoryEntryResponse struct {
	Key           string    `json:"key"`
	Kind          string    `json:"kind"`
	Type          string    `json:"type,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	ProductID     string    `json:"product_id"`
	SerialNumbers []string  `json:"serial_numbers,omitempty"`
	Actor         string    `json:"actor"`
	Description   string    `json:"description"`
	Notes         string    `json:"notes,omitempty"`
}

// HistoryResponse página del historial.
type HistoryResponse struct {
	Items []HistoryEntryResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}

// SerialsResponse seriales disponibles.
type SerialsResponse struct {
	ProductID string   `json:"product_id"`
	Available []string `json:"available"`
}

// StockLevelResponse nivel de stock de un producto.
type StockLevelResponse struct {
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	CategoryPath     string          `json:"category_path"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	IdealStock       decimal.Decimal `json:"ideal_stock"`
	Ratio            decimal.Decimal `json:"ratio"`
	Classification   string          `json:"classification"`
	SuggestedOrder   decimal.Decimal `json:"suggested_order"` // IdealStock - CurrentStock
}

// LowStockResponse reporte de stock bajo.
type LowStockResponse struct {
	Items []StockLevelResponse `json:"items"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un producto bajo su umbral.
type ReplenishmentSuggestionDTO struct {
	StockLevelResponse
	Priority int `json:"priority"` // 1 = más urgente
}

// UnitResponse unidad con serial y su estado en el pool.
type UnitResponse struct {
	SerialNumber string               `json:"serial_number"`
	State        string               `json:"state"`
	Holder       *DestinationResponse `json:"holder,omitempty"`
	Location     string               `json:"location,omitempty"`
}
