package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

// RepairFilter selecciona reparaciones por serial de activo o por producto.
// Si ambos están vacíos no se devuelve nada.
type RepairFilter struct {
	Serial    string
	ProductID string
}

// EventStore define el puerto del libro de eventos (append-only).
// Agregar es la única forma de escribir; las lecturas devuelven los eventos
// ordenados por (timestamp, id) ascendente.
type EventStore interface {
	Append(ctx context.Context, event *entity.MovementEvent) (string, error)
	AppendRepair(ctx context.Context, repair *entity.RepairEvent) (string, error)
	// AppendRepairReturn registra el hecho "regresado" de una reparación.
	// Devuelve domain.ErrNotFound si la reparación no existe. Si hay más de un regreso
	// (el anterior fue deshecho), las lecturas devuelven el más reciente.
	AppendRepairReturn(ctx context.Context, repairID string, returnDate time.Time, resolution, actor string) error

	ReadByProduct(ctx context.Context, productID string) ([]entity.MovementEvent, error)
	ReadByAsset(ctx context.Context, serial string) ([]entity.MovementEvent, error)
	ReadRepairs(ctx context.Context, filter RepairFilter) ([]entity.RepairEvent, error)
	GetRepair(ctx context.Context, id string) (*entity.RepairEvent, error)
}
