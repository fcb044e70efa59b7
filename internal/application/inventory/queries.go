package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/inventory"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
)

// AssetStatus estado derivado de un activo con serial.
// Si el historial es inconsistente (asignación y reparación abiertas) el estado se devuelve
// igual, con la advertencia en Warnings, y se registra en el log.
func (uc *UseCase) AssetStatus(ctx context.Context, productID, serial string) (entity.DerivedStatus, error) {
	product, err := uc.product(ctx, productID)
	if err != nil {
		return entity.DerivedStatus{}, err
	}
	if !product.TracksSerial {
		return entity.DerivedStatus{}, fmt.Errorf("%w: el producto %s no maneja seriales", domain.ErrInvalidInput, product.ID)
	}
	movs, reps, err := uc.readAsset(ctx, product.ID, serial)
	if err != nil {
		return entity.DerivedStatus{}, err
	}
	status, err := inventory.DeriveStatus(movs, reps)
	return uc.tolerate(product.ID, serial, status, err)
}

// ProductStatus estado derivado de un producto fungible tomado como un todo: ASSIGNED
// mientras queden unidades asignadas sin devolver.
func (uc *UseCase) ProductStatus(ctx context.Context, productID string) (entity.DerivedStatus, error) {
	product, err := uc.product(ctx, productID)
	if err != nil {
		return entity.DerivedStatus{}, err
	}
	if product.TracksSerial {
		return entity.DerivedStatus{}, fmt.Errorf("%w: consulte el estado por serial", domain.ErrInvalidInput)
	}
	movs, reps, err := uc.readProduct(ctx, product.ID)
	if err != nil {
		return entity.DerivedStatus{}, err
	}
	status, err := inventory.DeriveFungibleStatus(movs, reps)
	return uc.tolerate(product.ID, "", status, err)
}

// tolerate deja pasar el estado inconsistente como advertencia.
func (uc *UseCase) tolerate(productID, serial string, status entity.DerivedStatus, err error) (entity.DerivedStatus, error) {
	if errors.Is(err, domain.ErrInconsistentState) {
		uc.log.Warn().Err(err).Str("product_id", productID).Str("serial", serial).
			Msg("historial inconsistente")
		return status, nil
	}
	return status, err
}

// AssetHistory historial de un activo, del más reciente al más antiguo.
func (uc *UseCase) AssetHistory(ctx context.Context, productID, serial string, offset, limit int) ([]entity.HistoryEntry, error) {
	product, err := uc.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	movs, reps, err := uc.readAsset(ctx, product.ID, serial)
	if err != nil {
		return nil, err
	}
	return inventory.Page(inventory.Merge(movs, reps), offset, limit), nil
}

// ProductHistory historial completo del producto (todos sus seriales o cantidades).
func (uc *UseCase) ProductHistory(ctx context.Context, productID string, offset, limit int) ([]entity.HistoryEntry, error) {
	product, err := uc.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	movs, reps, err := uc.readProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	return inventory.Page(inventory.Merge(movs, reps), offset, limit), nil
}

// AvailableSerials seriales disponibles para asignar, en orden ascendente.
func (uc *UseCase) AvailableSerials(ctx context.Context, productID string) ([]string, error) {
	product, err := uc.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.TracksSerial {
		return nil, fmt.Errorf("%w: el producto %s no maneja seriales", domain.ErrInvalidInput, product.ID)
	}
	proj, err := uc.projectionOf(ctx, product)
	if err != nil {
		return nil, err
	}
	return proj.Pool.ListAvailable(product.ID), nil
}

// Units unidades con serial del producto y su estado en el pool.
func (uc *UseCase) Units(ctx context.Context, productID string) ([]entity.SerialUnit, error) {
	product, err := uc.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	proj, err := uc.projectionOf(ctx, product)
	if err != nil {
		return nil, err
	}
	return proj.Pool.Units(product.ID), nil
}

// StockLevel nivel de stock y clasificación de un producto.
func (uc *UseCase) StockLevel(ctx context.Context, productID string) (entity.StockLevel, error) {
	product, err := uc.product(ctx, productID)
	if err != nil {
		return entity.StockLevel{}, err
	}
	proj, err := uc.projectionOf(ctx, product)
	if err != nil {
		return entity.StockLevel{}, err
	}
	return inventory.BuildStockLevel(proj), nil
}

func (uc *UseCase) projectionOf(ctx context.Context, p *entity.Product) (*inventory.Projection, error) {
	return uc.views.projection(ctx, p, func(ctx context.Context) ([]entity.MovementEvent, []entity.RepairEvent, error) {
		return uc.readProduct(ctx, p.ID)
	})
}

// readAsset lee los hechos de un serial dentro de un producto (los seriales son únicos por producto).
func (uc *UseCase) readAsset(ctx context.Context, productID, serial string) ([]entity.MovementEvent, []entity.RepairEvent, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, nil, fmt.Errorf("%w: serial requerido", domain.ErrInvalidInput)
	}
	all, err := uc.events.ReadByAsset(ctx, serial)
	if err != nil {
		return nil, nil, fmt.Errorf("leer movimientos de %s: %w", serial, err)
	}
	movs := make([]entity.MovementEvent, 0, len(all))
	for _, m := range all {
		if m.ProductID == productID {
			movs = append(movs, m)
		}
	}
	allReps, err := uc.events.ReadRepairs(ctx, repository.RepairFilter{Serial: serial})
	if err != nil {
		return nil, nil, fmt.Errorf("leer reparaciones de %s: %w", serial, err)
	}
	reps := make([]entity.RepairEvent, 0, len(allReps))
	for _, r := range allReps {
		if r.ProductID == productID {
			reps = append(reps, r)
		}
	}
	if len(movs) == 0 && len(reps) == 0 {
		return nil, nil, fmt.Errorf("serial %s del producto %s: %w", serial, productID, domain.ErrNotFound)
	}
	return movs, reps, nil
}
