package inventory

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/inventory"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
)

// LowStockFilter acota el reporte a una rama del árbol de categorías.
type LowStockFilter struct {
	CategoryPrefix string
}

// ReplenishmentItem sugerencia de reposición para un producto bajo su umbral.
type ReplenishmentItem struct {
	entity.StockLevel
	Priority int // 1 = más urgente
}

// LowStockReport productos en WARNING o CRITICAL, primero los críticos.
// El nivel de cada producto se calcula en paralelo (acotado por REPORT_CONCURRENCY).
func (uc *UseCase) LowStockReport(ctx context.Context, filter LowStockFilter) ([]entity.StockLevel, error) {
	products, err := uc.catalog.ListProducts(ctx, repository.ProductFilter{CategoryPrefix: filter.CategoryPrefix})
	if err != nil {
		return nil, err
	}

	levels := make([]entity.StockLevel, len(products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.reportConcurrency)
	for i := range products {
		p := products[i]
		g.Go(func() error {
			proj, err := uc.projectionOf(gctx, p)
			if err != nil {
				return err
			}
			levels[i] = inventory.BuildStockLevel(proj)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := inventory.LowStockReport(levels)
	if filter.CategoryPrefix == "" {
		counts := map[string]int{entity.StockCritical: 0, entity.StockWarning: 0}
		for _, l := range report {
			counts[l.Classification]++
		}
		for class, n := range counts {
			uc.metrics.SetLowStock(class, n)
		}
	}
	return report, nil
}

// ReplenishmentList el reporte de stock bajo con la cantidad sugerida de pedido
// (stock ideal menos stock actual) y su prioridad. Omite productos que ya están en su ideal.
func (uc *UseCase) ReplenishmentList(ctx context.Context, filter LowStockFilter) ([]ReplenishmentItem, error) {
	report, err := uc.LowStockReport(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]ReplenishmentItem, 0, len(report))
	for _, l := range report {
		if !l.SuggestedOrder.IsPositive() {
			continue
		}
		items = append(items, ReplenishmentItem{StockLevel: l})
	}
	// Asignar prioridad (1 = más urgente) en el orden del reporte
	for i := range items {
		items[i].Priority = i + 1
	}
	return items, nil
}
