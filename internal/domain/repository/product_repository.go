package repository

import (
	"context"

	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

// ProductFilter filtros para listar el catálogo.
type ProductFilter struct {
	CategoryPrefix string // por segmentos, ver entity.Product.InCategory
	TracksSerial   *bool
	Search         string // coincidencia parcial en nombre o SKU
	Limit          int    // 0 = sin límite
	Offset         int
}

// CatalogReader es el puerto de lectura del catálogo que consume el motor.
type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*entity.Product, error)
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// Las ediciones administrativas del catálogo pasan por aquí.
type ProductRepository interface {
	CatalogReader
	Create(ctx context.Context, product *entity.Product) error
	Update(ctx context.Context, product *entity.Product) error
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
}

// CatalogTxRunner ejecuta varias escrituras del catálogo como una sola unidad:
// si fn devuelve error no queda nada aplicado.
type CatalogTxRunner interface {
	RunCatalog(ctx context.Context, fn func(repo ProductRepository) error) error
}
