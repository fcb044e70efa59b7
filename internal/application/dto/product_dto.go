package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto del catálogo.
type CreateProductRequest struct {
	SKU              string          `json:"sku" validate:"required,min=1,max=100"`
	Name             string          `json:"name" validate:"required,min=1,max=200"`
	Description      string          `json:"description" validate:"max=2000"`
	CategoryPath     string          `json:"category_path" validate:"max=300"`
	TracksSerial     bool            `json:"tracks_serial"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	IdealStock       decimal.Decimal `json:"ideal_stock"`
}

// UpdateProductRequest entrada para actualizar un producto. TracksSerial no se puede cambiar
// porque el historial ya registrado depende de él.
type UpdateProductRequest struct {
	Name             *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description      *string          `json:"description" validate:"omitempty,max=2000"`
	CategoryPath     *string          `json:"category_path" validate:"omitempty,max=300"`
	MinimumThreshold *decimal.Decimal `json:"minimum_threshold"`
	IdealStock       *decimal.Decimal `json:"ideal_stock"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID               string          `json:"id"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	CategoryPath     string          `json:"category_path"`
	TracksSerial     bool            `json:"tracks_serial"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	IdealStock       decimal.Decimal `json:"ideal_stock"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// ProductListQuery filtros del listado de catálogo.
type ProductListQuery struct {
	PageRequest
	Category     string `query:"category"`
	Search       string `query:"q"`
	TracksSerial string `query:"tracks_serial" validate:"omitempty,oneof=true false"`
}
