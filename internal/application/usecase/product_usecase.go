package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ti/internal/application/dto"
	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
)

// ProductUseCase casos de uso del catálogo. El stock no se edita aquí: se deriva del libro de movimientos.
type ProductUseCase struct {
	repo repository.ProductRepository
	now  func() time.Time
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo, now: time.Now}
}

// Create crea un nuevo producto. El SKU es único.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	sku := strings.TrimSpace(in.SKU)
	name := strings.TrimSpace(in.Name)
	if sku == "" || name == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := validThresholds(in.MinimumThreshold, in.IdealStock); err != nil {
		return nil, err
	}
	existing, err := uc.repo.GetBySKU(ctx, sku)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := uc.now().UTC()
	product := &entity.Product{
		ID:               uuid.New().String(),
		SKU:              sku,
		Name:             name,
		Description:      strings.TrimSpace(in.Description),
		CategoryPath:     entity.NormalizeCategoryPath(in.CategoryPath),
		TracksSerial:     in.TracksSerial,
		MinimumThreshold: in.MinimumThreshold,
		IdealStock:       in.IdealStock,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// Update actualiza nombre, descripción, categoría y umbrales.
func (uc *ProductUseCase) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		product.Name = name
	}
	if in.Description != nil {
		product.Description = strings.TrimSpace(*in.Description)
	}
	if in.CategoryPath != nil {
		product.CategoryPath = entity.NormalizeCategoryPath(*in.CategoryPath)
	}
	if in.MinimumThreshold != nil {
		product.MinimumThreshold = *in.MinimumThreshold
	}
	if in.IdealStock != nil {
		product.IdealStock = *in.IdealStock
	}
	if err := validThresholds(product.MinimumThreshold, product.IdealStock); err != nil {
		return nil, err
	}
	product.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista el catálogo con filtros y paginación.
func (uc *ProductUseCase) List(ctx context.Context, q dto.ProductListQuery) (*dto.ProductListResponse, error) {
	q.DefaultPage()
	filter := repository.ProductFilter{
		CategoryPrefix: q.Category,
		Search:         strings.TrimSpace(q.Search),
		Limit:          q.Limit,
		Offset:         q.Offset,
	}
	switch q.TracksSerial {
	case "true":
		v := true
		filter.TracksSerial = &v
	case "false":
		v := false
		filter.TracksSerial = &v
	}
	list, err := uc.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset},
	}, nil
}

func validThresholds(minimum, ideal decimal.Decimal) error {
	if minimum.IsNegative() || ideal.IsNegative() {
		return domain.ErrInvalidInput
	}
	if ideal.IsPositive() && ideal.LessThan(minimum) {
		return domain.ErrInvalidInput
	}
	return nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:               p.ID,
		SKU:              p.SKU,
		Name:             p.Name,
		Description:      p.Description,
		CategoryPath:     p.CategoryPath,
		TracksSerial:     p.TracksSerial,
		MinimumThreshold: p.MinimumThreshold,
		IdealStock:       p.IdealStock,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
