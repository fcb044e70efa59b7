package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ti/internal/domain"
	"github.com/jhoicas/inventario-ti/internal/domain/entity"
	"github.com/jhoicas/inventario-ti/internal/domain/repository"
)

// timeLayout ancho fijo, siempre UTC: el orden de texto coincide con el cronológico.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t, nil
}

type productRepo struct {
	q querier
}

var _ repository.ProductRepository = productRepo{}

const productColumns = `id, sku, name, description, category_path, tracks_serial,
	minimum_threshold, ideal_stock, created_at, updated_at`

func (r productRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		p.ID, p.SKU, p.Name, p.Description, p.CategoryPath, p.TracksSerial,
		p.MinimumThreshold.String(), p.IdealStock.String(),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update no modifica sku, tracks_serial ni created_at.
func (r productRepo) Update(ctx context.Context, p *entity.Product) error {
	query := `UPDATE products SET name = ?, description = ?, category_path = ?,
		minimum_threshold = ?, ideal_stock = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.q.ExecContext(ctx, query,
		p.Name, p.Description, p.CategoryPath,
		p.MinimumThreshold.String(), p.IdealStock.String(), formatTime(p.UpdatedAt),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r productRepo) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return scanProduct(r.q.QueryRowContext(ctx, query, id))
}

func (r productRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE upper(sku) = upper(?)`
	return scanProduct(r.q.QueryRowContext(ctx, query, sku))
}

func (r productRepo) ListProducts(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	var (
		where []string
		args  []any
	)
	if prefix := entity.NormalizeCategoryPath(f.CategoryPrefix); prefix != "" {
		where = append(where, `(lower(category_path) = lower(?) OR lower(category_path) LIKE lower(?) || '/%')`)
		args = append(args, prefix, prefix)
	}
	if f.TracksSerial != nil {
		where = append(where, `tracks_serial = ?`)
		args = append(args, *f.TracksSerial)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, `(lower(name) LIKE '%' || lower(?) || '%' OR lower(sku) LIKE '%' || lower(?) || '%')`)
		args = append(args, s, s)
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY name, id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	} else if f.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, f.Offset)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var (
		p                entity.Product
		minimum, ideal   string
		created, updated string
	)
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.CategoryPath, &p.TracksSerial,
		&minimum, &ideal, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if p.MinimumThreshold, err = decimal.NewFromString(minimum); err != nil {
		return nil, fmt.Errorf("product %s minimum_threshold: %w", p.ID, err)
	}
	if p.IdealStock, err = decimal.NewFromString(ideal); err != nil {
		return nil, fmt.Errorf("product %s ideal_stock: %w", p.ID, err)
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}
