package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategorySeparator separa los niveles de la ruta de categoría (ej. "Computadoras/Notebooks").
const CategorySeparator = "/"

// Product representa un producto del catálogo de activos TI.
// Si TracksSerial es true cada unidad física se identifica por serial (notebooks, teléfonos);
// si es false el producto es fungible y solo se controla por cantidad (cables, tóner).
type Product struct {
	ID               string
	SKU              string
	Name             string
	Description      string
	CategoryPath     string
	TracksSerial     bool
	MinimumThreshold decimal.Decimal // umbral mínimo para alertas de stock bajo (0 = sin alerta)
	IdealStock       decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CategorySegments devuelve los niveles de la ruta de categoría sin vacíos.
func (p *Product) CategorySegments() []string {
	return SplitCategoryPath(p.CategoryPath)
}

// InCategory indica si el producto pertenece a la categoría prefix o a una subcategoría suya.
// La comparación es por segmentos: "Computadoras" incluye "Computadoras/Notebooks"
// pero no "ComputadorasViejas".
func (p *Product) InCategory(prefix string) bool {
	want := SplitCategoryPath(prefix)
	if len(want) == 0 {
		return true
	}
	have := p.CategorySegments()
	if len(have) < len(want) {
		return false
	}
	for i := range want {
		if !strings.EqualFold(have[i], want[i]) {
			return false
		}
	}
	return true
}

// SplitCategoryPath divide una ruta "A/B/C" en segmentos, ignorando espacios y niveles vacíos.
func SplitCategoryPath(path string) []string {
	parts := strings.Split(path, CategorySeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeCategoryPath devuelve la ruta con segmentos limpios unidos por "/".
func NormalizeCategoryPath(path string) string {
	return strings.Join(SplitCategoryPath(path), CategorySeparator)
}
