package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/jhoicas/inventario-ti/internal/domain/entity"
)

var two = decimal.NewFromInt(2)

// Classify clasifica el stock actual frente al umbral mínimo.
// ratio = current / minimum; < 0.5 CRITICAL, [0.5, 1) WARNING, >= 1 NORMAL.
// Las comparaciones se hacen sin dividir (current*2 < minimum) para que los bordes sean exactos.
// Un umbral <= 0 nunca alerta: NORMAL con ratio 0.
func Classify(current, minimum decimal.Decimal) (string, decimal.Decimal) {
	if !minimum.IsPositive() {
		return entity.StockNormal, decimal.Zero
	}
	ratio := current.DivRound(minimum, 4)
	switch {
	case current.Mul(two).LessThan(minimum):
		return entity.StockCritical, ratio
	case current.LessThan(minimum):
		return entity.StockWarning, ratio
	default:
		return entity.StockNormal, ratio
	}
}

// BuildStockLevel arma el nivel de stock de un producto a partir de su proyección.
func BuildStockLevel(proj *Projection) entity.StockLevel {
	p := proj.Product
	current := proj.CurrentStock()
	class, ratio := Classify(current, p.MinimumThreshold)
	suggested := p.IdealStock.Sub(current)
	if suggested.IsNegative() {
		suggested = decimal.Zero
	}
	return entity.StockLevel{
		ProductID:        p.ID,
		ProductName:      p.Name,
		CategoryPath:     p.CategoryPath,
		CurrentStock:     current,
		MinimumThreshold: p.MinimumThreshold,
		IdealStock:       p.IdealStock,
		Ratio:            ratio,
		Classification:   class,
		SuggestedOrder:   suggested,
	}
}

func severity(class string) int {
	switch class {
	case entity.StockCritical:
		return 0
	case entity.StockWarning:
		return 1
	}
	return 2
}

// LowStockReport filtra los niveles en WARNING o CRITICAL y los ordena:
// primero CRITICAL, luego por ratio ascendente, nombre (orden alfabético español) e ID.
func LowStockReport(levels []entity.StockLevel) []entity.StockLevel {
	out := make([]entity.StockLevel, 0, len(levels))
	for _, l := range levels {
		if l.Classification == entity.StockCritical || l.Classification == entity.StockWarning {
			out = append(out, l)
		}
	}
	// collate.Collator no es seguro para uso concurrente: uno por llamada.
	col := collate.New(language.Spanish, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if sa, sb := severity(a.Classification), severity(b.Classification); sa != sb {
			return sa < sb
		}
		if !a.Ratio.Equal(b.Ratio) {
			return a.Ratio.LessThan(b.Ratio)
		}
		if c := col.CompareString(a.ProductName, b.ProductName); c != 0 {
			return c < 0
		}
		return a.ProductID < b.ProductID
	})
	return out
}
