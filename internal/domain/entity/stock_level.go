package entity

import "github.com/shopspring/decimal"

// Clasificación del nivel de stock.
const (
	StockNormal   = "NORMAL"
	StockWarning  = "WARNING"
	StockCritical = "CRITICAL"
)

// StockLevel nivel de stock calculado para un producto.
type StockLevel struct {
	ProductID        string
	ProductName      string
	CategoryPath     string
	CurrentStock     decimal.Decimal
	MinimumThreshold decimal.Decimal
	IdealStock       decimal.Decimal
	Ratio            decimal.Decimal // CurrentStock / MinimumThreshold (0 si no hay umbral)
	Classification   string
	SuggestedOrder   decimal.Decimal // max(IdealStock - CurrentStock, 0)
}
