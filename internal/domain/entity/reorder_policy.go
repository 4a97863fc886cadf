package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReorderPolicy umbrales de seguridad y reorden por (ubicación, artículo).
type ReorderPolicy struct {
	LocationID         string
	ItemID             string
	SafetyStockQty     decimal.Decimal // kg
	ReorderPointQty    decimal.Decimal // kg
	TargetDaysOfCover  int
	FixedOrderBags     *int // si está definido, reemplaza el cálculo por días de cobertura
	AutoReorderEnabled bool
	UpdatedAt          time.Time
}
