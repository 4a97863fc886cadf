package replenishment

import (
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

const (
	// DuplicateSuppressionWindow ventana en la que no se crea otra solicitud para la misma ubicación.
	DuplicateSuppressionWindow = 48 * time.Hour
	MinOrderBags               = 10
	BagsPerDayOfCover          = 5
)

// Decision resultado de evaluar una política contra el saldo actual.
type Decision struct {
	Shortage     bool
	QuantityBags int
	Urgency      string
}

// IsBelowReorderPoint saldo estrictamente menor al punto de reorden.
func IsBelowReorderPoint(p *entity.ReorderPolicy, balance decimal.Decimal) bool {
	return balance.LessThan(p.ReorderPointQty)
}

// OrderBags cantidad a pedir: la fija configurada o max(10, días de cobertura × 5).
func OrderBags(p *entity.ReorderPolicy) int {
	if p.FixedOrderBags != nil && *p.FixedOrderBags > 0 {
		return *p.FixedOrderBags
	}
	return max(MinOrderBags, p.TargetDaysOfCover*BagsPerDayOfCover)
}

// Evaluate decide si hay faltante y con qué cantidad y urgencia pedir.
func Evaluate(p *entity.ReorderPolicy, balance decimal.Decimal) Decision {
	if !IsBelowReorderPoint(p, balance) {
		return Decision{}
	}
	urgency := entity.UrgencyNormal
	if balance.LessThan(p.SafetyStockQty) {
		urgency = entity.UrgencyUrgent
	}
	return Decision{Shortage: true, QuantityBags: OrderBags(p), Urgency: urgency}
}
