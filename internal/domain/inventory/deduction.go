package inventory

import (
	"sort"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Deduction cantidad a descontar de un lote concreto.
type Deduction struct {
	Batch *entity.Batch
	Qty   decimal.Decimal
}

// Balance saldo en mano: suma de remanentes de los lotes no agotados.
func Balance(batches []*entity.Batch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		if b.IsDepleted() {
			continue
		}
		total = total.Add(b.RemainingQty)
	}
	return total
}

// IssuableQty saldo que se puede despachar (solo lotes disponibles; cuarentena y retención no cuentan).
func IssuableQty(batches []*entity.Batch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		if b.IsIssuable() {
			total = total.Add(b.RemainingQty)
		}
	}
	return total
}

// NewestFirst ordena los lotes despachables del más reciente al más antiguo.
// Es la política de descuento vigente; la sugerencia de picking (OldestAvailable) usa el orden inverso.
func NewestFirst(batches []*entity.Batch) []*entity.Batch {
	out := make([]*entity.Batch, 0, len(batches))
	for _, b := range batches {
		if b.IsIssuable() {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.After(out[j].ReceivedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// OldestAvailable lote disponible más antiguo (sugerencia FIFO), nil si no hay.
func OldestAvailable(batches []*entity.Batch) *entity.Batch {
	var oldest *entity.Batch
	for _, b := range batches {
		if !b.IsIssuable() {
			continue
		}
		if oldest == nil || b.ReceivedAt.Before(oldest.ReceivedAt) ||
			(b.ReceivedAt.Equal(oldest.ReceivedAt) && b.ID < oldest.ID) {
			oldest = b
		}
	}
	return oldest
}

// PlanNewestFirst reparte qty entre los lotes empezando por el más reciente.
// Devuelve ErrInsufficientStock (con el saldo disponible) si no alcanza.
func PlanNewestFirst(batches []*entity.Batch, qty decimal.Decimal) ([]Deduction, error) {
	available := IssuableQty(batches)
	if available.LessThan(qty) {
		return nil, domain.NewInsufficientStock(available, qty)
	}
	pending := qty
	var plan []Deduction
	for _, b := range NewestFirst(batches) {
		if !pending.IsPositive() {
			break
		}
		take := decimal.Min(b.RemainingQty, pending)
		plan = append(plan, Deduction{Batch: b, Qty: take})
		pending = pending.Sub(take)
	}
	return plan, nil
}
