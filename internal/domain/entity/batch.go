package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un lote.
const (
	BatchStatusAvailable  = "available"
	BatchStatusQuarantine = "quarantine" // devoluciones pendientes de inspección
	BatchStatusHold       = "hold"
	BatchStatusDepleted   = "depleted"
)

// Batch representa un lote recibido físicamente en una ubicación.
// RemainingQty solo disminuye, salvo correcciones y devoluciones; nunca se borra.
type Batch struct {
	ID           string
	ItemID       string
	LocationID   string
	SupplierID   string
	InitialQty   decimal.Decimal // kg
	RemainingQty decimal.Decimal // kg, 0 <= RemainingQty <= InitialQty
	ReceivedAt   time.Time
	Status       string
	UpdatedAt    time.Time
}

// IsDepleted indica si el lote ya no aporta saldo.
func (b *Batch) IsDepleted() bool {
	return b.Status == BatchStatusDepleted || !b.RemainingQty.IsPositive()
}

// IsIssuable indica si se puede descontar del lote (solo lotes disponibles con saldo).
func (b *Batch) IsIssuable() bool {
	return b.Status == BatchStatusAvailable && b.RemainingQty.IsPositive()
}

// StatusAfter devuelve el estado que corresponde a un nuevo saldo: depleted en cero,
// y si el lote estaba agotado y vuelve a tener saldo, available.
func (b *Batch) StatusAfter(remaining decimal.Decimal) string {
	if !remaining.IsPositive() {
		return BatchStatusDepleted
	}
	if b.Status == BatchStatusDepleted {
		return BatchStatusAvailable
	}
	return b.Status
}
