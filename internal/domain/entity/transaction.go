package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de transacción del libro mayor.
const (
	TransactionReceive    = "receive"
	TransactionIssue      = "issue"
	TransactionTransfer   = "transfer"
	TransactionWaste      = "waste"
	TransactionAdjustment = "adjustment"
	TransactionReturn     = "return"
)

// Transaction registro inmutable de un movimiento. Qty siempre >= 0; la dirección la da
// cuál de LocationFrom / LocationTo está poblado (ambos en un traslado).
type Transaction struct {
	ID           string
	Type         string
	ItemID       string
	Qty          decimal.Decimal // kg
	LocationFrom string
	LocationTo   string
	BatchID      string
	ActorID      string
	Notes        string
	CreatedAt    time.Time
}

// SignedQtyFor devuelve el efecto de la transacción sobre el saldo de locationID.
func (t *Transaction) SignedQtyFor(locationID string) decimal.Decimal {
	out := decimal.Zero
	if t.LocationTo == locationID {
		out = out.Add(t.Qty)
	}
	if t.LocationFrom == locationID {
		out = out.Sub(t.Qty)
	}
	return out
}
