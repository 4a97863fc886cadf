package replenishment

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/application/ledger"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// LedgerReceiver registra cada entrega confirmada como una recepción en la ubicación destino.
// El proveedor del lote queda como "request:<id>" para trazar su origen.
type LedgerReceiver struct {
	ledger   *ledger.Service
	kgPerBag decimal.Decimal
}

// NewLedgerReceiver construye el receptor; kgPerBag <= 0 usa el factor por defecto.
func NewLedgerReceiver(l *ledger.Service, kgPerBag decimal.Decimal) *LedgerReceiver {
	if !kgPerBag.IsPositive() {
		kgPerBag = decimal.NewFromInt(inventory.DefaultKgPerBag)
	}
	return &LedgerReceiver{ledger: l, kgPerBag: kgPerBag}
}

func (r *LedgerReceiver) ReceiveDelivery(ctx context.Context, req *entity.ReplenishmentRequest, bags int, actor entity.Actor) error {
	_, err := r.ledger.Receive(ctx, ledger.ReceiveInput{
		LocationID: req.LocationID,
		ItemID:     req.ItemID,
		SupplierID: "request:" + req.ID,
		Qty:        inventory.BagsToKg(bags, r.kgPerBag),
		Actor:      actor,
	})
	return err
}
