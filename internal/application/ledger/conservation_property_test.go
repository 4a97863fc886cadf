package ledger_test

import (
	"context"
	"testing"

	"github.com/jhoicas/stockflow-api/internal/application/ledger"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConservacion_SecuenciasArbitrarias cualquier secuencia de operaciones mantiene
// Σ remanentes = Σ transacciones con signo en ambas ubicaciones, y el saldo nunca es negativo.
func TestConservacion_SecuenciasArbitrarias(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("el libro conserva el saldo", prop.ForAll(
		func(ops []int) bool {
			f := newFixture()
			ctx := context.Background()
			for _, op := range ops {
				qty := kg(int64(op/5 + 1))
				var err error
				switch op % 5 {
				case 0:
					_, err = f.svc.Receive(ctx, ledger.ReceiveInput{LocationID: locCentro, ItemID: itemMaiz, SupplierID: "p", Qty: qty, Actor: staff})
				case 1:
					_, err = f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: qty, Actor: admin})
				case 2:
					_, err = f.svc.Transfer(ctx, ledger.TransferInput{FromLocationID: locCentro, ToLocationID: locSur, ItemID: itemMaiz, Qty: qty, Actor: staff})
				case 3:
					_, err = f.svc.Waste(ctx, ledger.MovementInput{LocationID: locSur, ItemID: itemMaiz, Qty: qty, Reason: "merma", Actor: staff})
				case 4:
					_, err = f.svc.Return(ctx, ledger.ReturnInput{LocationID: locSur, ItemID: itemMaiz, Qty: qty, Actor: staff})
				}
				// Rechazos por stock son válidos; cualquier otro error rompe la propiedad.
				if err != nil && !isInsufficient(err) {
					return false
				}
			}
			for _, loc := range []string{locCentro, locSur} {
				rep, err := f.svc.CheckConservation(ctx, loc, itemMaiz)
				if err != nil || !rep.Consistent || rep.BatchTotal.IsNegative() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 249)),
	))

	properties.TestingRun(t)
}
