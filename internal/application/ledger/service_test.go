package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/stockflow-api/internal/application/ledger"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	locCentro = "loc-centro"
	locSur    = "loc-sur"
	itemMaiz  = "item-maiz"
)

var (
	admin = entity.Actor{ID: "u-admin", Role: entity.RoleAdmin}
	staff = entity.Actor{ID: "u-staff", Role: entity.RoleStaff}
)

// operatorsSpy guarda los avisos enviados al canal de operaciones.
type operatorsSpy struct {
	mu       sync.Mutex
	warnings []*domain.IntegrityWarning
}

func (o *operatorsSpy) ReportIntegrity(_ context.Context, w *domain.IntegrityWarning) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.warnings = append(o.warnings, w)
}

// failingTxs falla la inserción de transacciones mientras fail esté activo.
type failingTxs struct {
	*memory.TransactionRepository
	fail bool
}

func (f *failingTxs) Create(ctx context.Context, tx *entity.Transaction) error {
	if f.fail {
		return errors.New("almacenamiento no disponible")
	}
	return f.TransactionRepository.Create(ctx, tx)
}

// racingBatches simula que otra escritura se adelanta en los primeros lost updates.
type racingBatches struct {
	*memory.BatchRepository
	lost int
}

func (r *racingBatches) UpdateRemaining(ctx context.Context, id string, expected, remaining decimal.Decimal, status string) (bool, error) {
	if r.lost > 0 {
		r.lost--
		return false, nil
	}
	return r.BatchRepository.UpdateRemaining(ctx, id, expected, remaining, status)
}

type fixture struct {
	svc       *ledger.Service
	batches   *racingBatches
	txs       *failingTxs
	operators *operatorsSpy
}

func newFixture() *fixture {
	locations := memory.NewLocationRepository()
	locations.AddLocation(entity.Location{ID: locCentro, Name: "Centro"})
	locations.AddLocation(entity.Location{ID: locSur, Name: "Sur"})
	items := memory.NewItemRepository()
	items.Add(entity.Item{ID: itemMaiz, SKU: "MAIZ", Name: "Maíz", Unit: entity.UnitKg})

	f := &fixture{
		batches:   &racingBatches{BatchRepository: memory.NewBatchRepository()},
		txs:       &failingTxs{TransactionRepository: memory.NewTransactionRepository()},
		operators: &operatorsSpy{},
	}
	var mu sync.Mutex
	clock := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	f.svc = ledger.NewService(f.batches, f.txs, locations, items, f.operators, zerolog.Nop(), ledger.Config{}).
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Minute)
			return clock
		})
	return f
}

func kg(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func isInsufficient(err error) bool { return errors.Is(err, domain.ErrInsufficientStock) }

func (f *fixture) receive(t *testing.T, loc string, qty int64) string {
	t.Helper()
	res, err := f.svc.Receive(context.Background(), ledger.ReceiveInput{
		LocationID: loc, ItemID: itemMaiz, SupplierID: "prov-1", Qty: kg(qty), Actor: staff,
	})
	require.NoError(t, err)
	return res.BatchID
}

func (f *fixture) balance(t *testing.T, loc string) string {
	t.Helper()
	b, err := f.svc.GetBalance(context.Background(), loc, itemMaiz)
	require.NoError(t, err)
	return b.String()
}

func (f *fixture) assertConserved(t *testing.T, loc string) {
	t.Helper()
	rep, err := f.svc.CheckConservation(context.Background(), loc, itemMaiz)
	require.NoError(t, err)
	assert.True(t, rep.Consistent, "lotes %s vs transacciones %s", rep.BatchTotal, rep.TransactionTotal)
}

func TestIssue_DescuentaDelLoteMasReciente(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	old := f.receive(t, locCentro, 40)
	recent := f.receive(t, locCentro, 25)

	res, err := f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(10), Actor: staff})
	require.NoError(t, err)
	assert.Equal(t, recent, res.BatchID, "un solo lote tocado: se informa su ID")
	assert.Equal(t, "10", res.Qty.String())

	b, _ := f.batches.GetByID(ctx, recent)
	assert.Equal(t, "15", b.RemainingQty.String())
	b, _ = f.batches.GetByID(ctx, old)
	assert.Equal(t, "40", b.RemainingQty.String(), "el lote antiguo no se toca")

	// Caso 2: cruza lotes, sin batch_id en el resultado
	res, err = f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(20), Actor: staff})
	require.NoError(t, err)
	assert.Empty(t, res.BatchID)
	b, _ = f.batches.GetByID(ctx, recent)
	assert.Equal(t, entity.BatchStatusDepleted, b.Status)

	assert.Equal(t, "35", f.balance(t, locCentro))
	f.assertConserved(t, locCentro)
}

func TestIssue_StockInsuficiente(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.receive(t, locCentro, 20)

	// Caso 1: staff recibe el saldo disponible
	_, err := f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(30), Actor: staff})
	require.Error(t, err)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	require.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, "20", ve.Available.String())
	assert.Equal(t, "20", f.balance(t, locCentro), "el rechazo no modifica el saldo")

	// Caso 2: admin descuenta solo lo disponible y la transacción registra lo aplicado
	res, err := f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(30), Actor: admin})
	require.NoError(t, err)
	assert.Equal(t, "20", res.Qty.String())
	assert.Equal(t, "0", f.balance(t, locCentro))
	txs, _ := f.txs.ListByLocationItem(ctx, locCentro, itemMaiz)
	require.Len(t, txs, 2)
	for _, tx := range txs {
		if tx.Type == entity.TransactionIssue {
			assert.Equal(t, "20", tx.Qty.String())
		}
	}
	f.assertConserved(t, locCentro)

	// Caso 3: la merma nunca se limita, ni para admin
	_, err = f.svc.Waste(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(1), Reason: "humedad", Actor: admin})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
}

func TestValidaciones(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Receive(ctx, ledger.ReceiveInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(5), Actor: staff})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "supplier_id es obligatorio")

	_, err = f.svc.Receive(ctx, ledger.ReceiveInput{LocationID: locCentro, ItemID: itemMaiz, SupplierID: "p", Qty: kg(0), Actor: staff})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "cantidad cero")

	_, err = f.svc.Receive(ctx, ledger.ReceiveInput{LocationID: "no-existe", ItemID: itemMaiz, SupplierID: "p", Qty: kg(5), Actor: staff})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.svc.Waste(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(1), Actor: staff})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "la merma exige motivo")

	_, err = f.svc.Adjust(ctx, ledger.AdjustInput{LocationID: locCentro, ItemID: itemMaiz, SignedQty: decimal.Zero, Reason: "x", Actor: admin})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.svc.Transfer(ctx, ledger.TransferInput{FromLocationID: locCentro, ToLocationID: locCentro, ItemID: itemMaiz, Qty: kg(1), Actor: staff})
	assert.True(t, errors.Is(err, domain.ErrSameLocation))
}

func TestValidaciones_EscalaDeCantidad(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.receive(t, locCentro, 10)

	// Caso 1: más de 3 decimales no se redondea en silencio
	_, err := f.svc.Receive(ctx, ledger.ReceiveInput{LocationID: locCentro, ItemID: itemMaiz, SupplierID: "p", Qty: decimal.RequireFromString("0.0004"), Actor: staff})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "0.0004 kg no cabe en la columna")

	_, err = f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: decimal.RequireFromString("1.2345"), Actor: staff})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.svc.Adjust(ctx, ledger.AdjustInput{LocationID: locCentro, ItemID: itemMaiz, SignedQty: decimal.RequireFromString("-0.0001"), Reason: "conteo", Actor: admin})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	// Caso 2: ceros a la derecha no cuentan como decimales
	_, err = f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: decimal.RequireFromString("1.5000"), Actor: staff})
	require.NoError(t, err)
	assert.Equal(t, "8.5", f.balance(t, locCentro))

	// Caso 3: fuera del rango de NUMERIC(14,3)
	_, err = f.svc.Receive(ctx, ledger.ReceiveInput{LocationID: locCentro, ItemID: itemMaiz, SupplierID: "p", Qty: decimal.New(1, 11), Actor: staff})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	f.assertConserved(t, locCentro)
}

func TestTransfer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.receive(t, locCentro, 50)

	res, err := f.svc.Transfer(ctx, ledger.TransferInput{FromLocationID: locCentro, ToLocationID: locSur, ItemID: itemMaiz, Qty: kg(30), Actor: staff})
	require.NoError(t, err)

	dest, _ := f.batches.GetByID(ctx, res.BatchID)
	require.NotNil(t, dest)
	assert.Equal(t, locSur, dest.LocationID)
	assert.Equal(t, "prov-1", dest.SupplierID, "el lote destino hereda el proveedor")

	assert.Equal(t, "20", f.balance(t, locCentro))
	assert.Equal(t, "30", f.balance(t, locSur))
	f.assertConserved(t, locCentro)
	f.assertConserved(t, locSur)

	txs, _ := f.txs.ListByLocationItem(ctx, locSur, itemMaiz)
	require.Len(t, txs, 1, "una sola transacción para el traslado")
	assert.Equal(t, entity.TransactionTransfer, txs[0].Type)
}

func TestAdjustYReturn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	batchID := f.receive(t, locCentro, 50)

	// Caso 1: ajuste positivo abre lote, negativo descuenta
	_, err := f.svc.Adjust(ctx, ledger.AdjustInput{LocationID: locCentro, ItemID: itemMaiz, SignedQty: kg(5), Reason: "conteo", Actor: admin})
	require.NoError(t, err)
	_, err = f.svc.Adjust(ctx, ledger.AdjustInput{LocationID: locCentro, ItemID: itemMaiz, SignedQty: kg(-10), Reason: "conteo", Actor: admin})
	require.NoError(t, err)
	assert.Equal(t, "45", f.balance(t, locCentro))

	// Caso 2: devolución a lote existente no puede exceder la cantidad inicial
	_, err = f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(45), Actor: staff})
	require.NoError(t, err)
	_, err = f.svc.Return(ctx, ledger.ReturnInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(60), BatchID: batchID, Actor: staff})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	res, err := f.svc.Return(ctx, ledger.ReturnInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(10), BatchID: batchID, Actor: staff})
	require.NoError(t, err)
	b, _ := f.batches.GetByID(ctx, res.BatchID)
	assert.Equal(t, entity.BatchStatusAvailable, b.Status, "un lote agotado que recibe saldo vuelve a estar disponible")

	// Caso 3: devolución sin lote queda en cuarentena y no es despachable
	res, err = f.svc.Return(ctx, ledger.ReturnInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(7), Reason: "cliente", Actor: staff})
	require.NoError(t, err)
	b, _ = f.batches.GetByID(ctx, res.BatchID)
	assert.Equal(t, entity.BatchStatusQuarantine, b.Status)
	assert.Equal(t, "17", f.balance(t, locCentro))
	_, err = f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(11), Actor: staff})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock), "la cuarentena no se despacha")

	f.assertConserved(t, locCentro)
}

func TestSuggestFIFO(t *testing.T) {
	f := newFixture()
	old := f.receive(t, locCentro, 10)
	f.receive(t, locCentro, 10)

	b, err := f.svc.SuggestFIFO(context.Background(), locCentro, itemMaiz)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, old, b.ID, "la sugerencia es el lote más antiguo aunque el descuento use el más reciente")
}

func TestIntegrityWarning_TransaccionNoRegistrada(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.receive(t, locCentro, 30)

	f.txs.fail = true
	_, err := f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(10), Actor: staff})
	require.Error(t, err)

	var w *domain.IntegrityWarning
	require.True(t, errors.As(err, &w))
	assert.True(t, errors.Is(err, domain.ErrIntegrity))
	assert.Equal(t, "issue", w.Op)
	require.Len(t, f.operators.warnings, 1, "el aviso llega al canal de operaciones")

	// Los lotes quedaron escritos: la conservación detecta el desfase
	rep, err := f.svc.CheckConservation(ctx, locCentro, itemMaiz)
	require.NoError(t, err)
	assert.False(t, rep.Consistent)
	assert.Equal(t, "-10", rep.Drift.String())
}

func TestIssue_ReintentaTrasCarreraCAS(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.receive(t, locCentro, 30)

	f.batches.lost = 2
	res, err := f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(12), Actor: staff})
	require.NoError(t, err)
	assert.Equal(t, "12", res.Qty.String())
	assert.Equal(t, "18", f.balance(t, locCentro))
	f.assertConserved(t, locCentro)
}

func TestAdjust_PrivilegiadoSinLoteTocadoEsConflicto(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.receive(t, locCentro, 30)

	// Cada intento pierde la carrera en el primer lote: no hay nada que registrar
	f.batches.lost = ledger.DefaultCASRetries + 1
	_, err := f.svc.Adjust(ctx, ledger.AdjustInput{LocationID: locCentro, ItemID: itemMaiz, SignedQty: kg(-40), Reason: "conteo", Actor: admin})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.False(t, errors.Is(err, domain.ErrIntegrity), "sin lotes tocados no hay aviso de integridad")
	assert.Empty(t, f.operators.warnings)

	txs, _ := f.txs.ListByLocationItem(ctx, locCentro, itemMaiz)
	assert.Len(t, txs, 1, "solo la recepción; no se registra un ajuste de 0 kg")
	assert.Equal(t, "30", f.balance(t, locCentro))

	// Caso 2: sin carreras el mismo ajuste se limita al saldo
	res, err := f.svc.Adjust(ctx, ledger.AdjustInput{LocationID: locCentro, ItemID: itemMaiz, SignedQty: kg(-40), Reason: "conteo", Actor: admin})
	require.NoError(t, err)
	assert.Equal(t, "30", res.Qty.String())
	f.assertConserved(t, locCentro)
}

func TestIssue_ConcurrenteNoSobregira(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.receive(t, locCentro, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: kg(10), Actor: staff}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, ok, 10, "no se puede despachar más de lo recibido")
	bal, _ := f.svc.GetBalance(ctx, locCentro, itemMaiz)
	assert.False(t, bal.IsNegative())
	assert.Equal(t, kg(100-int64(ok)*10).String(), bal.String())
}
