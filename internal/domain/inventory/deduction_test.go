package inventory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func batch(id string, remaining int64, receivedAt time.Time, status string) *entity.Batch {
	return &entity.Batch{
		ID:           id,
		ItemID:       "maiz",
		LocationID:   "centro",
		InitialQty:   decimal.NewFromInt(remaining),
		RemainingQty: decimal.NewFromInt(remaining),
		ReceivedAt:   receivedAt,
		Status:       status,
	}
}

func TestBalanceEIssuable(t *testing.T) {
	batches := []*entity.Batch{
		batch("a", 30, t0, entity.BatchStatusAvailable),
		batch("b", 20, t0.Add(time.Hour), entity.BatchStatusQuarantine),
		batch("c", 0, t0.Add(2*time.Hour), entity.BatchStatusDepleted),
	}

	// Caso 1: el saldo incluye cuarentena, lo despachable no
	assert.Equal(t, "50", inventory.Balance(batches).String(), "el saldo suma todos los lotes con remanente")
	assert.Equal(t, "30", inventory.IssuableQty(batches).String(), "solo los lotes disponibles son despachables")

	// Caso 2: sin lotes
	assert.True(t, inventory.Balance(nil).IsZero())
}

func TestPlanNewestFirst_DescuentaDelMasReciente(t *testing.T) {
	old := batch("viejo", 40, t0, entity.BatchStatusAvailable)
	mid := batch("medio", 25, t0.Add(24*time.Hour), entity.BatchStatusAvailable)
	recent := batch("nuevo", 10, t0.Add(48*time.Hour), entity.BatchStatusAvailable)

	plan, err := inventory.PlanNewestFirst([]*entity.Batch{old, mid, recent}, decimal.NewFromInt(30))
	require.NoError(t, err)
	require.Len(t, plan, 2, "30 kg se cubren con el lote nuevo y parte del medio")

	assert.Equal(t, "nuevo", plan[0].Batch.ID)
	assert.Equal(t, "10", plan[0].Qty.String())
	assert.Equal(t, "medio", plan[1].Batch.ID)
	assert.Equal(t, "20", plan[1].Qty.String())
}

func TestPlanNewestFirst_SinStockSuficiente(t *testing.T) {
	batches := []*entity.Batch{
		batch("a", 15, t0, entity.BatchStatusAvailable),
		batch("b", 100, t0, entity.BatchStatusHold),
	}

	plan, err := inventory.PlanNewestFirst(batches, decimal.NewFromInt(20))
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	require.NotNil(t, ve.Available)
	assert.Equal(t, "15", ve.Available.String(), "el error reporta el saldo despachable")
}

func TestOldestAvailable(t *testing.T) {
	// Caso 1: ignora cuarentena aunque sea más antiguo
	q := batch("q", 10, t0.Add(-time.Hour), entity.BatchStatusQuarantine)
	a := batch("a", 10, t0, entity.BatchStatusAvailable)
	b := batch("b", 10, t0.Add(time.Hour), entity.BatchStatusAvailable)
	got := inventory.OldestAvailable([]*entity.Batch{b, q, a})
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ID)

	// Caso 2: empate de fecha, gana el ID menor
	x := batch("x", 5, t0, entity.BatchStatusAvailable)
	got = inventory.OldestAvailable([]*entity.Batch{x, a})
	assert.Equal(t, "a", got.ID)

	// Caso 3: nada disponible
	assert.Nil(t, inventory.OldestAvailable([]*entity.Batch{q}))
}

func TestConversionBolsas(t *testing.T) {
	kgPerBag := decimal.NewFromInt(inventory.DefaultKgPerBag)
	assert.Equal(t, "200", inventory.BagsToKg(4, kgPerBag).String())
	assert.Equal(t, 2, inventory.KgToBags(decimal.NewFromInt(149), kgPerBag), "se redondea hacia abajo")
	assert.Equal(t, 0, inventory.KgToBags(decimal.NewFromInt(100), decimal.Zero))
}
