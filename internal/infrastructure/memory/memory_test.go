package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestBatchRepository_CompareAndSet(t *testing.T) {
	r := NewBatchRepository()
	ctx := context.Background()
	b := &entity.Batch{ID: "b1", ItemID: "maiz", LocationID: "centro", InitialQty: decimal.NewFromInt(10), RemainingQty: decimal.NewFromInt(10), Status: entity.BatchStatusAvailable}
	require.NoError(t, r.Create(ctx, b))
	assert.True(t, errors.Is(r.Create(ctx, b), domain.ErrDuplicate))

	// Caso 1: el valor esperado coincide
	ok, err := r.UpdateRemaining(ctx, "b1", decimal.NewFromInt(10), decimal.NewFromInt(4), entity.BatchStatusAvailable)
	require.NoError(t, err)
	assert.True(t, ok)

	// Caso 2: otra escritura se adelantó
	ok, err = r.UpdateRemaining(ctx, "b1", decimal.NewFromInt(10), decimal.NewFromInt(0), entity.BatchStatusDepleted)
	require.NoError(t, err)
	assert.False(t, ok, "el remanente ya no es 10")

	sum, err := r.SumRemaining(ctx, "centro", "maiz")
	require.NoError(t, err)
	assert.Equal(t, "4", sum.String())

	// La copia devuelta no comparte estado
	got, _ := r.GetByID(ctx, "b1")
	got.RemainingQty = decimal.NewFromInt(999)
	again, _ := r.GetByID(ctx, "b1")
	assert.Equal(t, "4", again.RemainingQty.String())
}

func TestTransactionRepository_SumaConSigno(t *testing.T) {
	r := NewTransactionRepository()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, &entity.Transaction{ID: "1", Type: entity.TransactionReceive, ItemID: "maiz", Qty: decimal.NewFromInt(50), LocationTo: "centro"}))
	require.NoError(t, r.Create(ctx, &entity.Transaction{ID: "2", Type: entity.TransactionTransfer, ItemID: "maiz", Qty: decimal.NewFromInt(20), LocationFrom: "centro", LocationTo: "sur"}))

	centro, _ := r.SumSigned(ctx, "centro", "maiz")
	sur, _ := r.SumSigned(ctx, "sur", "maiz")
	assert.Equal(t, "30", centro.String())
	assert.Equal(t, "20", sur.String())
}

func TestRequestRepository_TransicionCondicional(t *testing.T) {
	r := NewRequestRepository()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, &entity.ReplenishmentRequest{ID: "r1", LocationID: "centro", ItemID: "maiz", Status: entity.RequestStatusPending, CreatedAt: t0}))
	require.NoError(t, r.Create(ctx, &entity.ReplenishmentRequest{ID: "r2", LocationID: "centro", ItemID: "maiz", Status: entity.RequestStatusCancelled, CreatedAt: t0.Add(time.Hour)}))

	ok, err := r.Transition(ctx, "r1", entity.RequestStatusPending, entity.RequestPatch{Status: entity.RequestStatusAccepted, AcceptedBy: "u1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = r.Transition(ctx, "r1", entity.RequestStatusPending, entity.RequestPatch{Status: entity.RequestStatusAccepted, AcceptedBy: "u2"})
	assert.False(t, ok, "el segundo en llegar no afecta filas")
	got, _ := r.GetByID(ctx, "r1")
	assert.Equal(t, "u1", got.AcceptedBy)

	since := t0.Add(-time.Minute)
	list, err := r.List(ctx, repository.RequestFilter{LocationID: "centro", Statuses: entity.OpenRequestStatuses, CreatedSince: &since})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)
}

func TestEscalationRepository_AvanceCondicional(t *testing.T) {
	r := NewEscalationRepository()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, &entity.EscalationState{RequestID: "r1", NextEscalationAt: t0.Add(2 * time.Hour)}))

	due, _ := r.ListDue(ctx, t0.Add(time.Hour))
	assert.Empty(t, due)
	due, _ = r.ListDue(ctx, t0.Add(2*time.Hour))
	assert.Len(t, due, 1, "vence justo en el umbral")

	ok, _ := r.Advance(ctx, "r1", 0, 1, t0.Add(4*time.Hour), t0.Add(2*time.Hour))
	assert.True(t, ok)
	ok, _ = r.Advance(ctx, "r1", 0, 1, t0.Add(4*time.Hour), t0.Add(2*time.Hour))
	assert.False(t, ok, "otro proceso ya avanzó el nivel")

	require.NoError(t, r.Delete(ctx, "r1"))
	st, _ := r.GetByRequest(ctx, "r1")
	assert.Nil(t, st)
}

func TestAlertRepository_UnaAbiertaPorPar(t *testing.T) {
	r := NewAlertRepository()
	ctx := context.Background()
	a := &entity.LowStockAlert{ID: "a1", LocationID: "centro", ItemID: "maiz", Level: 1, DetectedAt: t0, NextEscalationAt: t0.Add(4 * time.Hour)}
	require.NoError(t, r.Create(ctx, a))
	err := r.Create(ctx, &entity.LowStockAlert{ID: "a2", LocationID: "centro", ItemID: "maiz"})
	assert.True(t, errors.Is(err, domain.ErrDuplicate))

	resolved, err := r.ResolveOpen(ctx, "centro", "maiz", entity.AlertResolvedRestocked, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, resolved)

	// Resuelta, el par admite una alerta nueva
	require.NoError(t, r.Create(ctx, &entity.LowStockAlert{ID: "a3", LocationID: "centro", ItemID: "maiz"}))
	ok, _ := r.Advance(ctx, "a1", 1, a.NextEscalationAt, 2, t0.Add(8*time.Hour), t0.Add(4*time.Hour))
	assert.False(t, ok, "una alerta resuelta no avanza")
}
