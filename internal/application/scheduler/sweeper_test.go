package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/stockflow-api/internal/application/ledger"
	"github.com/jhoicas/stockflow-api/internal/application/replenishment"
	"github.com/jhoicas/stockflow-api/internal/application/routing"
	"github.com/jhoicas/stockflow-api/internal/application/scheduler"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/lock"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/notify"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemMaiz = "item-maiz"

type env struct {
	sweeper  *scheduler.Sweeper
	lock     *lock.Local
	ledger   *ledger.Service
	policies *memory.ReorderPolicyRepository
	requests *memory.RequestRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	locations := memory.NewLocationRepository()
	locations.AddLocation(entity.Location{ID: "loc-centro", Name: "Centro"})
	locations.AddLocation(entity.Location{ID: "loc-sur", Name: "Sur"})
	items := memory.NewItemRepository()
	items.Add(entity.Item{ID: itemMaiz, SKU: "MAIZ", Unit: entity.UnitKg})
	users := memory.NewUserRepository()
	users.Add(entity.User{ID: "u-admin", Role: entity.RoleAdmin, Status: entity.UserStatusActive})

	log := zerolog.Nop()
	e := &env{
		lock:     lock.NewLocal(),
		policies: memory.NewReorderPolicyRepository(),
		requests: memory.NewRequestRepository(),
	}
	escalations := memory.NewEscalationRepository()
	alerts := memory.NewAlertRepository()
	resolver := routing.NewResolver(locations, users)
	notifier := notify.NewLogNotifier(log)

	e.ledger = ledger.NewService(memory.NewBatchRepository(), memory.NewTransactionRepository(), locations, items, nil, log, ledger.Config{})
	svc := replenishment.NewRequestService(e.requests, escalations, alerts, locations, log)
	e.sweeper = scheduler.NewSweeper(
		replenishment.NewEvaluator(e.policies, e.requests, e.ledger, svc, log),
		replenishment.NewAlertEngine(e.policies, alerts, e.requests, e.ledger, resolver, notifier, log),
		replenishment.NewEscalator(e.requests, escalations, resolver, notifier, log),
		e.lock,
		log,
	)
	return e
}

func (e *env) autoPolicy(t *testing.T, locationID string) {
	t.Helper()
	require.NoError(t, e.policies.Upsert(context.Background(), &entity.ReorderPolicy{
		LocationID:         locationID,
		ItemID:             itemMaiz,
		SafetyStockQty:     decimal.NewFromInt(20),
		ReorderPointQty:    decimal.NewFromInt(50),
		TargetDaysOfCover:  2,
		AutoReorderEnabled: true,
	}))
}

func repositoryFilter(locationID string) repository.RequestFilter {
	return repository.RequestFilter{LocationID: locationID, ItemID: itemMaiz}
}

func TestSweep_NoReentrante(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	release, ok, err := e.lock.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = e.sweeper.RunEscalationSweep(ctx, time.Now())
	assert.True(t, errors.Is(err, domain.ErrSweepInProgress), "con el candado tomado el barrido se rechaza")

	release()
	report, err := e.sweeper.RunEscalationSweep(ctx, time.Now())
	require.NoError(t, err)
	assert.NotNil(t, report)

	// El barrido libera el candado al terminar
	_, ok, _ = e.lock.TryAcquire(ctx)
	assert.True(t, ok)
}

func TestSweep_AislaErroresPorPolitica(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.autoPolicy(t, "loc-centro")
	e.autoPolicy(t, "loc-borrada")

	report, err := e.sweeper.RunEscalationSweep(ctx, time.Now())
	require.NoError(t, err, "los errores individuales no abortan el barrido")

	assert.Equal(t, 2, report.Evaluation.Evaluated)
	assert.Equal(t, 1, report.Evaluation.Created, "la política válida crea su solicitud")
	require.Len(t, report.Errors(), 1)
	assert.True(t, errors.Is(report.Errors()[0], domain.ErrNotFound))
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	list, err := e.requests.List(ctx, repositoryFilter("loc-centro"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.UrgencyUrgent, list[0].Urgency, "saldo cero bajo el stock de seguridad")
	assert.Equal(t, 10, list[0].QuantityBags)
}

func TestRunner_DisparaYSeDetiene(t *testing.T) {
	e := newEnv(t)
	e.autoPolicy(t, "loc-sur")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.NewRunner(e.sweeper, 10*time.Millisecond, zerolog.Nop()).Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		list, _ := e.requests.List(context.Background(), repositoryFilter("loc-sur"))
		return len(list) == 1
	}, time.Second, 5*time.Millisecond, "el primer barrido corre de inmediato")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("el planificador no se detuvo al cancelar el contexto")
	}

	list, _ := e.requests.List(context.Background(), repositoryFilter("loc-sur"))
	assert.Len(t, list, 1, "barridos repetidos no duplican la solicitud")
}
