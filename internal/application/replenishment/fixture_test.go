package replenishment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/stockflow-api/internal/application/ledger"
	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/application/replenishment"
	"github.com/jhoicas/stockflow-api/internal/application/routing"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	zoneNorte = "zona-norte"
	locCentro = "loc-centro"
	itemMaiz  = "item-maiz"
)

var (
	t0        = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	adminUser = entity.Actor{ID: "u-admin", Role: entity.RoleAdmin}
	manager   = entity.Actor{ID: "u-gerente", Role: entity.RoleLocationManager}
	driver    = entity.Actor{ID: "u-conductor", Role: entity.RoleDriver}
	driver2   = entity.Actor{ID: "u-conductor2", Role: entity.RoleDriver}
	staffUser = entity.Actor{ID: "u-staff", Role: entity.RoleStaff}
)

type sent struct {
	UserID   string
	Template string
	Data     map[string]any
}

// recordingNotifier guarda cada notificación; fail simula caída del canal.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
	fail bool
}

func (n *recordingNotifier) Notify(_ context.Context, to ports.Recipient, template string, data map[string]any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return false
	}
	n.sent = append(n.sent, sent{UserID: to.UserID, Template: template, Data: data})
	return true
}

func (n *recordingNotifier) take() []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.sent
	n.sent = nil
	return out
}

func recipientsOf(list []sent, template string) []string {
	var ids []string
	for _, s := range list {
		if s.Template == template {
			ids = append(ids, s.UserID)
		}
	}
	return ids
}

// flakyEscalations falla los Create mientras failCreate esté activo.
type flakyEscalations struct {
	*memory.EscalationRepository
	failCreate bool
}

func (r *flakyEscalations) Create(ctx context.Context, st *entity.EscalationState) error {
	if r.failCreate {
		return errors.New("conexión reiniciada")
	}
	return r.EscalationRepository.Create(ctx, st)
}

type fixture struct {
	ledger      *ledger.Service
	requests    *replenishment.RequestService
	evaluator   *replenishment.Evaluator
	alerts      *replenishment.AlertEngine
	escalator   *replenishment.Escalator
	policies    *memory.ReorderPolicyRepository
	escalations *flakyEscalations
	alertRepo   *memory.AlertRepository
	notifier    *recordingNotifier
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	locations := memory.NewLocationRepository()
	locations.AddZone(entity.Zone{ID: zoneNorte, Name: "Norte", ManagerID: "u-zona"})
	locations.AddLocation(entity.Location{ID: locCentro, Name: "Centro", ZoneID: zoneNorte, ManagerID: "u-gerente"})
	items := memory.NewItemRepository()
	items.Add(entity.Item{ID: itemMaiz, SKU: "MAIZ", Name: "Maíz", Unit: entity.UnitKg})
	users := memory.NewUserRepository()
	for _, u := range []entity.User{
		{ID: "u-admin", Role: entity.RoleAdmin},
		{ID: "u-zona", Role: entity.RoleZoneManager, ZoneID: zoneNorte},
		{ID: "u-gerente", Role: entity.RoleLocationManager, LocationID: locCentro},
		{ID: "u-conductor", Role: entity.RoleDriver, ZoneID: zoneNorte},
		{ID: "u-conductor2", Role: entity.RoleDriver, ZoneID: zoneNorte},
		{ID: "u-staff", Role: entity.RoleStaff, LocationID: locCentro},
	} {
		u.Status = entity.UserStatusActive
		u.Email = u.ID + "@stockflow.test"
		users.Add(u)
	}

	f := &fixture{
		policies:    memory.NewReorderPolicyRepository(),
		escalations: &flakyEscalations{EscalationRepository: memory.NewEscalationRepository()},
		alertRepo:   memory.NewAlertRepository(),
		notifier:    &recordingNotifier{},
		now:         t0,
	}
	clock := func() time.Time { return f.now }
	requestRepo := memory.NewRequestRepository()
	resolver := routing.NewResolver(locations, users)
	log := zerolog.Nop()

	f.ledger = ledger.NewService(memory.NewBatchRepository(), memory.NewTransactionRepository(), locations, items, nil, log, ledger.Config{}).
		WithClock(clock)
	f.requests = replenishment.NewRequestService(requestRepo, f.escalations, f.alertRepo, locations, log).
		WithStockReceiver(replenishment.NewLedgerReceiver(f.ledger, decimal.NewFromInt(50))).
		WithClock(clock)
	f.evaluator = replenishment.NewEvaluator(f.policies, requestRepo, f.ledger, f.requests, log)
	f.alerts = replenishment.NewAlertEngine(f.policies, f.alertRepo, requestRepo, f.ledger, resolver, f.notifier, log)
	f.escalator = replenishment.NewEscalator(requestRepo, f.escalations, resolver, f.notifier, log)
	return f
}

func (f *fixture) stock(t *testing.T, qty int64) {
	t.Helper()
	_, err := f.ledger.Receive(context.Background(), ledger.ReceiveInput{
		LocationID: locCentro, ItemID: itemMaiz, SupplierID: "prov", Qty: decimal.NewFromInt(qty), Actor: staffUser,
	})
	require.NoError(t, err)
}

func (f *fixture) policy(t *testing.T, safety, reorder int64, auto bool) {
	t.Helper()
	require.NoError(t, f.policies.Upsert(context.Background(), &entity.ReorderPolicy{
		LocationID:         locCentro,
		ItemID:             itemMaiz,
		SafetyStockQty:     decimal.NewFromInt(safety),
		ReorderPointQty:    decimal.NewFromInt(reorder),
		TargetDaysOfCover:  3,
		AutoReorderEnabled: auto,
	}))
}

func (f *fixture) create(t *testing.T, urgency string, bags int) *entity.ReplenishmentRequest {
	t.Helper()
	req, err := f.requests.Create(context.Background(), replenishment.CreateRequestInput{
		LocationID: locCentro, ItemID: itemMaiz, QuantityBags: bags, Urgency: urgency, Actor: staffUser,
	})
	require.NoError(t, err)
	return req
}
