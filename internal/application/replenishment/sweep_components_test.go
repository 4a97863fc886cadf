package replenishment_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/stockflow-api/internal/application/ledger"
	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscalator_UrgenteNivelPorNivel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, entity.UrgencyUrgent, 10)

	// Caso 1: antes de 2h no hay nada vencido
	res := f.escalator.Run(ctx, t0.Add(119*time.Minute))
	assert.Zero(t, res.Due)
	assert.Empty(t, f.notifier.take())

	// Caso 2: recordatorio a conductores de la zona
	res = f.escalator.Run(ctx, t0.Add(2*time.Hour))
	assert.Equal(t, 1, res.Reminded)
	assert.ElementsMatch(t, []string{"u-conductor", "u-conductor2"}, recipientsOf(f.notifier.take(), ports.TemplateRequestReminder))

	// Caso 3: escalamiento al gerente de zona
	res = f.escalator.Run(ctx, t0.Add(4*time.Hour))
	assert.Equal(t, 1, res.Escalated)
	assert.Equal(t, []string{"u-zona"}, recipientsOf(f.notifier.take(), ports.TemplateRequestEscalated))

	// Caso 4: vence y se avisa a quien la pidió
	res = f.escalator.Run(ctx, t0.Add(8*time.Hour))
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, []string{"u-staff"}, recipientsOf(f.notifier.take(), ports.TemplateRequestExpired))

	got, err := f.requests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusExpired, got.Status)
	st, _ := f.escalations.GetByRequest(ctx, req.ID)
	assert.Nil(t, st)
}

func TestEscalator_PonerseAlDiaEnUnSoloPase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, entity.UrgencyNormal, 10)

	// Un barrido tardío ejecuta recordatorio, escalamiento y vencimiento en orden
	res := f.escalator.Run(ctx, t0.Add(25*time.Hour))
	assert.Equal(t, 1, res.Reminded)
	assert.Equal(t, 1, res.Escalated)
	assert.Equal(t, 1, res.Expired)
	assert.Empty(t, res.Errors)

	var order []string
	for _, s := range f.notifier.take() {
		if len(order) == 0 || order[len(order)-1] != s.Template {
			order = append(order, s.Template)
		}
	}
	assert.Equal(t, []string{ports.TemplateRequestReminder, ports.TemplateRequestEscalated, ports.TemplateRequestExpired}, order)

	// Repetir el barrido no vuelve a notificar
	res = f.escalator.Run(ctx, t0.Add(25*time.Hour))
	assert.Zero(t, res.Due)
	assert.Empty(t, f.notifier.take())
}

func TestEscalator_FalloDeNotificacionNoBloquea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, entity.UrgencyUrgent, 10)

	f.notifier.fail = true
	res := f.escalator.Run(ctx, t0.Add(2*time.Hour))
	assert.Equal(t, 1, res.Reminded, "el nivel avanza aunque la notificación falle")
	assert.Empty(t, res.Errors)

	st, _ := f.escalations.GetByRequest(ctx, req.ID)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.Level)
}

func TestEscalator_AceptadaNoEscala(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, entity.UrgencyUrgent, 10)
	_, err := f.requests.Accept(ctx, req.ID, driver)
	require.NoError(t, err)

	res := f.escalator.Run(ctx, t0.Add(9*time.Hour))
	assert.Zero(t, res.Expired)
	got, _ := f.requests.Get(ctx, req.ID)
	assert.Equal(t, entity.RequestStatusAccepted, got.Status)
}

func TestEscalator_ReponeTemporizadorPerdido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.escalations.failCreate = true
	req := f.create(t, entity.UrgencyUrgent, 10)
	f.escalations.failCreate = false
	st, _ := f.escalations.GetByRequest(ctx, req.ID)
	require.Nil(t, st, "la solicitud queda creada sin temporizador")

	// Caso 1: el primer barrido repone el nivel 0 contado desde created_at
	res := f.escalator.Run(ctx, t0.Add(time.Hour))
	assert.Equal(t, 1, res.Repaired)
	assert.Zero(t, res.Due)
	assert.Empty(t, res.Errors)
	st, _ = f.escalations.GetByRequest(ctx, req.ID)
	require.NotNil(t, st)
	assert.Equal(t, 0, st.Level)
	assert.True(t, t0.Add(2*time.Hour).Equal(st.NextEscalationAt))

	// Caso 2: ya tiene temporizador, no se repone dos veces
	res = f.escalator.Run(ctx, t0.Add(90*time.Minute))
	assert.Zero(t, res.Repaired)
}

func TestEscalator_SolicitudSinTemporizadorVence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.escalations.failCreate = true
	req := f.create(t, entity.UrgencyUrgent, 10)
	f.escalations.failCreate = false

	// Un barrido muy tardío repone el temporizador y lo lleva hasta el vencimiento en el mismo pase
	res := f.escalator.Run(ctx, t0.Add(48*time.Hour))
	assert.Equal(t, 1, res.Repaired)
	assert.Equal(t, 1, res.Reminded)
	assert.Equal(t, 1, res.Escalated)
	assert.Equal(t, 1, res.Expired)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{"u-staff"}, recipientsOf(f.notifier.take(), ports.TemplateRequestExpired))

	got, err := f.requests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusExpired, got.Status)
	st, _ := f.escalations.GetByRequest(ctx, req.ID)
	assert.Nil(t, st, "el temporizador se elimina al vencer")
}

func TestEvaluator_Idempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, 20, 50, true)
	f.stock(t, 120)

	// Caso 1: sobre el punto de reorden no crea nada
	res := f.evaluator.Run(ctx, t0)
	assert.Equal(t, 1, res.Evaluated)
	assert.Zero(t, res.Created)

	// Caso 2: 120 → 40 kg, bajo reorden 50
	_, err := f.ledger.Issue(ctx, ledger.MovementInput{LocationID: locCentro, ItemID: itemMaiz, Qty: decimal.NewFromInt(80), Actor: staffUser})
	require.NoError(t, err)
	res = f.evaluator.Run(ctx, t0.Add(time.Minute))
	assert.Equal(t, 1, res.Created)

	// Caso 3: repetir no duplica
	res = f.evaluator.Run(ctx, t0.Add(2*time.Minute))
	assert.Zero(t, res.Created)
	assert.Equal(t, 1, res.Suppressed)

	// Caso 4: pasada la ventana de 48h sí se crea otra
	res = f.evaluator.Run(ctx, t0.Add(49*time.Hour))
	assert.Equal(t, 1, res.Created)
}

func TestEvaluator_IgnoraPoliticasManuales(t *testing.T) {
	f := newFixture(t)
	f.policy(t, 20, 50, false)

	res := f.evaluator.Run(context.Background(), t0)
	assert.Zero(t, res.Evaluated)
	assert.Zero(t, res.Created)
}

func TestAlertEngine_CalendarioCompleto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, 20, 50, false)
	f.stock(t, 40)

	res := f.alerts.Run(ctx, t0)
	assert.Equal(t, 1, res.Opened)
	assert.Equal(t, []string{"u-gerente"}, recipientsOf(f.notifier.take(), ports.TemplateLowStockAlert))

	// Una sola alerta abierta por par
	res = f.alerts.Run(ctx, t0.Add(time.Hour))
	assert.Zero(t, res.Opened)
	assert.Len(t, f.alertRepo.All(), 1)

	res = f.alerts.Run(ctx, t0.Add(4*time.Hour))
	assert.Equal(t, 1, res.Escalated)
	assert.Equal(t, []string{"u-zona"}, recipientsOf(f.notifier.take(), ports.TemplateLowStockAlert))

	res = f.alerts.Run(ctx, t0.Add(8*time.Hour))
	assert.Equal(t, 1, res.Escalated)
	assert.Equal(t, []string{"u-admin"}, recipientsOf(f.notifier.take(), ports.TemplateLowStockAlert))

	// Repeticiones perdidas se colapsan en una
	res = f.alerts.Run(ctx, t0.Add(100*time.Hour))
	assert.Equal(t, 1, res.Repeated)
	assert.Len(t, f.notifier.take(), 1)
	open, _ := f.alertRepo.GetOpen(ctx, locCentro, itemMaiz)
	require.NotNil(t, open)
	assert.Equal(t, t0.Add(104*time.Hour), open.NextEscalationAt)
}

func TestAlertEngine_ReposicionResuelveAntesDeEscalar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, 20, 50, false)
	f.stock(t, 40)
	f.alerts.Run(ctx, t0)
	f.notifier.take()

	f.stock(t, 100)
	res := f.alerts.Run(ctx, t0.Add(5*time.Hour))
	assert.Equal(t, 1, res.Resolved)
	assert.Zero(t, res.Escalated, "la alerta resuelta no escala en el mismo pase")
	assert.Empty(t, f.notifier.take())

	all := f.alertRepo.All()
	require.Len(t, all, 1)
	assert.True(t, all[0].IsResolved)
	assert.Equal(t, entity.AlertResolvedRestocked, all[0].ResolvedReason)
}

func TestAlertEngine_SolicitudResuelveYEvitaAlertas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, 20, 50, false)
	f.stock(t, 10)
	f.alerts.Run(ctx, t0)

	// Crear la solicitud resuelve la alerta abierta del par
	f.create(t, entity.UrgencyUrgent, 10)
	all := f.alertRepo.All()
	require.Len(t, all, 1)
	assert.Equal(t, entity.AlertResolvedRequestCreated, all[0].ResolvedReason)

	// Con la solicitud abierta no se abre otra alerta
	res := f.alerts.Run(ctx, t0.Add(time.Hour))
	assert.Zero(t, res.Opened)
}
