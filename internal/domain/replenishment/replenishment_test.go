package replenishment_test

import (
	"testing"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/replenishment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestNextRequestStep_Urgente(t *testing.T) {
	cases := []struct {
		name    string
		level   int
		elapsed time.Duration
		want    replenishment.RequestStep
	}{
		{"antes del recordatorio", replenishment.RequestLevelNone, 119 * time.Minute, replenishment.StepNone},
		{"recordatorio a las 2h", replenishment.RequestLevelNone, 2 * time.Hour, replenishment.StepRemind},
		{"escalamiento a las 4h", replenishment.RequestLevelReminded, 4 * time.Hour, replenishment.StepEscalate},
		{"aún no escala", replenishment.RequestLevelReminded, 3 * time.Hour, replenishment.StepNone},
		{"expira a las 8h", replenishment.RequestLevelEscalated, 8 * time.Hour, replenishment.StepExpire},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := replenishment.NextRequestStep(entity.UrgencyUrgent, tc.level, created, created.Add(tc.elapsed))
			assert.Equal(t, tc.want, got, "paso esperado %s", tc.want)
		})
	}
}

func TestThresholds_Normal(t *testing.T) {
	th := replenishment.ThresholdsFor(entity.UrgencyNormal)
	assert.Equal(t, 4*time.Hour, th.Reminder)
	assert.Equal(t, 8*time.Hour, th.Escalate)
	assert.Equal(t, 24*time.Hour, th.Expire)

	// Urgencia desconocida usa los umbrales normales
	assert.Equal(t, th, replenishment.ThresholdsFor("critica"))

	// Los umbrales se miden desde la creación
	assert.Equal(t, created.Add(8*time.Hour), replenishment.RequestNextAt(entity.UrgencyNormal, replenishment.RequestLevelReminded, created))
	assert.Equal(t, created.Add(24*time.Hour), replenishment.RequestNextAt(entity.UrgencyNormal, replenishment.RequestLevelEscalated, created))
}

func TestEvaluate(t *testing.T) {
	fixed := 40
	p := &entity.ReorderPolicy{
		SafetyStockQty:    decimal.NewFromInt(20),
		ReorderPointQty:   decimal.NewFromInt(50),
		TargetDaysOfCover: 1,
	}

	// Caso 1: en el punto de reorden no hay faltante
	assert.False(t, replenishment.Evaluate(p, decimal.NewFromInt(50)).Shortage)

	// Caso 2: bajo reorden, normal, con el mínimo de 10 bolsas
	d := replenishment.Evaluate(p, decimal.NewFromInt(40))
	require.True(t, d.Shortage)
	assert.Equal(t, entity.UrgencyNormal, d.Urgency)
	assert.Equal(t, replenishment.MinOrderBags, d.QuantityBags)

	// Caso 3: bajo seguridad es urgente
	d = replenishment.Evaluate(p, decimal.NewFromInt(19))
	assert.Equal(t, entity.UrgencyUrgent, d.Urgency)

	// Caso 4: días de cobertura y cantidad fija
	p.TargetDaysOfCover = 7
	assert.Equal(t, 35, replenishment.OrderBags(p))
	p.FixedOrderBags = &fixed
	assert.Equal(t, 40, replenishment.OrderBags(p))
}

func TestNextAlertStep(t *testing.T) {
	detected := created
	a := &entity.LowStockAlert{
		Level:            entity.AlertLevelLocationManager,
		DetectedAt:       detected,
		NextEscalationAt: replenishment.AlertFirstNextAt(detected),
	}

	// Caso 1: antes de 4h no hay paso
	_, ok := replenishment.NextAlertStep(a, detected.Add(3*time.Hour))
	assert.False(t, ok)

	// Caso 2: a las 4h pasa a gerente de zona con vencimiento a las 8h
	step, ok := replenishment.NextAlertStep(a, detected.Add(4*time.Hour))
	require.True(t, ok)
	assert.Equal(t, entity.AlertLevelZoneManager, step.Level)
	assert.Equal(t, detected.Add(8*time.Hour), step.NextAt)

	// Caso 3: nivel 2 pasa a admin
	a.Level, a.NextEscalationAt = step.Level, step.NextAt
	step, ok = replenishment.NextAlertStep(a, detected.Add(8*time.Hour))
	require.True(t, ok)
	assert.Equal(t, entity.AlertLevelAdmin, step.Level)
	assert.False(t, step.Repeat)
	assert.Equal(t, detected.Add(32*time.Hour), step.NextAt)

	// Caso 4: repeticiones perdidas se colapsan en una
	a.Level, a.NextEscalationAt = step.Level, step.NextAt
	step, ok = replenishment.NextAlertStep(a, detected.Add(100*time.Hour))
	require.True(t, ok)
	assert.True(t, step.Repeat)
	assert.Equal(t, detected.Add(104*time.Hour), step.NextAt, "el próximo vencimiento es el primer múltiplo posterior a now")

	// Caso 5: resuelta no avanza
	a.IsResolved = true
	_, ok = replenishment.NextAlertStep(a, detected.Add(200*time.Hour))
	assert.False(t, ok)
}
