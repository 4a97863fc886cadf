package replenishment

import (
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// Calendario de la alerta de stock bajo, medido desde la detección.
const (
	AlertZoneManagerAfter = 4 * time.Hour
	AlertAdminAfter       = 8 * time.Hour
	AlertRepeatEvery      = 24 * time.Hour
)

// AlertStep siguiente nivel de una alerta vencida.
type AlertStep struct {
	Level  int
	Repeat bool // nivel 3 que se repite
	NextAt time.Time
}

// AlertFirstNextAt próximo vencimiento de una alerta recién abierta (nivel 1).
func AlertFirstNextAt(detectedAt time.Time) time.Time {
	return detectedAt.Add(AlertZoneManagerAfter)
}

// NextAlertStep devuelve el paso a ejecutar si la alerta está vencida en now.
// En nivel 3 el próximo vencimiento es el primer múltiplo de 24h estrictamente posterior a now,
// de modo que las repeticiones perdidas se colapsan en una sola.
func NextAlertStep(a *entity.LowStockAlert, now time.Time) (AlertStep, bool) {
	if a.IsResolved || now.Before(a.NextEscalationAt) {
		return AlertStep{}, false
	}
	switch a.Level {
	case entity.AlertLevelLocationManager:
		return AlertStep{Level: entity.AlertLevelZoneManager, NextAt: a.DetectedAt.Add(AlertAdminAfter)}, true
	case entity.AlertLevelZoneManager:
		return AlertStep{Level: entity.AlertLevelAdmin, NextAt: a.DetectedAt.Add(AlertAdminAfter + AlertRepeatEvery)}, true
	default:
		next := a.NextEscalationAt
		for !next.After(now) {
			next = next.Add(AlertRepeatEvery)
		}
		return AlertStep{Level: entity.AlertLevelAdmin, Repeat: true, NextAt: next}, true
	}
}
