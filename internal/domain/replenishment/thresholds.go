// Package replenishment contiene las reglas puras de reposición: evaluación de políticas
// de reorden y los calendarios de escalamiento de solicitudes y alertas.
// Ninguna función consulta el reloj; el tiempo actual siempre llega como parámetro.
package replenishment

import (
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// Thresholds umbrales medidos desde la creación de la solicitud (no desde el último evento).
type Thresholds struct {
	Reminder time.Duration
	Escalate time.Duration
	Expire   time.Duration
}

var thresholdsByUrgency = map[string]Thresholds{
	entity.UrgencyUrgent: {Reminder: 2 * time.Hour, Escalate: 4 * time.Hour, Expire: 8 * time.Hour},
	entity.UrgencyNormal: {Reminder: 4 * time.Hour, Escalate: 8 * time.Hour, Expire: 24 * time.Hour},
}

// ThresholdsFor devuelve los umbrales de la urgencia; una urgencia desconocida usa los de normal.
func ThresholdsFor(urgency string) Thresholds {
	if t, ok := thresholdsByUrgency[urgency]; ok {
		return t
	}
	return thresholdsByUrgency[entity.UrgencyNormal]
}

// Niveles del temporizador de una solicitud.
const (
	RequestLevelNone      = 0
	RequestLevelReminded  = 1
	RequestLevelEscalated = 2
)

// RequestStep acción que corresponde ejecutar sobre una solicitud pendiente.
type RequestStep int

const (
	StepNone RequestStep = iota
	StepRemind
	StepEscalate
	StepExpire
)

func (s RequestStep) String() string {
	switch s {
	case StepRemind:
		return "reminder"
	case StepEscalate:
		return "escalate"
	case StepExpire:
		return "expire"
	}
	return "none"
}

// NextRequestStep decide el siguiente paso según el nivel actual y el tiempo transcurrido.
// Solo avanza un nivel; el llamador repite mientras haya pasos pendientes.
func NextRequestStep(urgency string, level int, createdAt, now time.Time) RequestStep {
	t := ThresholdsFor(urgency)
	elapsed := now.Sub(createdAt)
	switch level {
	case RequestLevelNone:
		if elapsed >= t.Reminder {
			return StepRemind
		}
	case RequestLevelReminded:
		if elapsed >= t.Escalate {
			return StepEscalate
		}
	case RequestLevelEscalated:
		if elapsed >= t.Expire {
			return StepExpire
		}
	}
	return StepNone
}

// RequestNextAt instante del próximo umbral para un nivel dado.
func RequestNextAt(urgency string, level int, createdAt time.Time) time.Time {
	t := ThresholdsFor(urgency)
	switch level {
	case RequestLevelNone:
		return createdAt.Add(t.Reminder)
	case RequestLevelReminded:
		return createdAt.Add(t.Escalate)
	default:
		return createdAt.Add(t.Expire)
	}
}
