package entity

import "time"

// EscalationState temporizador de una solicitud pendiente. Existe como máximo uno por solicitud
// y se elimina cuando la solicitud deja de estar pendiente.
type EscalationState struct {
	RequestID        string
	Level            int // 0 = sin notificar, 1 = recordatorio, 2 = escalada
	NextEscalationAt time.Time
	LastEscalationAt *time.Time
	CreatedAt        time.Time
}
