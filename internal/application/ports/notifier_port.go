package ports

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain"
)

// Plantillas de notificación conocidas por el núcleo.
const (
	TemplateRequestReminder  = "request_reminder"
	TemplateRequestEscalated = "request_escalated"
	TemplateRequestExpired   = "request_expired"
	TemplateLowStockAlert    = "low_stock_alert"
	TemplateIntegrityWarning = "integrity_warning"
)

// Recipient destinatario de una notificación.
type Recipient struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// Notifier puerto de salida para notificaciones (correo, cola, etc.).
// Nunca devuelve error: informa si se entregó y el adaptador registra el fallo.
// Un fallo de entrega jamás revierte ni bloquea la transición que lo disparó.
type Notifier interface {
	Notify(ctx context.Context, to Recipient, template string, data map[string]any) bool
}

// RoleResolver responde quién debe recibir cada nivel de escalamiento de una ubicación.
type RoleResolver interface {
	LocationManagers(ctx context.Context, locationID string) ([]Recipient, error)
	// ZoneManagers devuelve el gerente de zona; si la ubicación no tiene zona, los administradores.
	ZoneManagers(ctx context.Context, locationID string) ([]Recipient, error)
	Admins(ctx context.Context) ([]Recipient, error)
	EligibleDrivers(ctx context.Context, locationID string) ([]Recipient, error)
	User(ctx context.Context, userID string) (*Recipient, error)
}

// OperatorChannel canal de operaciones para inconsistencias del libro.
// No se informa al llamador original más allá del error; aquí queda el detalle.
type OperatorChannel interface {
	ReportIntegrity(ctx context.Context, w *domain.IntegrityWarning)
}
