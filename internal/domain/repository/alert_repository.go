package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// AlertRepository puerto de alertas de stock bajo.
type AlertRepository interface {
	// Create devuelve domain.ErrDuplicate si ya hay una alerta sin resolver para el par.
	Create(ctx context.Context, a *entity.LowStockAlert) error
	GetOpen(ctx context.Context, locationID, itemID string) (*entity.LowStockAlert, error)
	ListOpen(ctx context.Context) ([]*entity.LowStockAlert, error)
	// Advance solo aplica si la alerta sigue sin resolver, en fromLevel y con el vencimiento fromNext.
	Advance(ctx context.Context, id string, fromLevel int, fromNext time.Time, toLevel int, next, at time.Time) (bool, error)
	// ResolveOpen marca resuelta la alerta abierta del par, si existe.
	ResolveOpen(ctx context.Context, locationID, itemID, reason string, at time.Time) (bool, error)
}
