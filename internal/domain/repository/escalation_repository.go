package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// EscalationRepository puerto de los temporizadores de solicitudes (uno por solicitud).
type EscalationRepository interface {
	// Create devuelve domain.ErrDuplicate si la solicitud ya tiene estado.
	Create(ctx context.Context, st *entity.EscalationState) error
	GetByRequest(ctx context.Context, requestID string) (*entity.EscalationState, error)
	ListDue(ctx context.Context, now time.Time) ([]*entity.EscalationState, error)
	// Advance cambia de nivel solo si el nivel actual es fromLevel.
	Advance(ctx context.Context, requestID string, fromLevel, toLevel int, next, at time.Time) (bool, error)
	Delete(ctx context.Context, requestID string) error
}
