package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// RequestFilter filtro para listar solicitudes. Campos vacíos no filtran.
type RequestFilter struct {
	LocationID   string
	ItemID       string
	Statuses     []string
	CreatedSince *time.Time
	Limit        int
}

// RequestRepository puerto de persistencia de solicitudes de reposición.
type RequestRepository interface {
	Create(ctx context.Context, req *entity.ReplenishmentRequest) error
	GetByID(ctx context.Context, id string) (*entity.ReplenishmentRequest, error)
	List(ctx context.Context, f RequestFilter) ([]*entity.ReplenishmentRequest, error)
	// Transition aplica patch solo si el estado actual es from. false = 0 filas afectadas.
	Transition(ctx context.Context, id, from string, patch entity.RequestPatch) (bool, error)
}
