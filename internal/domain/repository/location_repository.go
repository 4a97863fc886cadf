package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// LocationRepository puerto para ubicaciones y zonas (datos de referencia).
type LocationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	GetZone(ctx context.Context, id string) (*entity.Zone, error)
	List(ctx context.Context) ([]*entity.Location, error)
}
