package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// ItemRepository puerto para artículos.
type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Item, error)
}
