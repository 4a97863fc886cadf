package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// ReorderPolicyRepository puerto para las políticas de reorden.
type ReorderPolicyRepository interface {
	Get(ctx context.Context, locationID, itemID string) (*entity.ReorderPolicy, error)
	List(ctx context.Context) ([]*entity.ReorderPolicy, error)
	Upsert(ctx context.Context, policy *entity.ReorderPolicy) error
}
