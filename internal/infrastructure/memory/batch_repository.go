// Package memory implementa los puertos de persistencia en memoria. Se usa en pruebas y con
// STORAGE_DRIVER=memory. Igual que el almacenamiento remoto, solo ofrece operaciones de una fila.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.BatchRepository = (*BatchRepository)(nil)

// BatchRepository lotes en memoria.
type BatchRepository struct {
	mu      sync.RWMutex
	batches map[string]entity.Batch
}

// NewBatchRepository construye el repositorio vacío.
func NewBatchRepository() *BatchRepository {
	return &BatchRepository{batches: map[string]entity.Batch{}}
}

func (r *BatchRepository) Create(_ context.Context, b *entity.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.batches[b.ID]; ok {
		return domain.ErrDuplicate
	}
	r.batches[b.ID] = *b
	return nil
}

func (r *BatchRepository) GetByID(_ context.Context, id string) (*entity.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *BatchRepository) ListByLocationItem(_ context.Context, locationID, itemID string) ([]*entity.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.Batch
	for _, b := range r.batches {
		if b.LocationID == locationID && b.ItemID == itemID {
			b := b
			list = append(list, &b)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ReceivedAt.Before(list[j].ReceivedAt) })
	return list, nil
}

func (r *BatchRepository) UpdateRemaining(_ context.Context, id string, expected, remaining decimal.Decimal, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok || !b.RemainingQty.Equal(expected) {
		return false, nil
	}
	b.RemainingQty = remaining
	b.Status = status
	r.batches[id] = b
	return true, nil
}

func (r *BatchRepository) SumRemaining(_ context.Context, locationID, itemID string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := decimal.Zero
	for _, b := range r.batches {
		if b.LocationID == locationID && b.ItemID == itemID && b.Status != entity.BatchStatusDepleted {
			total = total.Add(b.RemainingQty)
		}
	}
	return total, nil
}
