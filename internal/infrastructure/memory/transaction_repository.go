package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository registro de transacciones en memoria (solo anexar).
type TransactionRepository struct {
	mu  sync.RWMutex
	txs []entity.Transaction
}

// NewTransactionRepository construye el repositorio vacío.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

func (r *TransactionRepository) Create(_ context.Context, tx *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, *tx)
	return nil
}

func (r *TransactionRepository) ListByLocationItem(_ context.Context, locationID, itemID string) ([]*entity.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.Transaction
	for _, t := range r.txs {
		if t.ItemID == itemID && (t.LocationFrom == locationID || t.LocationTo == locationID) {
			t := t
			list = append(list, &t)
		}
	}
	return list, nil
}

func (r *TransactionRepository) SumSigned(ctx context.Context, locationID, itemID string) (decimal.Decimal, error) {
	list, _ := r.ListByLocationItem(ctx, locationID, itemID)
	total := decimal.Zero
	for _, t := range list {
		total = total.Add(t.SignedQtyFor(locationID))
	}
	return total, nil
}
