package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// TransactionRepository puerto del registro de transacciones (solo inserción).
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	ListByLocationItem(ctx context.Context, locationID, itemID string) ([]*entity.Transaction, error)
	// SumSigned suma con signo de las transacciones que tocan el par.
	SumSigned(ctx context.Context, locationID, itemID string) (decimal.Decimal, error)
}
