package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BatchRepository puerto de persistencia para lotes. Cada método es una operación de una sola fila
// o una lectura filtrada; no hay transacciones entre filas.
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.Batch) error
	GetByID(ctx context.Context, id string) (*entity.Batch, error)
	ListByLocationItem(ctx context.Context, locationID, itemID string) ([]*entity.Batch, error)
	// UpdateRemaining actualiza remanente y estado solo si el remanente actual sigue siendo expected.
	// Devuelve false si otra escritura se adelantó (0 filas afectadas).
	UpdateRemaining(ctx context.Context, id string, expected, remaining decimal.Decimal, status string) (bool, error)
	// SumRemaining saldo en mano del par (lotes no agotados).
	SumRemaining(ctx context.Context, locationID, itemID string) (decimal.Decimal, error)
}
