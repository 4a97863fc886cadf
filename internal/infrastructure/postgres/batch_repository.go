package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo lotes sobre PostgreSQL.
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador de lotes.
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `id, item_id, location_id, supplier_id, initial_qty, remaining_qty, received_at, status, updated_at`

func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `INSERT INTO batches (` + batchColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.ItemID, b.LocationID, nullable(b.SupplierID),
		b.InitialQty, b.RemainingQty, b.ReceivedAt, b.Status, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`
	b, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

func (r *BatchRepo) ListByLocationItem(ctx context.Context, locationID, itemID string) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches
		WHERE location_id = $1 AND item_id = $2
		ORDER BY received_at DESC, id DESC`
	rows, err := r.q.Query(ctx, query, locationID, itemID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// UpdateRemaining compare-and-set sobre remaining_qty: una sola fila, sin bloqueo explícito.
func (r *BatchRepo) UpdateRemaining(ctx context.Context, id string, expected, remaining decimal.Decimal, status string) (bool, error) {
	query := `
		UPDATE batches SET remaining_qty = $3, status = $4, updated_at = now()
		WHERE id = $1 AND remaining_qty = $2`
	tag, err := r.q.Exec(ctx, query, id, expected, remaining, status)
	if err != nil {
		return false, fmt.Errorf("update batch remaining: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BatchRepo) SumRemaining(ctx context.Context, locationID, itemID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(remaining_qty), 0) FROM batches
		WHERE location_id = $1 AND item_id = $2 AND status <> 'depleted' AND remaining_qty > 0`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, locationID, itemID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum batches: %w", err)
	}
	return total, nil
}

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var b entity.Batch
	var supplier *string
	err := row.Scan(&b.ID, &b.ItemID, &b.LocationID, &supplier,
		&b.InitialQty, &b.RemainingQty, &b.ReceivedAt, &b.Status, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.SupplierID = deref(supplier)
	return &b, nil
}
