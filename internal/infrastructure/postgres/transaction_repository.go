package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo registro de transacciones (solo inserción) sobre PostgreSQL.
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el adaptador.
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

func (r *TransactionRepo) Create(ctx context.Context, tx *entity.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	query := `
		INSERT INTO transactions (id, type, item_id, qty, location_from, location_to, batch_id, actor_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		tx.ID, tx.Type, tx.ItemID, tx.Qty,
		nullable(tx.LocationFrom), nullable(tx.LocationTo), nullable(tx.BatchID), nullable(tx.ActorID),
		tx.Notes, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) ListByLocationItem(ctx context.Context, locationID, itemID string) ([]*entity.Transaction, error) {
	query := `
		SELECT id, type, item_id, qty, location_from, location_to, batch_id, actor_id, notes, created_at
		FROM transactions
		WHERE item_id = $2 AND (location_from = $1 OR location_to = $1)
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, locationID, itemID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	var list []*entity.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// SumSigned entradas menos salidas del par. Un traslado a la misma ubicación no existe (se rechaza antes).
func (r *TransactionRepo) SumSigned(ctx context.Context, locationID, itemID string) (decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(qty) FILTER (WHERE location_to = $1), 0) -
			COALESCE(SUM(qty) FILTER (WHERE location_from = $1), 0)
		FROM transactions
		WHERE item_id = $2 AND (location_from = $1 OR location_to = $1)`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, locationID, itemID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}
	return total, nil
}

func scanTransaction(row pgx.Row) (*entity.Transaction, error) {
	var t entity.Transaction
	var from, to, batch, actor *string
	err := row.Scan(&t.ID, &t.Type, &t.ItemID, &t.Qty, &from, &to, &batch, &actor, &t.Notes, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.LocationFrom = deref(from)
	t.LocationTo = deref(to)
	t.BatchID = deref(batch)
	t.ActorID = deref(actor)
	return &t, nil
}
