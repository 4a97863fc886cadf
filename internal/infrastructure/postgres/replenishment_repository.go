package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

var (
	_ repository.ReorderPolicyRepository = (*ReorderPolicyRepo)(nil)
	_ repository.RequestRepository       = (*RequestRepo)(nil)
	_ repository.EscalationRepository    = (*EscalationRepo)(nil)
	_ repository.AlertRepository         = (*AlertRepo)(nil)
)

// ReorderPolicyRepo políticas de reorden sobre PostgreSQL.
type ReorderPolicyRepo struct {
	q Querier
}

// NewReorderPolicyRepository construye el adaptador.
func NewReorderPolicyRepository(q Querier) *ReorderPolicyRepo {
	return &ReorderPolicyRepo{q: q}
}

const policyColumns = `location_id, item_id, safety_stock_qty, reorder_point_qty, target_days_of_cover, fixed_order_bags, auto_reorder_enabled, updated_at`

func (r *ReorderPolicyRepo) Get(ctx context.Context, locationID, itemID string) (*entity.ReorderPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM reorder_policies WHERE location_id = $1 AND item_id = $2`
	p, err := scanPolicy(r.q.QueryRow(ctx, query, locationID, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reorder policy: %w", err)
	}
	return p, nil
}

func (r *ReorderPolicyRepo) List(ctx context.Context) ([]*entity.ReorderPolicy, error) {
	rows, err := r.q.Query(ctx, `SELECT `+policyColumns+` FROM reorder_policies ORDER BY location_id, item_id`)
	if err != nil {
		return nil, fmt.Errorf("list reorder policies: %w", err)
	}
	defer rows.Close()
	var list []*entity.ReorderPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reorder policy: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ReorderPolicyRepo) Upsert(ctx context.Context, p *entity.ReorderPolicy) error {
	query := `
		INSERT INTO reorder_policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (location_id, item_id) DO UPDATE SET
			safety_stock_qty = EXCLUDED.safety_stock_qty,
			reorder_point_qty = EXCLUDED.reorder_point_qty,
			target_days_of_cover = EXCLUDED.target_days_of_cover,
			fixed_order_bags = EXCLUDED.fixed_order_bags,
			auto_reorder_enabled = EXCLUDED.auto_reorder_enabled,
			updated_at = now()`
	_, err := r.q.Exec(ctx, query, p.LocationID, p.ItemID, p.SafetyStockQty, p.ReorderPointQty,
		p.TargetDaysOfCover, p.FixedOrderBags, p.AutoReorderEnabled)
	if err != nil {
		return fmt.Errorf("upsert reorder policy: %w", err)
	}
	return nil
}

func scanPolicy(row pgx.Row) (*entity.ReorderPolicy, error) {
	var p entity.ReorderPolicy
	err := row.Scan(&p.LocationID, &p.ItemID, &p.SafetyStockQty, &p.ReorderPointQty,
		&p.TargetDaysOfCover, &p.FixedOrderBags, &p.AutoReorderEnabled, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RequestRepo solicitudes de reposición sobre PostgreSQL.
type RequestRepo struct {
	q Querier
}

// NewRequestRepository construye el adaptador.
func NewRequestRepository(q Querier) *RequestRepo {
	return &RequestRepo{q: q}
}

const requestColumns = `id, location_id, item_id, quantity_bags, delivered_bags, urgency, status,
	requested_by, accepted_by, trip_id, cancel_reason, created_at, updated_at`

func (r *RequestRepo) Create(ctx context.Context, req *entity.ReplenishmentRequest) error {
	query := `INSERT INTO replenishment_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		req.ID, req.LocationID, req.ItemID, req.QuantityBags, req.DeliveredBags, req.Urgency, req.Status,
		nullable(req.RequestedBy), nullable(req.AcceptedBy), nullable(req.TripID), req.CancelReason,
		req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (r *RequestRepo) GetByID(ctx context.Context, id string) (*entity.ReplenishmentRequest, error) {
	req, err := scanRequest(r.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM replenishment_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

func (r *RequestRepo) List(ctx context.Context, f repository.RequestFilter) ([]*entity.ReplenishmentRequest, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.LocationID != "" {
		add("location_id = $%d", f.LocationID)
	}
	if f.ItemID != "" {
		add("item_id = $%d", f.ItemID)
	}
	if len(f.Statuses) > 0 {
		add("status = ANY($%d)", f.Statuses)
	}
	if f.CreatedSince != nil {
		add("created_at >= $%d", *f.CreatedSince)
	}
	query := `SELECT ` + requestColumns + ` FROM replenishment_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()
	var list []*entity.ReplenishmentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		list = append(list, req)
	}
	return list, rows.Err()
}

// Transition UPDATE condicionado al estado actual; 0 filas = otro actor se adelantó.
func (r *RequestRepo) Transition(ctx context.Context, id, from string, patch entity.RequestPatch) (bool, error) {
	query := `
		UPDATE replenishment_requests SET
			status = $3,
			accepted_by = COALESCE($4, accepted_by),
			trip_id = COALESCE($5, trip_id),
			cancel_reason = COALESCE($6, cancel_reason),
			delivered_bags = COALESCE($7, delivered_bags),
			updated_at = $8
		WHERE id = $1 AND status = $2`
	tag, err := r.q.Exec(ctx, query, id, from, patch.Status,
		nullable(patch.AcceptedBy), nullable(patch.TripID), nullable(patch.CancelReason), patch.DeliveredBags,
		patch.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("transition request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanRequest(row pgx.Row) (*entity.ReplenishmentRequest, error) {
	var req entity.ReplenishmentRequest
	var requestedBy, acceptedBy, tripID *string
	err := row.Scan(&req.ID, &req.LocationID, &req.ItemID, &req.QuantityBags, &req.DeliveredBags,
		&req.Urgency, &req.Status, &requestedBy, &acceptedBy, &tripID, &req.CancelReason,
		&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	req.RequestedBy = deref(requestedBy)
	req.AcceptedBy = deref(acceptedBy)
	req.TripID = deref(tripID)
	return &req, nil
}

// EscalationRepo temporizadores de solicitudes sobre PostgreSQL.
type EscalationRepo struct {
	q Querier
}

// NewEscalationRepository construye el adaptador.
func NewEscalationRepository(q Querier) *EscalationRepo {
	return &EscalationRepo{q: q}
}

const escalationColumns = `request_id, level, next_escalation_at, last_escalation_at, created_at`

func (r *EscalationRepo) Create(ctx context.Context, st *entity.EscalationState) error {
	query := `INSERT INTO escalation_states (` + escalationColumns + `) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, query, st.RequestID, st.Level, st.NextEscalationAt, st.LastEscalationAt, st.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert escalation state: %w", err)
	}
	return nil
}

func (r *EscalationRepo) GetByRequest(ctx context.Context, requestID string) (*entity.EscalationState, error) {
	st, err := scanEscalation(r.q.QueryRow(ctx, `SELECT `+escalationColumns+` FROM escalation_states WHERE request_id = $1`, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get escalation state: %w", err)
	}
	return st, nil
}

func (r *EscalationRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.EscalationState, error) {
	rows, err := r.q.Query(ctx, `SELECT `+escalationColumns+` FROM escalation_states
		WHERE next_escalation_at <= $1 ORDER BY next_escalation_at`, now)
	if err != nil {
		return nil, fmt.Errorf("list due escalations: %w", err)
	}
	defer rows.Close()
	var list []*entity.EscalationState
	for rows.Next() {
		st, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escalation state: %w", err)
		}
		list = append(list, st)
	}
	return list, rows.Err()
}

func (r *EscalationRepo) Advance(ctx context.Context, requestID string, fromLevel, toLevel int, next, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE escalation_states SET level = $3, next_escalation_at = $4, last_escalation_at = $5
		WHERE request_id = $1 AND level = $2`, requestID, fromLevel, toLevel, next, at)
	if err != nil {
		return false, fmt.Errorf("advance escalation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EscalationRepo) Delete(ctx context.Context, requestID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM escalation_states WHERE request_id = $1`, requestID); err != nil {
		return fmt.Errorf("delete escalation state: %w", err)
	}
	return nil
}

func scanEscalation(row pgx.Row) (*entity.EscalationState, error) {
	var st entity.EscalationState
	if err := row.Scan(&st.RequestID, &st.Level, &st.NextEscalationAt, &st.LastEscalationAt, &st.CreatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// AlertRepo alertas de stock bajo sobre PostgreSQL. El índice único parcial garantiza una sola abierta por par.
type AlertRepo struct {
	q Querier
}

// NewAlertRepository construye el adaptador.
func NewAlertRepository(q Querier) *AlertRepo {
	return &AlertRepo{q: q}
}

const alertColumns = `id, location_id, item_id, level, detected_at, next_escalation_at, last_escalation_at,
	is_resolved, resolved_at, resolved_reason`

func (r *AlertRepo) Create(ctx context.Context, a *entity.LowStockAlert) error {
	query := `INSERT INTO low_stock_alerts (` + alertColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query, a.ID, a.LocationID, a.ItemID, a.Level, a.DetectedAt, a.NextEscalationAt,
		a.LastEscalationAt, a.IsResolved, a.ResolvedAt, nullable(a.ResolvedReason))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert low stock alert: %w", err)
	}
	return nil
}

func (r *AlertRepo) GetOpen(ctx context.Context, locationID, itemID string) (*entity.LowStockAlert, error) {
	a, err := scanAlert(r.q.QueryRow(ctx, `SELECT `+alertColumns+` FROM low_stock_alerts
		WHERE location_id = $1 AND item_id = $2 AND NOT is_resolved`, locationID, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open alert: %w", err)
	}
	return a, nil
}

func (r *AlertRepo) ListOpen(ctx context.Context) ([]*entity.LowStockAlert, error) {
	rows, err := r.q.Query(ctx, `SELECT `+alertColumns+` FROM low_stock_alerts WHERE NOT is_resolved ORDER BY detected_at`)
	if err != nil {
		return nil, fmt.Errorf("list open alerts: %w", err)
	}
	defer rows.Close()
	var list []*entity.LowStockAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *AlertRepo) Advance(ctx context.Context, id string, fromLevel int, fromNext time.Time, toLevel int, next, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE low_stock_alerts SET level = $4, next_escalation_at = $5, last_escalation_at = $6
		WHERE id = $1 AND level = $2 AND next_escalation_at = $3 AND NOT is_resolved`,
		id, fromLevel, fromNext, toLevel, next, at)
	if err != nil {
		return false, fmt.Errorf("advance alert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AlertRepo) ResolveOpen(ctx context.Context, locationID, itemID, reason string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE low_stock_alerts SET is_resolved = true, resolved_at = $4, resolved_reason = $3
		WHERE location_id = $1 AND item_id = $2 AND NOT is_resolved`, locationID, itemID, reason, at)
	if err != nil {
		return false, fmt.Errorf("resolve alert: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanAlert(row pgx.Row) (*entity.LowStockAlert, error) {
	var a entity.LowStockAlert
	var reason *string
	err := row.Scan(&a.ID, &a.LocationID, &a.ItemID, &a.Level, &a.DetectedAt, &a.NextEscalationAt,
		&a.LastEscalationAt, &a.IsResolved, &a.ResolvedAt, &reason)
	if err != nil {
		return nil, err
	}
	a.ResolvedReason = deref(reason)
	return &a, nil
}
