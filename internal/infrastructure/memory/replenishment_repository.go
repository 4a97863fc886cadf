package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

var (
	_ repository.ReorderPolicyRepository = (*ReorderPolicyRepository)(nil)
	_ repository.RequestRepository       = (*RequestRepository)(nil)
	_ repository.EscalationRepository    = (*EscalationRepository)(nil)
	_ repository.AlertRepository         = (*AlertRepository)(nil)
)

// ReorderPolicyRepository políticas en memoria, clave (ubicación, artículo).
type ReorderPolicyRepository struct {
	mu       sync.RWMutex
	policies map[[2]string]entity.ReorderPolicy
}

// NewReorderPolicyRepository construye el repositorio vacío.
func NewReorderPolicyRepository() *ReorderPolicyRepository {
	return &ReorderPolicyRepository{policies: map[[2]string]entity.ReorderPolicy{}}
}

func (r *ReorderPolicyRepository) Get(_ context.Context, locationID, itemID string) (*entity.ReorderPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[[2]string{locationID, itemID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ReorderPolicyRepository) List(_ context.Context) ([]*entity.ReorderPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*entity.ReorderPolicy, 0, len(r.policies))
	for _, p := range r.policies {
		p := p
		list = append(list, &p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].LocationID != list[j].LocationID {
			return list[i].LocationID < list[j].LocationID
		}
		return list[i].ItemID < list[j].ItemID
	})
	return list, nil
}

func (r *ReorderPolicyRepository) Upsert(_ context.Context, p *entity.ReorderPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[[2]string{p.LocationID, p.ItemID}] = *p
	return nil
}

// RequestRepository solicitudes en memoria.
type RequestRepository struct {
	mu       sync.RWMutex
	requests map[string]entity.ReplenishmentRequest
}

// NewRequestRepository construye el repositorio vacío.
func NewRequestRepository() *RequestRepository {
	return &RequestRepository{requests: map[string]entity.ReplenishmentRequest{}}
}

func (r *RequestRepository) Create(_ context.Context, req *entity.ReplenishmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; ok {
		return domain.ErrDuplicate
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *RequestRepository) GetByID(_ context.Context, id string) (*entity.ReplenishmentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r *RequestRepository) List(_ context.Context, f repository.RequestFilter) ([]*entity.ReplenishmentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.ReplenishmentRequest
	for _, req := range r.requests {
		if f.LocationID != "" && req.LocationID != f.LocationID {
			continue
		}
		if f.ItemID != "" && req.ItemID != f.ItemID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, req.Status) {
			continue
		}
		if f.CreatedSince != nil && req.CreatedAt.Before(*f.CreatedSince) {
			continue
		}
		req := req
		list = append(list, &req)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if f.Limit > 0 && len(list) > f.Limit {
		list = list[:f.Limit]
	}
	return list, nil
}

func (r *RequestRepository) Transition(_ context.Context, id, from string, patch entity.RequestPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = patch.Status
	if patch.AcceptedBy != "" {
		req.AcceptedBy = patch.AcceptedBy
	}
	if patch.TripID != "" {
		req.TripID = patch.TripID
	}
	if patch.CancelReason != "" {
		req.CancelReason = patch.CancelReason
	}
	if patch.DeliveredBags != nil {
		req.DeliveredBags = *patch.DeliveredBags
	}
	req.UpdatedAt = patch.UpdatedAt
	r.requests[id] = req
	return true, nil
}

// EscalationRepository temporizadores de solicitudes en memoria.
type EscalationRepository struct {
	mu     sync.RWMutex
	states map[string]entity.EscalationState
}

// NewEscalationRepository construye el repositorio vacío.
func NewEscalationRepository() *EscalationRepository {
	return &EscalationRepository{states: map[string]entity.EscalationState{}}
}

func (r *EscalationRepository) Create(_ context.Context, st *entity.EscalationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[st.RequestID]; ok {
		return domain.ErrDuplicate
	}
	r.states[st.RequestID] = *st
	return nil
}

func (r *EscalationRepository) GetByRequest(_ context.Context, requestID string) (*entity.EscalationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.states[requestID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *EscalationRepository) ListDue(_ context.Context, now time.Time) ([]*entity.EscalationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.EscalationState
	for _, st := range r.states {
		if !st.NextEscalationAt.After(now) {
			st := st
			list = append(list, &st)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].NextEscalationAt.Before(list[j].NextEscalationAt) })
	return list, nil
}

func (r *EscalationRepository) Advance(_ context.Context, requestID string, fromLevel, toLevel int, next, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[requestID]
	if !ok || st.Level != fromLevel {
		return false, nil
	}
	st.Level = toLevel
	st.NextEscalationAt = next
	st.LastEscalationAt = &at
	r.states[requestID] = st
	return true, nil
}

func (r *EscalationRepository) Delete(_ context.Context, requestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, requestID)
	return nil
}

// AlertRepository alertas de stock bajo en memoria.
type AlertRepository struct {
	mu     sync.RWMutex
	alerts map[string]entity.LowStockAlert
}

// NewAlertRepository construye el repositorio vacío.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{alerts: map[string]entity.LowStockAlert{}}
}

func (r *AlertRepository) Create(_ context.Context, a *entity.LowStockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.alerts {
		if !x.IsResolved && x.LocationID == a.LocationID && x.ItemID == a.ItemID {
			return domain.ErrDuplicate
		}
	}
	r.alerts[a.ID] = *a
	return nil
}

func (r *AlertRepository) GetOpen(_ context.Context, locationID, itemID string) (*entity.LowStockAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.alerts {
		if !a.IsResolved && a.LocationID == locationID && a.ItemID == itemID {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *AlertRepository) ListOpen(_ context.Context) ([]*entity.LowStockAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.LowStockAlert
	for _, a := range r.alerts {
		if !a.IsResolved {
			a := a
			list = append(list, &a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].DetectedAt.Before(list[j].DetectedAt) })
	return list, nil
}

// All devuelve todas las alertas, resueltas incluidas.
func (r *AlertRepository) All() []entity.LowStockAlert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.LowStockAlert, 0, len(r.alerts))
	for _, a := range r.alerts {
		out = append(out, a)
	}
	return out
}

func (r *AlertRepository) Advance(_ context.Context, id string, fromLevel int, fromNext time.Time, toLevel int, next, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || a.IsResolved || a.Level != fromLevel || !a.NextEscalationAt.Equal(fromNext) {
		return false, nil
	}
	a.Level = toLevel
	a.NextEscalationAt = next
	a.LastEscalationAt = &at
	r.alerts[id] = a
	return true, nil
}

func (r *AlertRepository) ResolveOpen(_ context.Context, locationID, itemID, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.alerts {
		if !a.IsResolved && a.LocationID == locationID && a.ItemID == itemID {
			a.IsResolved = true
			a.ResolvedAt = &at
			a.ResolvedReason = reason
			r.alerts[id] = a
			return true, nil
		}
	}
	return false, nil
}
