package replenishment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	rules "github.com/jhoicas/stockflow-api/internal/domain/replenishment"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BalanceReader saldo en mano de un par (ubicación, artículo). Lo implementa el servicio del libro.
type BalanceReader interface {
	GetBalance(ctx context.Context, locationID, itemID string) (decimal.Decimal, error)
}

// AlertResult resumen de un pase del motor de alertas.
type AlertResult struct {
	Opened    int
	Escalated int
	Repeated  int
	Resolved  int
	Errors    []error
}

// AlertEngine abre, escala y resuelve alertas de stock bajo.
type AlertEngine struct {
	policies repository.ReorderPolicyRepository
	alerts   repository.AlertRepository
	requests repository.RequestRepository
	balances BalanceReader
	resolver ports.RoleResolver
	notifier ports.Notifier
	log      zerolog.Logger
}

// NewAlertEngine construye el motor de alertas.
func NewAlertEngine(
	policies repository.ReorderPolicyRepository,
	alerts repository.AlertRepository,
	requests repository.RequestRepository,
	balances BalanceReader,
	resolver ports.RoleResolver,
	notifier ports.Notifier,
	log zerolog.Logger,
) *AlertEngine {
	return &AlertEngine{
		policies: policies,
		alerts:   alerts,
		requests: requests,
		balances: balances,
		resolver: resolver,
		notifier: notifier,
		log:      log.With().Str("component", "alerts").Logger(),
	}
}

// Run observa todos los pares con política y luego avanza las alertas abiertas vencidas.
// Las alertas de pares repuestos se resuelven antes de cualquier escalamiento del mismo pase.
func (e *AlertEngine) Run(ctx context.Context, now time.Time) AlertResult {
	var res AlertResult
	policies, err := e.policies.List(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("listar políticas: %w", err))
		return res
	}
	for _, p := range policies {
		if err := e.observe(ctx, p, now, &res); err != nil {
			e.log.Error().Err(err).Str("location_id", p.LocationID).Str("item_id", p.ItemID).Msg("error al observar stock bajo")
			res.Errors = append(res.Errors, fmt.Errorf("par %s/%s: %w", p.LocationID, p.ItemID, err))
		}
	}

	open, err := e.alerts.ListOpen(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("listar alertas abiertas: %w", err))
		return res
	}
	for _, a := range open {
		if err := e.advance(ctx, a, now, &res); err != nil {
			e.log.Error().Err(err).Str("alert_id", a.ID).Int("level", a.Level).Msg("error al escalar alerta")
			res.Errors = append(res.Errors, fmt.Errorf("alerta %s: %w", a.ID, err))
		}
	}
	return res
}

func (e *AlertEngine) observe(ctx context.Context, p *entity.ReorderPolicy, now time.Time, res *AlertResult) error {
	balance, err := e.balances.GetBalance(ctx, p.LocationID, p.ItemID)
	if err != nil {
		return err
	}
	if !rules.IsBelowReorderPoint(p, balance) {
		resolved, err := e.alerts.ResolveOpen(ctx, p.LocationID, p.ItemID, entity.AlertResolvedRestocked, now)
		if err != nil {
			return err
		}
		if resolved {
			res.Resolved++
			e.log.Info().Str("location_id", p.LocationID).Str("item_id", p.ItemID).Str("balance", balance.String()).
				Msg("alerta de stock bajo resuelta por reposición")
		}
		return nil
	}

	existing, err := e.alerts.GetOpen(ctx, p.LocationID, p.ItemID)
	if err != nil || existing != nil {
		return err
	}
	// Con una solicitud abierta para el par el faltante ya está atendido.
	pending, err := e.requests.List(ctx, repository.RequestFilter{
		LocationID: p.LocationID,
		ItemID:     p.ItemID,
		Statuses:   entity.OpenRequestStatuses,
		Limit:      1,
	})
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return nil
	}

	alert := &entity.LowStockAlert{
		ID:               uuid.New().String(),
		LocationID:       p.LocationID,
		ItemID:           p.ItemID,
		Level:            entity.AlertLevelLocationManager,
		DetectedAt:       now,
		NextEscalationAt: rules.AlertFirstNextAt(now),
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil
		}
		return err
	}
	res.Opened++
	e.log.Warn().Str("location_id", p.LocationID).Str("item_id", p.ItemID).
		Str("balance", balance.String()).Str("reorder_point", p.ReorderPointQty.String()).
		Msg("alerta de stock bajo abierta")
	e.notifyAlert(ctx, alert, balance, p, e.resolver.LocationManagers)
	return nil
}

// advance recorre los niveles vencidos en orden; en nivel 3 repite con el próximo vencimiento futuro.
func (e *AlertEngine) advance(ctx context.Context, a *entity.LowStockAlert, now time.Time, res *AlertResult) error {
	for {
		step, due := rules.NextAlertStep(a, now)
		if !due {
			return nil
		}
		ok, err := e.alerts.Advance(ctx, a.ID, a.Level, a.NextEscalationAt, step.Level, step.NextAt, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		a.Level = step.Level
		a.NextEscalationAt = step.NextAt
		at := now
		a.LastEscalationAt = &at

		recipients := e.resolver.ZoneManagers
		if step.Level == entity.AlertLevelAdmin {
			recipients = func(ctx context.Context, _ string) ([]ports.Recipient, error) { return e.resolver.Admins(ctx) }
		}
		if step.Repeat {
			res.Repeated++
		} else {
			res.Escalated++
		}
		e.log.Warn().Str("alert_id", a.ID).Str("location_id", a.LocationID).Str("item_id", a.ItemID).
			Int("level", step.Level).Bool("repeat", step.Repeat).Time("next_escalation_at", step.NextAt).
			Msg("alerta de stock bajo escalada")
		e.notifyAlert(ctx, a, decimal.Decimal{}, nil, recipients)
	}
}

func (e *AlertEngine) notifyAlert(
	ctx context.Context,
	a *entity.LowStockAlert,
	balance decimal.Decimal,
	p *entity.ReorderPolicy,
	recipients func(ctx context.Context, locationID string) ([]ports.Recipient, error),
) {
	to, err := recipients(ctx, a.LocationID)
	if err != nil {
		e.log.Warn().Err(err).Str("alert_id", a.ID).Msg("no se pudieron resolver destinatarios de la alerta")
		return
	}
	data := map[string]any{
		"alert_id":    a.ID,
		"location_id": a.LocationID,
		"item_id":     a.ItemID,
		"level":       a.Level,
		"detected_at": a.DetectedAt,
	}
	if p != nil {
		data["balance_kg"] = balance
		data["reorder_point_kg"] = p.ReorderPointQty
	}
	notifyAll(ctx, e.notifier, to, ports.TemplateLowStockAlert, data)
}
