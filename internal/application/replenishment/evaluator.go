package replenishment

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	rules "github.com/jhoicas/stockflow-api/internal/domain/replenishment"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/rs/zerolog"
)

// EvaluationResult resumen de un pase del evaluador de políticas.
type EvaluationResult struct {
	Evaluated  int
	Created    int
	Suppressed int
	Errors     []error
}

// Evaluator crea solicitudes automáticas para las políticas con reorden automático.
type Evaluator struct {
	policies repository.ReorderPolicyRepository
	requests repository.RequestRepository
	balances BalanceReader
	service  *RequestService
	log      zerolog.Logger
}

// NewEvaluator construye el evaluador. Las solicitudes se crean a través de service para que
// hereden temporizador y resolución de alertas.
func NewEvaluator(
	policies repository.ReorderPolicyRepository,
	requests repository.RequestRepository,
	balances BalanceReader,
	service *RequestService,
	log zerolog.Logger,
) *Evaluator {
	return &Evaluator{
		policies: policies,
		requests: requests,
		balances: balances,
		service:  service,
		log:      log.With().Str("component", "evaluator").Logger(),
	}
}

// Run evalúa cada política de forma aislada. Repetirlo sin cambios de saldo no crea duplicados.
func (e *Evaluator) Run(ctx context.Context, now time.Time) EvaluationResult {
	var res EvaluationResult
	policies, err := e.policies.List(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("listar políticas: %w", err))
		return res
	}
	for _, p := range policies {
		if !p.AutoReorderEnabled {
			continue
		}
		res.Evaluated++
		if err := e.evaluate(ctx, p, now, &res); err != nil {
			e.log.Error().Err(err).Str("location_id", p.LocationID).Str("item_id", p.ItemID).Msg("error al evaluar política de reorden")
			res.Errors = append(res.Errors, fmt.Errorf("política %s/%s: %w", p.LocationID, p.ItemID, err))
		}
	}
	return res
}

func (e *Evaluator) evaluate(ctx context.Context, p *entity.ReorderPolicy, now time.Time, res *EvaluationResult) error {
	balance, err := e.balances.GetBalance(ctx, p.LocationID, p.ItemID)
	if err != nil {
		return err
	}
	d := rules.Evaluate(p, balance)
	if !d.Shortage {
		return nil
	}

	since := now.Add(-rules.DuplicateSuppressionWindow)
	open, err := e.requests.List(ctx, repository.RequestFilter{
		LocationID:   p.LocationID,
		Statuses:     entity.OpenRequestStatuses,
		CreatedSince: &since,
		Limit:        1,
	})
	if err != nil {
		return err
	}
	if len(open) > 0 {
		res.Suppressed++
		e.log.Debug().Str("location_id", p.LocationID).Str("request_id", open[0].ID).Msg("ya existe una solicitud abierta reciente")
		return nil
	}

	req, err := e.service.create(ctx, CreateRequestInput{
		LocationID:   p.LocationID,
		ItemID:       p.ItemID,
		QuantityBags: d.QuantityBags,
		Urgency:      d.Urgency,
	}, now)
	if err != nil {
		return err
	}
	res.Created++
	e.log.Info().Str("request_id", req.ID).Str("location_id", p.LocationID).Str("item_id", p.ItemID).
		Str("balance", balance.String()).Int("quantity_bags", d.QuantityBags).Str("urgency", d.Urgency).
		Msg("solicitud automática creada")
	return nil
}
