package replenishment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	rules "github.com/jhoicas/stockflow-api/internal/domain/replenishment"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/rs/zerolog"
)

// EscalationResult resumen de un pase del escalador de solicitudes.
type EscalationResult struct {
	Repaired  int
	Due       int
	Reminded  int
	Escalated int
	Expired   int
	Errors    []error
}

// Escalator avanza los temporizadores de las solicitudes pendientes.
type Escalator struct {
	requests    repository.RequestRepository
	escalations repository.EscalationRepository
	resolver    ports.RoleResolver
	notifier    ports.Notifier
	log         zerolog.Logger
}

// NewEscalator construye el escalador de solicitudes.
func NewEscalator(
	requests repository.RequestRepository,
	escalations repository.EscalationRepository,
	resolver ports.RoleResolver,
	notifier ports.Notifier,
	log zerolog.Logger,
) *Escalator {
	return &Escalator{
		requests:    requests,
		escalations: escalations,
		resolver:    resolver,
		notifier:    notifier,
		log:         log.With().Str("component", "escalator").Logger(),
	}
}

// Run procesa los temporizadores vencidos en now. El error de una solicitud no detiene las demás.
// Antes de listar, repone el temporizador de las solicitudes pendientes que se quedaron sin él.
func (e *Escalator) Run(ctx context.Context, now time.Time) EscalationResult {
	var res EscalationResult
	e.repairTimers(ctx, now, &res)

	due, err := e.escalations.ListDue(ctx, now)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("listar temporizadores vencidos: %w", err))
		return res
	}
	res.Due = len(due)
	for _, st := range due {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, err)
			return res
		}
		if err := e.advance(ctx, st, now, &res); err != nil {
			e.log.Error().Err(err).Str("request_id", st.RequestID).Int("level", st.Level).Msg("error al escalar solicitud")
			res.Errors = append(res.Errors, fmt.Errorf("solicitud %s: %w", st.RequestID, err))
		}
	}
	return res
}

// repairTimers crea el temporizador de nivel 0 para cada solicitud pendiente que no lo tiene,
// contado desde created_at; el mismo pase lo avanza si ya cumplió umbrales.
func (e *Escalator) repairTimers(ctx context.Context, now time.Time, res *EscalationResult) {
	pending, err := e.requests.List(ctx, repository.RequestFilter{Statuses: []string{entity.RequestStatusPending}})
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("listar solicitudes pendientes: %w", err))
		return
	}
	for _, req := range pending {
		if ctx.Err() != nil {
			return
		}
		st, err := e.escalations.GetByRequest(ctx, req.ID)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("solicitud %s: %w", req.ID, err))
			continue
		}
		if st != nil {
			continue
		}
		err = e.escalations.Create(ctx, &entity.EscalationState{
			RequestID:        req.ID,
			Level:            rules.RequestLevelNone,
			NextEscalationAt: rules.RequestNextAt(req.Urgency, rules.RequestLevelNone, req.CreatedAt),
			CreatedAt:        now,
		})
		switch {
		case errors.Is(err, domain.ErrDuplicate):
			// La creación de la solicitud lo escribió entre la lectura y el insert.
		case err != nil:
			e.log.Error().Err(err).Str("request_id", req.ID).Msg("no se pudo reponer el temporizador de escalamiento")
			res.Errors = append(res.Errors, fmt.Errorf("solicitud %s: reponer temporizador: %w", req.ID, err))
		default:
			res.Repaired++
			e.log.Warn().Str("request_id", req.ID).Msg("temporizador de escalamiento repuesto")
		}
	}
}

// advance recorre en orden todos los umbrales ya cumplidos. Cada nivel se persiste antes de notificar;
// si la actualización condicional no afecta filas, otro proceso ya lo hizo y se abandona en silencio.
func (e *Escalator) advance(ctx context.Context, st *entity.EscalationState, now time.Time, res *EscalationResult) error {
	req, err := e.requests.GetByID(ctx, st.RequestID)
	if err != nil {
		return err
	}
	if req == nil || req.Status != entity.RequestStatusPending {
		// Temporizador huérfano: la solicitud ya salió de pending.
		return e.escalations.Delete(ctx, st.RequestID)
	}

	level := st.Level
	for {
		step := rules.NextRequestStep(req.Urgency, level, req.CreatedAt, now)
		switch step {
		case rules.StepNone:
			return nil

		case rules.StepRemind, rules.StepEscalate:
			to := level + 1
			ok, err := e.escalations.Advance(ctx, req.ID, level, to, rules.RequestNextAt(req.Urgency, to, req.CreatedAt), now)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			e.log.Info().Str("request_id", req.ID).Int("level", to).Str("step", step.String()).Msg("solicitud escalada")
			if step == rules.StepRemind {
				res.Reminded++
				e.notifyRequest(ctx, req, to, ports.TemplateRequestReminder, e.resolver.EligibleDrivers)
			} else {
				res.Escalated++
				e.notifyRequest(ctx, req, to, ports.TemplateRequestEscalated, e.resolver.ZoneManagers)
			}
			level = to

		case rules.StepExpire:
			ok, err := e.requests.Transition(ctx, req.ID, entity.RequestStatusPending, entity.RequestPatch{
				Status:    entity.RequestStatusExpired,
				UpdatedAt: now,
			})
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := e.escalations.Delete(ctx, req.ID); err != nil {
				e.log.Warn().Err(err).Str("request_id", req.ID).Msg("no se pudo eliminar el temporizador de una solicitud vencida")
			}
			res.Expired++
			e.log.Info().Str("request_id", req.ID).Msg("solicitud vencida sin ser aceptada")
			e.notifyRequest(ctx, req, level, ports.TemplateRequestExpired, func(ctx context.Context, _ string) ([]ports.Recipient, error) {
				return e.requesterOf(ctx, req)
			})
			return nil
		}
	}
}

func (e *Escalator) notifyRequest(
	ctx context.Context,
	req *entity.ReplenishmentRequest,
	level int,
	template string,
	recipients func(ctx context.Context, locationID string) ([]ports.Recipient, error),
) {
	to, err := recipients(ctx, req.LocationID)
	if err != nil {
		e.log.Warn().Err(err).Str("request_id", req.ID).Str("template", template).Msg("no se pudieron resolver destinatarios")
		return
	}
	data := map[string]any{
		"request_id":    req.ID,
		"location_id":   req.LocationID,
		"item_id":       req.ItemID,
		"quantity_bags": req.QuantityBags,
		"urgency":       req.Urgency,
		"level":         level,
		"created_at":    req.CreatedAt,
	}
	notifyAll(ctx, e.notifier, to, template, data)
}

// requesterOf quien pidió la solicitud; si la creó el evaluador, los gerentes de la ubicación.
func (e *Escalator) requesterOf(ctx context.Context, req *entity.ReplenishmentRequest) ([]ports.Recipient, error) {
	if req.RequestedBy != "" {
		u, err := e.resolver.User(ctx, req.RequestedBy)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return []ports.Recipient{*u}, nil
		}
	}
	return e.resolver.LocationManagers(ctx, req.LocationID)
}

// notifyAll envía a cada destinatario; devuelve cuántas notificaciones se entregaron.
func notifyAll(ctx context.Context, n ports.Notifier, to []ports.Recipient, template string, data map[string]any) int {
	sent := 0
	for _, r := range to {
		if n.Notify(ctx, r, template, data) {
			sent++
		}
	}
	return sent
}
