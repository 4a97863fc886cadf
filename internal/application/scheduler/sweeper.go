// Package scheduler ejecuta el barrido periódico de escalamiento: políticas de reorden,
// alertas de stock bajo y temporizadores de solicitudes, en ese orden.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/stockflow-api/internal/application/replenishment"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("stockflow-api/scheduler")

// SweepLock impide barridos concurrentes. TryAcquire no bloquea: ok=false si otro barrido lo tiene.
type SweepLock interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// SweepReport resultado de un barrido completo.
type SweepReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Evaluation replenishment.EvaluationResult
	Alerts     replenishment.AlertResult
	Requests   replenishment.EscalationResult
}

// Errors todos los errores aislados del barrido.
func (r *SweepReport) Errors() []error {
	var out []error
	out = append(out, r.Evaluation.Errors...)
	out = append(out, r.Alerts.Errors...)
	out = append(out, r.Requests.Errors...)
	return out
}

// Sweeper orquesta las tres fases del barrido.
type Sweeper struct {
	evaluator *replenishment.Evaluator
	alerts    *replenishment.AlertEngine
	escalator *replenishment.Escalator
	lock      SweepLock
	log       zerolog.Logger
}

// NewSweeper construye el orquestador.
func NewSweeper(
	evaluator *replenishment.Evaluator,
	alerts *replenishment.AlertEngine,
	escalator *replenishment.Escalator,
	lock SweepLock,
	log zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		evaluator: evaluator,
		alerts:    alerts,
		escalator: escalator,
		lock:      lock,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// RunEscalationSweep ejecuta un barrido en now. Devuelve domain.ErrSweepInProgress si ya hay uno en curso.
// Los errores de políticas, alertas o solicitudes individuales quedan en el reporte y no abortan el barrido.
func (s *Sweeper) RunEscalationSweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	release, ok, err := s.lock.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSweepInProgress
	}
	defer release()

	ctx, span := tracer.Start(ctx, "escalation.sweep", trace.WithAttributes(attribute.String("sweep.now", now.Format(time.RFC3339))))
	defer span.End()

	report := &SweepReport{StartedAt: time.Now()}

	report.Evaluation = phase(ctx, "escalation.evaluate_policies", func(ctx context.Context) replenishment.EvaluationResult {
		return s.evaluator.Run(ctx, now)
	})
	report.Alerts = phase(ctx, "escalation.low_stock_alerts", func(ctx context.Context) replenishment.AlertResult {
		return s.alerts.Run(ctx, now)
	})
	report.Requests = phase(ctx, "escalation.requests", func(ctx context.Context) replenishment.EscalationResult {
		return s.escalator.Run(ctx, now)
	})
	report.FinishedAt = time.Now()

	errs := report.Errors()
	span.SetAttributes(
		attribute.Int("sweep.requests_created", report.Evaluation.Created),
		attribute.Int("sweep.alerts_opened", report.Alerts.Opened),
		attribute.Int("sweep.requests_expired", report.Requests.Expired),
		attribute.Int("sweep.errors", len(errs)),
	)
	if len(errs) > 0 {
		span.SetStatus(codes.Error, errors.Join(errs...).Error())
	}

	s.log.Info().
		Int("solicitudes_creadas", report.Evaluation.Created).
		Int("solicitudes_suprimidas", report.Evaluation.Suppressed).
		Int("alertas_abiertas", report.Alerts.Opened).
		Int("alertas_escaladas", report.Alerts.Escalated+report.Alerts.Repeated).
		Int("alertas_resueltas", report.Alerts.Resolved).
		Int("recordatorios", report.Requests.Reminded).
		Int("escaladas", report.Requests.Escalated).
		Int("vencidas", report.Requests.Expired).
		Int("temporizadores_repuestos", report.Requests.Repaired).
		Int("errores", len(errs)).
		Dur("duracion", report.FinishedAt.Sub(report.StartedAt)).
		Msg("barrido de escalamiento completado")
	return report, nil
}

func phase[T any](ctx context.Context, name string, fn func(context.Context) T) T {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	return fn(ctx)
}
