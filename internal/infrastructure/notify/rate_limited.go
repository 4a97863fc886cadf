package notify

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimited limita la tasa de envío del notificador envuelto.
// Si el contexto vence esperando turno, la notificación se descarta.
type RateLimited struct {
	next    ports.Notifier
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewRateLimited envuelve next con un límite de perSecond notificaciones por segundo y ráfaga burst.
func NewRateLimited(next ports.Notifier, perSecond float64, burst int, log zerolog.Logger) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst), log: log.With().Str("component", "notifier").Logger()}
}

func (r *RateLimited) Notify(ctx context.Context, to ports.Recipient, template string, data map[string]any) bool {
	if err := r.limiter.Wait(ctx); err != nil {
		f := &domain.NotificationFailure{Recipient: to.UserID, Template: template, Err: err}
		r.log.Warn().Err(f).Str("template", template).Msg("notificación descartada por límite de tasa")
		return false
	}
	return r.next.Notify(ctx, to, template, data)
}
