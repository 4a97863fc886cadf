package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultInterval periodo del barrido cuando no se configura.
const DefaultInterval = time.Minute

// Runner dispara el barrido a intervalo fijo hasta que se cancela el contexto.
type Runner struct {
	sweeper  *Sweeper
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewRunner construye el disparador; interval <= 0 usa DefaultInterval.
func NewRunner(sweeper *Sweeper, interval time.Duration, log zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{
		sweeper:  sweeper,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "scheduler_runner").Logger(),
	}
}

// Run bloquea hasta que ctx se cancele. El primer barrido se ejecuta de inmediato.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info().Dur("intervalo", r.interval).Msg("planificador de escalamiento iniciado")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("planificador de escalamiento detenido")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if _, err := r.sweeper.RunEscalationSweep(ctx, r.now()); err != nil {
		if errors.Is(err, domain.ErrSweepInProgress) {
			r.log.Debug().Msg("barrido omitido: otro en curso")
			return
		}
		r.log.Error().Err(err).Msg("barrido de escalamiento fallido")
	}
}
