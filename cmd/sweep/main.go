// Barrido de escalamiento único, pensado para un cron externo cuando el planificador de la API está
// deshabilitado. Sale con código 1 si el barrido falla y 2 si otro barrido ya está en curso.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/stockflow-api/internal/bootstrap"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/pkg/config"
	"github.com/jhoicas/stockflow-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name + "-sweep",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización")
	}

	report, err := components.Sweeper.RunEscalationSweep(ctx, time.Now())
	components.Close()
	if err != nil {
		if errors.Is(err, domain.ErrSweepInProgress) {
			log.Warn().Msg("otro barrido en curso, nada que hacer")
			os.Exit(2)
		}
		log.Error().Err(err).Msg("barrido fallido")
		os.Exit(1)
	}

	ev := log.Info().
		Int("politicas", report.Evaluation.Evaluated).
		Int("solicitudes_creadas", report.Evaluation.Created).
		Int("solicitudes_suprimidas", report.Evaluation.Suppressed).
		Int("alertas_abiertas", report.Alerts.Opened).
		Int("alertas_escaladas", report.Alerts.Escalated).
		Int("alertas_resueltas", report.Alerts.Resolved).
		Int("recordatorios", report.Requests.Reminded).
		Int("escalamientos", report.Requests.Escalated).
		Int("expiradas", report.Requests.Expired).
		Dur("duracion", report.FinishedAt.Sub(report.StartedAt))
	if errs := report.Errors(); len(errs) > 0 {
		ev = ev.Int("errores", len(errs))
		for _, e := range errs {
			log.Warn().Err(e).Msg("error aislado en el barrido")
		}
	}
	ev.Msg("barrido completado")
}
