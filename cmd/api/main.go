package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/stockflow-api/internal/application/scheduler"
	"github.com/jhoicas/stockflow-api/internal/bootstrap"
	httpRouter "github.com/jhoicas/stockflow-api/internal/interfaces/http"
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
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.App.StorageDriver).
		Str("notify", cfg.Notify.Driver).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización")
	}
	defer components.Close()

	// Planificador de escalamiento en el mismo proceso.
	runnerDone := make(chan struct{})
	if cfg.Scheduler.Enabled {
		runner := scheduler.NewRunner(components.Sweeper, cfg.Scheduler.Interval, log.Zerolog())
		go func() {
			defer close(runnerDone)
			runner.Run(ctx)
		}()
	} else {
		close(runnerDone)
		log.Warn().Msg("planificador deshabilitado: el barrido solo corre vía /api/escalations/sweep o cmd/sweep")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stockflow API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:      components.Ledger,
		Requests:    components.Requests,
		Sweeper:     components.Sweeper,
		KgPerBag:    components.KgPerBag,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	stop()
	select {
	case <-runnerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("el planificador no terminó a tiempo")
	}

	log.Info().Msg("aplicación detenida")
}
