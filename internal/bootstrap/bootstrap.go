// Package bootstrap arma el grafo de dependencias a partir de la configuración. Lo comparten la API
// y el comando de barrido único.
package bootstrap

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/jhoicas/stockflow-api/internal/application/ledger"
	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/application/replenishment"
	"github.com/jhoicas/stockflow-api/internal/application/routing"
	"github.com/jhoicas/stockflow-api/internal/application/scheduler"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/catalog"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/lock"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/notify"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockflow-api/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Components servicios listos para usar.
type Components struct {
	Ledger   *ledger.Service
	Requests *replenishment.RequestService
	Sweeper  *scheduler.Sweeper
	KgPerBag decimal.Decimal

	closers []func()
}

// Close libera conexiones en orden inverso de creación.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

type stores struct {
	batches     repository.BatchRepository
	txs         repository.TransactionRepository
	locations   repository.LocationRepository
	items       repository.ItemRepository
	users       repository.UserRepository
	policies    repository.ReorderPolicyRepository
	requests    repository.RequestRepository
	escalations repository.EscalationRepository
	alerts      repository.AlertRepository
}

// Build conecta almacenamiento, notificaciones y candado según cfg.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Components, error) {
	c := &Components{KgPerBag: decimal.NewFromFloat(cfg.Ledger.KgPerBag)}

	st, err := c.storage(ctx, cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	resolver := routing.NewResolver(st.locations, st.users)
	notifier, err := c.notifier(ctx, cfg.Notify, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	operators := notify.NewOperatorChannel(resolver, notifier, log)

	c.Ledger = ledger.NewService(st.batches, st.txs, st.locations, st.items, operators, log, ledger.Config{CASRetries: cfg.Ledger.CASRetries})
	c.Requests = replenishment.NewRequestService(st.requests, st.escalations, st.alerts, st.locations, log).
		WithStockReceiver(replenishment.NewLedgerReceiver(c.Ledger, c.KgPerBag))

	c.Sweeper = scheduler.NewSweeper(
		replenishment.NewEvaluator(st.policies, st.requests, c.Ledger, c.Requests, log),
		replenishment.NewAlertEngine(st.policies, st.alerts, st.requests, c.Ledger, resolver, notifier, log),
		replenishment.NewEscalator(st.requests, st.escalations, resolver, notifier, log),
		c.sweepLock(cfg, log),
		log,
	)
	return c, nil
}

func (c *Components) storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	var cat *catalog.Catalog
	if cfg.App.CatalogPath != "" {
		loaded, err := catalog.LoadFile(cfg.App.CatalogPath)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}

	if cfg.App.StorageDriver == "memory" {
		locations := memory.NewLocationRepository()
		items := memory.NewItemRepository()
		users := memory.NewUserRepository()
		policies := memory.NewReorderPolicyRepository()
		if cat != nil {
			if err := cat.ApplyMemory(ctx, catalog.MemoryStores{Locations: locations, Items: items, Users: users, Policies: policies}); err != nil {
				return nil, err
			}
			log.Info().Int("ubicaciones", len(cat.Locations)).Int("politicas", len(cat.Policies)).Msg("catálogo cargado en memoria")
		}
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return &stores{
			batches:     memory.NewBatchRepository(),
			txs:         memory.NewTransactionRepository(),
			locations:   locations,
			items:       items,
			users:       users,
			policies:    policies,
			requests:    memory.NewRequestRepository(),
			escalations: memory.NewEscalationRepository(),
			alerts:      memory.NewAlertRepository(),
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	c.closers = append(c.closers, pool.Close)
	if cfg.DB.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		log.Info().Msg("esquema verificado")
	}
	if cat != nil {
		if err := cat.ApplySQL(ctx, postgres.NewTxRunner(pool)); err != nil {
			return nil, err
		}
		log.Info().Int("ubicaciones", len(cat.Locations)).Int("politicas", len(cat.Policies)).Msg("catálogo aplicado")
	}
	return &stores{
		batches:     postgres.NewBatchRepository(pool),
		txs:         postgres.NewTransactionRepository(pool),
		locations:   postgres.NewLocationRepository(pool),
		items:       postgres.NewItemRepository(pool),
		users:       postgres.NewUserRepository(pool),
		policies:    postgres.NewReorderPolicyRepository(pool),
		requests:    postgres.NewRequestRepository(pool),
		escalations: postgres.NewEscalationRepository(pool),
		alerts:      postgres.NewAlertRepository(pool),
	}, nil
}

func (c *Components) notifier(ctx context.Context, cfg config.NotifyConfig, log zerolog.Logger) (ports.Notifier, error) {
	var base ports.Notifier
	switch cfg.Driver {
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.PubSubProjectID)
		if err != nil {
			return nil, fmt.Errorf("cliente Pub/Sub: %w", err)
		}
		topic := client.Topic(cfg.PubSubTopic)
		c.closers = append(c.closers, func() { _ = client.Close() }, topic.Stop)
		base = notify.NewPubSubNotifier(topic, cfg.Timeout, log)
		log.Info().Str("topic", cfg.PubSubTopic).Msg("notificaciones vía Pub/Sub")
	default:
		base = notify.NewLogNotifier(log)
	}
	if cfg.RatePerSec > 0 {
		return notify.NewRateLimited(base, cfg.RatePerSec, cfg.Burst, log), nil
	}
	return base, nil
}

func (c *Components) sweepLock(cfg *config.Config, log zerolog.Logger) scheduler.SweepLock {
	if cfg.Redis.Addr == "" {
		return lock.NewLocal()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	c.closers = append(c.closers, func() { _ = client.Close() })
	log.Info().Str("redis", cfg.Redis.Addr).Msg("candado de barrido distribuido")
	return lock.NewRedis(client, cfg.Scheduler.LockTTL, log)
}
