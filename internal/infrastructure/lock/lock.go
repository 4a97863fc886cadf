// Package lock implementa el candado del barrido de escalamiento: en proceso o distribuido sobre Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SweepKey clave del candado distribuido.
const SweepKey = "stockflow:lock:escalation-sweep"

// Local candado de un solo proceso.
type Local struct {
	mu sync.Mutex
}

// NewLocal construye el candado en proceso.
func NewLocal() *Local { return &Local{} }

func (l *Local) TryAcquire(_ context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}

// Redis candado compartido entre instancias. Mientras se sostiene, el TTL se renueva cada ttl/2;
// si el proceso muere, el candado expira solo.
type Redis struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedis construye el candado sobre un cliente go-redis.
func NewRedis(client redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{
		locker: redislock.New(client),
		key:    SweepKey,
		ttl:    ttl,
		log:    log.With().Str("component", "sweep_lock").Logger(),
	}
}

func (r *Redis) TryAcquire(ctx context.Context) (func(), bool, error) {
	lk, err := r.locker.Obtain(ctx, r.key, r.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("obtener candado de barrido: %w", err)
	}
	stop := keepAlive(lk, r.ttl, r.log)
	release := func() {
		stop()
		// Contexto propio: el del barrido puede estar cancelado al liberar.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.log.Warn().Err(err).Msg("no se pudo liberar el candado de barrido")
		}
	}
	return release, true, nil
}

type refresher interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
}

// keepAlive renueva el TTL cada ttl/2 hasta que se llame a stop. Si el candado ya no es nuestro,
// deja de renovar; el barrido en curso termina igual.
func keepAlive(lk refresher, ttl time.Duration, log zerolog.Logger) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), ttl/2)
				err := lk.Refresh(ctx, ttl, nil)
				cancel()
				if errors.Is(err, redislock.ErrNotObtained) {
					log.Error().Msg("candado de barrido perdido antes de terminar")
					return
				}
				if err != nil {
					log.Warn().Err(err).Msg("no se pudo renovar el candado de barrido")
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
