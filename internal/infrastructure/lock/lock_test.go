package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Exclusivo(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, ok, err := l.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// Caso 1: un segundo intento no bloquea y falla
	_, ok, err = l.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "el candado ya está tomado")

	// Caso 2: al liberar se puede volver a tomar
	release()
	release2, ok, err := l.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedis_ErrorDeConexion(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	r := NewRedis(client, 0, zerolog.Nop())
	assert.Equal(t, 5*time.Minute, r.ttl, "TTL por defecto")
	assert.Equal(t, SweepKey, r.key)

	_, ok, err := r.TryAcquire(context.Background())
	assert.Error(t, err, "sin Redis el error se propaga en lugar de suponer el candado libre")
	assert.False(t, ok)
}

// countingLock cuenta renovaciones; a partir de lostAfter responde que el candado ya no es nuestro.
type countingLock struct {
	mu        sync.Mutex
	calls     int
	ttls      []time.Duration
	lostAfter int
}

func (c *countingLock) Refresh(_ context.Context, ttl time.Duration, _ *redislock.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.ttls = append(c.ttls, ttl)
	if c.lostAfter > 0 && c.calls > c.lostAfter {
		return redislock.ErrNotObtained
	}
	if c.calls == 1 {
		return errors.New("timeout de red")
	}
	return nil
}

func (c *countingLock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestKeepAlive_RenuevaHastaLiberar(t *testing.T) {
	lk := &countingLock{}
	ttl := 40 * time.Millisecond
	stop := keepAlive(lk, ttl, zerolog.Nop())

	// Un barrido más largo que el TTL sigue renovando aunque una renovación falle
	require.Eventually(t, func() bool { return lk.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	stop()
	stop()

	after := lk.count()
	time.Sleep(3 * ttl)
	assert.Equal(t, after, lk.count(), "tras liberar no hay más renovaciones")
	for _, got := range lk.ttls {
		assert.Equal(t, ttl, got, "cada renovación extiende el TTL completo")
	}
}

func TestKeepAlive_CandadoPerdidoDejaDeRenovar(t *testing.T) {
	lk := &countingLock{lostAfter: 2}
	ttl := 20 * time.Millisecond
	stop := keepAlive(lk, ttl, zerolog.Nop())
	defer stop()

	require.Eventually(t, func() bool { return lk.count() == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(5 * ttl)
	assert.Equal(t, 3, lk.count(), "sin candado no se sigue intentando")
}
