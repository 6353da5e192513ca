package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return &RedisCache{client: client, prefix: "test"}, s
}

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(10))
	defer mc.Close()

	type payload struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}

	require.NoError(t, mc.Set(ctx, "k1", payload{Symbol: "BTC", Price: 20000}, time.Minute))

	var got payload
	require.NoError(t, mc.Get(ctx, "k1", &got))
	assert.Equal(t, "BTC", got.Symbol)
	assert.Equal(t, 20000.0, got.Price)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k1", "v1", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var got string
	err := mc.Get(ctx, "k1", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "predictions:BTC:1h", "a", time.Minute))
	require.NoError(t, mc.Set(ctx, "predictions:BTC:4h", "b", time.Minute))
	require.NoError(t, mc.Set(ctx, "predictions:ETH:1h", "c", time.Minute))

	require.NoError(t, mc.DeleteByPattern(ctx, "predictions:BTC:*"))

	var got string
	assert.ErrorIs(t, mc.Get(ctx, "predictions:BTC:1h", &got), ErrCacheMiss)
	assert.ErrorIs(t, mc.Get(ctx, "predictions:BTC:4h", &got), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "predictions:ETH:1h", &got))
	assert.Equal(t, "c", got)
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", "3", time.Minute))

	var got string
	assert.ErrorIs(t, mc.Get(ctx, "a", &got), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "c", &got))
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	rc, _ := newTestRedisCache(t)

	require.NoError(t, rc.Set(ctx, "k1", map[string]int{"n": 42}, time.Minute))

	var got map[string]int
	require.NoError(t, rc.Get(ctx, "k1", &got))
	assert.Equal(t, 42, got["n"])

	err := rc.Get(ctx, "missing", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	rc, _ := newTestRedisCache(t)

	require.NoError(t, rc.Set(ctx, "predictions:BTC:1h", "a", time.Minute))
	require.NoError(t, rc.Set(ctx, "predictions:BTC:4h", "b", time.Minute))
	require.NoError(t, rc.Set(ctx, "other:BTC", "c", time.Minute))

	require.NoError(t, rc.DeleteByPattern(ctx, "predictions:BTC:*"))

	var got string
	assert.ErrorIs(t, rc.Get(ctx, "predictions:BTC:1h", &got), ErrCacheMiss)
	assert.NoError(t, rc.Get(ctx, "other:BTC", &got))
}

func TestGetOrLoadCachesLoaderResult(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	calls := 0
	loader := func() (string, error) {
		calls++
		return "value", nil
	}

	v, err := GetOrLoad(ctx, mc, "k", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	v, err = GetOrLoad(ctx, mc, "k", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls, "second call must hit the cache")
}

func TestGetOrLoadPropagatesLoaderError(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	wantErr := errors.New("boom")
	_, err := GetOrLoad(ctx, mc, "k", time.Minute, func() (int, error) {
		return 0, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// The failed load must not be cached.
	var got int
	assert.ErrorIs(t, mc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestGetOrLoadDegradesWhenBackendDown(t *testing.T) {
	ctx := context.Background()
	rc, s := newTestRedisCache(t)
	s.Close()

	v, err := GetOrLoad(ctx, rc, "k", time.Minute, func() (string, error) {
		return "loaded", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
}

func TestGetOrLoadNilCache(t *testing.T) {
	v, err := GetOrLoad[string](context.Background(), nil, "k", time.Minute, func() (string, error) {
		return "loaded", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
}
