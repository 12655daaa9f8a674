package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-ai-api/internal/config"
	"campaign-ai-api/internal/domain/service"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

func TestResponseCacheRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	cache := NewResponseCache(client, "test")

	_, ok, err := cache.Get(ctx, "fp-1")
	require.NoError(t, err)
	assert.False(t, ok)

	resp := &service.CompletionResponse{
		Text:  `{"suggestions":[]}`,
		Model: "gpt-4o-mini",
		Usage: service.TokenUsage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	}
	require.NoError(t, cache.Put(ctx, "fp-1", resp, time.Minute))
	assert.True(t, mr.Exists("test:fp-1"))

	got, ok, err := cache.Get(ctx, "fp-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, resp, got)

	mr.FastForward(time.Minute)
	_, ok, err = cache.Get(ctx, "fp-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResponseCacheSkipsNonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	cache := NewResponseCache(client, "")

	require.NoError(t, cache.Put(ctx, "fp", &service.CompletionResponse{Text: "x"}, 0))
	assert.False(t, mr.Exists("respcache:fp"))
}

func TestResponseCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	require.NoError(t, mr.Set("respcache:bad", "not-json"))

	_, ok, err := NewResponseCache(client, "").Get(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResponseCacheSurfacesConnectionErrors(t *testing.T) {
	client, mr := newTestClient(t)
	mr.Close()

	_, ok, err := NewResponseCache(client, "").Get(context.Background(), "fp")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	key := BuildRateLimitKey("campaign-1", "analyses")
	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, key, 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Minute + time.Millisecond)
	ok, err = limiter.Allow(ctx, key, 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHealthCheck(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestNewClientPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	host := mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewClient(&config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.NoError(t, client.HealthCheck(context.Background()))

	mr.Close()
	_, err = NewClient(&config.RedisConfig{Host: host, Port: port, DialTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "respcache:abc", Key("respcache", "abc"))
	assert.Equal(t, "ratelimit:campaign-1:analyses", BuildRateLimitKey("campaign-1", "analyses"))
	assert.Equal(t, "a:b", Key("a:", "", ":b"))
}
