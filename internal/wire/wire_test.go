package wire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-ai-api/internal/application/responsecache"
	"campaign-ai-api/internal/config"
	"campaign-ai-api/internal/infrastructure/persistence/memory"
	"campaign-ai-api/internal/infrastructure/persistence/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func memoryConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "campaign-ai-api", Version: "test", Env: "test"},
		LLM: config.LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]config.ProviderConfig{
				"openai": {APIKey: "test", BaseURL: "http://127.0.0.1:1/v1", Model: "gpt-4o-mini"},
			},
			Retry: config.RetryConfig{MaxAttempts: 1},
		},
		Engine: config.EngineConfig{
			DefaultModel:      "gpt-4o-mini",
			DefaultMaxResults: 10,
			MaxInFlight:       2,
			CallTimeout:       time.Second,
			ContentStore:      "memory",
			SuggestionStore:   "memory",
			ResponseCache: config.ResponseCacheConfig{
				Backend:    "memory",
				TTL:        time.Minute,
				MaxEntries: 16,
			},
			Models: []config.ModelConfig{{
				ID:            "gpt-4o-mini",
				Provider:      "openai",
				ContextWindow: 128000,
				MaxTokens:     4096,
				Available:     true,
				Capabilities:  []string{"chat", "completion"},
			}},
		},
	}
}

func withMiniredis(t *testing.T, cfg *config.Config) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.Cache.Redis = config.RedisConfig{Host: mr.Host(), Port: port}
	return mr
}

func TestInitializeAppInMemory(t *testing.T) {
	app, cleanup, err := InitializeApp(context.Background(), memoryConfig())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	w := httptest.NewRecorder()
	app.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":{"status":"disabled"}`)
	assert.Contains(t, w.Body.String(), `"redis":{"status":"disabled"}`)

	w = httptest.NewRecorder()
	app.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gpt-4o-mini")
}

func TestInitializeAppWithRedisLimitsAnalyses(t *testing.T) {
	cfg := memoryConfig()
	withMiniredis(t, cfg)
	cfg.Engine.ResponseCache.Backend = "redis"
	cfg.Messaging.RedisStream.Enabled = true
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, AnalysesPerMinute: 1}

	app, cleanup, err := InitializeApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	body := `{"source_ref":{"id":"missing","type":"session_note"},"analysis_types":["lore"]}`
	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Context-ID", "campaign-a")
		w := httptest.NewRecorder()
		app.Engine().ServeHTTP(w, req)
		return w.Code
	}
	assert.NotEqual(t, http.StatusTooManyRequests, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	w := httptest.NewRecorder()
	app.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":{"status":"ok"`)
}

func TestInitializeAppRejectsUnknownStore(t *testing.T) {
	cfg := memoryConfig()
	cfg.Engine.SuggestionStore = "sqlite"
	_, _, err := InitializeApp(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown suggestion store "sqlite"`)
}

func TestProvideResponseCacheBackends(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()

	cfg.Engine.ResponseCache.Backend = "disabled"
	c, cleanup, err := ProvideResponseCache(ctx, cfg, nil)
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &responsecache.Disabled{}, c)

	cfg.Engine.ResponseCache.Backend = "memory"
	c, cleanup, err = ProvideResponseCache(ctx, cfg, nil)
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &responsecache.Memory{}, c)

	cfg.Engine.ResponseCache.Backend = "redis"
	_, _, err = ProvideResponseCache(ctx, cfg, nil)
	assert.Error(t, err)

	cfg.Engine.ResponseCache.Backend = "memcached"
	_, _, err = ProvideResponseCache(ctx, cfg, nil)
	assert.Error(t, err)
}

func TestOptionalProvidersStayUntypedNil(t *testing.T) {
	cfg := memoryConfig()
	cfg.Messaging.RedisStream.Enabled = true

	assert.Nil(t, ProvideRateLimiter(nil))
	assert.Nil(t, ProvideEventPublisher(cfg, nil))

	pg, cleanup, err := ProvidePostgresClientOptional(cfg)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, pg)

	stores, err := ProvideStores(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.ContentSource{}, stores.Content)
	assert.IsType(t, &memory.SuggestionRepository{}, stores.Suggestion)
}

func TestProvideRateLimiterWithRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.Security.RateLimit.Enabled = true
	withMiniredis(t, cfg)

	rc, cleanup, err := ProvideRedisClientOptional(cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	require.NotNil(t, rc)
	assert.IsType(t, &redis.RateLimiter{}, ProvideRateLimiter(rc))
}
