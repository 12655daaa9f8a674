// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	"campaign-ai-api/internal/application/analysis"
	"campaign-ai-api/internal/application/modelregistry"
	"campaign-ai-api/internal/application/prompt"
	"campaign-ai-api/internal/application/quota"
	"campaign-ai-api/internal/application/responsecache"
	"campaign-ai-api/internal/application/suggestion"
	"campaign-ai-api/internal/config"
	"campaign-ai-api/internal/domain/repository"
	"campaign-ai-api/internal/domain/service"
	"campaign-ai-api/internal/infrastructure/llm"
	"campaign-ai-api/internal/infrastructure/messaging"
	"campaign-ai-api/internal/infrastructure/persistence/memory"
	"campaign-ai-api/internal/infrastructure/persistence/postgres"
	"campaign-ai-api/internal/infrastructure/persistence/redis"
	"campaign-ai-api/internal/interfaces/http/handler"
	"campaign-ai-api/internal/interfaces/http/middleware"
	"campaign-ai-api/internal/interfaces/http/router"
	"campaign-ai-api/pkg/logger"
)

const (
	storeMemory   = "memory"
	storePostgres = "postgres"

	cacheMemory   = "memory"
	cacheRedis    = "redis"
	cacheDisabled = "disabled"
)

// Stores 按配置选定的存储实现
type Stores struct {
	Content    service.ContentSource
	Suggestion repository.SuggestionRepository
	Knowledge  service.KnowledgeStore
	Usage      repository.LLMUsageEventRepository
}

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient    *postgres.Client
	TxManager   *postgres.TxManager
	ContentRepo *postgres.SessionContentRepository
}

func needsPostgres(cfg *config.Config) bool {
	return cfg.Engine.ContentStore == storePostgres || cfg.Engine.SuggestionStore == storePostgres
}

func needsRedis(cfg *config.Config) bool {
	return cfg.Engine.ResponseCache.Backend == cacheRedis ||
		cfg.Messaging.RedisStream.Enabled ||
		cfg.Security.RateLimit.Enabled
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvidePostgresClientOptional 仅在有存储使用 postgres 时连接
func ProvidePostgresClientOptional(cfg *config.Config) (*postgres.Client, func(), error) {
	if !needsPostgres(cfg) {
		return nil, func() {}, nil
	}
	return ProvidePostgresClient(cfg)
}

// ProvideRedisClientOptional 仅在缓存、事件流或限流需要时连接
func ProvideRedisClientOptional(cfg *config.Config) (*redis.Client, func(), error) {
	if !needsRedis(cfg) {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideStores 按配置选择内存或 PostgreSQL 存储；知识库和用量跟随建议存储
func ProvideStores(cfg *config.Config, pg *postgres.Client) (*Stores, error) {
	s := &Stores{}

	switch cfg.Engine.ContentStore {
	case storePostgres:
		s.Content = postgres.NewSessionContentRepository(pg)
	case storeMemory, "":
		s.Content = memory.NewContentSource()
	default:
		return nil, fmt.Errorf("unknown content store %q", cfg.Engine.ContentStore)
	}

	switch cfg.Engine.SuggestionStore {
	case storePostgres:
		s.Suggestion = postgres.NewSuggestionRepository(pg)
		s.Knowledge = postgres.NewKnowledgeStore(pg)
		s.Usage = postgres.NewLLMUsageEventRepository(pg)
	case storeMemory, "":
		s.Suggestion = memory.NewSuggestionRepository()
		s.Knowledge = memory.NewKnowledgeStore()
		s.Usage = memory.NewLLMUsageEventRepository()
	default:
		return nil, fmt.Errorf("unknown suggestion store %q", cfg.Engine.SuggestionStore)
	}
	return s, nil
}

// ProvideResponseCache 提供模型响应缓存；内存后端随 ctx 启动清理协程
func ProvideResponseCache(ctx context.Context, cfg *config.Config, rc *redis.Client) (responsecache.Cache, func(), error) {
	rcfg := cfg.Engine.ResponseCache
	switch rcfg.Backend {
	case cacheDisabled:
		return responsecache.NewDisabled(), func() {}, nil
	case cacheRedis:
		if rc == nil {
			return nil, nil, fmt.Errorf("response cache backend redis requires a redis client")
		}
		return redis.NewResponseCache(rc, rcfg.KeyPrefix), func() {}, nil
	case cacheMemory, "":
		m, err := responsecache.NewMemory(rcfg.MaxEntries)
		if err != nil {
			return nil, nil, err
		}
		sweepCtx, cancel := context.WithCancel(ctx)
		m.StartSweeper(sweepCtx, rcfg.SweepInterval)
		return m, cancel, nil
	default:
		return nil, nil, fmt.Errorf("unknown response cache backend %q", rcfg.Backend)
	}
}

// ProvideEventPublisher 启用 Redis Stream 时提供事件发布者
func ProvideEventPublisher(cfg *config.Config, rc *redis.Client) service.SuggestionEventPublisher {
	if !cfg.Messaging.RedisStream.Enabled || rc == nil {
		return nil
	}
	return messaging.NewProducer(rc.Redis(), cfg.Messaging.RedisStream.MaxLen)
}

// ProvideRateLimiter 有 Redis 时提供限流器
func ProvideRateLimiter(rc *redis.Client) middleware.RateLimiter {
	if rc == nil {
		return nil
	}
	return redis.NewRateLimiter(rc)
}

// ProvideChatModelFactory 提供模型工厂
func ProvideChatModelFactory(cfg *config.Config) llm.ChatModelFactory {
	return llm.NewEinoFactory(cfg)
}

// ProvideModelProvider 提供带重试的模型调用
func ProvideModelProvider(cfg *config.Config, factory llm.ChatModelFactory) service.ModelProvider {
	return llm.NewChatModelProvider(factory, cfg.LLM.Retry)
}

// ProvideModelRegistry 提供模型注册表
func ProvideModelRegistry(cfg *config.Config) (*modelregistry.Registry, error) {
	return modelregistry.NewFromConfig(cfg.Engine)
}

// ProvideSuggestionService 提供建议服务
func ProvideSuggestionService(stores *Stores, events service.SuggestionEventPublisher) *suggestion.Service {
	return suggestion.NewService(stores.Suggestion, stores.Knowledge, events)
}

// ProvideUsageRecorder 提供用量记录器
func ProvideUsageRecorder(stores *Stores) service.LLMUsageRecorder {
	return quota.NewLLMUsageRecorder(stores.Usage)
}

// ProvideQuotaChecker 提供日配额检查
func ProvideQuotaChecker(stores *Stores) *quota.TokenQuotaChecker {
	return quota.NewTokenQuotaChecker(stores.Usage)
}

// ProvideOrchestrator 提供分析编排器
func ProvideOrchestrator(
	cfg *config.Config,
	stores *Stores,
	templates *prompt.Registry,
	models *modelregistry.Registry,
	cache responsecache.Cache,
	provider service.ModelProvider,
	suggestions *suggestion.Service,
	usage service.LLMUsageRecorder,
) *analysis.Orchestrator {
	return analysis.NewOrchestrator(
		analysis.Config{
			DefaultModel:      cfg.Engine.DefaultModel,
			DefaultMaxResults: cfg.Engine.DefaultMaxResults,
			MaxInFlight:       cfg.Engine.MaxInFlight,
			CallTimeout:       cfg.Engine.CallTimeout,
			CacheTTL:          cfg.Engine.ResponseCache.TTL,
		},
		stores.Content,
		templates,
		models,
		cache,
		provider,
		suggestions,
		usage,
	)
}

// ProvideHealthHandler 提供健康检查处理器；未启用的依赖显示为 disabled
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	deps := map[string]handler.HealthChecker{
		"postgres": nil,
		"redis":    nil,
	}
	if pg != nil {
		deps["postgres"] = pg
	}
	if rc != nil {
		deps["redis"] = rc
	}
	return handler.NewHealthHandler(cfg.App.Version, deps)
}

// ProvideAnalysisHandler 提供分析处理器
func ProvideAnalysisHandler(cfg *config.Config, orch *analysis.Orchestrator, quotaChecker *quota.TokenQuotaChecker) *handler.AnalysisHandler {
	return handler.NewAnalysisHandler(orch, quotaChecker, cfg.Engine.DailyTokenQuota)
}

// ProvideSuggestionHandler 提供建议处理器
func ProvideSuggestionHandler(svc *suggestion.Service) *handler.SuggestionHandler {
	return handler.NewSuggestionHandler(svc)
}

// ProvideCatalogHandler 提供目录处理器
func ProvideCatalogHandler(models *modelregistry.Registry, templates *prompt.Registry) *handler.CatalogHandler {
	return handler.NewCatalogHandler(models, templates)
}

// ProvideRouter 提供路由器
func ProvideRouter(ctx context.Context, cfg *config.Config, h *router.RouterHandlers, limiter middleware.RateLimiter) *router.Router {
	if limiter == nil && cfg.Security.RateLimit.Enabled {
		logger.Warn(ctx, "rate limit enabled but redis is unavailable, analyses are not limited")
	}
	return router.NewWithDeps(cfg, h, limiter)
}
