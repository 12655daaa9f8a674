//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"campaign-ai-api/internal/application/prompt"
	"campaign-ai-api/internal/config"
	"campaign-ai-api/internal/infrastructure/persistence/postgres"
	"campaign-ai-api/internal/interfaces/http/router"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		DataSet,
		EngineSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewSessionContentRepository,
)

// DataSet 存储、缓存与消息提供者集合
var DataSet = wire.NewSet(
	ProvidePostgresClientOptional,
	ProvideRedisClientOptional,
	ProvideStores,
	ProvideResponseCache,
	ProvideEventPublisher,
	ProvideRateLimiter,
)

// EngineSet 分析引擎提供者集合
var EngineSet = wire.NewSet(
	ProvideChatModelFactory,
	ProvideModelProvider,
	ProvideModelRegistry,
	prompt.NewRegistry,
	ProvideSuggestionService,
	ProvideUsageRecorder,
	ProvideQuotaChecker,
	ProvideOrchestrator,
)

// RouterSet 路由提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	ProvideAnalysisHandler,
	ProvideSuggestionHandler,
	ProvideCatalogHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	ProvideRouter,
)
