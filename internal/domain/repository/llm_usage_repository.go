package repository

import (
	"context"
	"time"

	"campaign-ai-api/internal/domain/entity"
)

// LLMUsageEventRepository 模型用量流水仓储
type LLMUsageEventRepository interface {
	Create(ctx context.Context, event *entity.LLMUsageEvent) error
	GetTokenUsage(ctx context.Context, contextID string, startInclusive, endExclusive time.Time) (int64, error)
}
