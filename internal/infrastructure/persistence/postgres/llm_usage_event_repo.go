package postgres

import (
	"context"
	"fmt"
	"time"

	"campaign-ai-api/internal/domain/entity"
)

// LLMUsageEventRepository 模型用量流水
type LLMUsageEventRepository struct {
	client *Client
}

func NewLLMUsageEventRepository(client *Client) *LLMUsageEventRepository {
	return &LLMUsageEventRepository{client: client}
}

func (r *LLMUsageEventRepository) Create(ctx context.Context, event *entity.LLMUsageEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.LLMUsageEventRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(event).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create llm usage event: %w", err)
	}
	return nil
}

// GetTokenUsage 统计上下文在时间窗口内的总 token
func (r *LLMUsageEventRepository) GetTokenUsage(ctx context.Context, contextID string, startInclusive, endExclusive time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.LLMUsageEventRepository.GetTokenUsage")
	defer span.End()

	var total int64
	if err := getDB(ctx, r.client.db).Model(&entity.LLMUsageEvent{}).
		Where("context_id = ? AND created_at >= ? AND created_at < ?", contextID, startInclusive, endExclusive).
		Select("COALESCE(SUM(tokens_prompt + tokens_completion),0)").
		Scan(&total).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get llm usage: %w", err)
	}
	return total, nil
}
