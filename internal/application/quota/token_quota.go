// Package quota 提供模型用量流水与上下文级 Token 配额
package quota

import (
	"context"
	"fmt"
	"time"

	"campaign-ai-api/internal/domain/repository"
	apperrors "campaign-ai-api/pkg/errors"
)

// TokenQuotaExceededError 表示上下文 Token 日配额已耗尽
type TokenQuotaExceededError struct {
	ContextID string
	Max       int64
	Used      int64
}

func (e TokenQuotaExceededError) Error() string {
	return fmt.Sprintf("token quota exceeded: context=%s used=%d max=%d", e.ContextID, e.Used, e.Max)
}

// TokenQuotaChecker 检查上下文当日的 Token 用量
type TokenQuotaChecker struct {
	llmRepo repository.LLMUsageEventRepository
	now     func() time.Time
}

func NewTokenQuotaChecker(llmRepo repository.LLMUsageEventRepository) *TokenQuotaChecker {
	return &TokenQuotaChecker{
		llmRepo: llmRepo,
		now:     time.Now,
	}
}

// DailyUsage 返回上下文在 UTC 当日已用的 token 数
func (c *TokenQuotaChecker) DailyUsage(ctx context.Context, contextID string) (int64, error) {
	if c == nil || c.llmRepo == nil {
		return 0, nil
	}
	now := c.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return c.llmRepo.GetTokenUsage(ctx, contextID, start, start.Add(24*time.Hour))
}

// CheckDailyTokens max<=0 表示不限。超限时返回 CodeTooManyRequests 错误，
// 其底层错误为 TokenQuotaExceededError。
func (c *TokenQuotaChecker) CheckDailyTokens(ctx context.Context, contextID string, max int64) (used int64, err error) {
	if max <= 0 {
		return 0, nil
	}
	used, err = c.DailyUsage(ctx, contextID)
	if err != nil {
		return 0, err
	}
	if used >= max {
		qe := TokenQuotaExceededError{ContextID: contextID, Max: max, Used: used}
		return used, apperrors.Wrap(qe, apperrors.CodeTooManyRequests, "daily token quota exceeded").
			WithDetail(fmt.Sprintf("used %d of %d tokens today", used, max))
	}
	return used, nil
}
