package quota

import (
	"context"
	"fmt"
	"strings"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/repository"
	"campaign-ai-api/internal/domain/service"
)

// LLMUsageRecorder 将模型用量写入流水表
type LLMUsageRecorder struct {
	usageRepo repository.LLMUsageEventRepository
}

func NewLLMUsageRecorder(usageRepo repository.LLMUsageEventRepository) *LLMUsageRecorder {
	return &LLMUsageRecorder{usageRepo: usageRepo}
}

// Record 没有上下文归属的调用不落流水
func (r *LLMUsageRecorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	if r == nil || r.usageRepo == nil {
		return nil
	}

	contextID := strings.TrimSpace(in.ContextID)
	if contextID == "" {
		return nil
	}
	if in.PromptTokens < 0 || in.CompletionTokens < 0 {
		return fmt.Errorf("invalid token usage: prompt=%d completion=%d", in.PromptTokens, in.CompletionTokens)
	}

	return r.usageRepo.Create(ctx, &entity.LLMUsageEvent{
		ContextID:        contextID,
		AnalysisID:       strings.TrimSpace(in.AnalysisID),
		SuggestionType:   strings.TrimSpace(in.SuggestionType),
		Provider:         strings.TrimSpace(in.Provider),
		Model:            strings.TrimSpace(in.Model),
		TokensPrompt:     in.PromptTokens,
		TokensCompletion: in.CompletionTokens,
		DurationMs:       in.DurationMs,
	})
}
