package service

import (
	"context"
	"time"

	"campaign-ai-api/internal/domain/entity"
)

// ContentSource 提供待分析的原始文本
type ContentSource interface {
	FetchText(ctx context.Context, ref entity.Ref) (string, error)
}

// MaterializeRequest 将已接受建议写入知识库的请求
type MaterializeRequest struct {
	SuggestionID string
	ContextRef   entity.Ref
	Payload      entity.SuggestionPayload
}

// KnowledgeStore 知识库写入端口，仅在 accept 时调用
type KnowledgeStore interface {
	Materialize(ctx context.Context, req MaterializeRequest) (*entity.EntityRef, error)
}

// CompletionRequest 单次模型调用
type CompletionRequest struct {
	Model        *entity.LLMModel
	SystemPrompt string
	UserPrompt   string
	Options      entity.GenerationOptions
}

// TokenUsage 令牌用量
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse 模型输出
type CompletionResponse struct {
	Text         string     `json:"text"`
	Model        string     `json:"model"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        TokenUsage `json:"usage"`
}

// ModelProvider 唯一的网络边界；实现可以在内部重试
type ModelProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// SuggestionEvent 建议生命周期事件
type SuggestionEvent struct {
	Kind           string                  `json:"kind"`
	SuggestionID   string                  `json:"suggestion_id"`
	SuggestionType entity.SuggestionType   `json:"suggestion_type"`
	Status         entity.SuggestionStatus `json:"status"`
	ContextRef     entity.Ref              `json:"context_ref"`
	Version        int64                   `json:"version"`
	EntityRef      *entity.EntityRef       `json:"entity_ref,omitempty"`
	OccurredAt     time.Time               `json:"occurred_at"`
}

// 事件类型
const (
	SuggestionEventAccepted = "suggestion.accepted"
	SuggestionEventRejected = "suggestion.rejected"
	SuggestionEventModified = "suggestion.modified"
	SuggestionEventDeleted  = "suggestion.deleted"
)

// SuggestionEventPublisher 发布生命周期事件（best-effort）
type SuggestionEventPublisher interface {
	PublishSuggestionEvent(ctx context.Context, event SuggestionEvent) error
}
