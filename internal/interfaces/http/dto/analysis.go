package dto

import (
	"time"

	"campaign-ai-api/internal/domain/entity"
)

// RefRequest 外部对象引用
type RefRequest struct {
	ID   string `json:"id" binding:"required"`
	Type string `json:"type"`
}

// AnalysisOptionsRequest 分析选项
type AnalysisOptionsRequest struct {
	MaxResults      int    `json:"max_results,omitempty" binding:"omitempty,min=0"`
	MinConfidence   string `json:"min_confidence,omitempty" binding:"omitempty,oneof=low medium high"`
	IncludeAccepted bool   `json:"include_accepted,omitempty"`
	ModelOverride   string `json:"model_override,omitempty"`
	CustomPrompt    string `json:"custom_prompt,omitempty"`
}

// AnalyzeRequest 发起分析请求
type AnalyzeRequest struct {
	SourceRef     RefRequest             `json:"source_ref"`
	ContextRef    *RefRequest            `json:"context_ref,omitempty"`
	AnalysisTypes []string               `json:"analysis_types" binding:"required,min=1"`
	Options       AnalysisOptionsRequest `json:"options"`
}

// ToEntity 转换为领域请求，类型合法性由领域校验
func (r *AnalyzeRequest) ToEntity() *entity.AnalysisRequest {
	var contextRef entity.Ref
	if r.ContextRef != nil {
		contextRef = entity.Ref{ID: r.ContextRef.ID, Type: r.ContextRef.Type}
	}
	types := make([]entity.SuggestionType, 0, len(r.AnalysisTypes))
	for _, t := range r.AnalysisTypes {
		types = append(types, entity.SuggestionType(t))
	}
	return &entity.AnalysisRequest{
		SourceRef:     entity.Ref{ID: r.SourceRef.ID, Type: r.SourceRef.Type},
		ContextRef:    contextRef,
		AnalysisTypes: types,
		Options: entity.AnalysisOptions{
			MaxResults:      r.Options.MaxResults,
			MinConfidence:   entity.Confidence(r.Options.MinConfidence),
			IncludeAccepted: r.Options.IncludeAccepted,
			ModelOverride:   r.Options.ModelOverride,
			CustomPrompt:    r.Options.CustomPrompt,
		},
	}
}

// AnalysisResponse 分析结果
type AnalysisResponse struct {
	ID               string                  `json:"id"`
	RequestID        string                  `json:"request_id"`
	Suggestions      []*SuggestionResponse   `json:"suggestions"`
	CreatedAt        string                  `json:"created_at"`
	ProcessingTimeMs int64                   `json:"processing_time_ms"`
	Metadata         entity.AnalysisMetadata `json:"metadata"`
}

// ToAnalysisResponse 转换分析结果
func ToAnalysisResponse(r *entity.AnalysisResult) *AnalysisResponse {
	return &AnalysisResponse{
		ID:               r.ID,
		RequestID:        r.RequestID,
		Suggestions:      ToSuggestionResponses(r.Suggestions),
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
		ProcessingTimeMs: r.ProcessingTimeMs,
		Metadata:         r.Metadata,
	}
}

// UsageResponse 上下文当日用量；Remaining 在不限额时省略
type UsageResponse struct {
	ContextID  string `json:"context_id"`
	UsedTokens int64  `json:"used_tokens"`
	DailyLimit int64  `json:"daily_limit"`
	Remaining  *int64 `json:"remaining,omitempty"`
}

// NewUsageResponse 构建用量响应
func NewUsageResponse(contextID string, used, limit int64) *UsageResponse {
	resp := &UsageResponse{ContextID: contextID, UsedTokens: used, DailyLimit: limit}
	if limit > 0 {
		remaining := max(limit-used, 0)
		resp.Remaining = &remaining
	}
	return resp
}
