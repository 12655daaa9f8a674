package entity

import (
	"time"

	apperrors "campaign-ai-api/pkg/errors"
)

// AnalysisOptions 分析选项
type AnalysisOptions struct {
	MaxResults      int        `json:"max_results,omitempty"`
	MinConfidence   Confidence `json:"min_confidence,omitempty"`
	IncludeAccepted bool       `json:"include_accepted,omitempty"`
	ModelOverride   string     `json:"model_override,omitempty"`
	CustomPrompt    string     `json:"custom_prompt,omitempty"`
}

// AnalysisRequest 分析请求
type AnalysisRequest struct {
	ID            string           `json:"id"`
	SourceRef     Ref              `json:"source_ref"`
	ContextRef    Ref              `json:"context_ref"`
	AnalysisTypes []SuggestionType `json:"analysis_types"`
	Options       AnalysisOptions  `json:"options"`
}

// Validate 校验请求，并对分析类型去重（保留首次出现顺序）
func (r *AnalysisRequest) Validate() error {
	if r.SourceRef.ID == "" {
		return apperrors.Validation("source_ref.id is required")
	}
	if len(r.AnalysisTypes) == 0 {
		return apperrors.Validation("analysis_types must not be empty")
	}
	seen := make(map[SuggestionType]struct{}, len(r.AnalysisTypes))
	types := make([]SuggestionType, 0, len(r.AnalysisTypes))
	for _, t := range r.AnalysisTypes {
		if !t.Valid() {
			return apperrors.Validation("unknown analysis type %q", t)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	r.AnalysisTypes = types

	if r.Options.MaxResults < 0 {
		return apperrors.Validation("options.max_results must not be negative")
	}
	if r.Options.MinConfidence != "" && !r.Options.MinConfidence.Valid() {
		return apperrors.Validation("unknown options.min_confidence %q", r.Options.MinConfidence)
	}
	return nil
}

// TypeStatus 单个类型的执行结果
type TypeStatus string

const (
	TypeStatusSucceeded TypeStatus = "succeeded"
	TypeStatusFailed    TypeStatus = "failed"
	TypeStatusCanceled  TypeStatus = "canceled"
)

// TypeOutcome 单个建议类型的执行明细
type TypeOutcome struct {
	Status           TypeStatus `json:"status"`
	Model            string     `json:"model,omitempty"`
	Template         string     `json:"template,omitempty"`
	CacheHit         bool       `json:"cache_hit,omitempty"`
	PromptTokens     int        `json:"prompt_tokens,omitempty"`
	CompletionTokens int        `json:"completion_tokens,omitempty"`
	Parsed           int        `json:"parsed,omitempty"`
	Dropped          int        `json:"dropped,omitempty"`
	Produced         int        `json:"produced,omitempty"`
	ErrorCode        string     `json:"error_code,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// AnalysisMetadata 分析元数据
type AnalysisMetadata struct {
	Models           []string                        `json:"models,omitempty"`
	PromptTokens     int                             `json:"prompt_tokens"`
	CompletionTokens int                             `json:"completion_tokens"`
	CacheHits        int                             `json:"cache_hits"`
	Partial          bool                            `json:"partial,omitempty"`
	Canceled         bool                            `json:"canceled,omitempty"`
	Errors           map[SuggestionType]string       `json:"errors,omitempty"`
	Types            map[SuggestionType]*TypeOutcome `json:"types,omitempty"`
}

// AnalysisResult 分析结果
type AnalysisResult struct {
	ID               string               `json:"id"`
	RequestID        string               `json:"request_id"`
	Suggestions      []*ContentSuggestion `json:"suggestions"`
	CreatedAt        time.Time            `json:"created_at"`
	ProcessingTimeMs int64                `json:"processing_time_ms"`
	Metadata         AnalysisMetadata     `json:"metadata"`
}
