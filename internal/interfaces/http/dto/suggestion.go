package dto

import (
	"encoding/json"
	"time"

	"campaign-ai-api/internal/domain/entity"
)

// SuggestionResponse 建议响应
type SuggestionResponse struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Confidence      string            `json:"confidence"`
	Status          string            `json:"status"`
	SourceRef       entity.Ref        `json:"source_ref"`
	ContextRef      entity.Ref        `json:"context_ref"`
	Payload         any               `json:"payload"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
	MaterializedRef *entity.EntityRef `json:"materialized_ref,omitempty"`
	Version         int64             `json:"version"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// ToSuggestionResponse 转换建议
func ToSuggestionResponse(s *entity.ContentSuggestion) *SuggestionResponse {
	if s == nil {
		return nil
	}
	return &SuggestionResponse{
		ID:              s.ID,
		Type:            string(s.Type),
		Title:           s.Title,
		Description:     s.Description,
		Confidence:      string(s.Confidence),
		Status:          string(s.Status),
		SourceRef:       s.SourceRef,
		ContextRef:      s.ContextRef,
		Payload:         s.Payload,
		Metadata:        s.Metadata,
		MaterializedRef: s.MaterializedRef,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
}

// ToSuggestionResponses 批量转换
func ToSuggestionResponses(items []*entity.ContentSuggestion) []*SuggestionResponse {
	out := make([]*SuggestionResponse, 0, len(items))
	for _, s := range items {
		out = append(out, ToSuggestionResponse(s))
	}
	return out
}

// TransitionRequest 生命周期迁移请求
type TransitionRequest struct {
	Action          string          `json:"action" binding:"required,oneof=accept reject modify"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	ExpectedVersion int64           `json:"expected_version,omitempty" binding:"omitempty,min=1"`
}
