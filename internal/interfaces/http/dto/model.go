package dto

import "campaign-ai-api/internal/domain/entity"

// ModelResponse 模型描述
type ModelResponse struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	ContextWindow int      `json:"context_window"`
	MaxTokens     int      `json:"max_tokens"`
	IsAvailable   bool     `json:"is_available"`
	Capabilities  []string `json:"capabilities"`
	Version       int64    `json:"version"`
	IsDefault     bool     `json:"is_default,omitempty"`
}

// ModelListResponse 模型列表
type ModelListResponse struct {
	Models       []*ModelResponse `json:"models"`
	DefaultModel string           `json:"default_model,omitempty"`
}

// ToModelListResponse 转换模型列表
func ToModelListResponse(models []*entity.LLMModel, defaultID string) *ModelListResponse {
	out := &ModelListResponse{Models: make([]*ModelResponse, 0, len(models)), DefaultModel: defaultID}
	for _, m := range models {
		caps := make([]string, 0, len(m.Capabilities))
		for _, c := range m.Capabilities {
			caps = append(caps, string(c))
		}
		out.Models = append(out.Models, &ModelResponse{
			ID:            m.ID,
			Provider:      m.Provider,
			ContextWindow: m.ContextWindow,
			MaxTokens:     m.MaxTokens,
			IsAvailable:   m.IsAvailable,
			Capabilities:  caps,
			Version:       m.Version,
			IsDefault:     m.ID == defaultID,
		})
	}
	return out
}
