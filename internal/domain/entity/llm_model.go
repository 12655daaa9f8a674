package entity

import (
	"sort"

	apperrors "campaign-ai-api/pkg/errors"
)

// Capability 模型能力
type Capability string

const (
	CapabilityChat            Capability = "chat"
	CapabilityCompletion      Capability = "completion"
	CapabilityEmbedding       Capability = "embedding"
	CapabilityFunctionCalling Capability = "function-calling"
	CapabilityImageGeneration Capability = "image-generation"
	CapabilityVision          Capability = "vision"
)

// Valid 是否为已知能力
func (c Capability) Valid() bool {
	switch c {
	case CapabilityChat, CapabilityCompletion, CapabilityEmbedding,
		CapabilityFunctionCalling, CapabilityImageGeneration, CapabilityVision:
		return true
	}
	return false
}

// LLMModel 模型描述
type LLMModel struct {
	ID            string       `json:"id"`
	Provider      string       `json:"provider"`
	ContextWindow int          `json:"context_window"`
	MaxTokens     int          `json:"max_tokens"`
	IsAvailable   bool         `json:"is_available"`
	Capabilities  []Capability `json:"capabilities"`
	Version       int64        `json:"version"`
}

// Validate 校验模型描述
func (m *LLMModel) Validate() error {
	if m.ID == "" {
		return apperrors.Validation("model id is required")
	}
	if m.Provider == "" {
		return apperrors.Validation("model %s: provider is required", m.ID)
	}
	if m.ContextWindow <= 0 {
		return apperrors.Validation("model %s: context window must be positive", m.ID)
	}
	if m.MaxTokens <= 0 || m.MaxTokens > m.ContextWindow {
		return apperrors.Validation("model %s: max tokens must be within 1..%d", m.ID, m.ContextWindow)
	}
	for _, c := range m.Capabilities {
		if !c.Valid() {
			return apperrors.Validation("model %s: unknown capability %q", m.ID, c)
		}
	}
	return nil
}

// Supports 能力集合是否覆盖 required
func (m *LLMModel) Supports(required []Capability) bool {
	have := make(map[Capability]struct{}, len(m.Capabilities))
	for _, c := range m.Capabilities {
		have[c] = struct{}{}
	}
	for _, c := range required {
		if _, ok := have[c]; !ok {
			return false
		}
	}
	return true
}

// Clone 拷贝模型描述
func (m *LLMModel) Clone() *LLMModel {
	out := *m
	out.Capabilities = append([]Capability(nil), m.Capabilities...)
	return &out
}

// NormalizeCapabilities 去重并排序
func NormalizeCapabilities(in []Capability) []Capability {
	seen := make(map[Capability]struct{}, len(in))
	out := make([]Capability, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
