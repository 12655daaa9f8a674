// Package modelregistry 维护模型描述并按能力选择模型
package modelregistry

import (
	"sort"
	"sync"

	"campaign-ai-api/internal/config"
	"campaign-ai-api/internal/domain/entity"
	apperrors "campaign-ai-api/pkg/errors"
)

// Registry 内存模型注册表，并发安全
type Registry struct {
	mu        sync.RWMutex
	models    map[string]*entity.LLMModel
	defaultID string
}

// New 创建空注册表
func New() *Registry {
	return &Registry{models: make(map[string]*entity.LLMModel)}
}

// NewFromConfig 根据引擎配置注册模型并设置默认模型
func NewFromConfig(cfg config.EngineConfig) (*Registry, error) {
	r := New()
	for _, mc := range cfg.Models {
		caps := make([]entity.Capability, 0, len(mc.Capabilities))
		for _, c := range mc.Capabilities {
			caps = append(caps, entity.Capability(c))
		}
		err := r.Register(&entity.LLMModel{
			ID:            mc.ID,
			Provider:      mc.Provider,
			ContextWindow: mc.ContextWindow,
			MaxTokens:     mc.MaxTokens,
			IsAvailable:   mc.Available,
			Capabilities:  caps,
		})
		if err != nil {
			return nil, err
		}
	}
	if cfg.DefaultModel != "" {
		if err := r.SetDefault(cfg.DefaultModel); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register 注册新模型，版本从 1 开始
func (r *Registry) Register(m *entity.LLMModel) error {
	if m == nil {
		return apperrors.Validation("model is nil")
	}
	if err := m.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[m.ID]; ok {
		return apperrors.Newf(apperrors.CodeConflict, "model %s already registered", m.ID)
	}
	stored := m.Clone()
	stored.Capabilities = entity.NormalizeCapabilities(stored.Capabilities)
	stored.Version = 1
	r.models[stored.ID] = stored
	return nil
}

// Update 替换已有模型描述并递增版本。
// 默认模型被标记为不可用时清除默认设置。
func (r *Registry) Update(m *entity.LLMModel) error {
	if m == nil {
		return apperrors.Validation("model is nil")
	}
	if err := m.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.models[m.ID]
	if !ok {
		return apperrors.NotFound(apperrors.CodeModelNotFound, "model %s not found", m.ID)
	}
	stored := m.Clone()
	stored.Capabilities = entity.NormalizeCapabilities(stored.Capabilities)
	stored.Version = prev.Version + 1
	r.models[stored.ID] = stored
	if r.defaultID == stored.ID && !stored.IsAvailable {
		r.defaultID = ""
	}
	return nil
}

// Remove 删除模型
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[id]; !ok {
		return apperrors.NotFound(apperrors.CodeModelNotFound, "model %s not found", id)
	}
	delete(r.models, id)
	if r.defaultID == id {
		r.defaultID = ""
	}
	return nil
}

// Get 返回模型副本
func (r *Registry) Get(id string) (*entity.LLMModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.CodeModelNotFound, "model %s not found", id)
	}
	return m.Clone(), nil
}

// List 按 ID 排序返回全部模型
func (r *Registry) List() []*entity.LLMModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.LLMModel, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetDefault 设置默认模型，模型必须存在且可用
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[id]
	if !ok {
		return apperrors.NotFound(apperrors.CodeModelNotFound, "default model %s not registered", id)
	}
	if !m.IsAvailable {
		return apperrors.Validation("default model %s is not available", id)
	}
	r.defaultID = id
	return nil
}

// Default 返回默认模型
func (r *Registry) Default() (*entity.LLMModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultID == "" {
		return nil, false
	}
	return r.models[r.defaultID].Clone(), true
}
