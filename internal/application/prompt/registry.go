package prompt

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"campaign-ai-api/internal/domain/entity"
	apperrors "campaign-ai-api/pkg/errors"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// 内置模板声明的变量
const (
	VarContent          = "content"
	VarSourceID         = "source_id"
	VarSourceType       = "source_type"
	VarContextID        = "context_id"
	VarContextType      = "context_type"
	VarSuggestionType   = "suggestion_type"
	VarMaxResults       = "max_results"
	VarExistingEntities = "existing_entities"
)

// StandardVariables 编排器为每次渲染提供的变量集合
var StandardVariables = []string{
	VarContent,
	VarSourceID,
	VarSourceType,
	VarContextID,
	VarContextType,
	VarSuggestionType,
	VarMaxResults,
	VarExistingEntities,
}

const systemTemplateFile = "templates/suggestion.system.txt"

// BuiltinTemplateID 内置模板 ID
func BuiltinTemplateID(t entity.SuggestionType) string {
	return fmt.Sprintf("suggest_%s_v1", t)
}

// Registry 模板注册表：每种建议类型一个模板
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*entity.PromptTemplate
	byType map[entity.SuggestionType]string
}

// NewRegistry 创建注册表并加载内置模板
func NewRegistry() (*Registry, error) {
	r := &Registry{
		byID:   make(map[string]*entity.PromptTemplate),
		byType: make(map[entity.SuggestionType]string),
	}

	system, err := readEmbeddedText(systemTemplateFile)
	if err != nil {
		return nil, err
	}
	for _, t := range entity.AllSuggestionTypes {
		user, err := readEmbeddedText(fmt.Sprintf("templates/%s.user.txt", t))
		if err != nil {
			return nil, err
		}
		tpl := &entity.PromptTemplate{
			ID:                   BuiltinTemplateID(t),
			Name:                 fmt.Sprintf("%s suggestions", t),
			Description:          fmt.Sprintf("Extracts %s suggestions from session content", t),
			SuggestionType:       t,
			Template:             user,
			Variables:            append([]string(nil), StandardVariables...),
			SystemPrompt:         system,
			RequiredCapabilities: []entity.Capability{entity.CapabilityChat},
			DefaultOptions: entity.GenerationOptions{
				Temperature: 0.3,
				MaxTokens:   2048,
			},
		}
		if err := r.Upsert(tpl); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Upsert 新增或替换模板；替换时版本号递增
func (r *Registry) Upsert(tpl *entity.PromptTemplate) error {
	if tpl == nil || tpl.ID == "" {
		return apperrors.Validation("template id is required")
	}
	if !tpl.SuggestionType.Valid() {
		return apperrors.Validation("template %s: unknown suggestion type %q", tpl.ID, tpl.SuggestionType)
	}
	if err := CheckDeclared(tpl); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := tpl.Clone()
	if prev, ok := r.byID[tpl.ID]; ok {
		stored.Version = prev.Version + 1
		if prev.SuggestionType != stored.SuggestionType && r.byType[prev.SuggestionType] == prev.ID {
			delete(r.byType, prev.SuggestionType)
		}
	} else {
		stored.Version = 1
	}
	r.byID[stored.ID] = stored
	r.byType[stored.SuggestionType] = stored.ID
	return nil
}

// Remove 删除模板
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tpl, ok := r.byID[id]
	if !ok {
		return apperrors.NotFound(apperrors.CodeTemplateNotFound, "template %s not found", id)
	}
	delete(r.byID, id)
	if r.byType[tpl.SuggestionType] == id {
		delete(r.byType, tpl.SuggestionType)
	}
	return nil
}

// Get 根据 ID 获取模板副本
func (r *Registry) Get(id string) (*entity.PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tpl, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.CodeTemplateNotFound, "template %s not found", id)
	}
	return tpl.Clone(), nil
}

// ForType 返回建议类型当前绑定的模板副本
func (r *Registry) ForType(t entity.SuggestionType) (*entity.PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byType[t]
	if !ok {
		return nil, apperrors.NotFound(apperrors.CodeTemplateNotFound, "no template registered for type %s", t)
	}
	return r.byID[id].Clone(), nil
}

// List 按 ID 排序返回全部模板
func (r *Registry) List() []*entity.PromptTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.PromptTemplate, 0, len(r.byID))
	for _, tpl := range r.byID {
		out = append(out, tpl.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
