package repository

import (
	"context"

	"campaign-ai-api/internal/domain/entity"
)

// SuggestionFilter 建议过滤条件
type SuggestionFilter struct {
	ContextID     string
	ContextType   string
	SourceID      string
	Types         []entity.SuggestionType
	Statuses      []entity.SuggestionStatus
	MinConfidence entity.Confidence
}

// Match 判断建议是否满足过滤条件（内存实现与测试使用）
func (f *SuggestionFilter) Match(s *entity.ContentSuggestion) bool {
	if f == nil {
		return true
	}
	if f.ContextID != "" && s.ContextRef.ID != f.ContextID {
		return false
	}
	if f.ContextType != "" && s.ContextRef.Type != f.ContextType {
		return false
	}
	if f.SourceID != "" && s.SourceRef.ID != f.SourceID {
		return false
	}
	if len(f.Types) > 0 && !containsType(f.Types, s.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, s.Status) {
		return false
	}
	return s.Confidence.AtLeast(f.MinConfidence)
}

func containsType(types []entity.SuggestionType, t entity.SuggestionType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsStatus(statuses []entity.SuggestionStatus, s entity.SuggestionStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

// SuggestionRepository 建议仓储接口
type SuggestionRepository interface {
	// Create 创建建议
	Create(ctx context.Context, suggestion *entity.ContentSuggestion) error

	// GetByID 根据 ID 获取建议，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.ContentSuggestion, error)

	// List 分页查询，按创建时间倒序
	List(ctx context.Context, filter *SuggestionFilter, pagination Pagination) (*PagedResult[*entity.ContentSuggestion], error)

	// Find 不分页查询，按创建时间正序
	Find(ctx context.Context, filter *SuggestionFilter) ([]*entity.ContentSuggestion, error)

	// UpdateIfVersion 仅当存储版本等于 expectedVersion 时写入，返回是否写入
	UpdateIfVersion(ctx context.Context, suggestion *entity.ContentSuggestion, expectedVersion int64) (bool, error)

	// Delete 删除建议，返回是否存在
	Delete(ctx context.Context, id string) (bool, error)
}
