// Package memory 提供进程内仓储实现（单机部署与测试）
package memory

import (
	"context"
	"sort"
	"sync"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/repository"
	apperrors "campaign-ai-api/pkg/errors"
)

// SuggestionRepository 内存建议仓储，读写均使用副本
type SuggestionRepository struct {
	mu    sync.RWMutex
	items map[string]*entity.ContentSuggestion
}

// NewSuggestionRepository 创建内存建议仓储
func NewSuggestionRepository() *SuggestionRepository {
	return &SuggestionRepository{items: make(map[string]*entity.ContentSuggestion)}
}

// Create 创建建议
func (r *SuggestionRepository) Create(_ context.Context, s *entity.ContentSuggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; ok {
		return apperrors.Newf(apperrors.CodeConflict, "suggestion %s already exists", s.ID)
	}
	r.items[s.ID] = s.Clone()
	return nil
}

// GetByID 根据 ID 获取建议
func (r *SuggestionRepository) GetByID(_ context.Context, id string) (*entity.ContentSuggestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// List 分页查询，按创建时间倒序
func (r *SuggestionRepository) List(ctx context.Context, filter *repository.SuggestionFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.ContentSuggestion], error) {
	all, err := r.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	// Find 为正序，这里反转
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	start, end := pagination.Window(len(all))
	return repository.NewPagedResult(all[start:end], int64(len(all)), pagination), nil
}

// Find 不分页查询，按创建时间正序
func (r *SuggestionRepository) Find(_ context.Context, filter *repository.SuggestionFilter) ([]*entity.ContentSuggestion, error) {
	r.mu.RLock()
	out := make([]*entity.ContentSuggestion, 0, len(r.items))
	for _, s := range r.items {
		if filter.Match(s) {
			out = append(out, s.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateIfVersion 版本一致时写入
func (r *SuggestionRepository) UpdateIfVersion(_ context.Context, s *entity.ContentSuggestion, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[s.ID]
	if !ok || cur.Version != expectedVersion {
		return false, nil
	}
	r.items[s.ID] = s.Clone()
	return true, nil
}

// Delete 删除建议
func (r *SuggestionRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}
