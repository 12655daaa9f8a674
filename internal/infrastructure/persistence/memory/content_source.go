package memory

import (
	"context"
	"sync"

	"campaign-ai-api/internal/domain/entity"
	apperrors "campaign-ai-api/pkg/errors"
)

// ContentSource 内存会话内容源
type ContentSource struct {
	mu    sync.RWMutex
	texts map[string]string
}

// NewContentSource 创建内容源
func NewContentSource() *ContentSource {
	return &ContentSource{texts: make(map[string]string)}
}

// Put 写入内容
func (s *ContentSource) Put(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[id] = text
}

// FetchText 读取内容
func (s *ContentSource) FetchText(_ context.Context, ref entity.Ref) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.texts[ref.ID]
	if !ok {
		return "", apperrors.NotFound(apperrors.CodeSourceNotFound, "content %s not found", ref.ID)
	}
	return text, nil
}
