package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/service"
)

// KnowledgeStore 内存知识库，同一建议重复落地返回同一引用
type KnowledgeStore struct {
	mu           sync.Mutex
	bySuggestion map[string]*entity.EntityRef
	payloads     map[string]entity.SuggestionPayload
}

// NewKnowledgeStore 创建内存知识库
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		bySuggestion: make(map[string]*entity.EntityRef),
		payloads:     make(map[string]entity.SuggestionPayload),
	}
}

// Materialize 写入载荷
func (k *KnowledgeStore) Materialize(_ context.Context, req service.MaterializeRequest) (*entity.EntityRef, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if ref, ok := k.bySuggestion[req.SuggestionID]; ok {
		out := *ref
		return &out, nil
	}
	ref := &entity.EntityRef{ID: uuid.NewString(), Type: string(req.Payload.SuggestionType())}
	k.bySuggestion[req.SuggestionID] = ref
	k.payloads[ref.ID] = entity.ClonePayload(req.Payload)
	out := *ref
	return &out, nil
}

// Lookup 根据实体 ID 读取载荷
func (k *KnowledgeStore) Lookup(id string) (entity.SuggestionPayload, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.payloads[id]
	return p, ok
}
