package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"campaign-ai-api/internal/domain/entity"
)

// LLMUsageEventRepository 内存用量流水
type LLMUsageEventRepository struct {
	mu     sync.RWMutex
	events []entity.LLMUsageEvent
	now    func() time.Time
}

func NewLLMUsageEventRepository() *LLMUsageEventRepository {
	return &LLMUsageEventRepository{now: time.Now}
}

func (r *LLMUsageEventRepository) Create(_ context.Context, event *entity.LLMUsageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now().UTC()
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *LLMUsageEventRepository) GetTokenUsage(_ context.Context, contextID string, startInclusive, endExclusive time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, e := range r.events {
		if e.ContextID != contextID || e.CreatedAt.Before(startInclusive) || !e.CreatedAt.Before(endExclusive) {
			continue
		}
		total += int64(e.TokensPrompt + e.TokensCompletion)
	}
	return total, nil
}
