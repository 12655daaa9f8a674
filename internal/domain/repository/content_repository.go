package repository

import (
	"context"

	"campaign-ai-api/internal/domain/entity"
)

// SessionContentRepository 会话内容仓储
type SessionContentRepository interface {
	// Upsert 写入或覆盖会话内容
	Upsert(ctx context.Context, content *entity.SessionContent) error

	// GetByID 根据 ID 获取，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.SessionContent, error)
}
