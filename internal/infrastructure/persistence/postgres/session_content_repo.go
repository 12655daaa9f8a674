package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campaign-ai-api/internal/domain/entity"
	apperrors "campaign-ai-api/pkg/errors"
)

// SessionContentRepository 会话内容仓储，同时作为分析的内容源
type SessionContentRepository struct {
	client *Client
}

// NewSessionContentRepository 创建会话内容仓储
func NewSessionContentRepository(client *Client) *SessionContentRepository {
	return &SessionContentRepository{client: client}
}

// Upsert 写入或覆盖会话内容
func (r *SessionContentRepository) Upsert(ctx context.Context, content *entity.SessionContent) error {
	ctx, span := tracer.Start(ctx, "postgres.SessionContentRepository.Upsert")
	defer span.End()

	err := getDB(ctx, r.client.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"source_type", "context_id", "context_type", "title", "body", "updated_at"}),
	}).Create(content).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert session content: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取
func (r *SessionContentRepository) GetByID(ctx context.Context, id string) (*entity.SessionContent, error) {
	ctx, span := tracer.Start(ctx, "postgres.SessionContentRepository.GetByID")
	defer span.End()

	var content entity.SessionContent
	if err := getDB(ctx, r.client.db).First(&content, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get session content: %w", err)
	}
	return &content, nil
}

// FetchText 读取待分析文本；来源类型非空时必须一致
func (r *SessionContentRepository) FetchText(ctx context.Context, ref entity.Ref) (string, error) {
	content, err := r.GetByID(ctx, ref.ID)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDatabaseError, "fetch session content")
	}
	if content == nil || (ref.Type != "" && content.SourceType != ref.Type) {
		return "", apperrors.NotFound(apperrors.CodeSourceNotFound, "content %s not found", ref.ID)
	}
	return content.Body, nil
}
