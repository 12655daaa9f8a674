package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/repository"
)

// SuggestionRecord content_suggestions 表行；载荷按类型以 jsonb 保存
type SuggestionRecord struct {
	ID               string         `gorm:"type:uuid;primaryKey"`
	Type             string         `gorm:"type:varchar(32);index;not null"`
	Title            string         `gorm:"type:varchar(255);not null"`
	Description      string         `gorm:"type:text"`
	Confidence       string         `gorm:"type:varchar(16);not null"`
	ConfidenceRank   int            `gorm:"not null;index"`
	Status           string         `gorm:"type:varchar(16);index;not null"`
	SourceID         string         `gorm:"type:varchar(64);index"`
	SourceType       string         `gorm:"type:varchar(32)"`
	ContextID        string         `gorm:"type:varchar(64);index"`
	ContextType      string         `gorm:"type:varchar(32)"`
	Payload          string         `gorm:"type:jsonb;not null"`
	Metadata         map[string]any `gorm:"type:jsonb;serializer:json"`
	MaterializedID   string         `gorm:"type:varchar(64)"`
	MaterializedType string         `gorm:"type:varchar(32)"`
	Version          int64          `gorm:"not null;default:1"`
	CreatedAt        time.Time      `gorm:"index"`
	UpdatedAt        time.Time
}

// TableName 指定表名
func (SuggestionRecord) TableName() string {
	return "content_suggestions"
}

func toRecord(s *entity.ContentSuggestion) (*SuggestionRecord, error) {
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	rec := &SuggestionRecord{
		ID:             s.ID,
		Type:           string(s.Type),
		Title:          s.Title,
		Description:    s.Description,
		Confidence:     string(s.Confidence),
		ConfidenceRank: s.Confidence.Rank(),
		Status:         string(s.Status),
		SourceID:       s.SourceRef.ID,
		SourceType:     s.SourceRef.Type,
		ContextID:      s.ContextRef.ID,
		ContextType:    s.ContextRef.Type,
		Payload:        string(payload),
		Metadata:       s.Metadata,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.MaterializedRef != nil {
		rec.MaterializedID = s.MaterializedRef.ID
		rec.MaterializedType = s.MaterializedRef.Type
	}
	return rec, nil
}

func (rec *SuggestionRecord) toEntity() (*entity.ContentSuggestion, error) {
	t := entity.SuggestionType(rec.Type)
	payload, err := entity.DecodePayload(t, []byte(rec.Payload))
	if err != nil {
		return nil, fmt.Errorf("suggestion %s: %w", rec.ID, err)
	}
	s := &entity.ContentSuggestion{
		ID:          rec.ID,
		Type:        t,
		Title:       rec.Title,
		Description: rec.Description,
		Confidence:  entity.Confidence(rec.Confidence),
		Status:      entity.SuggestionStatus(rec.Status),
		SourceRef:   entity.Ref{ID: rec.SourceID, Type: rec.SourceType},
		ContextRef:  entity.Ref{ID: rec.ContextID, Type: rec.ContextType},
		Payload:     payload,
		Metadata:    rec.Metadata,
		Version:     rec.Version,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if rec.MaterializedID != "" {
		s.MaterializedRef = &entity.EntityRef{ID: rec.MaterializedID, Type: rec.MaterializedType}
	}
	return s, nil
}

// SuggestionRepository 建议仓储实现
type SuggestionRepository struct {
	client *Client
}

// NewSuggestionRepository 创建建议仓储
func NewSuggestionRepository(client *Client) *SuggestionRepository {
	return &SuggestionRepository{client: client}
}

// Create 创建建议
func (r *SuggestionRepository) Create(ctx context.Context, s *entity.ContentSuggestion) error {
	ctx, span := tracer.Start(ctx, "postgres.SuggestionRepository.Create")
	defer span.End()

	rec, err := toRecord(s)
	if err != nil {
		return err
	}
	if err := getDB(ctx, r.client.db).Create(rec).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create suggestion: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取建议
func (r *SuggestionRepository) GetByID(ctx context.Context, id string) (*entity.ContentSuggestion, error) {
	ctx, span := tracer.Start(ctx, "postgres.SuggestionRepository.GetByID")
	defer span.End()

	var rec SuggestionRecord
	if err := getDB(ctx, r.client.db).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get suggestion: %w", err)
	}
	return rec.toEntity()
}

// List 按创建时间倒序分页
func (r *SuggestionRepository) List(ctx context.Context, filter *repository.SuggestionFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.ContentSuggestion], error) {
	ctx, span := tracer.Start(ctx, "postgres.SuggestionRepository.List")
	defer span.End()

	query := applySuggestionFilter(getDB(ctx, r.client.db).Model(&SuggestionRecord{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count suggestions: %w", err)
	}

	var recs []*SuggestionRecord
	if err := query.Order("created_at DESC, id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&recs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}

	items, err := toEntities(recs)
	if err != nil {
		return nil, err
	}
	return repository.NewPagedResult(items, total, pagination), nil
}

// Find 按创建时间正序返回全部匹配项
func (r *SuggestionRepository) Find(ctx context.Context, filter *repository.SuggestionFilter) ([]*entity.ContentSuggestion, error) {
	ctx, span := tracer.Start(ctx, "postgres.SuggestionRepository.Find")
	defer span.End()

	var recs []*SuggestionRecord
	query := applySuggestionFilter(getDB(ctx, r.client.db).Model(&SuggestionRecord{}), filter)
	if err := query.Order("created_at ASC, id ASC").Find(&recs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find suggestions: %w", err)
	}
	return toEntities(recs)
}

// UpdateIfVersion 版本号比较交换
func (r *SuggestionRepository) UpdateIfVersion(ctx context.Context, s *entity.ContentSuggestion, expectedVersion int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.SuggestionRepository.UpdateIfVersion")
	defer span.End()

	rec, err := toRecord(s)
	if err != nil {
		return false, err
	}
	res := getDB(ctx, r.client.db).Model(&SuggestionRecord{}).
		Where("id = ? AND version = ?", s.ID, expectedVersion).
		Updates(map[string]any{
			"title":             rec.Title,
			"description":       rec.Description,
			"confidence":        rec.Confidence,
			"confidence_rank":   rec.ConfidenceRank,
			"status":            rec.Status,
			"payload":           rec.Payload,
			"materialized_id":   rec.MaterializedID,
			"materialized_type": rec.MaterializedType,
			"version":           rec.Version,
			"updated_at":        rec.UpdatedAt,
		})
	if res.Error != nil {
		span.RecordError(res.Error)
		return false, fmt.Errorf("failed to update suggestion: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Delete 删除建议
func (r *SuggestionRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.SuggestionRepository.Delete")
	defer span.End()

	res := getDB(ctx, r.client.db).Delete(&SuggestionRecord{}, "id = ?", id)
	if res.Error != nil {
		span.RecordError(res.Error)
		return false, fmt.Errorf("failed to delete suggestion: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func applySuggestionFilter(query *gorm.DB, filter *repository.SuggestionFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.ContextID != "" {
		query = query.Where("context_id = ?", filter.ContextID)
	}
	if filter.ContextType != "" {
		query = query.Where("context_type = ?", filter.ContextType)
	}
	if filter.SourceID != "" {
		query = query.Where("source_id = ?", filter.SourceID)
	}
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.MinConfidence != "" {
		query = query.Where("confidence_rank >= ?", filter.MinConfidence.Rank())
	}
	return query
}

func toEntities(recs []*SuggestionRecord) ([]*entity.ContentSuggestion, error) {
	out := make([]*entity.ContentSuggestion, 0, len(recs))
	for _, rec := range recs {
		s, err := rec.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
