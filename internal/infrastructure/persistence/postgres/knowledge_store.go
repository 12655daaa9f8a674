package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/service"
)

// 知识库引用类型
const (
	RefTypeEntity   = "knowledge_entity"
	RefTypeRelation = "knowledge_relation"
)

// KnowledgeStore 将已接受的建议写入 knowledge_entities / knowledge_relations。
// 以 source_suggestion_id 去重，重复落地返回同一引用。
type KnowledgeStore struct {
	client *Client
}

// NewKnowledgeStore 创建知识库存储
func NewKnowledgeStore(client *Client) *KnowledgeStore {
	return &KnowledgeStore{client: client}
}

// Materialize 写入知识库
func (k *KnowledgeStore) Materialize(ctx context.Context, req service.MaterializeRequest) (*entity.EntityRef, error) {
	ctx, span := tracer.Start(ctx, "postgres.KnowledgeStore.Materialize")
	defer span.End()

	if req.Payload == nil {
		return nil, fmt.Errorf("suggestion %s has no payload", req.SuggestionID)
	}

	var ref *entity.EntityRef
	err := getDB(ctx, k.client.db).Transaction(func(tx *gorm.DB) error {
		var err error
		if rel, ok := req.Payload.(*entity.RelationshipPayload); ok {
			ref, err = materializeRelation(tx, req, rel)
		} else {
			ref, err = materializeEntity(tx, req)
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ref, nil
}

func materializeEntity(tx *gorm.DB, req service.MaterializeRequest) (*entity.EntityRef, error) {
	var existing entity.KnowledgeEntity
	err := tx.Where("source_suggestion_id = ?", req.SuggestionID).First(&existing).Error
	if err == nil {
		return &entity.EntityRef{ID: existing.ID, Type: RefTypeEntity}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up knowledge entity: %w", err)
	}

	attrs, err := payloadAttributes(req.Payload)
	if err != nil {
		return nil, err
	}
	ent := &entity.KnowledgeEntity{
		ContextID:          req.ContextRef.ID,
		ContextType:        req.ContextRef.Type,
		Kind:               string(req.Payload.SuggestionType()),
		Name:               req.Payload.DisplayName(),
		Description:        payloadDescription(req.Payload),
		Attributes:         attrs,
		SourceSuggestionID: req.SuggestionID,
	}
	if err := tx.Create(ent).Error; err != nil {
		return nil, fmt.Errorf("failed to create knowledge entity: %w", err)
	}
	return &entity.EntityRef{ID: ent.ID, Type: RefTypeEntity}, nil
}

func materializeRelation(tx *gorm.DB, req service.MaterializeRequest, p *entity.RelationshipPayload) (*entity.EntityRef, error) {
	var existing entity.KnowledgeRelation
	err := tx.Where("source_suggestion_id = ?", req.SuggestionID).First(&existing).Error
	if err == nil {
		return &entity.EntityRef{ID: existing.ID, Type: RefTypeRelation}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up knowledge relation: %w", err)
	}

	sourceID, err := resolveEntity(tx, req.ContextRef.ID, p.Source)
	if err != nil {
		return nil, err
	}
	targetID, err := resolveEntity(tx, req.ContextRef.ID, p.Target)
	if err != nil {
		return nil, err
	}
	rel := &entity.KnowledgeRelation{
		ContextID:          req.ContextRef.ID,
		SourceEntityID:     sourceID,
		TargetEntityID:     targetID,
		SourceName:         p.Source.Name,
		SourceKind:         p.Source.Type,
		TargetName:         p.Target.Name,
		TargetKind:         p.Target.Type,
		Kind:               p.Kind,
		Strength:           p.Strength,
		Description:        p.Description,
		SourceSuggestionID: req.SuggestionID,
	}
	if err := tx.Create(rel).Error; err != nil {
		return nil, fmt.Errorf("failed to create knowledge relation: %w", err)
	}
	return &entity.EntityRef{ID: rel.ID, Type: RefTypeRelation}, nil
}

// resolveEntity 优先使用显式 ID，否则按名称（忽略大小写）在同一上下文中查找；找不到时关系只保存名称
func resolveEntity(tx *gorm.DB, contextID string, ident entity.EntityIdentity) (*string, error) {
	if ident.ID != "" {
		id := ident.ID
		return &id, nil
	}
	query := tx.Model(&entity.KnowledgeEntity{}).
		Where("context_id = ? AND LOWER(name) = ?", contextID, strings.ToLower(strings.TrimSpace(ident.Name)))
	if ident.Type != "" {
		query = query.Where("kind = ?", ident.Type)
	}
	var ent entity.KnowledgeEntity
	err := query.Order("created_at ASC").First(&ent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entity %q: %w", ident.Name, err)
	}
	return &ent.ID, nil
}

func payloadAttributes(p entity.SuggestionPayload) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode payload attributes: %w", err)
	}
	return attrs, nil
}

func payloadDescription(p entity.SuggestionPayload) string {
	switch v := p.(type) {
	case *entity.CharacterPayload:
		return v.Description
	case *entity.LocationPayload:
		return v.Description
	case *entity.ItemPayload:
		return v.Description
	case *entity.EventPayload:
		return v.Description
	case *entity.LorePayload:
		return v.Content
	case *entity.DialogPayload:
		return v.Line
	case *entity.PlotPayload:
		return v.Summary
	case *entity.NotePayload:
		return v.Content
	default:
		return ""
	}
}
