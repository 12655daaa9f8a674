package entity

import (
	"time"
)

// KnowledgeEntity 知识库实体（角色/地点/物品/事件/设定等）
type KnowledgeEntity struct {
	ID                 string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ContextID          string         `json:"context_id" gorm:"type:varchar(64);index;not null"`
	ContextType        string         `json:"context_type" gorm:"type:varchar(32)"`
	Kind               string         `json:"kind" gorm:"type:varchar(32);index;not null"`
	Name               string         `json:"name" gorm:"type:varchar(255);not null"`
	Description        string         `json:"description,omitempty" gorm:"type:text"`
	Attributes         map[string]any `json:"attributes,omitempty" gorm:"type:jsonb;serializer:json"`
	SourceSuggestionID string         `json:"source_suggestion_id,omitempty" gorm:"type:varchar(64);uniqueIndex"`
	CreatedAt          time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (KnowledgeEntity) TableName() string {
	return "knowledge_entities"
}

// KnowledgeRelation 知识库实体间关系
type KnowledgeRelation struct {
	ID                 string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ContextID          string    `json:"context_id" gorm:"type:varchar(64);index;not null"`
	SourceEntityID     *string   `json:"source_entity_id,omitempty" gorm:"type:uuid;index"`
	TargetEntityID     *string   `json:"target_entity_id,omitempty" gorm:"type:uuid;index"`
	SourceName         string    `json:"source_name" gorm:"type:varchar(255);not null"`
	SourceKind         string    `json:"source_kind" gorm:"type:varchar(32)"`
	TargetName         string    `json:"target_name" gorm:"type:varchar(255);not null"`
	TargetKind         string    `json:"target_kind" gorm:"type:varchar(32)"`
	Kind               string    `json:"kind" gorm:"type:varchar(50);not null"`
	Strength           int       `json:"strength" gorm:"not null;default:5"`
	Description        string    `json:"description,omitempty" gorm:"type:text"`
	SourceSuggestionID string    `json:"source_suggestion_id,omitempty" gorm:"type:varchar(64);uniqueIndex"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (KnowledgeRelation) TableName() string {
	return "knowledge_relations"
}
