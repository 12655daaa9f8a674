// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "campaign-ai-api/pkg/errors"
)

// SuggestionType 建议类型
type SuggestionType string

const (
	SuggestionTypeCharacter    SuggestionType = "character"
	SuggestionTypeLocation     SuggestionType = "location"
	SuggestionTypeItem         SuggestionType = "item"
	SuggestionTypeEvent        SuggestionType = "event"
	SuggestionTypeRelationship SuggestionType = "relationship"
	SuggestionTypeLore         SuggestionType = "lore"
	SuggestionTypeDialog       SuggestionType = "dialog"
	SuggestionTypePlot         SuggestionType = "plot"
	SuggestionTypeNote         SuggestionType = "note"
)

// AllSuggestionTypes 全部建议类型（固定顺序）
var AllSuggestionTypes = []SuggestionType{
	SuggestionTypeCharacter,
	SuggestionTypeLocation,
	SuggestionTypeItem,
	SuggestionTypeEvent,
	SuggestionTypeRelationship,
	SuggestionTypeLore,
	SuggestionTypeDialog,
	SuggestionTypePlot,
	SuggestionTypeNote,
}

// Valid 是否为已知类型
func (t SuggestionType) Valid() bool {
	for _, known := range AllSuggestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Confidence 置信度等级
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank 返回置信度序号，未知值为 0
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	default:
		return 0
	}
}

// Valid 是否为已知等级
func (c Confidence) Valid() bool {
	return c.Rank() > 0
}

// AtLeast 判断是否不低于给定等级；min 为空时总是满足
func (c Confidence) AtLeast(min Confidence) bool {
	if min == "" {
		return true
	}
	return c.Rank() >= min.Rank()
}

// ConfidenceFromScore 将 [0,1] 数值分数映射为等级
func ConfidenceFromScore(score float64) Confidence {
	switch {
	case score < 0.4:
		return ConfidenceLow
	case score < 0.75:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// ParseConfidence 解析置信度字符串（大小写不敏感）
func ParseConfidence(s string) (Confidence, bool) {
	c := Confidence(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// SuggestionStatus 建议状态
type SuggestionStatus string

const (
	SuggestionStatusPending  SuggestionStatus = "pending"
	SuggestionStatusAccepted SuggestionStatus = "accepted"
	SuggestionStatusRejected SuggestionStatus = "rejected"
	SuggestionStatusModified SuggestionStatus = "modified"
)

// Valid 是否为已知状态
func (s SuggestionStatus) Valid() bool {
	switch s {
	case SuggestionStatusPending, SuggestionStatusAccepted, SuggestionStatusRejected, SuggestionStatusModified:
		return true
	}
	return false
}

// Terminal 是否为终态
func (s SuggestionStatus) Terminal() bool {
	return s == SuggestionStatusAccepted || s == SuggestionStatusRejected
}

// SuggestionAction 生命周期动作
type SuggestionAction string

const (
	SuggestionActionAccept SuggestionAction = "accept"
	SuggestionActionReject SuggestionAction = "reject"
	SuggestionActionModify SuggestionAction = "modify"
)

// Ref 引用（内容来源或战役/会话范围）
type Ref struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// IsZero 是否为空引用
func (r Ref) IsZero() bool {
	return r.ID == "" && r.Type == ""
}

// EntityRef 知识库中已落地实体的引用
type EntityRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ContentSuggestion 内容建议
type ContentSuggestion struct {
	ID              string            `json:"id"`
	Type            SuggestionType    `json:"type"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Confidence      Confidence        `json:"confidence"`
	Status          SuggestionStatus  `json:"status"`
	SourceRef       Ref               `json:"source_ref"`
	ContextRef      Ref               `json:"context_ref"`
	Payload         SuggestionPayload `json:"payload"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
	MaterializedRef *EntityRef        `json:"materialized_ref,omitempty"`
	Version         int64             `json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Validate 校验建议结构：载荷必须存在且与类型一致
func (s *ContentSuggestion) Validate() error {
	if !s.Type.Valid() {
		return apperrors.Validation("unknown suggestion type %q", s.Type)
	}
	if !s.Confidence.Valid() {
		return apperrors.Validation("unknown confidence %q", s.Confidence)
	}
	if !s.Status.Valid() {
		return apperrors.Validation("unknown suggestion status %q", s.Status)
	}
	if s.Payload == nil {
		return apperrors.Validation("suggestion %s has no payload", s.ID)
	}
	if s.Payload.SuggestionType() != s.Type {
		return apperrors.Validation("payload type %q does not match suggestion type %q",
			s.Payload.SuggestionType(), s.Type)
	}
	return s.Payload.Validate()
}

// Clone 深拷贝，存储层返回副本避免调用方修改内部状态
func (s *ContentSuggestion) Clone() *ContentSuggestion {
	if s == nil {
		return nil
	}
	out := *s
	if s.Metadata != nil {
		out.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	if s.MaterializedRef != nil {
		ref := *s.MaterializedRef
		out.MaterializedRef = &ref
	}
	if s.Payload != nil {
		out.Payload = ClonePayload(s.Payload)
	}
	return &out
}

type suggestionAlias ContentSuggestion

// MarshalJSON 载荷按 type 序列化为单个 payload 对象
func (s ContentSuggestion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		suggestionAlias
		Payload SuggestionPayload `json:"payload"`
	}{
		suggestionAlias: suggestionAlias(s),
		Payload:         s.Payload,
	})
}

// UnmarshalJSON 根据 type 解码 payload
func (s *ContentSuggestion) UnmarshalJSON(data []byte) error {
	aux := struct {
		*suggestionAlias
		Payload json.RawMessage `json:"payload"`
	}{
		suggestionAlias: (*suggestionAlias)(s),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	s.Payload = nil
	if len(aux.Payload) == 0 || string(aux.Payload) == "null" {
		return nil
	}
	payload, err := DecodePayload(s.Type, aux.Payload)
	if err != nil {
		return err
	}
	s.Payload = payload
	return nil
}
