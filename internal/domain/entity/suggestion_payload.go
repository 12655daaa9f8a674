package entity

import (
	"encoding/json"
	"strings"

	apperrors "campaign-ai-api/pkg/errors"
)

// SuggestionPayload 建议的类型专属载荷（封闭集合，每种类型一个实现）
type SuggestionPayload interface {
	// SuggestionType 载荷所属类型
	SuggestionType() SuggestionType
	// DisplayName 用于标题与去重的名称
	DisplayName() string
	// Validate 校验载荷必填字段
	Validate() error

	sealed()
}

// CharacterRelationship 角色载荷内的关系描述
type CharacterRelationship struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

// CharacterPayload 角色
type CharacterPayload struct {
	Name          string                  `json:"name"`
	Description   string                  `json:"description,omitempty"`
	Background    string                  `json:"background,omitempty"`
	Personality   string                  `json:"personality,omitempty"`
	Goals         []string                `json:"goals,omitempty"`
	Relationships []CharacterRelationship `json:"relationships,omitempty"`
}

// LocationPayload 地点
type LocationPayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Region      string   `json:"region,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// ItemPayload 物品
type ItemPayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	Rarity      string   `json:"rarity,omitempty"`
	Properties  []string `json:"properties,omitempty"`
}

// EventPayload 事件
type EventPayload struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	When         string   `json:"when,omitempty"`
	Location     string   `json:"location,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Consequences string   `json:"consequences,omitempty"`
}

// EntityIdentity 关系端点
type EntityIdentity struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// RelationshipPayload 实体间关系
type RelationshipPayload struct {
	Source      EntityIdentity `json:"source"`
	Target      EntityIdentity `json:"target"`
	Kind        string         `json:"kind"`
	Strength    int            `json:"strength"`
	Description string         `json:"description,omitempty"`
}

// LorePayload 世界观设定
type LorePayload struct {
	Topic    string   `json:"topic"`
	Content  string   `json:"content"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// DialogPayload 对白
type DialogPayload struct {
	Speaker  string `json:"speaker"`
	Line     string `json:"line"`
	Listener string `json:"listener,omitempty"`
	Context  string `json:"context,omitempty"`
}

// PlotPayload 剧情线
type PlotPayload struct {
	Name    string   `json:"name"`
	Summary string   `json:"summary"`
	Stakes  string   `json:"stakes,omitempty"`
	Hooks   []string `json:"hooks,omitempty"`
}

// NotePayload 备注
type NotePayload struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

func (*CharacterPayload) SuggestionType() SuggestionType    { return SuggestionTypeCharacter }
func (*LocationPayload) SuggestionType() SuggestionType     { return SuggestionTypeLocation }
func (*ItemPayload) SuggestionType() SuggestionType         { return SuggestionTypeItem }
func (*EventPayload) SuggestionType() SuggestionType        { return SuggestionTypeEvent }
func (*RelationshipPayload) SuggestionType() SuggestionType { return SuggestionTypeRelationship }
func (*LorePayload) SuggestionType() SuggestionType         { return SuggestionTypeLore }
func (*DialogPayload) SuggestionType() SuggestionType       { return SuggestionTypeDialog }
func (*PlotPayload) SuggestionType() SuggestionType         { return SuggestionTypePlot }
func (*NotePayload) SuggestionType() SuggestionType         { return SuggestionTypeNote }

func (*CharacterPayload) sealed()    {}
func (*LocationPayload) sealed()     {}
func (*ItemPayload) sealed()         {}
func (*EventPayload) sealed()        {}
func (*RelationshipPayload) sealed() {}
func (*LorePayload) sealed()         {}
func (*DialogPayload) sealed()       {}
func (*PlotPayload) sealed()         {}
func (*NotePayload) sealed()         {}

func (p *CharacterPayload) DisplayName() string { return p.Name }
func (p *LocationPayload) DisplayName() string  { return p.Name }
func (p *ItemPayload) DisplayName() string      { return p.Name }
func (p *EventPayload) DisplayName() string     { return p.Name }
func (p *LorePayload) DisplayName() string      { return p.Topic }
func (p *PlotPayload) DisplayName() string      { return p.Name }

func (p *RelationshipPayload) DisplayName() string {
	return p.Source.Name + " -> " + p.Target.Name
}

func (p *DialogPayload) DisplayName() string {
	return p.Speaker + ": " + truncateRunes(p.Line, 48)
}

func (p *NotePayload) DisplayName() string {
	return truncateRunes(p.Content, 48)
}

func (p *CharacterPayload) Validate() error { return requireField("character", "name", p.Name) }
func (p *LocationPayload) Validate() error  { return requireField("location", "name", p.Name) }
func (p *ItemPayload) Validate() error      { return requireField("item", "name", p.Name) }
func (p *EventPayload) Validate() error     { return requireField("event", "name", p.Name) }
func (p *NotePayload) Validate() error      { return requireField("note", "content", p.Content) }

func (p *LorePayload) Validate() error {
	if err := requireField("lore", "topic", p.Topic); err != nil {
		return err
	}
	return requireField("lore", "content", p.Content)
}

func (p *DialogPayload) Validate() error {
	if err := requireField("dialog", "speaker", p.Speaker); err != nil {
		return err
	}
	return requireField("dialog", "line", p.Line)
}

func (p *PlotPayload) Validate() error {
	if err := requireField("plot", "name", p.Name); err != nil {
		return err
	}
	return requireField("plot", "summary", p.Summary)
}

// Validate 关系强度必须在 1..10
func (p *RelationshipPayload) Validate() error {
	if err := requireField("relationship", "source.name", p.Source.Name); err != nil {
		return err
	}
	if err := requireField("relationship", "target.name", p.Target.Name); err != nil {
		return err
	}
	if err := requireField("relationship", "kind", p.Kind); err != nil {
		return err
	}
	if p.Strength < 1 || p.Strength > 10 {
		return apperrors.Validation("relationship strength must be within 1..10, got %d", p.Strength)
	}
	return nil
}

func requireField(kind, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.Validation("%s payload: %s is required", kind, field)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

// NewPayload 返回类型对应的空载荷
func NewPayload(t SuggestionType) (SuggestionPayload, error) {
	switch t {
	case SuggestionTypeCharacter:
		return &CharacterPayload{}, nil
	case SuggestionTypeLocation:
		return &LocationPayload{}, nil
	case SuggestionTypeItem:
		return &ItemPayload{}, nil
	case SuggestionTypeEvent:
		return &EventPayload{}, nil
	case SuggestionTypeRelationship:
		return &RelationshipPayload{}, nil
	case SuggestionTypeLore:
		return &LorePayload{}, nil
	case SuggestionTypeDialog:
		return &DialogPayload{}, nil
	case SuggestionTypePlot:
		return &PlotPayload{}, nil
	case SuggestionTypeNote:
		return &NotePayload{}, nil
	default:
		return nil, apperrors.Validation("unknown suggestion type %q", t)
	}
}

// DecodePayload 按类型解码载荷 JSON
func DecodePayload(t SuggestionType, raw []byte) (SuggestionPayload, error) {
	payload, err := NewPayload(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, apperrors.Validation("decode %s payload: %v", t, err)
	}
	return payload, nil
}

// ClonePayload 通过 JSON 往返深拷贝载荷
func ClonePayload(p SuggestionPayload) SuggestionPayload {
	raw, err := json.Marshal(p)
	if err != nil {
		return p
	}
	out, err := DecodePayload(p.SuggestionType(), raw)
	if err != nil {
		return p
	}
	return out
}
