package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stream 流定义
type Stream string

// StreamSuggestionLifecycle 建议生命周期事件流
const StreamSuggestionLifecycle Stream = "stream:suggestion:lifecycle"

// 流条目字段
const (
	fieldType = "type"
	fieldData = "data"
)

// Message 流消息信封；Payload 为事件本体的 JSON
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	ContextID string            `json:"context_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建消息，ID 自动生成
func NewMessage(msgType, contextID string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		ContextID: contextID,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// values 转为 XADD 字段；type 单独存放便于消费端按类型过滤
func (m *Message) values() (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return map[string]any{fieldType: m.Type, fieldData: string(data)}, nil
}

// DecodeMessage 从流条目字段还原消息
func DecodeMessage(values map[string]any) (*Message, error) {
	data, ok := values[fieldData].(string)
	if !ok {
		return nil, fmt.Errorf("stream entry has no %q field", fieldData)
	}
	var m Message
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return &m, nil
}
