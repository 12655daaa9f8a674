// Package responsecache 按请求指纹缓存模型响应
package responsecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/service"
)

// Cache 模型响应缓存；仅用于降低延迟与成本，关闭后编排结果不变
type Cache interface {
	// Get 未命中或已过期时返回 ok=false
	Get(ctx context.Context, fingerprint string) (resp *service.CompletionResponse, ok bool, err error)
	// Put 写入并在 ttl 后过期
	Put(ctx context.Context, fingerprint string, resp *service.CompletionResponse, ttl time.Duration) error
}

// FingerprintInput 参与指纹计算的全部输入
type FingerprintInput struct {
	TemplateID      string                   `json:"template_id"`
	TemplateVersion int64                    `json:"template_version"`
	SystemPrompt    string                   `json:"system_prompt"`
	UserPrompt      string                   `json:"user_prompt"`
	ModelID         string                   `json:"model_id"`
	ModelVersion    int64                    `json:"model_version"`
	Options         entity.GenerationOptions `json:"options"`
}

// Fingerprint 对输入做规范化 JSON 编码后取 SHA-256
func Fingerprint(in FingerprintInput) string {
	// 结构体字段顺序固定，编码结果稳定
	raw, _ := json.Marshal(in)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Disabled 总是未命中的缓存
type Disabled struct{}

// NewDisabled 创建禁用缓存
func NewDisabled() *Disabled {
	return &Disabled{}
}

func (*Disabled) Get(context.Context, string) (*service.CompletionResponse, bool, error) {
	return nil, false, nil
}

func (*Disabled) Put(context.Context, string, *service.CompletionResponse, time.Duration) error {
	return nil
}
