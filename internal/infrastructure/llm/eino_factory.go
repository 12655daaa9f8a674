// Package llm 提供模型提供方的 Eino 适配
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"campaign-ai-api/internal/config"
)

// ChatModelFactory 按提供方名称获取 ChatModel
type ChatModelFactory interface {
	Get(ctx context.Context, provider string) (model.BaseChatModel, error)
}

// EinoFactory 按提供方惰性创建并复用 Eino ChatModel
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取提供方的 ChatModel；provider 为空时使用默认提供方
func (f *EinoFactory) Get(ctx context.Context, provider string) (model.BaseChatModel, error) {
	if provider == "" {
		provider = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[provider]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok = f.models[provider]; ok {
		return m, nil
	}

	pc, ok := f.config.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", provider)
	}

	cfg := &openai.ChatModelConfig{
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
		Model:   pc.Model,
		Timeout: pc.Timeout,
	}
	if pc.MaxTokens > 0 {
		cfg.MaxTokens = &pc.MaxTokens
	}
	if pc.Temperature > 0 {
		t := float32(pc.Temperature)
		cfg.Temperature = &t
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for provider %s: %w", provider, err)
	}
	f.models[provider] = chatModel
	return chatModel, nil
}
