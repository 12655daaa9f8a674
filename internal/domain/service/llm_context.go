package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyOperation llmCtxKey = "llm_operation"
	llmCtxKeyProvider  llmCtxKey = "llm_provider"
	llmCtxKeyScope     llmCtxKey = "llm_usage_scope"
)

// UsageScope 模型调用归属（用于用量流水）
type UsageScope struct {
	ContextID      string
	AnalysisID     string
	SuggestionType string
}

func WithOperation(ctx context.Context, operation string) context.Context {
	if ctx == nil {
		return nil
	}
	w := strings.TrimSpace(operation)
	if w == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyOperation, w)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	if ctx == nil {
		return nil
	}
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyProvider, p)
}

func WithOperationProvider(ctx context.Context, operation, provider string) context.Context {
	return WithProvider(WithOperation(ctx, operation), provider)
}

func WithUsageScope(ctx context.Context, scope UsageScope) context.Context {
	if ctx == nil {
		return nil
	}
	return context.WithValue(ctx, llmCtxKeyScope, scope)
}

func OperationFromContext(ctx context.Context) string {
	return stringFromContext(ctx, llmCtxKeyOperation)
}

func ProviderFromContext(ctx context.Context) string {
	return stringFromContext(ctx, llmCtxKeyProvider)
}

func UsageScopeFromContext(ctx context.Context) UsageScope {
	if ctx == nil {
		return UsageScope{}
	}
	scope, _ := ctx.Value(llmCtxKeyScope).(UsageScope)
	return scope
}

func stringFromContext(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return "unknown"
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}
