package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"campaign-ai-api/internal/config"
	"campaign-ai-api/internal/domain/service"
	"campaign-ai-api/pkg/logger"
)

const defaultOperation = "analysis"

// ChatModelProvider 基于 Eino ChatModel 的 ModelProvider 实现，内部按配置重试
type ChatModelProvider struct {
	factory ChatModelFactory
	retry   config.RetryConfig
}

// NewChatModelProvider 创建提供方
func NewChatModelProvider(factory ChatModelFactory, retry config.RetryConfig) *ChatModelProvider {
	return &ChatModelProvider{factory: factory, retry: retry}
}

// Complete 调用模型并返回文本与用量
func (p *ChatModelProvider) Complete(ctx context.Context, req service.CompletionRequest) (*service.CompletionResponse, error) {
	if req.Model == nil {
		return nil, errors.New("completion request has no model")
	}

	cm, err := p.factory.Get(ctx, req.Model.Provider)
	if err != nil {
		return nil, err
	}

	op := service.OperationFromContext(ctx)
	if op == "unknown" {
		op = defaultOperation
	}
	ctx = service.WithOperationProvider(ctx, op, req.Model.Provider)
	ctx = einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      op,
		Type:      req.Model.Provider,
		Component: components.ComponentOfChatModel,
	})

	msgs := make([]*schema.Message, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, schema.UserMessage(req.UserPrompt))
	opts := generateOptions(req)

	attempt := 0
	msg, err := backoff.Retry(ctx, func() (*schema.Message, error) {
		attempt++
		out, err := cm.Generate(ctx, msgs, opts...)
		if err != nil {
			if !retryable(ctx, err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return out, nil
	},
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(p.maxTries()),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn(ctx, "model call failed, retrying",
				"model", req.Model.ID,
				"attempt", attempt,
				"wait", wait.String(),
				"error", err.Error(),
			)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("model %s returned no message", req.Model.ID)
	}

	resp := &service.CompletionResponse{
		Text:  msg.Content,
		Model: req.Model.ID,
	}
	if meta := msg.ResponseMeta; meta != nil {
		resp.FinishReason = meta.FinishReason
		if u := meta.Usage; u != nil {
			resp.Usage = service.TokenUsage{
				PromptTokens:     u.PromptTokens,
				CompletionTokens: u.CompletionTokens,
				TotalTokens:      u.TotalTokens,
			}
		}
	}
	if resp.Usage.TotalTokens == 0 {
		resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	}
	return resp, nil
}

func generateOptions(req service.CompletionRequest) []model.Option {
	opts := []model.Option{model.WithModel(req.Model.ID)}
	o := req.Options
	if o.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(o.Temperature)))
	}
	if o.TopP > 0 {
		opts = append(opts, model.WithTopP(float32(o.TopP)))
	}
	if o.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(o.MaxTokens))
	}
	return opts
}

func (p *ChatModelProvider) maxTries() uint {
	if p.retry.MaxAttempts == 0 {
		return 1
	}
	return p.retry.MaxAttempts
}

func (p *ChatModelProvider) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.retry.Backoff.Initial > 0 {
		b.InitialInterval = p.retry.Backoff.Initial
	}
	if p.retry.Backoff.Max > 0 {
		b.MaxInterval = p.retry.Backoff.Max
	}
	if p.retry.Backoff.Multiplier > 0 {
		b.Multiplier = p.retry.Backoff.Multiplier
	}
	return b
}

var statusCodePattern = regexp.MustCompile(`status code:\s*(\d{3})`)

// retryable 上下文错误与 4xx（408/429 除外）不重试
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return true
	}
	code, _ := strconv.Atoi(m[1])
	switch {
	case code == 408, code == 429:
		return true
	case code >= 400 && code < 500:
		return false
	default:
		return true
	}
}
