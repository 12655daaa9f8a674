package callback

import (
	"context"
	"errors"
	"testing"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"campaign-ai-api/internal/domain/service"
	"campaign-ai-api/pkg/metrics"
)

func TestChatModelHandlerRecordsSuccess(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithOperationProvider(context.Background(), "analysis", "cb-test")
	info := &einocb.RunInfo{Name: "analysis"}

	before := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb-test", "m-ok", "success"))
	tokensBefore := testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("cb-test", "m-ok", "prompt"))

	ctx = h.OnStart(ctx, info, &model.CallbackInput{Config: &model.Config{Model: "m-ok"}})
	h.OnEnd(ctx, info, &model.CallbackOutput{TokenUsage: &model.TokenUsage{PromptTokens: 40, CompletionTokens: 2}})

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb-test", "m-ok", "success")))
	assert.Equal(t, tokensBefore+40, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("cb-test", "m-ok", "prompt")))
}

func TestChatModelHandlerRecordsErrorWithStartModel(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithOperationProvider(context.Background(), "analysis", "cb-test")

	before := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb-test", "m-err", "error"))

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "m-err"}})
	h.OnError(ctx, nil, errors.New("upstream 502"))

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb-test", "m-err", "error")))
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
