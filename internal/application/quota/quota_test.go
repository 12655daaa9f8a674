package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/service"
	"campaign-ai-api/internal/infrastructure/persistence/memory"
	apperrors "campaign-ai-api/pkg/errors"
)

func TestRecorderSkipsUnscopedCalls(t *testing.T) {
	repo := memory.NewLLMUsageEventRepository()
	rec := NewLLMUsageRecorder(repo)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, service.LLMUsageInput{Model: "m", PromptTokens: 10}))
	require.NoError(t, rec.Record(ctx, service.LLMUsageInput{
		ContextID: " campaign-1 ", AnalysisID: "an-1", Provider: "openai", Model: "m",
		PromptTokens: 100, CompletionTokens: 20,
	}))

	now := time.Now().UTC()
	used, err := repo.GetTokenUsage(ctx, "campaign-1", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(120), used)
}

func TestRecorderRejectsNegativeUsage(t *testing.T) {
	rec := NewLLMUsageRecorder(memory.NewLLMUsageEventRepository())
	err := rec.Record(context.Background(), service.LLMUsageInput{ContextID: "c", PromptTokens: -1})
	assert.Error(t, err)

	var nilRec *LLMUsageRecorder
	assert.NoError(t, nilRec.Record(context.Background(), service.LLMUsageInput{ContextID: "c"}))
}

func TestCheckDailyTokens(t *testing.T) {
	repo := memory.NewLLMUsageEventRepository()
	ctx := context.Background()
	noon := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &entity.LLMUsageEvent{
		ContextID: "campaign-1", TokensPrompt: 600, TokensCompletion: 100, CreatedAt: noon.Add(-time.Hour),
	}))
	// 前一天的用量不计入
	require.NoError(t, repo.Create(ctx, &entity.LLMUsageEvent{
		ContextID: "campaign-1", TokensPrompt: 5000, CreatedAt: noon.Add(-24 * time.Hour),
	}))

	c := NewTokenQuotaChecker(repo)
	c.now = func() time.Time { return noon }

	used, err := c.CheckDailyTokens(ctx, "campaign-1", 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(700), used)

	used, err = c.CheckDailyTokens(ctx, "campaign-1", 700)
	require.Error(t, err)
	assert.Equal(t, int64(700), used)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTooManyRequests))
	var qe TokenQuotaExceededError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "campaign-1", qe.ContextID)

	used, err = c.CheckDailyTokens(ctx, "campaign-1", 0)
	require.NoError(t, err)
	assert.Zero(t, used)

	used, err = c.DailyUsage(ctx, "campaign-1")
	require.NoError(t, err)
	assert.Equal(t, int64(700), used)

	var nilChecker *TokenQuotaChecker
	used, err = nilChecker.CheckDailyTokens(ctx, "campaign-1", 10)
	require.NoError(t, err)
	assert.Zero(t, used)
}
