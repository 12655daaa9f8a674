package modelregistry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-ai-api/internal/config"
	"campaign-ai-api/internal/domain/entity"
	apperrors "campaign-ai-api/pkg/errors"
)

var (
	chat       = []entity.Capability{entity.CapabilityChat}
	chatVision = []entity.Capability{entity.CapabilityChat, entity.CapabilityVision}
)

func model(id string, window int, available bool, caps ...entity.Capability) *entity.LLMModel {
	return &entity.LLMModel{
		ID:            id,
		Provider:      "openai",
		ContextWindow: window,
		MaxTokens:     window / 4,
		IsAvailable:   available,
		Capabilities:  caps,
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	require.NoError(t, r.Register(model("b-small", 8000, true, entity.CapabilityChat)))
	require.NoError(t, r.Register(model("a-small", 8000, true, entity.CapabilityChat, entity.CapabilityCompletion)))
	require.NoError(t, r.Register(model("large", 128000, true, entity.CapabilityChat, entity.CapabilityVision)))
	require.NoError(t, r.Register(model("offline", 32000, false, entity.CapabilityChat, entity.CapabilityVision)))
	return r
}

func TestSelectSmallestFittingWindowThenLowestID(t *testing.T) {
	r := newTestRegistry(t)

	m, err := r.Select(chat, "", 2000)
	require.NoError(t, err)
	assert.Equal(t, "a-small", m.ID)

	m, err = r.Select(chat, "", 20000)
	require.NoError(t, err)
	assert.Equal(t, "large", m.ID)
}

func TestSelectTieBreakComparesNumbersNumerically(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(model("model-10", 8000, true, entity.CapabilityChat)))
	require.NoError(t, r.Register(model("model-9", 8000, true, entity.CapabilityChat)))

	m, err := r.Select(chat, "", 1000)
	require.NoError(t, err)
	assert.Equal(t, "model-9", m.ID)

	assert.True(t, lessModelID("2", "10"))
	assert.True(t, lessModelID("a-small", "b-small"))
	assert.True(t, lessModelID("gpt-4", "gpt-4o"))
	assert.True(t, lessModelID("m-07", "m-7"))
	assert.False(t, lessModelID("m-7", "m-07"))
}

func TestSelectFallsBackToLargestWindow(t *testing.T) {
	r := newTestRegistry(t)
	m, err := r.Select(chat, "", 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, "large", m.ID)
}

func TestSelectSkipsUnavailableAndMissingCapabilities(t *testing.T) {
	r := newTestRegistry(t)

	m, err := r.Select(chatVision, "", 100)
	require.NoError(t, err)
	assert.Equal(t, "large", m.ID)

	_, err = r.Select([]entity.Capability{entity.CapabilityEmbedding}, "", 100)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeCapabilityMismatch))
}

func TestSelectPreferredModel(t *testing.T) {
	r := newTestRegistry(t)

	m, err := r.Select(chat, "b-small", 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, "b-small", m.ID)

	for _, id := range []string{"offline", "missing"} {
		_, err := r.Select(chat, id, 10)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeCapabilityMismatch), id)
	}

	_, err = r.Select(chatVision, "a-small", 10)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeCapabilityMismatch))
}

func TestUpdateBumpsVersionAndClearsUnavailableDefault(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.SetDefault("large"))

	updated := model("large", 128000, false, entity.CapabilityChat)
	require.NoError(t, r.Update(updated))

	got, err := r.Get("large")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.False(t, got.IsAvailable)

	_, ok := r.Default()
	assert.False(t, ok)

	err = r.Update(model("ghost", 100, true))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeModelNotFound))
}

func TestSetDefaultRequiresAvailableModel(t *testing.T) {
	r := newTestRegistry(t)

	assert.True(t, apperrors.IsCode(r.SetDefault("missing"), apperrors.CodeModelNotFound))
	assert.True(t, apperrors.IsCode(r.SetDefault("offline"), apperrors.CodeValidationFailed))

	require.NoError(t, r.SetDefault("a-small"))
	d, ok := r.Default()
	require.True(t, ok)
	assert.Equal(t, "a-small", d.ID)

	require.NoError(t, r.Remove("a-small"))
	_, ok = r.Default()
	assert.False(t, ok)
}

func TestRegisterValidation(t *testing.T) {
	r := New()
	bad := model("x", 1000, true, "telepathy")
	assert.True(t, apperrors.IsCode(r.Register(bad), apperrors.CodeValidationFailed))

	require.NoError(t, r.Register(model("x", 1000, true, entity.CapabilityChat)))
	assert.True(t, apperrors.IsCode(r.Register(model("x", 1000, true)), apperrors.CodeConflict))
}

func TestListIsSortedCopy(t *testing.T) {
	r := newTestRegistry(t)
	list := r.List()
	ids := make([]string, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a-small", "b-small", "large", "offline"}, ids)

	list[0].IsAvailable = false
	got, err := r.Get("a-small")
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
}

func TestNewFromConfig(t *testing.T) {
	r, err := NewFromConfig(config.EngineConfig{
		DefaultModel: "m1",
		Models: []config.ModelConfig{
			{ID: "m1", Provider: "openai", ContextWindow: 4000, MaxTokens: 1000, Available: true, Capabilities: []string{"chat"}},
		},
	})
	require.NoError(t, err)
	d, ok := r.Default()
	require.True(t, ok)
	assert.Equal(t, "m1", d.ID)

	_, err = NewFromConfig(config.EngineConfig{DefaultModel: "nope"})
	assert.Error(t, err)
}

func TestConcurrentSelectAndUpdate(t *testing.T) {
	r := newTestRegistry(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.Select(chat, "", 1000)
		}()
		go func() {
			defer wg.Done()
			_ = r.Update(model("b-small", 8000, true, entity.CapabilityChat))
		}()
	}
	wg.Wait()

	got, err := r.Get("b-small")
	require.NoError(t, err)
	assert.Equal(t, int64(21), got.Version)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens("", 0))
	assert.Equal(t, 1, EstimateTokens("abc", 0))
	assert.Equal(t, 2, EstimateTokens("abcde", 0))
	assert.Equal(t, 102, EstimateTokens("abcdefgh", 100))
}
