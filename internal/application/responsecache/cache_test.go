package responsecache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/service"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newMemory(t *testing.T, size int) (*Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m, err := NewMemory(size)
	require.NoError(t, err)
	return m.WithClock(clock.Now), clock
}

func TestMemoryGetPutAndExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newMemory(t, 8)

	_, ok, err := m.Get(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, ok)

	resp := &service.CompletionResponse{Text: `{"suggestions":[]}`, Model: "m", Usage: service.TokenUsage{PromptTokens: 3}}
	require.NoError(t, m.Put(ctx, "fp", resp, time.Minute))

	// 写入后修改原对象不影响缓存内容
	resp.Text = "mutated"

	got, ok, err := m.Get(ctx, "fp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"suggestions":[]}`, got.Text)

	clock.Advance(59 * time.Second)
	_, ok, _ = m.Get(ctx, "fp")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok, _ = m.Get(ctx, "fp")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryZeroTTLNotStored(t *testing.T) {
	m, _ := newMemory(t, 8)
	require.NoError(t, m.Put(context.Background(), "fp", &service.CompletionResponse{Text: "x"}, 0))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m, _ := newMemory(t, 2)

	require.NoError(t, m.Put(ctx, "a", &service.CompletionResponse{Text: "a"}, time.Hour))
	require.NoError(t, m.Put(ctx, "b", &service.CompletionResponse{Text: "b"}, time.Hour))
	_, _, _ = m.Get(ctx, "a")
	require.NoError(t, m.Put(ctx, "c", &service.CompletionResponse{Text: "c"}, time.Hour))

	_, okA, _ := m.Get(ctx, "a")
	_, okB, _ := m.Get(ctx, "b")
	assert.True(t, okA)
	assert.False(t, okB)
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	m, clock := newMemory(t, 8)

	require.NoError(t, m.Put(ctx, "short", &service.CompletionResponse{Text: "s"}, time.Second))
	require.NoError(t, m.Put(ctx, "long", &service.CompletionResponse{Text: "l"}, time.Hour))
	clock.Advance(2 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m, _ := newMemory(t, 64)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("fp-%d", i%4)
			text := fmt.Sprintf("value-%d", i%4)
			for j := 0; j < 100; j++ {
				_ = m.Put(ctx, key, &service.CompletionResponse{Text: text}, time.Hour)
				if got, ok, _ := m.Get(ctx, key); ok {
					assert.Equal(t, text, got.Text)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestFingerprintChangesWithEveryInput(t *testing.T) {
	base := FingerprintInput{
		TemplateID:      "suggest_character_v1",
		TemplateVersion: 1,
		SystemPrompt:    "sys",
		UserPrompt:      "user",
		ModelID:         "m",
		ModelVersion:    1,
		Options:         entity.GenerationOptions{Temperature: 0.3, MaxTokens: 100},
	}
	fp := Fingerprint(base)
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint(base))

	variants := []func(*FingerprintInput){
		func(in *FingerprintInput) { in.TemplateID = "other" },
		func(in *FingerprintInput) { in.TemplateVersion = 2 },
		func(in *FingerprintInput) { in.SystemPrompt = "sys2" },
		func(in *FingerprintInput) { in.UserPrompt = "user2" },
		func(in *FingerprintInput) { in.ModelID = "m2" },
		func(in *FingerprintInput) { in.ModelVersion = 2 },
		func(in *FingerprintInput) { in.Options.Temperature = 0.4 },
		func(in *FingerprintInput) { in.Options.TopP = 0.9 },
	}
	for i, mutate := range variants {
		in := base
		mutate(&in)
		assert.NotEqual(t, fp, Fingerprint(in), "variant %d", i)
	}
}

func TestDisabledAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	d := NewDisabled()
	require.NoError(t, d.Put(ctx, "fp", &service.CompletionResponse{Text: "x"}, time.Hour))
	_, ok, err := d.Get(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, ok)
}
