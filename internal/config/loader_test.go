package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("CAMPAIGN_TEST_HOST", "db.internal")

	assert.Equal(t, "host: db.internal", expandEnv("host: ${CAMPAIGN_TEST_HOST:localhost}"))
	assert.Equal(t, "port: 5432", expandEnv("port: ${CAMPAIGN_TEST_UNSET_PORT:5432}"))
	assert.Equal(t, "key: ${CAMPAIGN_TEST_UNSET_KEY}", expandEnv("key: ${CAMPAIGN_TEST_UNSET_KEY}"))
	assert.Equal(t, "empty: ", expandEnv("empty: ${CAMPAIGN_TEST_UNSET_EMPTY:}"))
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadFromMergesEnvFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
engine:
  default_model: big
  response_cache:
    backend: memory
  models:
    - id: big
      provider: openai
      context_window: 32000
      max_tokens: 4000
      available: true
      capabilities: [chat]
`)
	writeFile(t, dir, "config.test.yaml", `
engine:
  max_in_flight: 2
  response_cache:
    ttl: 30s
`)

	cfg, err := LoadFrom(dir, "test")
	require.NoError(t, err)

	assert.Equal(t, "big", cfg.Engine.DefaultModel)
	assert.Equal(t, 2, cfg.Engine.MaxInFlight)
	assert.Equal(t, 30*time.Second, cfg.Engine.ResponseCache.TTL)
	assert.Equal(t, 60*time.Second, cfg.Engine.CallTimeout)
	assert.Equal(t, "campaign-ai-api", cfg.App.Name)
	require.Len(t, cfg.Engine.Models, 1)
	assert.Equal(t, []string{"chat"}, cfg.Engine.Models[0].Capabilities)
}

func TestLoadFromRejectsUnknownCacheBackend(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
engine:
  response_cache:
    backend: memcached
`)

	_, err := LoadFrom(dir, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memcached")
}

func TestLoadFromMissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir(), "test")
	require.Error(t, err)
}
