package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "direct", cfg.Reddit.Provider)
	assert.Equal(t, 20, cfg.Polling.DefaultBatchSize)
	assert.Equal(t, 50, cfg.Polling.MinRelevancyScore)
	assert.Equal(t, 90, cfg.Polling.AutoSuggestionThreshold)
	assert.Equal(t, 5, cfg.Reddit.Apify.PollIntervalSeconds)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	path := writeConfig(t, "reddit:\n  provider: direct\nllm:\n  provider: openai\n")

	t.Setenv("REDDIT_API_PROVIDER", "scraper")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("ENABLE_SCHEDULED_POLLING", "true")
	t.Setenv("POLL_TIMES_STARTER", "8, 17")
	t.Setenv("DEFAULT_BATCH_SIZE", "10")
	t.Setenv("DATABASE_URL", "postgres://test/leadscout")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "scraper", cfg.Reddit.Provider)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.True(t, cfg.Polling.EnableScheduled)
	assert.Equal(t, 10, cfg.Polling.DefaultBatchSize)
	assert.Equal(t, "postgres://test/leadscout", cfg.Database.URL)
	assert.Equal(t, []int{8, 17}, cfg.Polling.StarterHours())
}

func TestLoadFromEnvMissingFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-only")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err, "a missing config file should fall back to defaults")

	assert.Equal(t, "postgres://env-only", cfg.Database.URL)
	assert.Equal(t, 5, cfg.Polling.MaxConcurrent)
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"7,16", []int{7, 16}},
		{"7, 11, 16, 22", []int{7, 11, 16, 22}},
		{"", nil},
		{"bad,7,25,-1", []int{7}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseHours(tt.in), "parseHours(%q)", tt.in)
	}
}
