package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("LLM_PROVIDER", "gemini")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, 6, cfg.Retrieval.HistoryLimit)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 8*time.Hour, cfg.Redis.SessionTTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.OTel.Enabled())
	assert.Equal(t, "test", cfg.OTel.Environment)
	assert.Equal(t, "node-1", cfg.OTel.InstanceID)
	assert.Equal(t, 1.0, cfg.OTel.SampleRatio)
}

func TestLoad_OpenAIOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("COMPLETION_TIMEOUT", "90s")
	t.Setenv("RETRIEVAL_TOP_K", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 90*time.Second, cfg.Retrieval.CompletionTimeout)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	t.Run("provider", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "anthropic")
		_, err := Load()
		assert.ErrorContains(t, err, "LLM_PROVIDER")
	})
	t.Run("s3 bucket", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "s3")
		t.Setenv("AWS_S3_BUCKET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "AWS_S3_BUCKET")
	})
	t.Run("node id", func(t *testing.T) {
		t.Setenv("NODE_ID", "4096")
		_, err := Load()
		assert.ErrorContains(t, err, "NODE_ID")
	})
	t.Run("sample ratio", func(t *testing.T) {
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")
		_, err := Load()
		assert.ErrorContains(t, err, "OTEL_TRACES_SAMPLER_ARG")
	})
}
