package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  model: "gpt-4"
  max_tokens: 1000
  temperature: 0.5

embedding:
  model: "text-embedding-3-large"
  batch_size: 10
  min_delay_ms: 500
  max_chunks_per_call: 50

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_docs"
  vector_dim: 3072

chunker:
  max_chunk_size: 500
  overlap_size: 100
  separators: ["\n\n", "\n", " ", ""]

search:
  threshold: 0.6
  top_k: 3

session:
  retention_hours: 24
  sweep_interval_minutes: 30

server:
  port: "9090"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "text-embedding-3-large", config.Embedding.Model)
	assert.Equal(t, 10, config.Embedding.BatchSize)
	assert.Equal(t, 500, config.Embedding.MinDelayMS)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, 3072, config.Database.VectorDim)
	assert.Equal(t, 500, config.Chunker.MaxChunkSize)
	assert.Equal(t, 100, config.Chunker.OverlapSize)
	assert.Equal(t, 0.6, config.Search.Threshold)
	assert.Equal(t, 3, config.Search.TopK)
	assert.Equal(t, 24, config.Session.RetentionHours)
	assert.Equal(t, "9090", config.Server.Port)
}

func TestLoadConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte("llm:\n  model: gpt-4\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4", config.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", config.Embedding.Model)
	assert.Equal(t, 20, config.Embedding.BatchSize)
	assert.Equal(t, 1000, config.Embedding.MinDelayMS)
	assert.Equal(t, 1536, config.Database.VectorDim)
	assert.Equal(t, 1000, config.Chunker.MaxChunkSize)
	assert.Equal(t, 200, config.Chunker.OverlapSize)
	assert.Equal(t, []string{"\n\n", "\n", ". ", " ", ""}, config.Chunker.Separators)
	assert.Equal(t, 0.5, config.Search.Threshold)
	assert.Equal(t, 5, config.Search.TopK)
	assert.Equal(t, 48, config.Session.RetentionHours)
	assert.Equal(t, "8080", config.Server.Port)
}

func TestConfigValidation(t *testing.T) {
	valid, err := getDefaultConfig()
	require.NoError(t, err)
	assert.Empty(t, valid.Validate())

	invalid, err := getDefaultConfig()
	require.NoError(t, err)
	invalid.LLM.MaxTokens = 5000
	invalid.LLM.Temperature = 3.0
	invalid.Embedding.BatchSize = 0
	invalid.Database.VectorDim = -1
	invalid.Chunker.OverlapSize = invalid.Chunker.MaxChunkSize
	invalid.Search.Threshold = 1.5

	errors := invalid.Validate()
	assert.Len(t, errors, 6)

	messages := make([]string, 0, len(errors))
	for _, e := range errors {
		messages = append(messages, e.Error())
	}
	assert.Contains(t, messages, "llm.max_tokens: max_tokens must be between 1 and 4096")
	assert.Contains(t, messages, "llm.temperature: temperature must be between 0 and 2")
	assert.Contains(t, messages, "embedding.batch_size: batch_size must be positive")
	assert.Contains(t, messages, "database.vector_dim: vector_dim must be positive")
	assert.Contains(t, messages, "chunker.overlap_size: overlap_size must be non-negative and less than max_chunk_size")
	assert.Contains(t, messages, "search.threshold: threshold must be between -1 and 1")
}

func TestEnvironmentOverrides(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "env-key")
	os.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	os.Setenv("PORT", "3000")
	defer func() {
		os.Unsetenv("OPENAI_API_KEY")
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("PORT")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "env-key", config.LLM.Token)
	assert.Equal(t, "env-key", config.Embedding.Token)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "3000", config.Server.Port)
}
