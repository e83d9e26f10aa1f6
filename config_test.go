package ragblade

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/ragblade/provider"
	"github.com/flarexio/ragblade/vector"
)

const yamlConfig = `collection_name: product_reviews
embedding_provider: google
embedding_model: models/text-embedding-004
retriever:
  top_k: 10
llm_provider: google
llm_model: gemini-2.0-flash
vector:
  backend: sqlite
  persistent: true
  path: ./vectors
prompt:
  max_length: 8000
retry:
  max_attempts: 5
  initial_interval: 100ms
timeouts:
  generation: 2m
cache:
  query_ttl: 10m
providers:
  ollama:
    base_url: http://ollama:11434
`

const tomlConfig = `collection_name = "product_reviews"
embedding_provider = "openai"
embedding_model = "text-embedding-3-small"
llm_provider = "openai"
llm_model = "gpt-4o-mini"

[retriever]
top_k = 4

[timeouts]
embedding = "5s"

[providers.openai]
base_url = "https://example.com/v1"
`

func writeConfig(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadConfigYAML(t *testing.T) {
	assert := assert.New(t)

	cfg, err := LoadConfig(writeConfig(t, "config.yaml", yamlConfig))
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("product_reviews", cfg.CollectionName)
	assert.Equal("google", cfg.EmbeddingProvider)
	assert.Equal(10, cfg.Retriever.TopK)
	assert.Equal(vector.BackendSQLite, cfg.Vector.Backend)
	assert.True(cfg.Vector.Persistent)
	assert.Equal(8000, cfg.Prompt.MaxLength)
	assert.Equal(5, cfg.Retry.MaxAttempts)
	assert.Equal(100*time.Millisecond, cfg.Retry.InitialInterval.Duration())
	assert.Equal(DefaultMaxInterval, cfg.Retry.MaxInterval.Duration())
	assert.Equal(2*time.Minute, cfg.Timeouts.Generation.Duration())
	assert.Equal(DefaultEmbeddingTimeout, cfg.Timeouts.Embedding.Duration())
	assert.Equal(10*time.Minute, cfg.Cache.QueryTTL.Duration())
	assert.Equal(uint64(DefaultCacheCapacity), cfg.Cache.Capacity)
	assert.Equal(DefaultBatchSize, cfg.Ingest.BatchSize)
	assert.Equal("http://ollama:11434", cfg.Provider("ollama").BaseURL)
	assert.Empty(cfg.Provider("google").BaseURL)
}

func TestLoadConfigTOML(t *testing.T) {
	assert := assert.New(t)

	cfg, err := LoadConfig(writeConfig(t, "config.toml", tomlConfig))
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("openai", cfg.LLMProvider)
	assert.Equal(4, cfg.Retriever.TopK)
	assert.Equal(5*time.Second, cfg.Timeouts.Embedding.Duration())
	assert.Equal(vector.BackendChromem, cfg.Vector.Backend)
	assert.Equal("https://example.com/v1", cfg.Provider("openai").BaseURL)
}

func TestLoadConfigErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(err, ErrConfiguration)

	_, err = LoadConfig(writeConfig(t, "config.yaml", "retry:\n  initial_interval: soon\n"))
	assert.ErrorIs(err, ErrConfiguration)
}

func TestConfigValidate(t *testing.T) {
	assert := assert.New(t)

	registry := provider.NewRegistry()
	registry.RegisterEmbedder("google", nil)
	registry.RegisterGenerator("google", nil)

	cfg, err := LoadConfig(writeConfig(t, "config.yaml", yamlConfig))
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.NoError(cfg.Validate(registry))

	cfg.LLMProvider = "anthropic"
	cfg.Vector.Backend = "faiss"
	cfg.Retriever.TopK = -1

	err = cfg.Validate(registry)
	assert.ErrorIs(err, ErrConfiguration)
	assert.ErrorIs(err, provider.ErrUnknownProvider)
	assert.ErrorIs(err, vector.ErrUnsupportedBackend)
	assert.Contains(err.Error(), "llm_provider")
	assert.Contains(err.Error(), "retriever.top_k: must be >= 1, got -1")
}
