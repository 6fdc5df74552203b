package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "duckduckgo", cfg.Retriever.Type)
	assert.Equal(t, "https://api.duckduckgo.com/", cfg.Retriever.DuckDuckGo.Endpoint)
	assert.Equal(t, 0, cfg.Retriever.DuckDuckGo.MaxRetries)
	assert.Equal(t, "\n", cfg.Assembler.Separator)
	assert.Equal(t, "tokens", cfg.Assembler.Unit)
	assert.Equal(t, 150, cfg.Generator.MaxLength)
	assert.Equal(t, 1, cfg.Generator.NumSequences)
	assert.Equal(t, 2, cfg.Generator.NoRepeatNGram)
	assert.False(t, cfg.Generator.EchoPrompt)
	assert.Equal(t, 1, cfg.Generator.Concurrency)
	assert.Equal(t, OnFailureEmpty, cfg.Pipeline.OnRetrievalFailure)
	assert.Equal(t, "tfidf", cfg.Index.Embedder.Type)
	require.NoError(t, cfg.Validate())
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("RAGBOT_TEST_ENDPOINT", "http://search.local/")
	path := writeConfig(t, `
retriever:
  type: duckduckgo
  duckduckgo:
    endpoint: ${RAGBOT_TEST_ENDPOINT}
    max_retries: 2
pipeline:
  on_retrieval_failure: fail
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://search.local/", cfg.Retriever.DuckDuckGo.Endpoint)
	assert.Equal(t, 2, cfg.Retriever.DuckDuckGo.MaxRetries)
	assert.Equal(t, 10, cfg.Retriever.DuckDuckGo.TimeoutSecs)
	assert.Equal(t, OnFailureFail, cfg.Pipeline.OnRetrievalFailure)
}

func TestLoadKeepsBareDollarSigns(t *testing.T) {
	t.Setenv("HOME", "/home/ragbot")
	t.Setenv("RAGBOT_TEST_AGENT", "ragbot-test")
	path := writeConfig(t, `
retriever:
  type: duckduckgo
  duckduckgo:
    user_agent: "${RAGBOT_TEST_AGENT} $HOME $5 cost$"
assembler:
  separator: " $$ "
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ragbot-test $HOME $5 cost$", cfg.Retriever.DuckDuckGo.UserAgent)
	assert.Equal(t, " $$ ", cfg.Assembler.Separator)
}

func TestLoadIndexRetrieverDefaultsToIndexOutput(t *testing.T) {
	path := writeConfig(t, `
retriever:
  type: index
index:
  output: /tmp/quotes.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/quotes.json", cfg.Retriever.Index.Path)
	assert.Equal(t, 5, cfg.Retriever.Index.TopK)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "generator:\n  temperature: 0.7\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"unknown retriever", func(c *AppConfig) { c.Retriever.Type = "bing" }},
		{"unknown generator", func(c *AppConfig) { c.Generator.Type = "bert" }},
		{"unknown unit", func(c *AppConfig) { c.Assembler.Unit = "bytes" }},
		{"unknown policy", func(c *AppConfig) { c.Pipeline.OnRetrievalFailure = "retry" }},
		{"budget too large", func(c *AppConfig) { c.Assembler.MaxLength = c.Generator.MaxLength }},
		{"bad ngram", func(c *AppConfig) { c.Generator.NoRepeatNGram = -3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Generator.MaxLength = 200

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200, loaded.Generator.MaxLength)
	assert.Equal(t, cfg.Retriever, loaded.Retriever)
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "duckduckgo", cfg.Retriever.Type)
	assert.Equal(t, "\n", cfg.Assembler.Separator)
	assert.Equal(t, 2, cfg.Generator.NoRepeatNGram)
	assert.Equal(t, OnFailureEmpty, cfg.Pipeline.OnRetrievalFailure)
}
