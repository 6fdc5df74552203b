package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Address             string   `yaml:"address"`
	ReadTimeoutSecs     int      `yaml:"read_timeout_secs"`
	WriteTimeoutSecs    int      `yaml:"write_timeout_secs"`
	IdleTimeoutSecs     int      `yaml:"idle_timeout_secs"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs"`
	RequestTimeoutSecs  int      `yaml:"request_timeout_secs"`
	RateLimit           *int     `yaml:"rate_limit,omitempty"`
	CORSOrigins         []string `yaml:"cors_origins,omitempty"`
}

// LoggingConfig selects the log level and output format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DuckDuckGoConfig configures the instant-answer search retriever.
type DuckDuckGoConfig struct {
	Endpoint    string `yaml:"endpoint"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
	MaxResults  int    `yaml:"max_results"`
	UserAgent   string `yaml:"user_agent"`
}

// IndexRetrieverConfig points the index retriever at a file built by ragindex.
type IndexRetrieverConfig struct {
	Path string `yaml:"path"`
	TopK int    `yaml:"top_k"`
}

// RetrieverConfig selects and configures the retriever ("duckduckgo", "index" or "none").
type RetrieverConfig struct {
	Type       string                `yaml:"type"`
	DuckDuckGo *DuckDuckGoConfig     `yaml:"duckduckgo,omitempty"`
	Index      *IndexRetrieverConfig `yaml:"index,omitempty"`
}

// AssemblerConfig bounds the generator input. Unit is "tokens" or "chars";
// MaxLength 0 disables truncation.
type AssemblerConfig struct {
	Separator string `yaml:"separator"`
	MaxLength int    `yaml:"max_length"`
	Unit      string `yaml:"unit"`
}

// NGramConfig locates the weights written by ragtrain.
type NGramConfig struct {
	ModelPath string `yaml:"model_path"`
}

// HuggingFaceConfig configures the hosted inference API generator.
type HuggingFaceConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// OpenAIGeneratorConfig configures an OpenAI-compatible completions endpoint.
type OpenAIGeneratorConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeneratorConfig selects the generator backend and its decoding parameters.
// NoRepeatNGram -1 disables the repetition constraint.
type GeneratorConfig struct {
	Type          string                 `yaml:"type"`
	MaxLength     int                    `yaml:"max_length"`
	NumSequences  int                    `yaml:"num_sequences"`
	NoRepeatNGram int                    `yaml:"no_repeat_ngram"`
	EchoPrompt    bool                   `yaml:"echo_prompt"`
	Concurrency   int                    `yaml:"concurrency"`
	NGram         *NGramConfig           `yaml:"ngram,omitempty"`
	HuggingFace   *HuggingFaceConfig     `yaml:"huggingface,omitempty"`
	OpenAI        *OpenAIGeneratorConfig `yaml:"openai,omitempty"`
}

// Retrieval failure policies.
const (
	OnFailureEmpty = "empty"
	OnFailureFail  = "fail"
)

// PipelineConfig holds the query pipeline policies.
type PipelineConfig struct {
	OnRetrievalFailure string `yaml:"on_retrieval_failure"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// IndexConfig configures the offline index job and how its output is read back.
type IndexConfig struct {
	Output      string            `yaml:"output"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Assembler AssemblerConfig `yaml:"assembler"`
	Generator GeneratorConfig `yaml:"generator"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Index     IndexConfig     `yaml:"index"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// ${VAR} references are expanded from the environment before decoding.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	data = expandEnv(data)

	var cfg AppConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${NAME} references only. Any other "$" is left alone.
func expandEnv(data []byte) []byte {
	return envRefPattern.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(envRefPattern.FindSubmatch(ref)[1])))
	})
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragbot/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragbot/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown backend types and inconsistent budgets.
func (c *AppConfig) Validate() error {
	switch c.Retriever.Type {
	case "duckduckgo", "index", "none":
	default:
		return fmt.Errorf("unknown retriever: %s", c.Retriever.Type)
	}
	switch c.Generator.Type {
	case "ngram", "huggingface", "openai":
	default:
		return fmt.Errorf("unknown generator: %s", c.Generator.Type)
	}
	switch c.Assembler.Unit {
	case "tokens", "chars":
	default:
		return fmt.Errorf("unknown assembler unit: %s", c.Assembler.Unit)
	}
	switch c.Pipeline.OnRetrievalFailure {
	case OnFailureEmpty, OnFailureFail:
	default:
		return fmt.Errorf("unknown retrieval failure policy: %s", c.Pipeline.OnRetrievalFailure)
	}
	if c.Generator.MaxLength <= 0 {
		return errors.New("generator.max_length must be positive")
	}
	if c.Generator.NoRepeatNGram < -1 {
		return errors.New("generator.no_repeat_ngram must be -1 (disabled) or positive")
	}
	if c.Assembler.Unit == "tokens" && c.Assembler.MaxLength >= c.Generator.MaxLength {
		return fmt.Errorf("assembler.max_length (%d tokens) leaves no room below generator.max_length (%d)",
			c.Assembler.MaxLength, c.Generator.MaxLength)
	}
	return nil
}

// Duration converts a seconds setting into a time.Duration.
func Duration(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragbot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	s := &cfg.Server
	if s.Address == "" {
		s.Address = ":8080"
	}
	if s.ReadTimeoutSecs == 0 {
		s.ReadTimeoutSecs = 10
	}
	if s.WriteTimeoutSecs == 0 {
		s.WriteTimeoutSecs = 60
	}
	if s.IdleTimeoutSecs == 0 {
		s.IdleTimeoutSecs = 120
	}
	if s.ShutdownTimeoutSecs == 0 {
		s.ShutdownTimeoutSecs = 5
	}
	if s.RequestTimeoutSecs == 0 {
		s.RequestTimeoutSecs = 45
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	r := &cfg.Retriever
	if r.Type == "" {
		r.Type = "duckduckgo"
	}
	if r.Type == "duckduckgo" {
		if r.DuckDuckGo == nil {
			r.DuckDuckGo = &DuckDuckGoConfig{}
		}
		if r.DuckDuckGo.Endpoint == "" {
			r.DuckDuckGo.Endpoint = "https://api.duckduckgo.com/"
		}
		if r.DuckDuckGo.TimeoutSecs == 0 {
			r.DuckDuckGo.TimeoutSecs = 10
		}
		if r.DuckDuckGo.UserAgent == "" {
			r.DuckDuckGo.UserAgent = "ragbot/1.0"
		}
	}

	if cfg.Index.Output == "" {
		cfg.Index.Output = "ragbot.index.json"
	}
	if r.Type == "index" {
		if r.Index == nil {
			r.Index = &IndexRetrieverConfig{}
		}
		if r.Index.Path == "" {
			r.Index.Path = cfg.Index.Output
		}
		if r.Index.TopK == 0 {
			r.Index.TopK = 5
		}
	}

	if cfg.Assembler.Separator == "" {
		cfg.Assembler.Separator = "\n"
	}
	if cfg.Assembler.Unit == "" {
		cfg.Assembler.Unit = "tokens"
	}
	if cfg.Assembler.MaxLength == 0 {
		cfg.Assembler.MaxLength = 100
	}

	g := &cfg.Generator
	if g.Type == "" {
		g.Type = "ngram"
	}
	if g.MaxLength == 0 {
		g.MaxLength = 150
	}
	if g.NumSequences == 0 {
		g.NumSequences = 1
	}
	if g.NoRepeatNGram == 0 {
		g.NoRepeatNGram = 2
	}
	if g.Concurrency == 0 {
		g.Concurrency = 1
	}
	switch g.Type {
	case "ngram":
		if g.NGram == nil {
			g.NGram = &NGramConfig{}
		}
		if g.NGram.ModelPath == "" {
			g.NGram.ModelPath = "ragbot.ngram.json"
		}
	case "huggingface":
		if g.HuggingFace == nil {
			g.HuggingFace = &HuggingFaceConfig{}
		}
		if g.HuggingFace.BaseURL == "" {
			g.HuggingFace.BaseURL = "https://api-inference.huggingface.co"
		}
		if g.HuggingFace.Model == "" {
			g.HuggingFace.Model = "gpt2"
		}
		if g.HuggingFace.APIKeyEnv == "" {
			g.HuggingFace.APIKeyEnv = "HF_API_TOKEN"
		}
		if g.HuggingFace.TimeoutSecs == 0 {
			g.HuggingFace.TimeoutSecs = 60
		}
		if g.HuggingFace.MaxRetries == 0 {
			g.HuggingFace.MaxRetries = 3
		}
	case "openai":
		if g.OpenAI == nil {
			g.OpenAI = &OpenAIGeneratorConfig{}
		}
		if g.OpenAI.BaseURL == "" {
			g.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if g.OpenAI.APIKeyEnv == "" {
			g.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if g.OpenAI.Model == "" {
			g.OpenAI.Model = "gpt-3.5-turbo-instruct"
		}
		if g.OpenAI.TimeoutSecs == 0 {
			g.OpenAI.TimeoutSecs = 60
		}
	}

	if cfg.Pipeline.OnRetrievalFailure == "" {
		cfg.Pipeline.OnRetrievalFailure = OnFailureEmpty
	}

	ix := &cfg.Index
	if ix.Embedder.Type == "" {
		ix.Embedder.Type = "tfidf"
	}
	if ix.Chunker.Type == "" {
		ix.Chunker.Type = "sentence"
	}
	if ix.Chunker.SentencesPerChunk == 0 {
		ix.Chunker.SentencesPerChunk = 1
	}
	if ix.VectorStore.Type == "" {
		ix.VectorStore.Type = "memory"
	}
	if ix.Summarizer.Type == "" {
		ix.Summarizer.Type = "frequency"
	}
	if ix.Summarizer.MaxSentences == 0 {
		ix.Summarizer.MaxSentences = 3
	}
	if ix.Embedder.Type == "openai" && ix.Embedder.OpenAI != nil {
		if ix.Embedder.OpenAI.BaseURL == "" {
			ix.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if ix.Embedder.OpenAI.APIKeyEnv == "" {
			ix.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if ix.Embedder.OpenAI.Model == "" {
			ix.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if ix.Embedder.OpenAI.TimeoutSecs == 0 {
			ix.Embedder.OpenAI.TimeoutSecs = 30
		}
		if ix.Embedder.OpenAI.BatchSize == 0 {
			ix.Embedder.OpenAI.BatchSize = 32
		}
	}
	if ix.VectorStore.Type == "qdrant" && ix.VectorStore.Qdrant != nil {
		if ix.VectorStore.Qdrant.Collection == "" {
			ix.VectorStore.Qdrant.Collection = "ragbot"
		}
		if ix.VectorStore.Qdrant.TimeoutSecs == 0 {
			ix.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
}
