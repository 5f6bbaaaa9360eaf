// Package config loads the application configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "config.yaml"

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	Port         int           `yaml:"port"`
	Warmup       bool          `yaml:"warmup"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	RateLimit    int           `yaml:"rate_limit"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

// CorpusConfig points at the FAQ spreadsheet.
type CorpusConfig struct {
	Path     string        `yaml:"path"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// IndexConfig selects the encoding strategy and persistence.
type IndexConfig struct {
	Strategy    string `yaml:"strategy"`
	MaxFeatures int    `yaml:"max_features"`
	Persist     bool   `yaml:"persist"`
	Path        string `yaml:"path"`
}

// EmbedderConfig configures the dense strategy's embedding backend.
type EmbedderConfig struct {
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// RetrievalConfig tunes the relevance gate.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// AnswerConfig tunes grounded generation.
type AnswerConfig struct {
	MinContextChars int           `yaml:"min_context_chars"`
	Timeout         time.Duration `yaml:"timeout"`
	Retries         int           `yaml:"retries"`
	AssistantName   string        `yaml:"assistant_name"`
}

// GeneratorConfig selects the generative backend.
type GeneratorConfig struct {
	Type        string  `yaml:"type"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

// ConversationConfig tunes chat sessions.
type ConversationConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
}

// Config is the root application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Corpus       CorpusConfig       `yaml:"corpus"`
	Index        IndexConfig        `yaml:"index"`
	Embedder     EmbedderConfig     `yaml:"embedder"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Answer       AnswerConfig       `yaml:"answer"`
	Generator    GeneratorConfig    `yaml:"generator"`
	Conversation ConversationConfig `yaml:"conversation"`
	Log          LogConfig          `yaml:"log"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := base()
	applyDefaults(cfg)
	return cfg
}

// base holds the defaults whose zero value is a legitimate setting, so they
// must be in place before decoding rather than filled in after.
func base() *Config {
	return &Config{
		Index:     IndexConfig{Persist: true},
		Retrieval: RetrievalConfig{MinSimilarity: 0.1},
		Generator: GeneratorConfig{Temperature: 0.3},
	}
}

// Load reads the config at path. A missing file yields the defaults.
// Environment references like ${VAR} are expanded before decoding, and
// unknown keys are rejected. PORT in the environment overrides server.port.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyEnv(cfg)
	return cfg, nil
}

// Parse decodes YAML bytes onto the defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	cfg := base()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that cannot work.
func (c *Config) Validate() error {
	switch c.Index.Strategy {
	case "sparse", "dense":
	default:
		return fmt.Errorf("index.strategy must be sparse or dense, got %q", c.Index.Strategy)
	}
	switch c.Embedder.Type {
	case "ollama", "openai":
	default:
		return fmt.Errorf("embedder.type must be ollama or openai, got %q", c.Embedder.Type)
	}
	if c.Retrieval.MinSimilarity < 0 || c.Retrieval.MinSimilarity >= 1 {
		return fmt.Errorf("retrieval.min_similarity must be in [0, 1), got %v", c.Retrieval.MinSimilarity)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 10
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "faq.xlsx"
	}
	if cfg.Corpus.Debounce == 0 {
		cfg.Corpus.Debounce = 500 * time.Millisecond
	}

	if cfg.Index.Strategy == "" {
		cfg.Index.Strategy = "sparse"
	}
	if cfg.Index.MaxFeatures == 0 {
		cfg.Index.MaxFeatures = 500
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "faq_index.db"
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	if cfg.Embedder.Model == "" {
		switch cfg.Embedder.Type {
		case "openai":
			cfg.Embedder.Model = "text-embedding-3-small"
		default:
			cfg.Embedder.Model = "nomic-embed-text"
		}
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}

	if cfg.Answer.MinContextChars == 0 {
		cfg.Answer.MinContextChars = 10
	}
	if cfg.Answer.Timeout == 0 {
		cfg.Answer.Timeout = 30 * time.Second
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "gemini"
	}
	if cfg.Generator.APIKeyEnv == "" && cfg.Generator.Type != "ollama" {
		cfg.Generator.APIKeyEnv = defaultKeyEnv(cfg.Generator.Type)
	}

	if cfg.Conversation.IdleTimeout == 0 {
		cfg.Conversation.IdleTimeout = 300 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "faqbot"
	}
}

func defaultKeyEnv(generator string) string {
	switch generator {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "cohere":
		return "COHERE_API_KEY"
	default:
		return "gemini_key"
	}
}

func applyEnv(cfg *Config) {
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil && port > 0 {
		cfg.Server.Port = port
	}
}
