// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.learnloop/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider, model, temperature, embedder
//   - Storage: PostgreSQL connection (see storage.go)
//   - Retrieval: vector dimension, per-query document and course limits
//   - Tracing: OTLP trace export (optional)
//
// Security: sensitive fields (passwords) are masked in MarshalJSON; the config
// directory is created with 0750 permissions.
//
// Error Handling: sentinel errors allow errors.Is() checks; wrap with
// fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidVectorDim indicates the embedding dimension is out of range.
	ErrInvalidVectorDim = errors.New("invalid vector dimension")

	// ErrInvalidDocTopK indicates the retrieved-document limit is out of range.
	ErrInvalidDocTopK = errors.New("invalid document top-k")

	// ErrInvalidCourseLimit indicates the catalog result limit is out of range.
	ErrInvalidCourseLimit = errors.New("invalid course limit")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

const (
	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports output truncation via OutputDimensionality
	// (Matryoshka Representation Learning); the document schema stores
	// 384-dimension vectors (see vecstore).
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// DefaultVectorDim is the embedding dimension stored in pgvector.
	DefaultVectorDim = 384

	// DefaultTemperature keeps generation mostly deterministic and factual.
	DefaultTemperature float32 = 0.3
)

// TracingConfig holds OTLP trace export settings.
// Traces are exported to a local collector via OTLP HTTP; the collector
// handles authentication, buffering, and forwarding.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "gemini" (default), "ollama", "openai"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	VectorDim     int    `mapstructure:"vector_dim" json:"vector_dim"`

	// Retrieval configuration
	DocTopK     int  `mapstructure:"doc_top_k" json:"doc_top_k"`         // user documents per query
	CourseLimit int  `mapstructure:"course_limit" json:"course_limit"`   // catalog entries per query
	ReviewDraft bool `mapstructure:"review_draft" json:"review_draft"`   // enable the review stage
	TrustProxy  bool `mapstructure:"trust_proxy" json:"trust_proxy"`     // trust X-Real-IP/X-Forwarded-For
	RateBurst   int  `mapstructure:"rate_burst" json:"rate_burst"`       // per-IP rate limiter burst

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Tracing configuration
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".learnloop")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when present.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", DefaultTemperature)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Embedding defaults
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	viper.SetDefault("vector_dim", DefaultVectorDim)

	// Retrieval defaults
	viper.SetDefault("doc_top_k", 3)
	viper.SetDefault("course_limit", 5)
	viper.SetDefault("review_draft", true)

	// Serve defaults
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "learnloop")
	viper.SetDefault("postgres_password", "learnloop_dev_password")
	viper.SetDefault("postgres_db_name", "learnloop")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.agent_host", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "learnloop")
}

// bindEnvVariables binds environment variable overrides explicitly.
// GEMINI_API_KEY and OPENAI_API_KEY are read directly by the Genkit provider
// plugins, not via Viper; Validate() checks their presence per provider.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "LEARNLOOP_PROVIDER")
	mustBind("model_name", "LEARNLOOP_MODEL_NAME")
	mustBind("embedder_model", "LEARNLOOP_EMBEDDER_MODEL")
	mustBind("ollama_host", "LEARNLOOP_OLLAMA_HOST")
	mustBind("review_draft", "LEARNLOOP_REVIEW_DRAFT")
	mustBind("trust_proxy", "LEARNLOOP_TRUST_PROXY")
	mustBind("rate_burst", "LEARNLOOP_RATE_BURST")
	mustBind("tracing.enabled", "LEARNLOOP_TRACING")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// MarshalJSON masks sensitive fields so configs can be logged safely.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	cp := *c
	if cp.PostgresPassword != "" {
		cp.PostgresPassword = maskedValue
	}
	data, err := json.Marshal((*alias)(&cp))
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
