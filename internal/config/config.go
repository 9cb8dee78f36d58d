package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Classify  ClassifyConfig  `mapstructure:"classify"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Server    ServerConfig    `mapstructure:"server"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // "gemini" or any OpenAI-compatible provider name
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

type IngestConfig struct {
	Sources   []string `mapstructure:"sources"`
	ChunkSize int      `mapstructure:"chunk_size"`
	Overlap   int      `mapstructure:"overlap"`
}

type ClassifyConfig struct {
	// OpinionKeywords override the built-in advice-detection phrases.
	// Empty means use the defaults.
	OpinionKeywords []string `mapstructure:"opinion_keywords"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	HealthAddr string `mapstructure:"health_addr"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// CatalogConfig points at the optional Neo4j source catalog.
// An empty URI disables the catalog.
type CatalogConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}

	if c.Embedding.Provider != "" && c.Embedding.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("embedding provider '%s' is configured but api_key is empty", c.Embedding.Provider))
	}

	if c.Ingest.ChunkSize > 0 && c.Ingest.Overlap >= c.Ingest.ChunkSize {
		warnings = append(warnings, fmt.Sprintf("ingest overlap %d must be smaller than chunk_size %d", c.Ingest.Overlap, c.Ingest.ChunkSize))
	}

	if c.Retrieval.TopK < 0 {
		warnings = append(warnings, fmt.Sprintf("retrieval top_k %d is negative", c.Retrieval.TopK))
	}

	return warnings
}

// Load reads configuration from file and environment.
// A .env file in the working directory is loaded first so API keys can live
// outside the yaml config.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("FUNDFAQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.model", "models/text-embedding-004")
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "mutual_fund_faqs")
	v.SetDefault("vector.dimension", 768)
	v.SetDefault("ingest.chunk_size", 1000)
	v.SetDefault("ingest.overlap", 200)
	v.SetDefault("retrieval.top_k", 3)
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.health_addr", ":8080")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")
}
