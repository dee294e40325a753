package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/toolscope/internal/logging"
	"github.com/fyrsmithlabs/toolscope/internal/telemetry"
)

// Config is the root toolscoped configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Logging   logging.Config   `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`
	Embedding EmbeddingConfig  `koanf:"embedding"`
	Filter    FilterConfig     `koanf:"filter"`
	Catalog   CatalogConfig    `koanf:"catalog"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider string `koanf:"provider"` // "fastembed" (default) or "tei"
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`  // TEI endpoint, e.g. http://localhost:8080
	CacheDir string `koanf:"cache_dir"` // fastembed model cache
}

// FilterConfig holds default tool-selection parameters.
// Per-request options override these.
type FilterConfig struct {
	TopK             int     `koanf:"top_k"`
	MinScore         float64 `koanf:"min_score"`
	ContextMessages  int     `koanf:"context_messages"`
	MaxContextTokens int     `koanf:"max_context_tokens"`
	CacheEntries     int     `koanf:"cache_entries"`
}

// CatalogConfig locates the tool catalog.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8921,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging:   *logging.NewDefaultConfig(),
		Telemetry: *telemetry.NewDefaultConfig(),
		Embedding: EmbeddingConfig{
			Provider: "fastembed",
			Model:    "BAAI/bge-small-en-v1.5",
		},
		Filter: FilterConfig{
			TopK:             10,
			MinScore:         0,
			ContextMessages:  10,
			MaxContextTokens: 2000,
			CacheEntries:     100,
		},
		Catalog: CatalogConfig{},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	switch c.Embedding.Provider {
	case "", "fastembed", "tei":
	default:
		return fmt.Errorf("embedding.provider must be fastembed or tei, got %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "tei" && c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required for the tei provider")
	}

	if c.Filter.TopK < 0 {
		return fmt.Errorf("filter.top_k must be non-negative, got %d", c.Filter.TopK)
	}
	if c.Filter.MinScore < -1 || c.Filter.MinScore > 1 {
		return fmt.Errorf("filter.min_score must be between -1 and 1, got %f", c.Filter.MinScore)
	}
	if c.Filter.ContextMessages < 0 {
		return fmt.Errorf("filter.context_messages must be non-negative, got %d", c.Filter.ContextMessages)
	}
	if c.Filter.MaxContextTokens < 0 {
		return fmt.Errorf("filter.max_context_tokens must be non-negative, got %d", c.Filter.MaxContextTokens)
	}
	if c.Filter.CacheEntries < 1 {
		return fmt.Errorf("filter.cache_entries must be at least 1, got %d", c.Filter.CacheEntries)
	}

	return nil
}
