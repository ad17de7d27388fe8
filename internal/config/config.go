package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied after the config file
const (
	EnvSnapshotDir       = "DOCSEARCH_SNAPSHOT_DIR"
	EnvLogLevel          = "DOCSEARCH_LOG_LEVEL"
	EnvLogFormat         = "DOCSEARCH_LOG_FORMAT"
	EnvEmbeddingProvider = "DOCSEARCH_EMBEDDING_PROVIDER"
	EnvMetricsAddr       = "DOCSEARCH_METRICS_ADDR"
	EnvDimension         = "DOCSEARCH_DIMENSION"
	EnvJinaAPIKey        = "JINA_API_KEY"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full service configuration
type Config struct {
	SnapshotDir string         `yaml:"snapshot_dir"`
	Dimension   int            `yaml:"dimension"`
	Search      SearchConfig   `yaml:"search"`
	Cache       CacheConfig    `yaml:"cache"`
	Embedder    EmbedderConfig `yaml:"embedder"`
	Indexer     IndexerConfig  `yaml:"indexer"`
	Log         LogConfig      `yaml:"log"`
	Metrics     MetricsConfig  `yaml:"metrics"`
}

// SearchConfig holds ranking defaults
type SearchConfig struct {
	DefaultK   int     `yaml:"default_k"`
	Alpha      float64 `yaml:"alpha"`
	UseContext bool    `yaml:"use_context"`
}

// CacheConfig sizes the embedding and result caches
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	EmbeddingSize int           `yaml:"embedding_size"`
	EmbeddingTTL  time.Duration `yaml:"embedding_ttl"`
	ResultSize    int           `yaml:"result_size"`
	ResultTTL     time.Duration `yaml:"result_ttl"`
}

// EmbedderConfig selects the embedding provider. APIKey is never read from
// the file, only from the provider's environment variable.
type EmbedderConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	APIKey   string        `yaml:"-"`

	// Outgoing request budget for remote providers, 0 disables limiting
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// IndexerConfig controls the indexing pipeline
type IndexerConfig struct {
	Workers      int  `yaml:"workers"`
	MaxTextChars int  `yaml:"max_text_chars"`
	ExcerptChars int  `yaml:"excerpt_chars"`
	Persist      bool `yaml:"persist"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// MetricsConfig enables the Prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		SnapshotDir: "./data/snapshot",
		Dimension:   384,
		Search: SearchConfig{
			DefaultK:   5,
			Alpha:      0.7,
			UseContext: true,
		},
		Cache: CacheConfig{
			Enabled:       true,
			EmbeddingSize: 500,
			EmbeddingTTL:  2 * time.Hour,
			ResultSize:    200,
			ResultTTL:     30 * time.Minute,
		},
		Embedder: EmbedderConfig{
			Provider:          "local",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Burst:             10,
		},
		Indexer: IndexerConfig{
			Workers:      4,
			MaxTextChars: 50000,
			ExcerptChars: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over Default, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("unable to parse config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the process environment
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvSnapshotDir); v != "" {
		c.SnapshotDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(EnvEmbeddingProvider); v != "" {
		c.Embedder.Provider = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv(EnvDimension); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, EnvDimension, v)
		}
		c.Dimension = n
	}

	switch strings.ToLower(c.Embedder.Provider) {
	case "jina":
		c.Embedder.APIKey = os.Getenv(EnvJinaAPIKey)
	case "openai":
		c.Embedder.APIKey = os.Getenv(EnvOpenAIAPIKey)
	}
	return nil
}

// Validate checks ranges and required fields
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.SnapshotDir) == "" {
		errs = append(errs, errors.New("snapshot_dir is required"))
	}
	if c.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("dimension must be positive, got %d", c.Dimension))
	}
	if c.Search.DefaultK <= 0 {
		errs = append(errs, fmt.Errorf("search.default_k must be positive, got %d", c.Search.DefaultK))
	}
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		errs = append(errs, fmt.Errorf("search.alpha must be in [0, 1], got %v", c.Search.Alpha))
	}
	if c.Cache.Enabled {
		if c.Cache.EmbeddingSize <= 0 || c.Cache.ResultSize <= 0 {
			errs = append(errs, errors.New("cache sizes must be positive"))
		}
		if c.Cache.EmbeddingTTL <= 0 || c.Cache.ResultTTL <= 0 {
			errs = append(errs, errors.New("cache ttls must be positive"))
		}
	}

	switch strings.ToLower(c.Embedder.Provider) {
	case "", "local":
	case "jina", "openai":
		if c.Embedder.APIKey == "" {
			errs = append(errs, fmt.Errorf("embedder %q requires an api key", c.Embedder.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedder provider %q", c.Embedder.Provider))
	}
	if c.Embedder.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("embedder.requests_per_second cannot be negative, got %v", c.Embedder.RequestsPerSecond))
	}

	if c.Indexer.Workers <= 0 {
		errs = append(errs, fmt.Errorf("indexer.workers must be positive, got %d", c.Indexer.Workers))
	}
	if c.Indexer.MaxTextChars <= 0 || c.Indexer.ExcerptChars <= 0 {
		errs = append(errs, errors.New("indexer text limits must be positive"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
