package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/thomascherickal/bloop.ai/pkg/semantic"
)

// Config is everything the indexing core consumes.
type Config struct {
	// IndexDir holds the relational cache, the full-text index and the
	// repository registry.
	IndexDir string `yaml:"index_dir"`

	// Parallelism is the per-pass worker count hint; zero or negative
	// means one worker per available CPU.
	Parallelism int `yaml:"parallelism"`

	// SchemaVersionTag is mixed into every file hash. Changing it
	// invalidates all cache entries and forces a full re-index.
	SchemaVersionTag string `yaml:"schema_version_tag"`

	// IgnoreGlobs are doublestar patterns matched against paths
	// relative to the repository root.
	IgnoreGlobs []string `yaml:"ignore_globs"`

	Vector  VectorConfig  `yaml:"vector"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// VectorConfig configures the semantic side of indexing.
type VectorConfig struct {
	Enabled        bool   `yaml:"enabled"`
	CollectionName string `yaml:"collection_name"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Dimension      uint64 `yaml:"dimension"`
	UseTLS         bool   `yaml:"use_tls"`
	EmbedderURL    string `yaml:"embedder_url"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig configures the optional prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		IndexDir:         ".bloop",
		SchemaVersionTag: "1",
		IgnoreGlobs:      []string{"**/.git/**"},
		Vector: VectorConfig{
			CollectionName: semantic.DefaultCollectionName,
			Host:           "localhost",
			Port:           6334,
			Dimension:      384,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML config file over the defaults and validates it.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate normalizes the configuration in place.
func (c *Config) Validate() error {
	if c.IndexDir == "" {
		return fmt.Errorf("index_dir must not be empty")
	}
	if c.SchemaVersionTag == "" {
		return fmt.Errorf("schema_version_tag must not be empty")
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
	if c.Vector.Enabled {
		if c.Vector.CollectionName == "" {
			return fmt.Errorf("vector.collection_name must not be empty")
		}
		if c.Vector.Dimension == 0 {
			return fmt.Errorf("vector.dimension must not be zero")
		}
		if c.Vector.EmbedderURL == "" {
			return fmt.Errorf("vector.embedder_url must not be empty")
		}
	}
	return nil
}
