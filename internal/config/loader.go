package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	Engine     string `json:"engine" yaml:"engine" toml:"engine"`
	ModulesDir string `json:"modules_dir" yaml:"modules_dir" toml:"modules_dir"`
	LogLevel   string `json:"log_level" yaml:"log_level" toml:"log_level"`

	Workers        int    `json:"workers" yaml:"workers" toml:"workers"`
	QueueDepth     int    `json:"queue_depth" yaml:"queue_depth" toml:"queue_depth"`
	DequeueTimeout string `json:"dequeue_timeout" yaml:"dequeue_timeout" toml:"dequeue_timeout"`
	DrainTimeout   string `json:"drain_timeout" yaml:"drain_timeout" toml:"drain_timeout"`

	JournalPath string `json:"journal_path" yaml:"journal_path" toml:"journal_path"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`

	LlamaContext     int `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads     int `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	MemoryLimitPages int `json:"memory_limit_pages" yaml:"memory_limit_pages" toml:"memory_limit_pages"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks fields that can be judged without defaults applied.
func (c Config) Validate() error {
	switch c.Engine {
	case "", "js", "wasm", "llama":
	default:
		return fmt.Errorf("unknown engine %q (want js, wasm or llama)", c.Engine)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.QueueDepth < 0 {
		return fmt.Errorf("queue_depth must not be negative")
	}
	if _, err := c.DequeueTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.DrainTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// DequeueTimeoutDuration parses DequeueTimeout; empty yields zero.
func (c Config) DequeueTimeoutDuration() (time.Duration, error) {
	return parseDuration("dequeue_timeout", c.DequeueTimeout)
}

// DrainTimeoutDuration parses DrainTimeout; empty yields zero.
func (c Config) DrainTimeoutDuration() (time.Duration, error) {
	return parseDuration("drain_timeout", c.DrainTimeout)
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}
