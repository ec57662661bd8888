// Package config loads the weft.yaml runtime configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/aretw0/weft/internal/logging"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "weft.yaml"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the decoded weft.yaml.
type Config struct {
	Runtime  Runtime  `yaml:"runtime"`
	Compiler Compiler `yaml:"compiler"`
	Store    Store    `yaml:"store"`
	HTTP     HTTP     `yaml:"http"`
	LogLevel string   `yaml:"log_level"`
}

// Runtime configures graph instances and the frame loop.
type Runtime struct {
	MaxNodesPerFrame int  `yaml:"max_nodes_per_frame"`
	FrameRate        int  `yaml:"frame_rate"`
	Tracing          bool `yaml:"tracing"`
}

// Compiler configures compilation passes.
type Compiler struct {
	ConstantFolding bool `yaml:"constant_folding"`
	AnnotateOnly    bool `yaml:"annotate_only"`
}

// Store selects where compiled definitions are kept.
type Store struct {
	Backend   string        `yaml:"backend"`
	Path      string        `yaml:"path"`
	DSN       string        `yaml:"dsn"`
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	Prefix    string        `yaml:"prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// HTTP configures the serve command.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Runtime: Runtime{
			MaxNodesPerFrame: 1024,
			FrameRate:        60,
		},
		Store: Store{
			Backend: BackendMemory,
			Path:    ".weft/definitions",
			DSN:     "weft.db",
		},
		HTTP:     HTTP{Addr: ":8080"},
		LogLevel: "info",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and the store backend.
func (c Config) Validate() error {
	if c.Runtime.MaxNodesPerFrame < 0 {
		return fmt.Errorf("runtime.max_nodes_per_frame must not be negative")
	}
	if c.Runtime.FrameRate < 0 {
		return fmt.Errorf("runtime.frame_rate must not be negative")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
