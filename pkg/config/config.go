package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the bridge process.
// Values come from config.yaml in the config root (optional) with environment
// variable overrides. The bridge ships with defaults that work out of the box
// on a desktop install, so the file is rarely present.
type Config struct {
	// ConfigDir is the root directory for all persisted state
	// (databases.json, .credentials, projects/). Empty means the
	// platform user-config dir + "/relwave".
	ConfigDir string `yaml:"config_dir" env:"RELWAVE_CONFIG_DIR" env-default:""`

	// Version is set at load time, not from config.
	Version string `yaml:"-"`

	LogLevel string `yaml:"log_level" env:"RELWAVE_LOG_LEVEL" env-default:"info"`

	// CacheTTLSeconds is how long the credential store serves cached reads.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" env:"RELWAVE_CACHE_TTL_SECONDS" env-default:"30"`

	// BatchSize is the default row count per query.result notification.
	BatchSize int `yaml:"batch_size" env:"RELWAVE_BATCH_SIZE" env-default:"200"`

	// ProgressIntervalMs rate-limits query.progress notifications.
	ProgressIntervalMs int `yaml:"progress_interval_ms" env:"RELWAVE_PROGRESS_INTERVAL_MS" env-default:"500"`

	// IntrospectConcurrency caps simultaneous metadata queries against a
	// target database during schema introspection.
	IntrospectConcurrency int `yaml:"introspect_concurrency" env:"RELWAVE_INTROSPECT_CONCURRENCY" env-default:"5"`
}

// Load reads configuration from <configDir>/config.yaml when present, with
// environment variable overrides. The version parameter is injected at build
// time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	// Resolve the config dir first from env alone so we know where to
	// look for config.yaml.
	if dir := os.Getenv("RELWAVE_CONFIG_DIR"); dir != "" {
		cfg.ConfigDir = dir
	} else {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user config dir: %w", err)
		}
		cfg.ConfigDir = filepath.Join(base, "relwave")
	}

	yamlPath := filepath.Join(cfg.ConfigDir, "config.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		if err := cleanenv.ReadConfig(yamlPath, cfg); err != nil {
			return nil, fmt.Errorf("read %s: %w", yamlPath, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}
	cfg.Version = version

	// ReadConfig may have reset ConfigDir from the yaml default.
	if cfg.ConfigDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user config dir: %w", err)
		}
		cfg.ConfigDir = filepath.Join(base, "relwave")
	}

	if err := os.MkdirAll(cfg.ConfigDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	return cfg, nil
}

// ProjectsDir returns the root directory holding all project directories.
func (c *Config) ProjectsDir() string {
	return filepath.Join(c.ConfigDir, "projects")
}

// CacheTTL returns the credential store cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ProgressInterval returns the minimum gap between progress notifications.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalMs) * time.Millisecond
}
