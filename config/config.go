// Package config loads the geostream server configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is the client the allow-list admits by default.
const DefaultUserAgent = "Geostream/1 (Android)"

// Config holds all configuration for the geostream server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Media    MediaConfig    `yaml:"media"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	Security SecurityConfig `yaml:"security"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// StorageConfig configures the Badger database.
type StorageConfig struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// MediaConfig configures uploaded media storage.
type MediaConfig struct {
	Dir         string `yaml:"dir"`
	BaseURL     string `yaml:"base_url"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// SweeperConfig configures the background expiry sweep. Reads always sweep;
// an interval of "0" turns the background loop off.
type SweeperConfig struct {
	Interval string `yaml:"interval"`
}

// SecurityConfig configures client restrictions.
type SecurityConfig struct {
	CheckUserAgent     bool     `yaml:"check_user_agent"`
	AllowedUserAgents  []string `yaml:"allowed_user_agents"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
}

// LogConfig configures logging. An empty Path logs to stdout only.
type LogConfig struct {
	Level      string `yaml:"level"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "15s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
		},
		Storage: StorageConfig{
			Path: "data/badger",
		},
		Media: MediaConfig{
			Dir:         "data/media",
			BaseURL:     "/media",
			MaxUploadMB: 32,
		},
		Sweeper: SweeperConfig{
			Interval: "1m",
		},
		Security: SecurityConfig{
			CheckUserAgent:     false,
			AllowedUserAgents:  []string{DefaultUserAgent},
			RateLimitPerMinute: 30,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies GEOSTREAM_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEOSTREAM_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("GEOSTREAM_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v, ok := envBool("GEOSTREAM_DB_IN_MEMORY"); ok {
		c.Storage.InMemory = v
	}
	if v := os.Getenv("GEOSTREAM_MEDIA_DIR"); v != "" {
		c.Media.Dir = v
	}
	if v := os.Getenv("GEOSTREAM_MEDIA_BASE_URL"); v != "" {
		c.Media.BaseURL = v
	}
	if v := os.Getenv("GEOSTREAM_SWEEP_INTERVAL"); v != "" {
		c.Sweeper.Interval = v
	}
	if v, ok := envBool("GEOSTREAM_CHECK_USER_AGENT"); ok {
		c.Security.CheckUserAgent = v
	}
	if v := os.Getenv("GEOSTREAM_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Security.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("GEOSTREAM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GEOSTREAM_LOG_PATH"); v != "" {
		c.Log.Path = v
	}
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// GetReadTimeout returns the server read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 15*time.Second)
}

// GetWriteTimeout returns the server write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 30*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown budget.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// GetSweepInterval returns the background sweep interval; zero disables it.
func (c *Config) GetSweepInterval() time.Duration {
	return parseDuration(c.Sweeper.Interval, time.Minute)
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Media.MaxUploadMB) << 20
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// ValidLogLevels lists the accepted log levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if c.Media.Dir == "" {
		return fmt.Errorf("media.dir is required")
	}
	if !strings.HasPrefix(c.Media.BaseURL, "/") {
		return fmt.Errorf("media.base_url must be an absolute path, got %q", c.Media.BaseURL)
	}
	if c.Media.MaxUploadMB <= 0 {
		return fmt.Errorf("media.max_upload_mb must be positive")
	}
	for name, s := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"sweeper.interval":        c.Sweeper.Interval,
	} {
		if s == "0" {
			continue
		}
		if d, err := time.ParseDuration(s); err != nil || d < 0 {
			return fmt.Errorf("%s: invalid duration %q", name, s)
		}
	}
	if c.Security.CheckUserAgent && len(c.Security.AllowedUserAgents) == 0 {
		return fmt.Errorf("security.allowed_user_agents must not be empty when check_user_agent is set")
	}
	if c.Security.RateLimitPerMinute < 0 {
		return fmt.Errorf("security.rate_limit_per_minute must not be negative")
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Log.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Log.Level, ValidLogLevels)
	}
	return nil
}
