// CLAUDE:SUMMARY YAML configuration for the shadowq service with defaults for storage, polling, browser and fetch.
package probe

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/shadowq/internal/telemetry"
	"github.com/hazyhaar/shadowq/livedom"
	"github.com/hazyhaar/shadowq/shadowsel"
)

// Config is the top-level shadowq configuration.
type Config struct {
	DBPath string `yaml:"db_path"`
	Listen string `yaml:"listen"`

	// Async bounds polling for requests that do not set their own.
	Async shadowsel.AsyncParams `yaml:"async"`

	Browser livedom.Config `yaml:"browser"`
	Fetch   FetchConfig    `yaml:"fetch"`

	Telemetry telemetry.Config `yaml:"telemetry"`

	// RequestTimeout bounds one MCP or HTTP call. Live resolution counts
	// page load time against it.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Logger *slog.Logger `yaml:"-"`
}

// FetchConfig controls the browserless HTTP path.
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("probe: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("probe: parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "shadowq.db"
	}
	if c.Listen == "" {
		c.Listen = ":8088"
	}
	if c.Async.Retries <= 0 {
		c.Async.Retries = shadowsel.DefaultRetries
	}
	if c.Async.Delay <= 0 {
		c.Async.Delay = shadowsel.DefaultDelay
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Browser.ResourceBlocking == nil {
		c.Browser.ResourceBlocking = []string{"images", "fonts", "media"}
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 10 << 20
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 2 * time.Minute
	}
	if c.Telemetry.Service == "" {
		c.Telemetry.Service = "shadowq"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
