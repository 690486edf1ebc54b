package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given. It may be absent.
const DefaultPath = "hueaction.yaml"

// Config represents the application configuration
type Config struct {
	Hue             HueConfig      `yaml:"hue"`
	Database        DatabaseConfig `yaml:"database"`
	Log             LogConfig      `yaml:"log"`
	Server          ServerConfig   `yaml:"server"`
	Ledger          LedgerConfig   `yaml:"ledger"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	// Authenticated bridge address (http://<ip>/api/<username>). Overrides the installed one.
	Address      string   `yaml:"address" env:"HUEACTION_ADDRESS"`
	DiscoveryURL string   `yaml:"discovery_url"`
	DeviceType   string   `yaml:"device_type"`
	LinkWait     Duration `yaml:"link_wait"`      // Time to press the link button during install
	Timeout      Duration `yaml:"timeout"`        // HTTP timeout for bridge requests, 0 = transport default
	RateLimitRPS float64  `yaml:"rate_limit_rps"` // Unset means 10, negative disables pacing
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path" env:"HUEACTION_DB_PATH"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" env:"HUEACTION_LOG_LEVEL"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// ServerConfig contains command webhook settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" env:"HUEACTION_SERVER_PORT"`
}

// Addr returns host:port to listen on
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LedgerConfig contains invocation ledger settings
type LedgerConfig struct {
	RetentionDays int `yaml:"retention_days"` // Unset means 30, negative keeps everything
}

// Retention returns the retention window, zero when unlimited
func (c LedgerConfig) Retention() time.Duration {
	if c.RetentionDays < 0 {
		return 0
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file, then applies environment
// overrides. A missing file at DefaultPath yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./hueaction.sqlite"
	}

	// Hue defaults
	if cfg.Hue.DiscoveryURL == "" {
		cfg.Hue.DiscoveryURL = "https://discovery.meethue.com"
	}
	if cfg.Hue.DeviceType == "" {
		cfg.Hue.DeviceType = "@mr-smith/smith-hue"
	}
	if cfg.Hue.LinkWait == 0 {
		cfg.Hue.LinkWait = Duration(10 * time.Second)
	}
	if cfg.Hue.RateLimitRPS == 0 {
		cfg.Hue.RateLimitRPS = 10.0 // 10 requests per second
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}

	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
