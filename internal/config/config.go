// Package config handles opsdeck configuration loading and validation.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for opsdeck.
type Config struct {
	Backend Backend `yaml:"backend"`
	Polling Polling `yaml:"polling"`
	History History `yaml:"history"`
	Logging Logging `yaml:"logging"`
	Metrics Metrics `yaml:"metrics"`
	UI      UI      `yaml:"ui"`
}

// Backend defines how the client reaches the backend daemon.
type Backend struct {
	Socket      string        `yaml:"socket"`
	SecretFile  string        `yaml:"secret_file"`  // shared secret for the hello handshake
	CallTimeout time.Duration `yaml:"call_timeout"` // client-side ceiling per command
	DialRetry   DialRetry     `yaml:"dial_retry"`
}

// DialRetry defines exponential backoff parameters for the initial connect.
type DialRetry struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

// Polling defines per-resource interval overrides. Zero values keep the
// built-in policy table's defaults.
type Polling struct {
	Intervals map[string]time.Duration `yaml:"intervals"`
}

// History defines the bounded sample log.
type History struct {
	Database   string `yaml:"database"`
	MaxPerKind int    `yaml:"max_per_kind"`
}

// Logging defines log output settings.
type Logging struct {
	File      string `yaml:"file"`
	Level     string `yaml:"level"`
	SentryDSN string `yaml:"sentry_dsn"`
}

// Metrics defines the optional local metrics endpoint.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// UI defines dashboard behavior knobs.
type UI struct {
	Theme        string        `yaml:"theme"`
	LogTailLines int           `yaml:"log_tail_lines"`
	SettleDelay  time.Duration `yaml:"settle_delay"` // pause after start/stop before re-polling status
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Backend: Backend{
			Socket:      "/tmp/opsdeckd.sock",
			SecretFile:  filepath.Join(homeDir, ".config/opsdeck/secret"),
			CallTimeout: 12 * time.Second,
			DialRetry: DialRetry{
				Initial:    250 * time.Millisecond,
				Max:        5 * time.Second,
				MaxElapsed: 30 * time.Second,
			},
		},
		Polling: Polling{
			Intervals: map[string]time.Duration{},
		},
		History: History{
			Database:   filepath.Join(homeDir, ".local/share/opsdeck/history.db"),
			MaxPerKind: 500,
		},
		Logging: Logging{
			File:  filepath.Join(homeDir, ".local/share/opsdeck/opsdeck.log"),
			Level: "info",
		},
		Metrics: Metrics{Enabled: false, Port: 9464},
		UI: UI{
			Theme:        "tokyo-night",
			LogTailLines: 200,
			SettleDelay:  750 * time.Millisecond,
		},
	}
}

// Load reads configuration from the default path or returns defaults when no
// file exists.
func Load() (*Config, error) {
	configPath := DefaultConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.expandEnvVars()
	return cfg, nil
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	if p := os.Getenv("OPSDECK_CONFIG"); p != "" {
		return p
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config/opsdeck/config.yaml")
}

func (c *Config) expandEnvVars() {
	c.Backend.Socket = os.ExpandEnv(c.Backend.Socket)
	c.Backend.SecretFile = os.ExpandEnv(c.Backend.SecretFile)
	c.Logging.SentryDSN = os.ExpandEnv(c.Logging.SentryDSN)
}
