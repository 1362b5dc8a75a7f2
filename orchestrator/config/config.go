package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configSubdir   = "config"
	configFileName = "orchestrator_config.json"

	// EnvPrefix prefixes environment overrides: PORCH_RPC_MAX_RETRIES -> rpc.max_retries
	EnvPrefix = "PORCH"
)

//go:embed default_config.json
var defaultConfigJSON []byte

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	if cfg.DatabaseFile == "" {
		cfg.DatabaseFile = "orchestrator.db"
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueryServerPort == 0 {
		cfg.QueryServerPort = 8080
	}

	// RPC transport defaults
	if cfg.RPC.RequestTimeoutSeconds == 0 {
		cfg.RPC.RequestTimeoutSeconds = 10
	}
	if cfg.RPC.MaxRetries == 0 {
		cfg.RPC.MaxRetries = 2
	}
	if cfg.RPC.RetryBackoffMs == 0 {
		cfg.RPC.RetryBackoffMs = 200
	}
	if cfg.RPC.UnhealthyThreshold == 0 {
		cfg.RPC.UnhealthyThreshold = 3
	}
	if cfg.RPC.LoadBalancingStrategy == "" {
		cfg.RPC.LoadBalancingStrategy = "round-robin"
	}
	if cfg.RPC.LoadBalancingStrategy != "round-robin" &&
		cfg.RPC.LoadBalancingStrategy != "weighted" {
		return fmt.Errorf("load balancing strategy must be 'round-robin' or 'weighted'")
	}
	if cfg.RPC.MaxRetries < 0 {
		return fmt.Errorf("rpc max retries cannot be negative")
	}

	// Lifecycle defaults
	if cfg.Lifecycle.ConfirmationsRequired == 0 {
		cfg.Lifecycle.ConfirmationsRequired = 6
	}
	if cfg.Lifecycle.ConfirmationsPollIntervalSeconds == 0 {
		cfg.Lifecycle.ConfirmationsPollIntervalSeconds = 10
	}
	if cfg.Lifecycle.ConfirmationsInitialDelaySeconds == 0 {
		cfg.Lifecycle.ConfirmationsInitialDelaySeconds = 10
	}
	if cfg.Lifecycle.ConfirmationsMaxAttempts < 0 {
		return fmt.Errorf("confirmations max attempts cannot be negative")
	}

	// Key release throttling
	if cfg.KeyRelease.MaxReleases == 0 {
		cfg.KeyRelease.MaxReleases = 3
	}
	if cfg.KeyRelease.WindowSeconds == 0 {
		cfg.KeyRelease.WindowSeconds = 300
	}

	if cfg.Webhook.TimeoutSeconds == 0 {
		cfg.Webhook.TimeoutSeconds = 5
	}

	// Initialize protocol configs from embedded defaults if missing
	if len(cfg.Protocols) == 0 {
		var defaultCfg Config
		if err := json.Unmarshal(defaultConfigJSON, &defaultCfg); err == nil {
			cfg.Protocols = defaultCfg.Protocols
		} else {
			cfg.Protocols = make(map[string]ProtocolConfig)
		}
	}

	return nil
}

// Save writes the given config to <basePath>/config/orchestrator_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, configSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configFile := filepath.Join(configDir, configFileName)
	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load layers the embedded defaults, <basePath>/config/orchestrator_config.json
// (when present) and PORCH_* environment variables, then validates.
func Load(basePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(defaultConfigJSON)); err != nil {
		return nil, fmt.Errorf("failed to read default config: %w", err)
	}

	configFile := filepath.Join(basePath, configSubdir, configFileName)
	if _, err := os.Stat(configFile); err == nil {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.NodeHome == "" {
		cfg.NodeHome = basePath
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabaseDir is where the SQLite file lives.
func (c *Config) DatabaseDir() string {
	return filepath.Join(c.NodeHome, "data")
}
