package config

import (
	"strings"
	"time"
)

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level" mapstructure:"log_level"`     // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format" mapstructure:"log_format"`   // "json" or "console"
	LogSampler bool   `json:"log_sampler" mapstructure:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Node Config
	NodeHome     string `json:"node_home" mapstructure:"node_home"`         // Home directory (default: ~/.porchestrator)
	DatabaseFile string `json:"database_file" mapstructure:"database_file"` // SQLite file under <home>/data (default: orchestrator.db)

	// Queue: empty RedisURL keeps jobs in memory
	RedisURL    string `json:"redis_url" mapstructure:"redis_url"`
	WorkerCount int    `json:"worker_count" mapstructure:"worker_count"` // default: 4

	// Key vault passphrase; usually supplied through PORCH_MASTER_KEY_PASSPHRASE
	MasterKeyPassphrase string `json:"master_key_passphrase" mapstructure:"master_key_passphrase"`

	// Query Server Config
	QueryServerPort int `json:"query_server_port" mapstructure:"query_server_port"` // default: 8080

	RPC        RPCConfig                 `json:"rpc" mapstructure:"rpc"`
	Lifecycle  LifecycleConfig           `json:"lifecycle" mapstructure:"lifecycle"`
	KeyRelease KeyReleaseConfig          `json:"key_release" mapstructure:"key_release"`
	Webhook    WebhookConfig             `json:"webhook" mapstructure:"webhook"`
	Protocols  map[string]ProtocolConfig `json:"protocols" mapstructure:"protocols"`
}

// RPCConfig is the JSON-RPC transport policy shared by all endpoints.
type RPCConfig struct {
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" mapstructure:"request_timeout_seconds"` // default: 10
	MaxRetries            int    `json:"max_retries" mapstructure:"max_retries"`                         // default: 2
	RetryBackoffMs        int    `json:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`               // default: 200
	LoadBalancingStrategy string `json:"load_balancing_strategy" mapstructure:"load_balancing_strategy"` // "round-robin" or "weighted"
	UnhealthyThreshold    int    `json:"unhealthy_threshold" mapstructure:"unhealthy_threshold"`         // default: 3
}

// LifecycleConfig drives the prepare/submit/confirm pipeline.
type LifecycleConfig struct {
	ConfirmationsRequired            uint64 `json:"confirmations_required" mapstructure:"confirmations_required"`                           // default: 6
	ConfirmationsPollIntervalSeconds int    `json:"confirmations_poll_interval_seconds" mapstructure:"confirmations_poll_interval_seconds"` // default: 10
	ConfirmationsInitialDelaySeconds int    `json:"confirmations_initial_delay_seconds" mapstructure:"confirmations_initial_delay_seconds"` // default: 10
	ConfirmationsMaxAttempts         int    `json:"confirmations_max_attempts" mapstructure:"confirmations_max_attempts"`                   // 0 = poll until terminal
	DryRun                           bool   `json:"dry_run" mapstructure:"dry_run"`                                                         // skip balance checks
}

// KeyReleaseConfig throttles key disclosure per wallet and user.
type KeyReleaseConfig struct {
	MaxReleases   int `json:"max_releases" mapstructure:"max_releases"`     // default: 3
	WindowSeconds int `json:"window_seconds" mapstructure:"window_seconds"` // default: 300
}

// WebhookConfig configures balance change notifications.
type WebhookConfig struct {
	URL            string `json:"url" mapstructure:"url"`
	Secret         string `json:"secret" mapstructure:"secret"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"` // default: 5
}

// ProtocolConfig holds all protocol-specific settings in one place.
type ProtocolConfig struct {
	Enabled        bool              `json:"enabled" mapstructure:"enabled"`
	Network        string            `json:"network,omitempty" mapstructure:"network"`
	ChainID        uint64            `json:"chain_id,omitempty" mapstructure:"chain_id"`
	RPCURLs        []string          `json:"rpc_urls,omitempty" mapstructure:"rpc_urls"`
	RPCHeaders     map[string]string `json:"rpc_headers,omitempty" mapstructure:"rpc_headers"`
	AutoCreateATAs bool              `json:"auto_create_atas,omitempty" mapstructure:"auto_create_atas"`
}

// GetProtocolConfig returns the settings for a protocol, or an empty config.
func (c *Config) GetProtocolConfig(protocol string) *ProtocolConfig {
	if c.Protocols != nil {
		if pc, ok := c.Protocols[strings.ToLower(protocol)]; ok {
			return &pc
		}
	}
	return &ProtocolConfig{}
}

func (c RPCConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c RPCConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

func (c LifecycleConfig) PollInterval() time.Duration {
	return time.Duration(c.ConfirmationsPollIntervalSeconds) * time.Second
}

func (c LifecycleConfig) InitialDelay() time.Duration {
	return time.Duration(c.ConfirmationsInitialDelaySeconds) * time.Second
}

func (c KeyReleaseConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
