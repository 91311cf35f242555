package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FmcdConfig is the operator configuration persisted at
// ${data_dir}/fmcd.conf: bind address, optional basic-auth password,
// invite-code bootstrap list, webhook endpoints, rate-limit policy, and
// the loop cadences of the monitoring services. Subsystems never import
// this package; the daemon entrypoint copies each section into the
// subsystem's own Config type.
type FmcdConfig struct {
	Server struct {
		BindAddress string `toml:"bind_address" env:"FMCD_BIND_ADDRESS" env-default:"127.0.0.1:7070"`
		Password    string `toml:"password" env:"FMCD_PASSWORD"`
	} `toml:"server"`

	DataDir string `toml:"data_dir" env:"FMCD_DATA_DIR" env-default:"."`

	// InviteCodes is the bootstrap list: each code is joined on startup
	// if its federation is not already registered.
	InviteCodes []string `toml:"invite_codes"`

	EventBusCapacity int `toml:"event_bus_capacity" env:"FMCD_EVENT_BUS_CAPACITY" env-default:"1000"`

	Payments struct {
		PollIntervalSecs     int `toml:"poll_interval_secs" env-default:"5"`
		OperationTimeoutSecs int `toml:"operation_timeout_secs" env-default:"86400"`
		PerFederationCap     int `toml:"per_federation_cap" env-default:"1000"`
		RecoveryLimit        int `toml:"recovery_limit" env-default:"100"`
	} `toml:"payments"`

	DepositMonitor struct {
		PollIntervalSecs int `toml:"poll_interval_secs" env-default:"30"`
		PerFederationCap int `toml:"per_federation_cap" env-default:"1000"`
	} `toml:"deposit_monitor"`

	BalanceMonitor struct {
		CheckIntervalSecs int    `toml:"check_interval_secs" env-default:"60"`
		ThresholdMsat     uint64 `toml:"threshold_msat" env-default:"1000"`
	} `toml:"balance_monitor"`

	RateLimit struct {
		MaxCorrelationIDLength int  `toml:"max_correlation_id_length" env-default:"200"`
		MaxRequestsPerID       int  `toml:"max_requests_per_correlation_id" env-default:"100"`
		WindowSeconds          int  `toml:"rate_limit_window_secs" env-default:"60"`
		Enabled                bool `toml:"enabled" env-default:"true"`
	} `toml:"rate_limit"`

	Webhooks []WebhookEndpointConfig `toml:"webhooks"`
}

// WebhookEndpointConfig is one [[webhooks]] block.
type WebhookEndpointConfig struct {
	ID         string             `toml:"id"`
	URL        string             `toml:"url"`
	Secret     string             `toml:"secret"`
	EventTypes []string           `toml:"event_types"`
	Retry      WebhookRetryConfig `toml:"retry"`
	Enabled    bool               `toml:"enabled"`
}

// WebhookRetryConfig is the retry sub-block of a webhook endpoint.
type WebhookRetryConfig struct {
	MaxAttempts       int     `toml:"max_attempts"`
	InitialDelayMs    int     `toml:"initial_delay_ms"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
	MaxDelayMs        int     `toml:"max_delay_ms"`
	TimeoutSecs       int     `toml:"timeout_secs"`
}

// Save writes cfg to path atomically: the TOML is rendered into a
// temporary file in the target directory, fsynced, then renamed over the
// destination. Parent directories are created as needed. File mode 0640,
// directory mode 0750.
func Save(path Path, cfg any) error {
	dir := filepath.Dir(path.ToString())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	rendered, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fmcd.conf.*")
	if err != nil {
		return fmt.Errorf("failed to create temporary config file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(rendered); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temporary config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary config file: %w", err)
	}

	if err := os.Chmod(tmpName, 0o640); err != nil {
		return fmt.Errorf("failed to set config file mode: %w", err)
	}
	if err := os.Rename(tmpName, path.ToString()); err != nil {
		return fmt.Errorf("failed to replace config file %s: %w", path.ToString(), err)
	}
	return nil
}
