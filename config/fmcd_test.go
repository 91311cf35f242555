package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConfig() FmcdConfig {
	var cfg FmcdConfig
	cfg.Server.BindAddress = "127.0.0.1:7070"
	cfg.DataDir = "/var/lib/fmcd"
	cfg.InviteCodes = []string{"fed11qgq..."}
	cfg.EventBusCapacity = 1000
	cfg.Payments.PollIntervalSecs = 5
	cfg.Payments.OperationTimeoutSecs = 86400
	cfg.Payments.PerFederationCap = 1000
	cfg.Payments.RecoveryLimit = 100
	cfg.DepositMonitor.PollIntervalSecs = 30
	cfg.DepositMonitor.PerFederationCap = 1000
	cfg.BalanceMonitor.CheckIntervalSecs = 60
	cfg.BalanceMonitor.ThresholdMsat = 1000
	cfg.RateLimit.MaxCorrelationIDLength = 200
	cfg.RateLimit.MaxRequestsPerID = 100
	cfg.RateLimit.WindowSeconds = 60
	cfg.RateLimit.Enabled = true
	cfg.Webhooks = []WebhookEndpointConfig{{
		ID:         "ops",
		URL:        "https://hooks.example.com/fmcd",
		Secret:     "Wh5ec-9kQz2mX7pL4vB1nR8tY3uA6dEj",
		EventTypes: []string{"invoice_paid", "payment_succeeded"},
		Retry: WebhookRetryConfig{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			BackoffMultiplier: 2.0,
			MaxDelayMs:        30000,
			TimeoutSecs:       30,
		},
		Enabled: true,
	}}
	return cfg
}

func TestSaveLoadSaveIsFixpoint(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir).Join("fmcd.conf")

	cfg := sampleConfig()
	require.NoError(t, Save(path, cfg))

	first, err := os.ReadFile(path.ToString())
	require.NoError(t, err)

	var loaded FmcdConfig
	require.NoError(t, Load(path, &loaded))
	assert.Equal(t, cfg, loaded)

	require.NoError(t, Save(path, loaded))
	second, err := os.ReadFile(path.ToString())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestSaveCreatesParentDirsAndSetsModes(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir).Join("nested", "deeper", "fmcd.conf")

	require.NoError(t, Save(path, sampleConfig()))

	info, err := os.Stat(path.ToString())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	parent, err := os.Stat(filepath.Dir(path.ToString()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), parent.Mode().Perm())
}

func TestSaveReplacesExistingFileAtomically(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir).Join("fmcd.conf")

	cfg := sampleConfig()
	require.NoError(t, Save(path, cfg))

	cfg.Server.BindAddress = "0.0.0.0:9090"
	require.NoError(t, Save(path, cfg))

	var loaded FmcdConfig
	require.NoError(t, Load(path, &loaded))
	assert.Equal(t, "0.0.0.0:9090", loaded.Server.BindAddress)

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
