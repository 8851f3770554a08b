package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Accounts)
	assert.Equal(t, DefaultNetworkRequestTimeout, cfg.Sync.NetworkRequestTimeout)
	assert.Equal(t, DefaultMinimumFullSyncInterval, cfg.Sync.MinimumFullSyncInterval)
	assert.Equal(t, DefaultRetryCount, cfg.Sync.RetryCount)
	assert.Equal(t, DefaultBaseRetryInterval, cfg.Sync.BaseRetryInterval)
	assert.Zero(t, cfg.Sync.PollInterval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_Accounts(t *testing.T) {
	path := writeConfig(t, `
accounts:
  - id: sim1
    name: Work
    subscription_id: 1
    interface: wwan0
  - id: sim2
    subscription_id: 2
    vvm_type: vvm_type_cvvm
    enabled: false
sync:
  retry_count: 3
  base_retry_interval: 10s
  poll_interval: 15m
log:
  level: debug
  format: console
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 2)

	sim1 := cfg.Accounts[0]
	assert.True(t, sim1.IsEnabled())
	assert.Equal(t, PhoneAccount{
		ID: "sim1", Name: "Work", SubscriptionID: 1, VvmType: VvmTypeOMTP, Interface: "wwan0",
	}, sim1.PhoneAccount())

	sim2, ok := cfg.Account("sim2")
	require.True(t, ok)
	assert.False(t, sim2.IsEnabled())
	assert.Equal(t, VvmTypeCVVM, sim2.PhoneAccount().VvmType)

	assert.Equal(t, 3, cfg.Sync.RetryCount)
	assert.Equal(t, 10*time.Second, cfg.Sync.BaseRetryInterval)
	assert.Equal(t, 15*time.Minute, cfg.Sync.PollInterval)
	assert.Equal(t, DefaultNetworkRequestTimeout, cfg.Sync.NetworkRequestTimeout)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("VVMSYNC_LOG_LEVEL", "warn")
	t.Setenv("VVMSYNC_SYNC_RETRY_COUNT", "2")

	cfg, err := LoadConfig(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Sync.RetryCount)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", "accounts:\n  - subscription_id: 1\n"},
		{"duplicate id", "accounts:\n  - id: a\n  - id: a\n"},
		{"unknown vvm type", "accounts:\n  - id: a\n    vvm_type: vvm_type_smtp\n"},
		{"zero retries", "sync:\n  retry_count: 0\n"},
		{"negative interval", "sync:\n  base_retry_interval: -1s\n"},
		{"malformed yaml", "accounts: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	off := false
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.Accounts = []AccountConfig{
		{ID: "sim1", SubscriptionID: 1, VvmType: string(VvmTypeOMTP)},
		{ID: "sim2", SubscriptionID: 2, VvmType: string(VvmTypeCVVM), Enabled: &off},
	}
	cfg.Sync.RetryCount = 4

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, loaded.Accounts, 2)
	assert.True(t, loaded.Accounts[0].IsEnabled())
	assert.False(t, loaded.Accounts[1].IsEnabled())
	assert.Equal(t, 4, loaded.Sync.RetryCount)
	assert.Equal(t, DefaultBaseRetryInterval, loaded.Sync.BaseRetryInterval)
}
