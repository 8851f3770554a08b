package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default sync tuning values.
const (
	DefaultNetworkRequestTimeout   = 60 * time.Second
	DefaultMinimumFullSyncInterval = 60 * time.Second
	DefaultRetryCount              = 6
	DefaultBaseRetryInterval       = 5 * time.Second
)

// AccountConfig holds the configuration for a single phone account.
type AccountConfig struct {
	// ID is the unique identifier for this phone account.
	ID string `mapstructure:"id" yaml:"id"`

	// Name is the user-defined label for this account.
	Name string `mapstructure:"name" yaml:"name"`

	// SubscriptionID pins network requests to the account's SIM.
	SubscriptionID int `mapstructure:"subscription_id" yaml:"subscription_id"`

	// VvmType is the carrier protocol flavour ("vvm_type_omtp" or
	// "vvm_type_cvvm").
	VvmType string `mapstructure:"vvm_type" yaml:"vvm_type"`

	// Interface is the network interface bound for cellular requests.
	Interface string `mapstructure:"interface" yaml:"interface"`

	// Enabled controls whether visual voicemail is active for the
	// account. Unset means enabled.
	Enabled *bool `mapstructure:"enabled" yaml:"enabled,omitempty"`
}

// IsEnabled reports whether visual voicemail is active for the account.
func (c AccountConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// PhoneAccount converts the configuration entry into a PhoneAccount.
func (c AccountConfig) PhoneAccount() PhoneAccount {
	vt := VvmType(c.VvmType)
	if vt == "" {
		vt = VvmTypeOMTP
	}
	return PhoneAccount{
		ID:             c.ID,
		Name:           c.Name,
		SubscriptionID: c.SubscriptionID,
		VvmType:        vt,
		Interface:      c.Interface,
	}
}

// SyncConfig holds the orchestrator tuning knobs.
type SyncConfig struct {
	NetworkRequestTimeout   time.Duration `mapstructure:"network_request_timeout" yaml:"network_request_timeout"`
	MinimumFullSyncInterval time.Duration `mapstructure:"minimum_full_sync_interval" yaml:"minimum_full_sync_interval"`
	RetryCount              int           `mapstructure:"retry_count" yaml:"retry_count"`
	BaseRetryInterval       time.Duration `mapstructure:"base_retry_interval" yaml:"base_retry_interval"`

	// PollInterval enables a periodic full sync when positive.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// StoreConfig holds local database settings.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Accounts []AccountConfig `mapstructure:"accounts" yaml:"accounts"`
	Sync     SyncConfig      `mapstructure:"sync" yaml:"sync"`
	Store    StoreConfig     `mapstructure:"store" yaml:"store"`
	Log      LogConfig       `mapstructure:"log" yaml:"log"`
}

// Account returns the configuration entry with the given ID.
func (c *AppConfig) Account(id string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return AccountConfig{}, false
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/vvmsync/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "vvmsync", "config.yaml")
}

// DefaultStorePath returns the default SQLite database location.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "vvm.db")
	}
	return filepath.Join(home, ".local", "share", "vvmsync", "vvm.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Accounts: []AccountConfig{},
		Sync: SyncConfig{
			NetworkRequestTimeout:   DefaultNetworkRequestTimeout,
			MinimumFullSyncInterval: DefaultMinimumFullSyncInterval,
			RetryCount:              DefaultRetryCount,
			BaseRetryInterval:       DefaultBaseRetryInterval,
		},
		Store: StoreConfig{Path: DefaultStorePath()},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with VVMSYNC_ override file values
// (e.g. VVMSYNC_LOG_LEVEL). If the file does not exist, the defaults
// are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("vvmsync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("sync.network_request_timeout", DefaultNetworkRequestTimeout)
	v.SetDefault("sync.minimum_full_sync_interval", DefaultMinimumFullSyncInterval)
	v.SetDefault("sync.retry_count", DefaultRetryCount)
	v.SetDefault("sync.base_retry_interval", DefaultBaseRetryInterval)
	v.SetDefault("sync.poll_interval", time.Duration(0))
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	for i := range cfg.Accounts {
		if cfg.Accounts[i].VvmType == "" {
			cfg.Accounts[i].VvmType = string(VvmTypeOMTP)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *AppConfig) validate() error {
	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.ID == "" {
			return fmt.Errorf("account %d has no id", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate account id %q", a.ID)
		}
		seen[a.ID] = true

		switch VvmType(a.VvmType) {
		case VvmTypeOMTP, VvmTypeCVVM:
		default:
			return fmt.Errorf("account %q: unknown vvm_type %q", a.ID, a.VvmType)
		}
	}
	if c.Sync.RetryCount < 1 {
		return fmt.Errorf("sync.retry_count must be positive, got %d", c.Sync.RetryCount)
	}
	if c.Sync.BaseRetryInterval <= 0 {
		return fmt.Errorf("sync.base_retry_interval must be positive")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("accounts", cfg.Accounts)
	v.Set("sync", cfg.Sync)
	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
