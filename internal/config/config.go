package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the secvault CLI
type Config struct {
	// DatabasePath is the path to the encrypted vault database
	DatabasePath string `mapstructure:"database_path"`

	// SharedDatabasePath, when set, is the shared-group location the
	// database file is moved to once
	SharedDatabasePath string `mapstructure:"shared_database_path"`

	// KeystoreDir is the directory holding the encrypted keyring files
	KeystoreDir string `mapstructure:"keystore_dir"`

	// KeystorePassphrase unlocks the keyring files. Environment-only;
	// never read from the config file.
	KeystorePassphrase string `mapstructure:"-"`

	// ConfigPath is the path to the configuration file
	ConfigPath string `mapstructure:"-"`

	// SessionTTL is how long an authenticated session stays valid
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	// CleanupInterval is the tombstone cleanup schedule
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// Verbose enables debug logging
	Verbose bool `mapstructure:"verbose"`

	// Format specifies the output format (text, json, yaml)
	Format string `mapstructure:"format"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	secvaultDir := filepath.Join(homeDir, ".secvault")

	return &Config{
		DatabasePath:    filepath.Join(secvaultDir, "vault.db"),
		KeystoreDir:     filepath.Join(secvaultDir, "keystore"),
		SessionTTL:      72 * time.Hour,
		CleanupInterval: 24 * time.Hour,
		Verbose:         false,
		Format:          "text",
	}
}

// Load loads configuration from file, environment variables, and CLI flags
// Priority (highest to lowest): CLI flags > Environment variables > Config file > Defaults
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
		}
		cfg.ConfigPath = configPath
	} else {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			secvaultDir := filepath.Join(homeDir, ".secvault")
			v.AddConfigPath(secvaultDir)
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			cfg.ConfigPath = filepath.Join(secvaultDir, "config.yaml")
		}
	}

	v.SetEnvPrefix("SECVAULT")
	v.AutomaticEnv()

	v.BindEnv("database_path")
	v.BindEnv("shared_database_path")
	v.BindEnv("keystore_dir")
	v.BindEnv("session_ttl")
	v.BindEnv("cleanup_interval")
	v.BindEnv("verbose")
	v.BindEnv("format")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logrus.Debug("No config file found, using defaults")
	} else {
		logrus.Debugf("Using config file: %s", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The keyring passphrase never touches the config file.
	cfg.KeystorePassphrase = os.Getenv("SECVAULT_KEYSTORE_PASSPHRASE")

	return cfg, nil
}

// EnsureDirectories ensures that all necessary directories exist
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.DatabasePath),
		c.KeystoreDir,
		filepath.Dir(c.ConfigPath),
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ValidateFormat validates the output format
func (c *Config) ValidateFormat() error {
	switch c.Format {
	case "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("invalid format %q, must be one of: text, json, yaml", c.Format)
	}
}
