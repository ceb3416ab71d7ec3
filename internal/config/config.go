package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// KindRepetier selects the Repetier-Server backend.
const KindRepetier = "repetier"

// Config represents the main application configuration
type Config struct {
	Loglevel  string          `toml:"loglevel"`
	PrintHost PrintHostConfig `toml:"printhost"`
}

// PrintHostConfig holds the connection parameters for one print host.
// URL is required; the other fields may be empty meaning "not configured".
type PrintHostConfig struct {
	Kind        string `toml:"kind"`
	URL         string `toml:"url"`
	APIKey      string `toml:"api_key"`
	CAFile      string `toml:"ca_file"`
	PrinterName string `toml:"printer_name"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Loglevel: "info",
		PrintHost: PrintHostConfig{
			Kind: KindRepetier,
		},
	}
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "goprinthost")

	return filepath.Join(configDir, "config.toml"), nil
}

// Load loads configuration from a TOML file
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PrintHost.URL == "" {
		return fmt.Errorf("printhost.url is required")
	}
	if c.PrintHost.Kind != KindRepetier {
		return fmt.Errorf("printhost.kind must be %q", KindRepetier)
	}

	if c.PrintHost.CAFile != "" {
		info, err := os.Stat(c.PrintHost.CAFile)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("printhost.ca_file does not exist: %s", c.PrintHost.CAFile)
			}
			return fmt.Errorf("unable to stat printhost.ca_file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("printhost.ca_file is a directory: %s", c.PrintHost.CAFile)
		}
	}

	if _, err := logrus.ParseLevel(c.Loglevel); err != nil {
		return fmt.Errorf("loglevel must be one of: panic, fatal, error, warn, info, debug, trace")
	}

	return nil
}
