package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Optional log level, default "info"
loglevel = "info"

[printhost]
# Backend implementation. Only "repetier" is supported for now.
kind = "repetier"

# Required. Host of the print server. A bare host[:port] is reached over
# plain http; use an explicit https:// prefix for TLS.
url = "http://myprinterhost:3344"

# Optional API key. Can be generated in the Repetier-Server web UI under
# Global Settings -> Connectivity. Sent on every request, even when empty.
api_key = ""

# Optional CA certificate bundle overriding the system trust store when
# connecting over https.
ca_file = ""

# Name of the printer/queue to upload to, as configured on the server.
printer_name = "MyPrinter"
`

// GenerateConfig generates a commented configuration file template
func GenerateConfig(configPath string) error {
	fmt.Printf("Generating config %s\n", configPath)

	// Check if config file already exists and back it up
	if _, err := os.Stat(configPath); err == nil {
		backupPath := configPath + ".bak"
		fmt.Printf("Backing up config %s\n", configPath)
		if err := os.Rename(configPath, backupPath); err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
	}

	// Create parent directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file
	fmt.Printf("Writing %s\n", configPath)
	if err := os.WriteFile(configPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
