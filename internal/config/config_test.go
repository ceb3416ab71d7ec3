package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.PrintHost.URL = "http://printer.local:3344"
	cfg.PrintHost.PrinterName = "Ender"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Loglevel != "info" {
		t.Errorf("expected loglevel 'info', got '%s'", cfg.Loglevel)
	}
	if cfg.PrintHost.Kind != KindRepetier {
		t.Errorf("expected kind '%s', got '%s'", KindRepetier, cfg.PrintHost.Kind)
	}
	if cfg.PrintHost.URL != "" {
		t.Errorf("expected empty URL by default, got '%s'", cfg.PrintHost.URL)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join(".config", "goprinthost", "config.toml")) {
		t.Errorf("unexpected default config path: %s", path)
	}
}

func TestLoad(t *testing.T) {
	content := `loglevel = "debug"

[printhost]
kind = "repetier"
url = "https://printer.local"
api_key = "secret"
printer_name = "Ender"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Loglevel != "debug" {
		t.Errorf("expected loglevel 'debug', got '%s'", cfg.Loglevel)
	}
	if cfg.PrintHost.URL != "https://printer.local" {
		t.Errorf("unexpected url: %s", cfg.PrintHost.URL)
	}
	if cfg.PrintHost.APIKey != "secret" {
		t.Errorf("unexpected api_key: %s", cfg.PrintHost.APIKey)
	}
	if cfg.PrintHost.PrinterName != "Ender" {
		t.Errorf("unexpected printer_name: %s", cfg.PrintHost.PrinterName)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	content := `[printhost]
url = "printer.local"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Loglevel != "info" {
		t.Errorf("expected default loglevel 'info', got '%s'", cfg.Loglevel)
	}
	if cfg.PrintHost.Kind != KindRepetier {
		t.Errorf("expected default kind '%s', got '%s'", KindRepetier, cfg.PrintHost.Kind)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("this is [not toml"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
	if !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}
}

func TestValidateRequiresURL(t *testing.T) {
	cfg := validConfig()
	cfg.PrintHost.URL = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "printhost.url is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	cfg := validConfig()
	cfg.PrintHost.Kind = "octoprint"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "printhost.kind") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadLoglevel(t *testing.T) {
	cfg := validConfig()
	cfg.Loglevel = "chatty"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "loglevel") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateCAFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := validConfig()
		cfg.PrintHost.CAFile = filepath.Join(t.TempDir(), "missing.pem")
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "does not exist") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		cfg := validConfig()
		cfg.PrintHost.CAFile = t.TempDir()
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "is a directory") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ca.pem")
		if err := os.WriteFile(path, []byte("pem data"), 0644); err != nil {
			t.Fatalf("failed to write ca file: %v", err)
		}
		cfg := validConfig()
		cfg.PrintHost.CAFile = path
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config, got: %v", err)
		}
	})
}

func TestValidateAllowsEmptyOptionalFields(t *testing.T) {
	cfg := validConfig()
	cfg.PrintHost.APIKey = ""
	cfg.PrintHost.CAFile = ""
	cfg.PrintHost.PrinterName = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("optional fields should be allowed empty, got: %v", err)
	}
}
