package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Port uint16 `koanf:"port"`
	TLS  struct {
		Enabled bool   `koanf:"enabled"`
		Cert    string `koanf:"cert"`
	} `koanf:"tls"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func defaults() *testConfig {
	cfg := &testConfig{Port: 4000}
	cfg.Log.Level = "info"
	return cfg
}

func TestLoadDefaultsUntouched(t *testing.T) {
	cfg := defaults()
	if err := NewLoader().Load(cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 4000 || cfg.Log.Level != "info" {
		t.Errorf("defaults clobbered: %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "port: 8443\ntls:\n  enabled: true\n  cert: /etc/ssl/cert.pem\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := defaults()
	if err := NewLoader(WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 8443 {
		t.Errorf("port = %d, want 8443", cfg.Port)
	}
	if !cfg.TLS.Enabled || cfg.TLS.Cert != "/etc/ssl/cert.pem" {
		t.Errorf("tls = %+v", cfg.TLS)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("untouched default changed: %q", cfg.Log.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 8443\nlog:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SERVECORE_PORT", "9000")
	t.Setenv("SERVECORE_LOG_LEVEL", "error")

	cfg := defaults()
	if err := NewLoader(WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("port = %d, want the env override 9000", cfg.Port)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log level = %q, want the env override", cfg.Log.Level)
	}
}

func TestCustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_PORT", "7000")

	cfg := defaults()
	if err := NewLoader(WithEnvPrefix("MYAPP_")).Load(cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("port = %d, want 7000", cfg.Port)
	}
}

func TestMissingFileIsAnError(t *testing.T) {
	if err := NewLoader(WithConfigFile("no-such-config.yaml")).Load(defaults()); err == nil {
		t.Error("want error for missing config file")
	}
}
