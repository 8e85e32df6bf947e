package main

import "time"

// Config is the demo server configuration, loadable from YAML and
// SERVECORE_* environment variables.
type Config struct {
	Port uint16 `koanf:"port"`

	TLS struct {
		Enabled  bool   `koanf:"enabled"`
		CertFile string `koanf:"cert"`
		KeyFile  string `koanf:"key"`
	} `koanf:"tls"`

	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	DrainTimeout    time.Duration `koanf:"drain_timeout"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	RateLimit struct {
		RPS   float64 `koanf:"rps"`
		Burst int     `koanf:"burst"`
	} `koanf:"rate_limit"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
}

// defaultConfig returns the demo defaults.
func defaultConfig() *Config {
	cfg := &Config{Port: 4000}
	cfg.TLS.CertFile = "cert.pem"
	cfg.TLS.KeyFile = "privkey.pem"
	cfg.RateLimit.RPS = 100
	cfg.RateLimit.Burst = 200
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}
