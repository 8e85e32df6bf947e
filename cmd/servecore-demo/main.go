// Package main provides a demonstration server built on servecore.
//
// It wires the bootstrap core to a small chi router with request IDs,
// Prometheus metrics, a per-peer rate limit interceptor, and (when TLS is
// enabled) an HTTP/3 Alt-Svc advertisement.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"

	"github.com/yarlk/servecore"
	"github.com/yarlk/servecore/altsvc"
	"github.com/yarlk/servecore/internal/buildinfo"
	"github.com/yarlk/servecore/internal/confloader"
	"github.com/yarlk/servecore/logkit"
	"github.com/yarlk/servecore/metrics"
	"github.com/yarlk/servecore/ratelimit"
)

func main() {
	app := &cli.App{
		Name:    "servecore-demo",
		Usage:   "demonstration HTTP/HTTPS server built on servecore",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML configuration file",
				EnvVars: []string{"SERVECORE_CONFIG"},
			},
			&cli.UintFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "listening port (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "tls",
				Usage: "serve HTTPS (overrides config)",
			},
			&cli.StringFlag{
				Name:  "cert",
				Usage: "TLS certificate file (overrides config)",
			},
			&cli.StringFlag{
				Name:  "key",
				Usage: "TLS private key file (overrides config)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := defaultConfig()
	loader := confloader.NewLoader(confloader.WithConfigFile(c.String("config")))
	if err := loader.Load(cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// CLI flags win over file and environment.
	if c.IsSet("port") {
		cfg.Port = uint16(c.Uint("port"))
	}
	if c.IsSet("tls") {
		cfg.TLS.Enabled = c.Bool("tls")
	}
	if c.IsSet("cert") {
		cfg.TLS.CertFile = c.String("cert")
	}
	if c.IsSet("key") {
		cfg.TLS.KeyFile = c.String("key")
	}

	logger := logkit.New(logkit.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger.Info("starting servecore-demo", "version", buildinfo.String())

	reg := metrics.NewRegistry()

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Get("/time", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"now":        time.Now().Format(time.RFC3339),
			"request_id": servecore.RequestIDFromContext(r.Context()),
			"peer":       r.RemoteAddr,
		})
	})
	router.Handle("/metrics", reg.Handler())

	middlewares := []servecore.Middleware{
		servecore.RequestID(),
		reg.Middleware,
	}
	if cfg.TLS.Enabled {
		middlewares = append(middlewares, altsvc.New(cfg.Port).Middleware())
	}
	handler := servecore.Chain(router, middlewares...)

	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	srv := servecore.New(cfg.Port, handler).
		WithLogger(logger).
		WithInterceptor(limiter.Interceptor())
	if cfg.TLS.Enabled {
		srv = srv.WithTLS(servecore.TLSParam{
			Enabled:  true,
			CertFile: cfg.TLS.CertFile,
			KeyFile:  cfg.TLS.KeyFile,
		})
	}
	if cfg.IdleTimeout > 0 {
		srv = srv.WithIdleTimeout(cfg.IdleTimeout)
	}
	if cfg.DrainTimeout > 0 {
		srv = srv.WithDrainTimeout(cfg.DrainTimeout)
	}
	if cfg.RefreshInterval > 0 {
		srv = srv.WithRefreshInterval(cfg.RefreshInterval)
	}

	ctx, stop := servecore.NotifyShutdown(c.Context)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
