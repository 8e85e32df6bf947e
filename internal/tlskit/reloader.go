package tlskit

import (
	"context"
	"crypto/tls"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultRefreshInterval is how often certificate material is re-read from
// disk when nothing else triggers a reload.
const DefaultRefreshInterval = 24 * time.Hour

// reloadSettleDelay gives certificate writers (ACME clients, vim-style
// renames) a moment to finish before the files are re-read.
const reloadSettleDelay = 100 * time.Millisecond

// Reloader periodically re-reads certificate/key files and publishes the
// compiled configuration through a callback (typically
// Acceptor.ReplaceConfig). A failed load is logged and skipped; the
// previous configuration stays authoritative. The reloader never stops the
// accept path: if it exits, certificate rotation stops but serving
// continues.
type Reloader struct {
	certFile string
	keyFile  string
	interval time.Duration
	publish  func(*tls.Config)
	logger   *slog.Logger
	debounce time.Duration
	lastLoad time.Time
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithInterval overrides the periodic refresh interval.
func WithInterval(d time.Duration) ReloaderOption {
	return func(r *Reloader) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the reloader's logger.
func WithLogger(logger *slog.Logger) ReloaderOption {
	return func(r *Reloader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReloader creates a reloader that re-reads certFile/keyFile and hands
// each successfully compiled configuration to publish.
func NewReloader(certFile, keyFile string, publish func(*tls.Config), opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: DefaultRefreshInterval,
		publish:  publish,
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks until ctx is canceled, reloading on every tick of the refresh
// interval and on write/create events touching the certificate or key
// file. File watching is best effort: if the watcher cannot be set up the
// periodic timer still runs.
func (r *Reloader) Run(ctx context.Context) error {
	r.logger.Info("tls reload loop started",
		"cert_file", r.certFile,
		"key_file", r.keyFile,
		"interval", r.interval,
	)

	events := r.watchFiles(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reload()
		case _, ok := <-events:
			if !ok {
				events = nil // watcher gone; periodic refresh continues
				continue
			}
			r.debouncedReload()
		}
	}
}

// watchFiles starts an fsnotify watcher on the directories holding the
// certificate and key (directory watches survive atomic renames). The
// returned channel carries one value per relevant event and is closed when
// the watcher dies.
func (r *Reloader) watchFiles(ctx context.Context) <-chan struct{} {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Warn("tls file watcher unavailable, relying on periodic refresh", "error", err)
		return nil
	}

	certDir := filepath.Dir(r.certFile)
	keyDir := filepath.Dir(r.keyFile)
	if err := watcher.Add(certDir); err != nil {
		r.logger.Warn("watch cert dir failed", "dir", certDir, "error", err)
		watcher.Close()
		return nil
	}
	if keyDir != certDir {
		if err := watcher.Add(keyDir); err != nil {
			r.logger.Warn("watch key dir failed", "dir", keyDir, "error", err)
			watcher.Close()
			return nil
		}
	}

	certBase := filepath.Base(r.certFile)
	keyBase := filepath.Base(r.keyFile)

	events := make(chan struct{}, 1)
	go func() {
		defer close(events)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				base := filepath.Base(ev.Name)
				if base != certBase && base != keyBase {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				select {
				case events <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("tls file watcher error", "error", err)
			}
		}
	}()
	return events
}

func (r *Reloader) debouncedReload() {
	now := time.Now()
	if now.Sub(r.lastLoad) < r.debounce {
		return
	}
	r.lastLoad = now
	time.Sleep(reloadSettleDelay)
	r.reload()
}

// reload re-reads the files and publishes on success. Failure keeps the
// previous configuration; rotation failure is never fatal.
func (r *Reloader) reload() {
	cfg, err := LoadServerConfig(r.certFile, r.keyFile)
	if err != nil {
		r.logger.Warn("tls reload failed, keeping previous config", "error", err)
		return
	}
	r.publish(cfg)
	r.logger.Info("tls config replaced", "cert_file", r.certFile)
}
