// Package servecore is a reusable HTTP/HTTPS server bootstrap core.
//
// It owns socket acceptance (IPv4/IPv6 dual-stack), per-connection idle
// timeouts at the transport layer, TLS termination with hot-reloadable
// certificate material, and graceful shutdown, and routes every request
// through an optional pre-dispatch Interceptor before the application
// handler runs. It is not an HTTP semantics engine: routing, content
// negotiation and error-to-response conversion belong to the application
// handler it is given.
//
// Typical use:
//
//	ctx, stop := servecore.NotifyShutdown(context.Background())
//	defer stop()
//
//	err := servecore.New(8443, router).
//		WithTLS(servecore.TLSParam{Enabled: true, CertFile: "cert.pem", KeyFile: "privkey.pem"}).
//		WithInterceptor(myInterceptor).
//		Run(ctx)
package servecore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/yarlk/servecore/internal/netkit"
	"github.com/yarlk/servecore/internal/tlskit"
)

// Tunable defaults, each overridable before Run.
const (
	// DefaultIdleTimeout bounds how long a connection may go without I/O
	// progress.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultDrainTimeout bounds the graceful-shutdown drain period.
	DefaultDrainTimeout = 10 * time.Second

	// DefaultRefreshInterval is how often TLS certificate material is
	// re-read from disk.
	DefaultRefreshInterval = tlskit.DefaultRefreshInterval
)

// ErrAlreadyRunning is returned by Run when the server has been run before.
// A Server runs at most once.
var ErrAlreadyRunning = errors.New("servecore: server already running or terminated")

// TLSParam holds the TLS settings read once at startup. The certificate and
// key files are re-read from disk on every refresh tick.
type TLSParam struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// State is the server lifecycle state.
type State int32

const (
	// StateIdle means constructed but not yet run.
	StateIdle State = iota
	// StateRunning means the accept loop is active.
	StateRunning
	// StateDraining means the shutdown signal was received and no new
	// connections are accepted.
	StateDraining
	// StateTerminated means Run has returned.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ErrorHandler converts an interceptor Fail result into a response.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Server is the composition root. Setters return the receiver so
// construction chains; they must all be called before Run.
type Server struct {
	port            uint16
	handler         http.Handler
	tlsParam        *TLSParam
	interceptor     Interceptor
	idleTimeout     time.Duration
	drainTimeout    time.Duration
	refreshInterval time.Duration
	logger          *slog.Logger
	errorHandler    ErrorHandler

	state     atomic.Int32
	addr      atomic.Pointer[net.Addr]
	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a server for port serving handler, with TLS disabled, no
// interceptor, and default timeouts.
func New(port uint16, handler http.Handler) *Server {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	return &Server{
		port:            port,
		handler:         handler,
		idleTimeout:     DefaultIdleTimeout,
		drainTimeout:    DefaultDrainTimeout,
		refreshInterval: DefaultRefreshInterval,
		logger:          slog.Default(),
		ready:           make(chan struct{}),
	}
}

// WithTLS enables or disables TLS. Certificate material is loaded at Run
// time; a load failure there is fatal.
func (s *Server) WithTLS(p TLSParam) *Server {
	s.tlsParam = &p
	return s
}

// WithInterceptor installs the pre-dispatch interception hook.
func (s *Server) WithInterceptor(i Interceptor) *Server {
	s.interceptor = i
	return s
}

// WithIdleTimeout overrides the per-connection idle timeout. Zero disables
// idle enforcement.
func (s *Server) WithIdleTimeout(d time.Duration) *Server {
	s.idleTimeout = d
	return s
}

// WithDrainTimeout overrides the graceful-shutdown drain budget.
func (s *Server) WithDrainTimeout(d time.Duration) *Server {
	s.drainTimeout = d
	return s
}

// WithRefreshInterval overrides the TLS certificate refresh interval.
func (s *Server) WithRefreshInterval(d time.Duration) *Server {
	s.refreshInterval = d
	return s
}

// WithLogger sets the structured logger used by the runtime.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithErrorHandler sets the converter applied to interceptor Fail results.
func (s *Server) WithErrorHandler(h ErrorHandler) *Server {
	s.errorHandler = h
	return s
}

// State reports the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Ready is closed once the listening socket is bound, or when Run returns
// without binding one (startup failure), so waiters never hang. Addr
// distinguishes the two: it is non-nil only after a successful bind. Useful
// when the server was constructed with port 0.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

func (s *Server) signalReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Addr returns the bound listening address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	if p := s.addr.Load(); p != nil {
		return *p
	}
	return nil
}

// Run binds the socket and serves until ctx is canceled, then drains.
//
// Startup failures (bind, initial certificate load) are fatal and returned.
// Once serving, per-connection failures never escape their connection:
// accept errors are logged and retried, handshake and idle-timeout failures
// end only the affected connection.
//
// On cancellation the listener closes immediately (no new connections), and
// in-flight connections get the drain budget to finish; whichever of
// "all drained" and "budget elapsed" happens first decides whether shutdown
// is reported as graceful or forced. Stragglers are abandoned, not killed.
func (s *Server) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyRunning
	}
	defer s.state.Store(int32(StateTerminated))
	defer s.signalReady() // startup failures must still unblock Ready waiters

	useTLS := s.tlsParam != nil && s.tlsParam.Enabled
	s.logger.Info("starting server", "port", s.port, "tls", useTLS)

	var tlsCfg *tls.Config
	if useTLS {
		var err error
		tlsCfg, err = tlskit.LoadServerConfig(s.tlsParam.CertFile, s.tlsParam.KeyFile)
		if err != nil {
			return fmt.Errorf("servecore: startup tls config: %w", err)
		}
	}

	// Listener chain, innermost first: dual-stack socket, accept retry,
	// idle decoration, then TLS on top so net/http sees *tls.Conn and can
	// dispatch h2 by ALPN. The idle window therefore also covers the lazy
	// handshake.
	raw, err := netkit.ListenDualStack(s.port)
	if err != nil {
		return fmt.Errorf("servecore: bind port %d: %w", s.port, err)
	}
	ln := netkit.WithAcceptRetry(raw, s.logger)
	ln = netkit.WithIdleTimeout(ln, s.idleTimeout)

	var acceptor *tlskit.Acceptor
	if useTLS {
		acceptor = tlskit.NewAcceptor(ln, tlsCfg)
		ln = acceptor
	}

	addr := ln.Addr()
	s.addr.Store(&addr)
	s.signalReady()

	dispatch := &dispatcher{
		next:        s.handler,
		interceptor: s.interceptor,
		onError:     s.errorHandler,
		logger:      s.logger,
	}

	httpSrv := &http.Server{
		Handler:   dispatch,
		ErrorLog:  newServerErrorLog(s.logger),
		ConnState: s.logConnState,
	}
	if useTLS {
		if err := http2.ConfigureServer(httpSrv, &http2.Server{}); err != nil {
			return fmt.Errorf("servecore: configure http2: %w", err)
		}
	} else {
		// h2c keeps the upgrade path open for plaintext HTTP/2 clients.
		httpSrv.Handler = h2c.NewHandler(dispatch, &http2.Server{})
	}

	g, gctx := errgroup.WithContext(ctx)

	if useTLS {
		reloader := tlskit.NewReloader(
			s.tlsParam.CertFile,
			s.tlsParam.KeyFile,
			acceptor.ReplaceConfig,
			tlskit.WithInterval(s.refreshInterval),
			tlskit.WithLogger(s.logger),
		)
		g.Go(func() error {
			// Losing rotation must not stop request serving.
			_ = reloader.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		err := httpSrv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("servecore: serve: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.state.Store(int32(StateDraining))
		s.logger.Info("shutdown signal received, draining", "budget", s.drainTimeout)

		drainCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(drainCtx); err != nil {
			s.logger.Warn("drain budget elapsed, abandoning remaining connections", "error", err)
		} else {
			s.logger.Info("graceful shutdown complete")
		}
		return nil
	})

	return g.Wait()
}

// logConnState records connection lifecycle transitions. Closure is always
// logged at low severity regardless of cause.
func (s *Server) logConnState(c net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.logger.Debug("connection accepted", "peer", c.RemoteAddr().String())
	case http.StateClosed:
		s.logger.Debug("connection closed", "peer", c.RemoteAddr().String())
	}
}
