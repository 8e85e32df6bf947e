package tlskit

import (
	"crypto/tls"
	"net"
	"sync/atomic"
)

// Acceptor terminates TLS on top of an inner listener. It implements
// net.Listener so it slots directly under net/http.
//
// The current configuration lives in an atomically swappable cell: the
// reload task is the single writer, Accept the single reader, and no
// locking is needed beyond the pointer hand-off. Accept captures the cell's
// value at call time, so a later ReplaceConfig affects only subsequently
// accepted connections — established and handshaking connections keep the
// material they were born with.
type Acceptor struct {
	inner net.Listener
	cfg   atomic.Pointer[tls.Config]
}

// NewAcceptor wraps inner with TLS termination using cfg as the initial
// configuration.
func NewAcceptor(inner net.Listener, cfg *tls.Config) *Acceptor {
	a := &Acceptor{inner: inner}
	a.cfg.Store(cfg)
	return a
}

// ReplaceConfig swaps the acceptor's configuration reference. It has no
// effect on connections already accepted.
func (a *Acceptor) ReplaceConfig(cfg *tls.Config) {
	a.cfg.Store(cfg)
}

// Config returns the configuration that the next Accept will capture.
func (a *Acceptor) Config() *tls.Config {
	return a.cfg.Load()
}

// Accept accepts a raw connection and binds it to the current
// configuration. The handshake is not performed here; tls.Server defers it
// to the first read or write, and a handshake failure surfaces there,
// inside that connection's own task.
func (a *Acceptor) Accept() (net.Conn, error) {
	c, err := a.inner.Accept()
	if err != nil {
		return nil, err
	}
	return tls.Server(c, a.cfg.Load()), nil
}

func (a *Acceptor) Close() error { return a.inner.Close() }

func (a *Acceptor) Addr() net.Addr { return a.inner.Addr() }
