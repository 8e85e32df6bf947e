package netkit

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// IdleError is returned by an idle-decorated connection when no I/O
// progress happened within the configured window. It satisfies net.Error
// with Timeout() == true and unwraps to os.ErrDeadlineExceeded so existing
// deadline checks keep working.
type IdleError struct {
	Window time.Duration
}

func (e *IdleError) Error() string {
	return fmt.Sprintf("netkit: connection idle for %v", e.Window)
}

// Timeout implements net.Error.
func (e *IdleError) Timeout() bool { return true }

// Temporary implements net.Error. An idle connection is torn down, not
// retried.
func (e *IdleError) Temporary() bool { return false }

func (e *IdleError) Unwrap() error { return os.ErrDeadlineExceeded }

// IdleConn decorates a connection with an idle timeout. The connection has
// one lease shared by both directions: every Read and Write arms a deadline
// of now+timeout covering all pending I/O, so progress in either direction
// keeps the whole connection alive (a blocked read survives as long as
// writes keep flowing, and vice versa). An operation that makes no progress
// before the deadline fails with *IdleError; the timeout bounds inactivity,
// not connection lifetime.
//
// Once an IdleError surfaces the connection is not expected to recover;
// callers tear it down.
type IdleConn struct {
	net.Conn
	timeout time.Duration
}

// NewIdleConn wraps c. A non-positive timeout returns c undecorated.
func NewIdleConn(c net.Conn, timeout time.Duration) net.Conn {
	if timeout <= 0 {
		return c
	}
	return &IdleConn{Conn: c, timeout: timeout}
}

func (c *IdleConn) Read(p []byte) (int, error) {
	// SetDeadline, not SetReadDeadline: extending the shared lease must
	// also push out the deadline of a concurrently blocked write.
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	n, err := c.Conn.Read(p)
	return n, c.translate(err)
}

func (c *IdleConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	n, err := c.Conn.Write(p)
	return n, c.translate(err)
}

// translate rewrites deadline expiries into IdleError. The decorator is the
// only writer of deadlines on this connection, so any expiry is ours.
func (c *IdleConn) translate(err error) error {
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return &IdleError{Window: c.timeout}
	}
	return err
}

// idleListener decorates every accepted connection with an idle timeout.
type idleListener struct {
	net.Listener
	timeout time.Duration
}

// WithIdleTimeout returns a listener whose accepted connections carry an
// idle timeout. A non-positive timeout returns ln unchanged.
func WithIdleTimeout(ln net.Listener, timeout time.Duration) net.Listener {
	if timeout <= 0 {
		return ln
	}
	return &idleListener{Listener: ln, timeout: timeout}
}

func (l *idleListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewIdleConn(c, l.timeout), nil
}
