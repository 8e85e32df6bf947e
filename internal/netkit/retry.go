package netkit

import (
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryListener absorbs transient accept failures (EMFILE, ECONNABORTED and
// friends) so a single bad accept never stops the serve loop. Failures are
// logged and retried with exponential backoff; a closed listener still
// surfaces immediately so shutdown works.
type retryListener struct {
	net.Listener
	logger *slog.Logger
}

// WithAcceptRetry wraps ln with transient-error retry.
func WithAcceptRetry(ln net.Listener, logger *slog.Logger) net.Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &retryListener{Listener: ln, logger: logger}
}

func (l *retryListener) Accept() (net.Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = 0 // keep retrying until the listener closes

	for {
		c, err := l.Listener.Accept()
		if err == nil {
			return c, nil
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, err
		}

		delay := bo.NextBackOff()
		l.logger.Warn("accept error, retrying",
			"error", err,
			"delay", delay,
		)
		time.Sleep(delay)
	}
}
