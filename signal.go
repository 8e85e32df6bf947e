package servecore

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NotifyShutdown returns a context canceled on SIGINT or SIGTERM. The
// context is the shutdown broadcast: every server (and any other accept
// loop) given it observes the same cancellation, stops accepting, and
// drains. The returned stop function releases the signal subscription.
func NotifyShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
