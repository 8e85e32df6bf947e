package servecore

import (
	"log"
	"log/slog"
	"strings"
)

// errorLogWriter routes net/http's internal error log into slog, with
// severity reflecting who caused the failure: client protocol violations
// and I/O failures are warnings (the latter tagged with their kind),
// handler panics are errors, the rest is debug noise.
type errorLogWriter struct {
	logger *slog.Logger
}

// ioFailureKinds maps phrases of plain I/O failures, as worded by net/http
// and the net package, to a kind tag.
var ioFailureKinds = map[string]string{
	"broken pipe":      "broken-pipe",
	"connection reset": "connection-reset",
	"i/o timeout":      "timeout",
	"connection idle":  "idle-timeout",
	"unexpected EOF":   "unexpected-eof",
}

func (w errorLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	switch {
	case strings.Contains(msg, "panic serving"):
		w.logger.Error(msg)
	case strings.Contains(msg, "TLS handshake error"),
		strings.Contains(msg, "invalid"),
		strings.Contains(msg, "malformed"):
		w.logger.Warn(msg)
	default:
		for phrase, kind := range ioFailureKinds {
			if strings.Contains(msg, phrase) {
				w.logger.Warn(msg, "kind", kind)
				return len(p), nil
			}
		}
		w.logger.Debug(msg)
	}
	return len(p), nil
}

func newServerErrorLog(logger *slog.Logger) *log.Logger {
	return log.New(errorLogWriter{logger: logger}, "", 0)
}
