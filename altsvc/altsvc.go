// Package altsvc adds an Alt-Svc response header advertising HTTP/3
// availability to clients of TLS-enabled servers.
package altsvc

import (
	"fmt"
	"net/http"

	"github.com/yarlk/servecore"
)

// DefaultMaxAge is how long clients may cache the advertisement, in
// seconds (24 hours).
const DefaultMaxAge = 86400

// Layer configures the Alt-Svc advertisement.
type Layer struct {
	port   uint16
	maxAge int
}

// New creates a layer advertising h3 on port.
func New(port uint16) *Layer {
	return &Layer{port: port, maxAge: DefaultMaxAge}
}

// WithMaxAge overrides the advertisement cache lifetime in seconds.
func (l *Layer) WithMaxAge(seconds int) *Layer {
	l.maxAge = seconds
	return l
}

// Middleware returns the wrapping middleware.
func (l *Layer) Middleware() servecore.Middleware {
	value := fmt.Sprintf(`h3=":%d"; ma=%d`, l.port, l.maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Alt-Svc", value)
			next.ServeHTTP(w, r)
		})
	}
}
