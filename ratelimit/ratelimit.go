// Package ratelimit provides a per-peer token-bucket servecore.Interceptor.
//
// Each client IP gets its own limiter; requests over the budget receive an
// immediate 429 without reaching the application handler.
package ratelimit

import (
	"context"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yarlk/servecore"
)

// Limiter rate-limits requests by peer IP.
type Limiter struct {
	limit rate.Limit
	burst int

	mu    sync.Mutex
	peers map[netip.Addr]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// idleEviction is how long an idle peer's bucket survives before the
// janitor removes it.
const idleEviction = 10 * time.Minute

// New creates a limiter allowing rps requests per second with the given
// burst per peer.
func New(rps float64, burst int) *Limiter {
	l := &Limiter{
		limit: rate.Limit(rps),
		burst: burst,
		peers: make(map[netip.Addr]*entry),
	}
	go l.janitor()
	return l
}

func (l *Limiter) allow(peer netip.Addr) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.peers[peer]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.peers[peer] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

func (l *Limiter) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-idleEviction)
		l.mu.Lock()
		for peer, e := range l.peers {
			if e.lastSeen.Before(cutoff) {
				delete(l.peers, peer)
			}
		}
		l.mu.Unlock()
	}
}

// Interceptor returns the pre-dispatch hook enforcing the limit.
func (l *Limiter) Interceptor() servecore.Interceptor {
	return servecore.InterceptorFunc(func(ctx context.Context, req *http.Request, peer netip.AddrPort) servecore.Result {
		if l.allow(peer.Addr()) {
			return servecore.Continue(req)
		}
		return servecore.Respond(servecore.Response{
			StatusCode: http.StatusTooManyRequests,
			Header:     http.Header{"Retry-After": []string{"1"}},
			Body:       []byte("rate limit exceeded"),
		})
	})
}
