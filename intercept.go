package servecore

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/yarlk/servecore/internal/netkit"
)

// Interceptor inspects a request before the application handler runs. It
// receives the canonical peer address and decides, exactly once per
// request, whether to continue, respond, drop, or fail.
//
// Interceptors are shared across connections and must be safe for
// concurrent use.
type Interceptor interface {
	Intercept(ctx context.Context, req *http.Request, peer netip.AddrPort) Result
}

// InterceptorFunc adapts a function to the Interceptor interface.
type InterceptorFunc func(ctx context.Context, req *http.Request, peer netip.AddrPort) Result

func (f InterceptorFunc) Intercept(ctx context.Context, req *http.Request, peer netip.AddrPort) Result {
	return f(ctx, req, peer)
}

type resultKind uint8

const (
	kindContinue resultKind = iota
	kindRespond
	kindDrop
	kindFail
)

// Result is the interceptor's verdict: exactly one of Continue, Respond,
// Drop or Fail.
type Result struct {
	kind resultKind
	req  *http.Request
	resp Response
	err  error
}

// Response is an immediate reply produced by an interceptor, bypassing the
// application handler.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r Response) write(w http.ResponseWriter) {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(r.Body) > 0 {
		w.Write(r.Body)
	}
}

// Continue forwards req (possibly mutated) to the application handler.
// Passing nil forwards the original request.
func Continue(req *http.Request) Result {
	return Result{kind: kindContinue, req: req}
}

// Respond replies immediately with resp; the application handler never
// runs.
func Respond(resp Response) Result {
	return Result{kind: kindRespond, resp: resp}
}

// Drop aborts the request without sending a response. The drop is logged
// distinctly from network failures so policy decisions stay observable.
//
// On HTTP/1.x the whole connection is torn down. On HTTP/2 the abort
// resets only the dropped stream; the connection stays up for its other
// streams, which may carry requests the interceptor has already admitted.
func Drop() Result {
	return Result{kind: kindDrop}
}

// Fail hands err to the server's error-to-response converter.
func Fail(err error) Result {
	return Result{kind: kindFail, err: err}
}

// ChainInterceptors runs interceptors in order. Each Continue feeds the
// (possibly mutated) request to the next interceptor; the first other
// verdict wins.
func ChainInterceptors(interceptors ...Interceptor) Interceptor {
	return InterceptorFunc(func(ctx context.Context, req *http.Request, peer netip.AddrPort) Result {
		for _, i := range interceptors {
			res := i.Intercept(ctx, req, peer)
			if res.kind != kindContinue {
				return res
			}
			if res.req != nil {
				req = res.req
			}
		}
		return Continue(req)
	})
}

// dispatcher runs the interceptor (if any) ahead of the application
// handler. It is the only bridge between transport and application.
type dispatcher struct {
	next        http.Handler
	interceptor Interceptor
	onError     ErrorHandler
	logger      *slog.Logger
}

func (d *dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if d.interceptor == nil {
		d.next.ServeHTTP(w, r)
		return
	}

	peer := netkit.ParsePeer(r.RemoteAddr)
	res := d.interceptor.Intercept(r.Context(), r, peer)
	switch res.kind {
	case kindContinue:
		req := res.req
		if req == nil {
			req = r
		}
		d.next.ServeHTTP(w, req)
	case kindRespond:
		res.resp.write(w)
	case kindDrop:
		d.logger.Warn("request dropped by interceptor",
			"peer", peer.String(),
			"method", r.Method,
			"uri", r.RequestURI,
		)
		// ErrAbortHandler tears the connection down with no response
		// bytes; net/http suppresses the stack trace for it.
		panic(http.ErrAbortHandler)
	case kindFail:
		d.fail(w, r, res.err)
	}
}

func (d *dispatcher) fail(w http.ResponseWriter, r *http.Request, err error) {
	if d.onError != nil {
		d.onError(w, r, err)
		return
	}
	d.logger.Error("interceptor error", "error", err, "uri", r.RequestURI)
	http.Error(w, "ERROR: "+err.Error(), http.StatusInternalServerError)
}
