// Package jwtauth provides a JWT-verifying servecore.Interceptor.
//
// It checks a bearer token (Authorization header, with an optional cookie
// fallback) before the application handler runs. Requests without a valid
// token are answered immediately with 401; valid claims are attached to the
// request context for the handler.
package jwtauth

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yarlk/servecore"
)

// DefaultCookieName is the session cookie consulted when no Authorization
// header is present.
const DefaultCookieName = "servecore-token"

// DefaultExpiry is the lifetime of tokens issued by Config.Issue.
const DefaultExpiry = 7 * 24 * time.Hour

// ErrNoToken is returned by extract when the request carries no credential.
var ErrNoToken = errors.New("jwtauth: no token in request")

type claimsKey struct{}

// Claims is the verified token payload made available to handlers.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// FromContext returns the verified claims, or nil when the request did not
// pass through the interceptor.
func FromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// Config holds the signing secret and token parameters.
type Config struct {
	secret     []byte
	cookieName string
	expiry     time.Duration
	skip       func(*http.Request) bool
}

// Option configures a Config.
type Option func(*Config)

// WithCookieName overrides the fallback cookie name.
func WithCookieName(name string) Option {
	return func(c *Config) { c.cookieName = name }
}

// WithExpiry overrides the lifetime of issued tokens.
func WithExpiry(d time.Duration) Option {
	return func(c *Config) { c.expiry = d }
}

// WithSkip exempts matching requests (login pages, health checks) from
// verification.
func WithSkip(skip func(*http.Request) bool) Option {
	return func(c *Config) { c.skip = skip }
}

// New creates a Config signing and verifying with an HMAC-SHA256 secret.
func New(secret string, opts ...Option) *Config {
	c := &Config{
		secret:     []byte(secret),
		cookieName: DefaultCookieName,
		expiry:     DefaultExpiry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs a token for username, valid for the configured expiry.
func (c *Config) Issue(username string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.expiry)),
		},
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify parses and validates a raw token.
func (c *Config) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("jwtauth: unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// extract pulls the raw token from the Authorization header or the session
// cookie.
func (c *Config) extract(r *http.Request) (string, error) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer "), nil
	}
	if c.cookieName != "" {
		if cookie, err := r.Cookie(c.cookieName); err == nil && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", ErrNoToken
}

// Interceptor returns the pre-dispatch hook enforcing token verification.
func (c *Config) Interceptor() servecore.Interceptor {
	return servecore.InterceptorFunc(func(ctx context.Context, req *http.Request, _ netip.AddrPort) servecore.Result {
		if c.skip != nil && c.skip(req) {
			return servecore.Continue(req)
		}

		raw, err := c.extract(req)
		if err != nil {
			return unauthorized("authentication required")
		}
		claims, err := c.Verify(raw)
		if err != nil {
			return unauthorized("invalid token")
		}

		return servecore.Continue(req.WithContext(context.WithValue(req.Context(), claimsKey{}, claims)))
	})
}

func unauthorized(msg string) servecore.Result {
	return servecore.Respond(servecore.Response{
		StatusCode: http.StatusUnauthorized,
		Header: http.Header{
			"Www-Authenticate": []string{`Bearer realm="servecore"`},
			"Content-Type":     []string{"text/plain; charset=utf-8"},
		},
		Body: []byte(msg),
	})
}
