package jwtauth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yarlk/servecore"
)

func TestIssueAndVerify(t *testing.T) {
	cfg := New("test-secret")

	raw, err := cfg.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := cfg.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("username %q, want alice", claims.Username)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) < 6*24*time.Hour {
		t.Error("token expiry shorter than the default")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := New("secret-a").Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New("secret-b").Verify(raw); err == nil {
		t.Error("token signed with another secret verified")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	cfg := New("test-secret", WithExpiry(-time.Minute))
	raw, err := cfg.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Verify(raw); err == nil {
		t.Error("expired token verified")
	}
}

// startProtected runs a servecore server guarded by the interceptor and
// returns its base URL.
func startProtected(t *testing.T, cfg *Config, handler http.Handler) string {
	t.Helper()

	srv := servecore.New(0, handler).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithInterceptor(cfg.Interceptor())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("server failed: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		<-done
	})

	port := srv.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

func TestInterceptorRejectsMissingToken(t *testing.T) {
	cfg := New("test-secret")
	base := startProtected(t, cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler ran without a token")
	}))

	resp, err := http.Get(base + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Www-Authenticate"), "Bearer") {
		t.Error("missing WWW-Authenticate challenge")
	}
	if !strings.Contains(string(body), "authentication required") {
		t.Errorf("body %q", body)
	}
}

func TestInterceptorAcceptsBearerToken(t *testing.T) {
	cfg := New("test-secret")
	base := startProtected(t, cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := FromContext(r.Context())
		if claims == nil {
			t.Error("no claims in handler context")
			return
		}
		fmt.Fprintf(w, "hello %s", claims.Username)
	}))

	token, err := cfg.Issue("bob")
	if err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest("GET", base+"/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d, want 200", resp.StatusCode)
	}
	if string(body) != "hello bob" {
		t.Errorf("body %q", body)
	}
}

func TestInterceptorAcceptsCookie(t *testing.T) {
	cfg := New("test-secret", WithCookieName("session"))
	base := startProtected(t, cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	token, err := cfg.Issue("carol")
	if err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest("GET", base+"/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d, want 200", resp.StatusCode)
	}
}

func TestInterceptorSkip(t *testing.T) {
	cfg := New("test-secret", WithSkip(func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	}))
	base := startProtected(t, cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("exempt path got %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(base + "/private")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("protected path got %d, want 401", resp.StatusCode)
	}
}
