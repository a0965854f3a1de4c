package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock drives a MemoryLimiter deterministically.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*MemoryLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewMemoryLimiter(limit, window)
	rl.now = clock.now
	t.Cleanup(rl.Close)
	return rl, clock
}

func TestMemoryLimiter_AllowsUpToLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, _ := rl.Allow(ctx, "ip")
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if d.Remaining != 2-i {
			t.Errorf("request %d: expected remaining %d, got %d", i+1, 2-i, d.Remaining)
		}
	}

	d, _ := rl.Allow(ctx, "ip")
	if d.Allowed {
		t.Error("4th request should be denied")
	}
	if d.RetryAfter != time.Minute {
		t.Errorf("expected retry after 1m, got %v", d.RetryAfter)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	rl.Allow(ctx, "a")
	if d, _ := rl.Allow(ctx, "a"); d.Allowed {
		t.Error("key a should be limited")
	}
	if d, _ := rl.Allow(ctx, "b"); !d.Allowed {
		t.Error("key b should not be limited")
	}
}

func TestMemoryLimiter_WindowExpiry(t *testing.T) {
	rl, clock := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	rl.Allow(ctx, "ip")
	clock.advance(40 * time.Second)
	d, _ := rl.Allow(ctx, "ip")
	if d.Allowed {
		t.Fatal("should still be limited inside the window")
	}
	if d.RetryAfter != 20*time.Second {
		t.Errorf("expected 20s until reset, got %v", d.RetryAfter)
	}

	clock.advance(20 * time.Second)
	if d, _ := rl.Allow(ctx, "ip"); !d.Allowed {
		t.Error("should be allowed once the window has passed")
	}
}

// stubLimiter returns a fixed decision.
type stubLimiter struct {
	d   Decision
	err error
	key string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (Decision, error) {
	s.key = key
	return s.d, s.err
}

func limitedHandler(l Limiter) http.Handler {
	mw := NewRateLimitMiddleware(l, "leads", discardLogger())
	return mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestRateLimitMiddleware_Allowed(t *testing.T) {
	l := &stubLimiter{d: Decision{Allowed: true}}
	req := httptest.NewRequest(http.MethodPost, "/demande", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	rec := httptest.NewRecorder()

	limitedHandler(l).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if l.key != "leads:192.0.2.1" {
		t.Errorf("unexpected limiter key %q", l.key)
	}
}

func TestRateLimitMiddleware_GetIsNotCounted(t *testing.T) {
	l := &stubLimiter{d: Decision{Allowed: false}}
	rec := httptest.NewRecorder()

	limitedHandler(l).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/demande", nil))

	if rec.Code != http.StatusNoContent || l.key != "" {
		t.Errorf("GET should bypass the limiter, got %d (key %q)", rec.Code, l.key)
	}
}

func TestRateLimitMiddleware_RejectsJSON(t *testing.T) {
	l := &stubLimiter{d: Decision{Allowed: false, RetryAfter: 1500 * time.Millisecond}}
	rec := httptest.NewRecorder()

	limitedHandler(l).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/demandes", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("expected Retry-After 2, got %q", got)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "rate_limit" || body.Error.Message != rateLimitMessage {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestRateLimitMiddleware_RejectsHTML(t *testing.T) {
	l := &stubLimiter{d: Decision{Allowed: false}}
	req := httptest.NewRequest(http.MethodPost, "/demande", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	limitedHandler(l).ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("htmx requests should get HTML, got %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After should be at least 1")
	}
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	l := &stubLimiter{err: errors.New("redis down")}
	rec := httptest.NewRecorder()

	limitedHandler(l).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/demandes", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("limiter errors should let the request through, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.7 "}, "10.0.0.1:80", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.9:1234", "192.0.2.9"},
		{"remote without port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseWindowResult(t *testing.T) {
	count, ttl, err := parseWindowResult([]interface{}{int64(3), int64(4200)}, 60000)
	if err != nil || count != 3 || ttl != 4200 {
		t.Errorf("unexpected result %d %d %v", count, ttl, err)
	}

	_, ttl, err = parseWindowResult([]interface{}{int64(1), int64(-1)}, 60000)
	if err != nil || ttl != 60000 {
		t.Errorf("negative ttl should fall back to the window, got %d %v", ttl, err)
	}

	if _, _, err := parseWindowResult("OK", 60000); err == nil {
		t.Error("expected error for unexpected shape")
	}
	if _, _, err := parseWindowResult([]interface{}{"1", int64(1)}, 60000); err == nil {
		t.Error("expected error for unexpected count type")
	}
}
