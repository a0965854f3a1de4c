package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/monfournisseur/internal/domain"
	"github.com/DukeRupert/monfournisseur/internal/metrics"
)

// =============================================================================
// Limiter
// =============================================================================

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // Time until the window resets
}

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryLimiter is a process-local Limiter.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	stop    chan struct{}
	once    sync.Once
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewMemoryLimiter creates a limiter allowing limit requests per window and
// starts a goroutine that evicts expired entries until Close is called.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	rl := &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*rateLimitEntry),
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.entries[key]
	if !ok || now.Sub(entry.windowStart) >= rl.window {
		entry = &rateLimitEntry{windowStart: now}
		rl.entries[key] = entry
	}
	entry.count++

	d := Decision{
		Allowed:    entry.count <= rl.limit,
		Remaining:  max(rl.limit-entry.count, 0),
		RetryAfter: rl.window - now.Sub(entry.windowStart),
	}
	return d, nil
}

// Close stops the cleanup goroutine.
func (rl *MemoryLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, entry := range rl.entries {
				if now.Sub(entry.windowStart) >= rl.window {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// =============================================================================
// Middleware
// =============================================================================

const rateLimitMessage = "Trop de demandes envoyées. Veuillez patienter quelques minutes avant de réessayer."

// RateLimitMiddleware rejects requests over the limit with 429.
// Limiter errors fail open.
type RateLimitMiddleware struct {
	limiter Limiter
	scope   string
	logger  *slog.Logger
}

// NewRateLimitMiddleware limits requests per client IP under the given scope.
func NewRateLimitMiddleware(limiter Limiter, scope string, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, scope: scope, logger: logger}
}

// Limit returns middleware that rate limits requests. Only unsafe methods
// count, so rendering the form stays free.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := ClientIP(r)
		d, err := m.limiter.Allow(r.Context(), m.scope+":"+clientIP)
		if err != nil {
			m.logger.Warn("rate limiter unavailable, allowing request",
				"scope", m.scope,
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}
		if d.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		metrics.RateLimited(m.scope)
		m.logger.Warn("rate limit exceeded",
			"scope", m.scope,
			"ip", clientIP,
			"path", r.URL.Path,
		)

		retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

		if isAPIRequest(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			// Same envelope as the handler package's API errors.
			_ = json.NewEncoder(w).Encode(map[string]map[string]string{
				"error": {"code": domain.ERATELIMIT, "message": rateLimitMessage},
			})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="utf-8"><title>Trop de demandes</title></head>
<body>
<h1>Trop de demandes</h1>
<p>` + rateLimitMessage + `</p>
</body>
</html>`))
	})
}

// =============================================================================
// Helpers
// =============================================================================

// ClientIP extracts the client IP from the request, considering proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// client, proxy1, proxy2
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// isAPIRequest reports whether the client expects JSON. htmx requests
// want HTML fragments.
func isAPIRequest(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
