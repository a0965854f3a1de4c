package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID returns the id assigned by the logging middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestLoggingMiddleware logs HTTP requests with timing and status information.
type RequestLoggingMiddleware struct {
	logger *slog.Logger
}

func NewRequestLoggingMiddleware(logger *slog.Logger) *RequestLoggingMiddleware {
	return &RequestLoggingMiddleware{logger: logger}
}

// Handler assigns a request id (reusing a well-formed incoming one) and
// logs every request except health checks, metrics and static assets.
func (m *RequestLoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		attrs := []any{
			"request_id", id,
			"method", r.Method,
			"path", sanitizePath(r.URL.Path, r.URL.RawQuery),
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", ClientIP(r),
			"user_agent", r.UserAgent(),
		}
		if r.Header.Get("HX-Request") == "true" {
			attrs = append(attrs, "htmx", true)
		}

		if wrapped.statusCode >= 500 {
			m.logger.Warn("request", attrs...)
		} else {
			m.logger.Info("request", attrs...)
		}
	})
}

func shouldSkipLogging(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/static/")
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// sensitiveParams are redacted from logged query strings. Phone numbers
// are personal data.
var sensitiveParams = map[string]bool{
	"token":           true,
	"key":             true,
	"api_key":         true,
	"apikey":          true,
	"secret":          true,
	"password":        true,
	"whatsapp_number": true,
	"contact_number":  true,
	"telephone":       true,
}

// sanitizePath appends the query string with sensitive values redacted.
func sanitizePath(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}

	var safe []string
	for _, part := range strings.Split(rawQuery, "&") {
		k, _, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		if sensitiveParams[strings.ToLower(k)] {
			safe = append(safe, k+"=[REDACTED]")
		} else {
			safe = append(safe, part)
		}
	}
	if len(safe) == 0 {
		return path
	}
	return path + "?" + strings.Join(safe, "&")
}
