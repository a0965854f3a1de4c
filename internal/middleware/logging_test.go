package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func loggedRequest(t *testing.T, req *http.Request, status int) (string, *httptest.ResponseRecorder, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))

	var seenID string
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		w.WriteHeader(status)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return buf.String(), rec, seenID
}

func TestRequestLoggingMiddleware_LogsRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/produits/fp-001", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.195, 10.0.0.1")

	out, rec, id := loggedRequest(t, req, http.StatusOK)

	for _, want := range []string{"GET", "/produits/fp-001", "status=200", "duration_ms", "203.0.113.195", "request_id=" + id} {
		if !strings.Contains(out, want) {
			t.Errorf("log should contain %q, got: %s", want, out)
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected a generated uuid, got %q", id)
	}
	if rec.Header().Get(RequestIDHeader) != id {
		t.Errorf("response header should echo request id")
	}
}

func TestRequestLoggingMiddleware_ReusesIncomingID(t *testing.T) {
	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)

	_, _, id := loggedRequest(t, req, http.StatusOK)
	if id != incoming {
		t.Errorf("expected %s, got %s", incoming, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	_, _, id = loggedRequest(t, req, http.StatusOK)
	if id == "<script>" {
		t.Error("malformed incoming id must be replaced")
	}
}

func TestRequestLoggingMiddleware_ServerErrorsAreWarnings(t *testing.T) {
	out, _, _ := loggedRequest(t, httptest.NewRequest(http.MethodPost, "/demande", nil), http.StatusBadGateway)
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("expected WARN level, got: %s", out)
	}
}

func TestRequestLoggingMiddleware_SkipsNoisyPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics", "/static/css/app.css"} {
		out, _, id := loggedRequest(t, httptest.NewRequest(http.MethodGet, path, nil), http.StatusOK)
		if out != "" {
			t.Errorf("%s should not be logged, got: %s", path, out)
		}
		if id == "" {
			t.Errorf("%s should still get a request id", path)
		}
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path, query, want string
	}{
		{"/demande", "", "/demande"},
		{"/demande", "product=fp-001&quantity=7", "/demande?product=fp-001&quantity=7"},
		{"/demande", "whatsapp_number=0708091011&step=2", "/demande?whatsapp_number=[REDACTED]&step=2"},
		{"/x", "API_KEY=abc", "/x?API_KEY=[REDACTED]"},
		{"/x", "flag", "/x"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.path, tt.query); got != tt.want {
			t.Errorf("sanitizePath(%q, %q) = %q, want %q", tt.path, tt.query, got, tt.want)
		}
	}
}
