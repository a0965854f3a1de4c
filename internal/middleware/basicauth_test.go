package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBasicAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics data"))
	})

	tests := []struct {
		name       string
		user, pass string // configured
		setAuth    func(*http.Request)
		wantStatus int
	}{
		{"valid credentials", "prom", "s3cret", func(r *http.Request) { r.SetBasicAuth("prom", "s3cret") }, http.StatusOK},
		{"no credentials", "prom", "s3cret", func(r *http.Request) {}, http.StatusUnauthorized},
		{"wrong username", "prom", "s3cret", func(r *http.Request) { r.SetBasicAuth("admin", "s3cret") }, http.StatusUnauthorized},
		{"wrong password", "prom", "s3cret", func(r *http.Request) { r.SetBasicAuth("prom", "nope") }, http.StatusUnauthorized},
		{"malformed header", "prom", "s3cret", func(r *http.Request) { r.Header.Set("Authorization", "Basic !!!") }, http.StatusUnauthorized},
		{"password only", "", "s3cret", func(r *http.Request) { r.SetBasicAuth("", "s3cret") }, http.StatusOK},
		{"disabled", "", "", func(r *http.Request) {}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBasicAuth("metrics", tt.user, tt.pass, discardLogger()).Handler(ok)
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			tt.setAuth(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != `Basic realm="metrics", charset="UTF-8"` {
				t.Errorf("unexpected WWW-Authenticate %q", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
