package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeadersMiddleware adds HTTP security headers to all responses.
type SecurityHeadersMiddleware struct {
	isSecure  bool // HSTS only over HTTPS
	imageHost []string
}

// NewSecurityHeadersMiddleware creates the middleware. imageHosts are the
// external hosts product images may be loaded from.
func NewSecurityHeadersMiddleware(isSecure bool, imageHosts []string) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{isSecure: isSecure, imageHost: imageHosts}
}

func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	csp := buildCSP(m.imageHost)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if m.isSecure {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		h.Set("Content-Security-Policy", csp)
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		next.ServeHTTP(w, r)
	})
}

// buildCSP allows htmx from unpkg, inline styles for Tailwind, and
// product images from the configured hosts.
func buildCSP(imageHosts []string) string {
	img := []string{"'self'", "data:"}
	for _, host := range imageHosts {
		img = append(img, "https://"+host)
	}
	return "default-src 'self'; " +
		"script-src 'self' https://unpkg.com; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src " + strings.Join(img, " ") + "; " +
		"font-src 'self'; " +
		"connect-src 'self'; " +
		"frame-ancestors 'none'; " +
		"base-uri 'self'; " +
		// WhatsApp links open outside the page, form posts stay local
		"form-action 'self'"
}

// Stack composes middleware so the first argument is outermost.
func Stack(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
