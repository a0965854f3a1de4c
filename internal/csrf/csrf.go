// Package csrf protects the lead form with the double-submit cookie
// pattern: a random token is set in a cookie and echoed in a hidden form
// field (or the X-CSRF-Token header for htmx), and unsafe requests are
// rejected unless both match.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

const (
	CookieName    = "mf_csrf"
	FormFieldName = "csrf_token"
	HeaderName    = "X-CSRF-Token"

	// TokenLength is the number of random bytes in a token.
	TokenLength = 32

	// CookieMaxAge covers a slow walk through the multi-step form.
	CookieMaxAge = 2 * 3600
)

// GenerateToken returns 32 random bytes, base64 URL-encoded.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateToken compares the two tokens in constant time.
func ValidateToken(cookieToken, submitted string) bool {
	if cookieToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) == 1
}

// ValidateRequest checks the submitted token against the cookie. The form
// field wins over the header.
func ValidateRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	submitted := r.PostFormValue(FormFieldName)
	if submitted == "" {
		submitted = r.Header.Get(HeaderName)
	}
	return ValidateToken(cookie.Value, submitted)
}

// SetCookie stores the token. SameSite=Lax keeps the cookie on the
// top-level navigations that bring visitors from WhatsApp links.
func SetCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// EnsureToken returns the request's token, issuing a new cookie when
// there is none.
func EnsureToken(w http.ResponseWriter, r *http.Request, isSecure bool) (string, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	SetCookie(w, token, isSecure)
	return token, nil
}

// Protect rejects unsafe requests without a valid token by calling
// onFailure instead of next.
func Protect(onFailure http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if !ValidateRequest(r) {
				onFailure.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
