package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// BasicAuth guards an operator endpoint such as /metrics with one set of
// credentials. Empty credentials leave the endpoint open.
type BasicAuth struct {
	realm    string
	username []byte
	password []byte
	logger   *slog.Logger
}

// NewBasicAuth creates the guard for the given realm.
func NewBasicAuth(realm, username, password string, logger *slog.Logger) *BasicAuth {
	return &BasicAuth{
		realm:    realm,
		username: []byte(username),
		password: []byte(password),
		logger:   logger,
	}
}

// Enabled reports whether credentials are configured.
func (a *BasicAuth) Enabled() bool {
	return len(a.username) > 0 || len(a.password) > 0
}

func (a *BasicAuth) allowed(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	// evaluate both so timing does not reveal which one differs
	userOK := subtle.ConstantTimeCompare([]byte(user), a.username)
	passOK := subtle.ConstantTimeCompare([]byte(pass), a.password)
	return userOK&passOK == 1
}

// Handler wraps next with the credential check.
func (a *BasicAuth) Handler(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.allowed(r) {
			next.ServeHTTP(w, r)
			return
		}
		if a.logger != nil {
			a.logger.Warn("basic auth rejected",
				"realm", a.realm,
				"path", r.URL.Path,
				"remote_addr", ClientIP(r),
			)
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="`+a.realm+`", charset="UTF-8"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}
