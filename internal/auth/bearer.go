// Package auth guards the HTTP tool endpoint with a static bearer token.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

const realm = "etiquetado"

// BearerTokenAuth checks requests against a configured token
type BearerTokenAuth struct {
	token []byte
}

// NewBearerTokenAuth creates a new Bearer token authenticator
func NewBearerTokenAuth(token string) *BearerTokenAuth {
	return &BearerTokenAuth{token: []byte(token)}
}

// tokenFrom extracts the credentials of an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func tokenFrom(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// IsAuthorized reports whether r carries the configured token.
// An empty configured token authorizes nothing.
func (b *BearerTokenAuth) IsAuthorized(r *http.Request) bool {
	if len(b.token) == 0 {
		return false
	}
	token, ok := tokenFrom(r)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), b.token) == 1
}

// SetUnauthorizedHeaders sets the WWW-Authenticate challenge for Bearer auth
func (b *BearerTokenAuth) SetUnauthorizedHeaders(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="`+realm+`"`)
}

// Middleware rejects unauthorized requests with 401 before they reach next
func (b *BearerTokenAuth) Middleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !b.IsAuthorized(r) {
			b.SetUnauthorizedHeaders(w)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			logger.Warn("Unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "user_agent", r.UserAgent())
			return
		}
		next.ServeHTTP(w, r)
	})
}
