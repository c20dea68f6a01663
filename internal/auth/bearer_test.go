package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lrdgdown-eng/etiquetado/internal/config"
)

func TestBearerTokenAuth_IsAuthorized(t *testing.T) {
	auth := NewBearerTokenAuth("secret-token")

	tests := []struct {
		name       string
		authHeader string
		expected   bool
	}{
		{"valid bearer token", "Bearer secret-token", true},
		{"lowercase scheme", "bearer secret-token", true},
		{"trailing space", "Bearer secret-token ", true},
		{"invalid token", "Bearer wrong-token", false},
		{"token prefix only", "Bearer secret", false},
		{"missing bearer prefix", "secret-token", false},
		{"basic scheme", "Basic secret-token", false},
		{"empty header", "", false},
		{"only bearer", "Bearer", false},
		{"bearer with space only", "Bearer ", false},
		{"case sensitive token", "Bearer SECRET-TOKEN", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			assert.Equal(t, tt.expected, auth.IsAuthorized(req))
		})
	}
}

func TestBearerTokenAuth_EmptyTokenDeniesAll(t *testing.T) {
	auth := NewBearerTokenAuth("")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer ")
	assert.False(t, auth.IsAuthorized(req))
}

func TestBearerTokenAuth_SetUnauthorizedHeaders(t *testing.T) {
	auth := NewBearerTokenAuth("test-token")
	w := httptest.NewRecorder()

	auth.SetUnauthorizedHeaders(w)

	assert.Equal(t, `Bearer realm="etiquetado"`, w.Header().Get("WWW-Authenticate"))
}

func TestBearerTokenAuth_Middleware(t *testing.T) {
	auth := NewBearerTokenAuth("secret-token")
	logger := config.NewTestLogger(io.Discard, "debug")

	called := false
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}), logger)

	t.Run("rejects missing token", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
		assert.False(t, called)
	})

	t.Run("passes valid token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest("POST", "/mcp", nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.True(t, called)
	})
}
