package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/auth"
	"github.com/dangerclosesec/masteradmin/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("secret", time.Hour)
	token, err := tm.Generate("root@example.test")
	require.NoError(t, err)

	var seen string
	h := middleware.AuthMiddleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.AdminEmail(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		method string
		target string
		header string
		want   int
	}{
		{"bearer", http.MethodPost, "/api/sync", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", http.MethodGet, "/api/users", "bearer " + token, http.StatusNoContent},
		{"query token on get", http.MethodGet, "/api/events?token=" + token, "", http.StatusNoContent},
		{"query token on post", http.MethodPost, "/api/sync?token=" + token, "", http.StatusUnauthorized},
		{"missing", http.MethodGet, "/api/users", "", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/api/users", "Basic abc", http.StatusUnauthorized},
		{"garbage", http.MethodGet, "/api/users", "Bearer abc", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "root@example.test", seen)
			} else {
				assert.Empty(t, seen)
				assert.Contains(t, rec.Body.String(), "error")
			}
		})
	}
}
