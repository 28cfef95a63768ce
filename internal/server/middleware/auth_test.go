package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapValidator accepts the tokens it knows and maps them to subjects.
type mapValidator map[string]string

func (v mapValidator) ValidateToken(token string) (jwt.Claims, error) {
	subject, ok := v[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return jwt.RegisteredClaims{Subject: subject}, nil
}

func protectedHandler(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seen string
	h := RequireBearer(mapValidator{"good": "operator", "anon": ""})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := Subject(r)
			require.True(t, ok)
			seen = subject
			w.WriteHeader(http.StatusNoContent)
		}))
	return h, &seen
}

func TestRequireBearer_ValidToken(t *testing.T) {
	h, seen := protectedHandler(t)

	for _, header := range []string{"Bearer good", "bearer good", "BEARER   good"} {
		req := httptest.NewRequest(http.MethodPost, "/ai/query", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code, header)
		assert.Equal(t, "operator", *seen)
	}
}

func TestRequireBearer_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic good"},
		{name: "no token", header: "Bearer"},
		{name: "extra parts", header: "Bearer good extra"},
		{name: "unknown token", header: "Bearer bad"},
		{name: "empty subject", header: "Bearer anon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, seen := protectedHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/ai/query", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
			assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
			assert.Empty(t, *seen)
		})
	}
}

func TestSubject_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stages", nil)
	_, ok := Subject(req)
	assert.False(t, ok)
}
