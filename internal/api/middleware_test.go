package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:1234", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://shop.example.com"})

	r := httptest.NewRequest(http.MethodGet, "http://api.example.com/api/v1/ws", nil)
	assert.True(t, check(r), "no origin header")

	r.Header.Set("Origin", "https://shop.example.com")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://api.example.com")
	assert.True(t, check(r), "same origin")

	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(r))

	assert.True(t, originChecker([]string{"*"})(r))
}

func TestMutationRateLimit(t *testing.T) {
	ts := setupTestServerWithConfig(t, Config{MutationsPerMinute: 1, MutationBurst: 1})

	resp := ts.api.Post("/api/v1/categories", withBody(asAdmin(), map[string]any{"name": "Apparel"})...)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/categories", withBody(asAdmin(), map[string]any{"name": "Shoes"})...)
	requireErrorCode(t, resp, http.StatusTooManyRequests, "RATE_LIMITED")

	// Reads are never limited.
	resp = ts.api.Get("/api/v1/categories", asAdmin()...)
	assert.Equal(t, http.StatusOK, resp.Code)

	// Limits are per caller.
	resp = ts.api.Post("/api/v1/categories", withBody(as("admin-2", RoleAdmin), map[string]any{"name": "Shoes"})...)
	assert.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
}
