package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/voicify-tts/internal/logging"
)

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)
	srv := env.server(nil, false)

	req := httptest.NewRequest(http.MethodOptions, "/text-to-speech", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	env := newTestEnv(t)
	cfg := testConfig()
	cfg.CORSOrigins = []string{"https://allowed.example"}
	srv := New(cfg, logging.Discard(), &fakeSynth{}, env.artifacts)

	tests := []struct {
		origin string
		want   string
	}{
		{"https://allowed.example", "https://allowed.example"},
		{"https://other.example", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"), tt.origin)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t)
	cfg := testConfig()
	cfg.RateLimitRPS = 0.01
	cfg.RateLimitBurst = 2
	srv := New(cfg, logging.Discard(), &fakeSynth{}, env.artifacts)

	get := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get("192.0.2.1:1000").Code)
	assert.Equal(t, http.StatusOK, get("192.0.2.1:1001").Code)

	w := get("192.0.2.1:1002")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate limit exceeded", resp.Error)

	// Other clients have their own budget.
	assert.Equal(t, http.StatusOK, get("192.0.2.2:1000").Code)
}

func TestRateLimit_DisabledByDefault(t *testing.T) {
	env := newTestEnv(t)
	srv := New(testConfig(), logging.Discard(), &fakeSynth{}, env.artifacts)

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRequestLogging(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	srv := New(testConfig(), logging.NewWithWriter(&buf, "info", "json"), &fakeSynth{available: true}, env.artifacts)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))

	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/health", entry["path"])
	assert.EqualValues(t, 200, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}
