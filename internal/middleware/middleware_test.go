package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideas-feedback/internal/metrics"
	"ideas-feedback/internal/ratelimit"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		trust   bool
		want    string
	}{
		{"remote addr", nil, "198.51.100.4:5123", true, "198.51.100.4"},
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "203.0.113.9", "X-Forwarded-For": "192.0.2.1"}, "10.0.0.1:80", true, "203.0.113.9"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "192.0.2.1, 10.0.0.2"}, "10.0.0.1:80", true, "192.0.2.1"},
		{"headers ignored when untrusted", map[string]string{"CF-Connecting-IP": "203.0.113.9"}, "10.0.0.1:80", false, "10.0.0.1"},
		{"remote without port", nil, "10.0.0.7", true, "10.0.0.7"},
		{"ipv6 remote", nil, "[2001:db8::1]:443", true, "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r, tt.trust))
		})
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter, err := ratelimit.New(ratelimit.Config{Max: 2, Window: time.Minute, Now: func() time.Time { return now }})
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())

	called := 0
	h := RateLimit(limiter, false, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/feedback/x", nil)
		r.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do("192.0.2.1:1000").Code)
	now = now.Add(500 * time.Millisecond)
	assert.Equal(t, http.StatusNoContent, do("192.0.2.1:1001").Code)

	rec := do("192.0.2.1:1002")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(60), body["retry_after"])
	assert.Equal(t, 2, called)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))

	assert.Equal(t, http.StatusNoContent, do("192.0.2.2:1000").Code, "other clients unaffected")

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, do("192.0.2.1:1003").Code)
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/feedback/eyJhbGciOi.abc.def", "/feedback/:token"},
		{"/api/feedback", "/api/feedback"},
		{"/feedback/", "/feedback/"},
		{"/health", "/health"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizePath(tt.in))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogger(zerolog.New(&buf), false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("gone"))
	}))

	r := httptest.NewRequest(http.MethodGet, "/feedback/secret-token", nil)
	r.RemoteAddr = "203.0.113.50:4000"
	h.ServeHTTP(httptest.NewRecorder(), r)

	out := buf.String()
	assert.NotContains(t, out, "secret-token")
	assert.NotContains(t, out, "203.0.113.50")

	var evt map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &evt))
	assert.Equal(t, "warn", evt["level"])
	assert.Equal(t, "/feedback/:token", evt["path"])
	assert.Equal(t, float64(404), evt["status"])
	assert.Equal(t, float64(4), evt["bytes_sent"])
	assert.Equal(t, hashIPForLog("203.0.113.50"), evt["ip_hash"])
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/feedback/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/feedback/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/feedback/def", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsInFlight))
}
