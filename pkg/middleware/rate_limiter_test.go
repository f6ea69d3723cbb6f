package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	// 120 requests per minute = one token every 0.5s
	rl := NewRateLimiter(120, 1)
	defer rl.Stop()

	limiter := rl.GetLimiter("192.168.1.1")
	assert.True(t, limiter.Allow(), "First request should be allowed")
	assert.False(t, limiter.Allow(), "Second request should be blocked")

	time.Sleep(600 * time.Millisecond)
	assert.True(t, limiter.Allow(), "Request should be allowed after refill")
}

func TestRateLimiter_Prune(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	defer rl.Stop()

	rl.GetLimiter("10.0.0.1").Allow()
	rl.GetLimiter("10.0.0.2")
	assert.Equal(t, 2, rl.Visitors())

	rl.prune()
	assert.Equal(t, 1, rl.Visitors(), "idle visitor is dropped")
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestRateLimitMiddleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(2, 1)
	defer rl.Stop()

	wrapped := rl.RateLimitMiddleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	call := func(remote, forwarded string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/r/maria", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		assert.NoError(t, wrapped(e.NewContext(req, rec)))
		return rec
	}

	assert.Equal(t, http.StatusOK, call("192.168.1.1:12345", "").Code)

	limited := call("192.168.1.1:12346", "")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), "rate_limit_exceeded")

	// Same proxy, different client
	assert.Equal(t, http.StatusOK, call("10.0.0.1:80", "203.0.113.7, 10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:81", "203.0.113.7").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:82", "203.0.113.8").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		forwarded string
		realIP    string
		want      string
	}{
		{"first forwarded hop", "10.0.0.1:443", "203.0.113.7, 70.41.3.18", "", "203.0.113.7"},
		{"real ip header", "10.0.0.1:443", "", "198.51.100.2", "198.51.100.2"},
		{"remote addr", "192.0.2.10:5555", "", "", "192.0.2.10"},
		{"remote addr without port", "192.0.2.10", "", "", "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
