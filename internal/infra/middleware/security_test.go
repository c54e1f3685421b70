package middleware

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "no HSTS without TLS")

	req.TLS = &tls.ConnectionState{}
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimit(ctx, 6, 3)(okHandler())

	var ok, blocked int
	for i := 0; i < 10; i++ {
		switch serve(handler, "192.168.1.1:12345") {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			blocked++
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, blocked)
}

func TestRateLimitSeparatesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimit(ctx, 6, 1)(okHandler())

	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.1:2"), "same host, different port")
	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.2:1"))
	assert.Equal(t, http.StatusOK, serve(handler, "[::1]:80"))
}

func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(context.Background(), 0, 0)(okHandler())
	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1"))
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	req.RemoteAddr = "192.0.2.7:4000"
	assert.Equal(t, "192.0.2.7", clientIP(req), "proxy headers are ignored")

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", clientIP(req))
}
