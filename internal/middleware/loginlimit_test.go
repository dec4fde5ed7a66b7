package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLoginRateLimiter()
	l.now = func() time.Time { return now }
	h := l.Handler(okHandler())

	post := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/api/login", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < loginMaxAttempts; i++ {
		assert.Equal(t, http.StatusOK, post("198.51.100.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, post("198.51.100.1"))
	assert.Equal(t, http.StatusOK, post("198.51.100.2"), "other clients are unaffected")

	now = now.Add(loginWindowDuration + time.Second)
	assert.Equal(t, http.StatusOK, post("198.51.100.1"), "window resets")
}
