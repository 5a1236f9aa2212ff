package middleware

import (
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

func TestStrictRateLimiterBlocksAfterBurst(t *testing.T) {
	mw := StrictRateLimiter()
	h := mw(okHandler())

	var codes []int
	for i := 0; i < 8; i++ {
		r := httptest.NewRequest("POST", "/api/billing/webhook", nil)
		r.RemoteAddr = "203.0.113.9:49152"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		codes = append(codes, rec.Code)
	}

	// Burst of 5 passes, the rest of the back-to-back requests are throttled.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, codes[i], "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, codes[7])
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := rl.Middleware()(okHandler())

	first := httptest.NewRequest("POST", "/api/auth/login", nil)
	first.RemoteAddr = "203.0.113.1:49152"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusOK, rec.Code)

	again := httptest.NewRequest("POST", "/api/auth/login", nil)
	again.RemoteAddr = "203.0.113.1:49153"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, again)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest("POST", "/api/auth/login", nil)
	other.RemoteAddr = "203.0.113.2:49152"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}
