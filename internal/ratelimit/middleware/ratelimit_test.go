package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ninefold/internal/ratelimit/models"
	"ninefold/pkg/requestcontext"
)

type stubLimiter struct {
	result *models.RateLimitResult
	err    error
}

func (l *stubLimiter) Check(context.Context, string, models.Tier) (*models.RateLimitResult, error) {
	return l.result, l.err
}

func run(t *testing.T, limiter Limiter, callerID string) *httptest.ResponseRecorder {
	t.Helper()
	mw := New(limiter, slog.New(slog.DiscardHandler), nil)

	var reached bool
	handler := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/query", nil)
	if callerID != "" {
		req = req.WithContext(requestcontext.WithCaller(req.Context(), callerID, "free"))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		assert.True(t, reached)
	} else {
		assert.False(t, reached)
	}
	return rec
}

func TestLimitAllowsWithinQuota(t *testing.T) {
	limiter := &stubLimiter{result: &models.RateLimitResult{
		Allowed: true, Limit: 60, Remaining: 59, ResetAt: time.Unix(1700000000, 0),
	}}

	rec := run(t, limiter, "caller-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "59", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1700000000", rec.Header().Get("X-RateLimit-Reset"))
}

func TestLimitRejectsWhenExhausted(t *testing.T) {
	limiter := &stubLimiter{result: &models.RateLimitResult{
		Allowed: false, Limit: 60, Remaining: 0, RetryAfter: 12,
	}}

	rec := run(t, limiter, "caller-1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "12", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
}

func TestLimitFailsOpenOnLimiterError(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("store down")}

	rec := run(t, limiter, "caller-1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLimitSkipsUnauthenticatedRequests(t *testing.T) {
	limiter := &stubLimiter{result: &models.RateLimitResult{Allowed: false}}

	rec := run(t, limiter, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
