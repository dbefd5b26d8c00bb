// Package middleware enforces per-caller rate limits at the gateway edge.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	platformmetrics "ninefold/internal/platform/metrics"
	"ninefold/internal/ratelimit/models"
	dErrors "ninefold/pkg/domain-errors"
	"ninefold/pkg/platform/httputil"
	"ninefold/pkg/requestcontext"
)

// Limiter checks one request against the caller's bucket.
type Limiter interface {
	Check(ctx context.Context, callerID string, tier models.Tier) (*models.RateLimitResult, error)
}

// Middleware wires the limiter into the HTTP chain.
type Middleware struct {
	limiter Limiter
	logger  *slog.Logger
	metrics *platformmetrics.Metrics
}

// New creates the rate limit middleware. metrics may be nil in tests.
func New(limiter Limiter, logger *slog.Logger, m *platformmetrics.Metrics) *Middleware {
	return &Middleware{limiter: limiter, logger: logger, metrics: m}
}

// Limit rejects requests whose bucket is empty. It runs after authentication,
// so an empty caller id means the auth middleware let the request through
// unauthenticated and the limit is skipped rather than shared across callers.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		callerID := requestcontext.CallerID(ctx)
		if callerID == "" {
			next.ServeHTTP(w, r)
			return
		}
		tier := models.ParseTier(requestcontext.Tier(ctx))

		result, err := m.limiter.Check(ctx, callerID, tier)
		if err != nil {
			// fail open: a broken limiter must not take the gateway down
			m.logger.ErrorContext(ctx, "rate limit check failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)

		if !result.Allowed {
			if m.metrics != nil {
				m.metrics.IncrementRateLimited()
			}
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"caller_id", callerID,
				"tier", tier.String(),
				"retry_after", result.RetryAfter,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited,
				"request quota exhausted, retry later"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
