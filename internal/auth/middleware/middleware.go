// Package middleware authenticates inbound requests before they reach the
// gateway handlers.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	platformmetrics "ninefold/internal/platform/metrics"
	ratemodels "ninefold/internal/ratelimit/models"
	dErrors "ninefold/pkg/domain-errors"
	"ninefold/pkg/platform/httputil"
	"ninefold/pkg/requestcontext"
)

// Verifier resolves credentials to a caller identity.
type Verifier interface {
	VerifyKey(ctx context.Context, raw string) (callerID string, tier ratemodels.Tier, err error)
	VerifyToken(ctx context.Context, tokenString string) (callerID string, tier ratemodels.Tier, err error)
}

// Middleware enforces authentication on the routes it wraps.
type Middleware struct {
	verifier Verifier
	logger   *slog.Logger
	metrics  *platformmetrics.Metrics
}

// New creates the auth middleware. metrics may be nil in tests.
func New(verifier Verifier, logger *slog.Logger, m *platformmetrics.Metrics) *Middleware {
	return &Middleware{verifier: verifier, logger: logger, metrics: m}
}

// Authenticate accepts either an X-API-Key header or an Authorization bearer
// token and injects the resolved caller into the request context. Requests
// with neither credential are rejected.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var (
			callerID string
			tier     ratemodels.Tier
			err      error
		)
		switch {
		case r.Header.Get("X-API-Key") != "":
			callerID, tier, err = m.verifier.VerifyKey(ctx, r.Header.Get("X-API-Key"))
		case r.Header.Get("Authorization") != "":
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				err = dErrors.New(dErrors.CodeUnauthorized, "malformed authorization header")
				break
			}
			callerID, tier, err = m.verifier.VerifyToken(ctx, token)
		default:
			err = dErrors.New(dErrors.CodeUnauthorized, "missing credentials")
		}

		if err != nil {
			if m.metrics != nil {
				m.metrics.IncrementAuthFailure()
			}
			m.logger.WarnContext(ctx, "authentication failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, err)
			return
		}

		ctx = requestcontext.WithCaller(ctx, callerID, tier.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
