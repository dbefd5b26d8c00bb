// Package gateway orchestrates a query end to end: cache check, dispatch,
// synthesis, cache write, and decision recording.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ninefold/internal/cache"
	"ninefold/internal/classifier"
	decmodels "ninefold/internal/decisions/models"
	decstore "ninefold/internal/decisions/store"
	platformmetrics "ninefold/internal/platform/metrics"
	"ninefold/internal/registry"
	"ninefold/internal/registry/models"
	"ninefold/internal/router"
	"ninefold/internal/synthesizer"
	dErrors "ninefold/pkg/domain-errors"
	"ninefold/pkg/platform/sentinel"
	"ninefold/pkg/requestcontext"
)

// QueryResult is the gateway's answer to one query.
type QueryResult struct {
	Answer       string   `json:"answer"`
	Confidence   float64  `json:"confidence"`
	Contributors []string `json:"contributors"`
	Dropped      []string `json:"dropped,omitempty"`
	Degraded     bool     `json:"degraded"`
	Cached       bool     `json:"cached"`
	RequestID    string   `json:"request_id"`
}

// Service ties the routing pipeline together behind the HTTP surface.
type Service struct {
	router    *router.Router
	synth     *synthesizer.Synthesizer
	registry  *registry.Registry
	cache     cache.Store
	decisions decstore.Store
	logger    *slog.Logger
	metrics   *platformmetrics.Metrics
	stats     *Stats
	cacheTTL  time.Duration
}

// New creates the gateway service. metrics may be nil in tests.
func New(
	rt *router.Router,
	synth *synthesizer.Synthesizer,
	reg *registry.Registry,
	cacheStore cache.Store,
	decisions decstore.Store,
	logger *slog.Logger,
	m *platformmetrics.Metrics,
	cacheTTL time.Duration,
) *Service {
	return &Service{
		router:    rt,
		synth:     synth,
		registry:  reg,
		cache:     cacheStore,
		decisions: decisions,
		logger:    logger,
		metrics:   m,
		stats:     NewStats(),
		cacheTTL:  cacheTTL,
	}
}

// Stats exposes the gateway's aggregate counters.
func (s *Service) Stats() *Stats { return s.stats }

// Query answers one query, serving from cache when a fresh entry matches the
// resolved specialist set and versions.
func (s *Service) Query(ctx context.Context, text string) (QueryResult, error) {
	start := time.Now()
	requestID := requestcontext.RequestID(ctx)

	analysis, err := s.router.Analyze(ctx, text)
	if err != nil {
		return QueryResult{}, err
	}

	fingerprint := s.fingerprint(ctx, text, analysis)

	if entry, err := s.cache.Get(ctx, fingerprint); err == nil {
		if s.metrics != nil {
			s.metrics.IncrementCacheHit()
		}
		s.stats.RecordQuery(true, entry.Result.Degraded, false, time.Since(start))
		s.record(ctx, text, analysis, entry.Result, true, start)
		return s.toQueryResult(entry.Result, true, requestID), nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		// cache outage is non-fatal: bypass and dispatch directly
		s.logger.WarnContext(ctx, "cache store unavailable, bypassing",
			"error", err,
			"request_id", requestID,
		)
	} else if s.metrics != nil {
		s.metrics.IncrementCacheMiss()
	}

	dispatch, err := s.router.Execute(ctx, analysis, text)
	if err != nil {
		return QueryResult{}, err
	}

	result, err := s.synth.Synthesize(dispatch)
	if err != nil {
		return QueryResult{}, err
	}
	result.Fingerprint = fingerprint

	if err := s.cache.Set(ctx, fingerprint, result, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache write failed",
			"error", err,
			"request_id", requestID,
		)
	}

	s.stats.RecordQuery(false, result.Degraded, dispatch.Analysis.Plan.SynthesisRequired, time.Since(start))
	s.record(ctx, text, dispatch.Analysis, result, false, start)

	s.logger.InfoContext(ctx, "query answered",
		"request_id", requestID,
		"specialists", dispatch.Analysis.Plan.SpecialistIDs(),
		"dropped", len(dispatch.Dropped),
		"confidence", result.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s.toQueryResult(result, false, requestID), nil
}

// Analyze runs classification and planning without contacting specialists.
func (s *Service) Analyze(ctx context.Context, text string) (router.Analysis, error) {
	return s.router.Analyze(ctx, text)
}

// Specialists returns the current registry snapshot.
func (s *Service) Specialists(_ context.Context) []models.Specialist {
	return s.registry.Snapshot()
}

// Specialist returns one specialist by id.
func (s *Service) Specialist(_ context.Context, id string) (models.Specialist, error) {
	sp, err := s.registry.Get(id)
	if err != nil {
		return models.Specialist{}, dErrors.New(dErrors.CodeNotFound, "unknown specialist")
	}
	return sp, nil
}

// RecentDecisions lists the latest routing decisions, newest first.
func (s *Service) RecentDecisions(ctx context.Context, limit int) ([]decmodels.Decision, error) {
	return s.decisions.Recent(ctx, limit)
}

// fingerprint keys the cache on normalized text plus the planned specialist
// set with versions, so stale entries stop matching as soon as any planned
// specialist is redeployed.
func (s *Service) fingerprint(_ context.Context, text string, analysis router.Analysis) string {
	resolved := make([]models.Specialist, 0, len(analysis.Plan.Calls))
	for _, call := range analysis.Plan.Calls {
		if sp, err := s.registry.Get(call.SpecialistID); err == nil {
			resolved = append(resolved, sp)
		}
	}
	return cache.Fingerprint(classifier.Normalize(text), registry.VersionSignature(resolved))
}

func (s *Service) record(ctx context.Context, text string, analysis router.Analysis, result synthesizer.Result, cacheHit bool, start time.Time) {
	domains := make([]string, len(analysis.Domains))
	for i, d := range analysis.Domains {
		domains[i] = d.Domain
	}
	decision := decmodels.Decision{
		ID:           uuid.NewString(),
		RequestID:    requestcontext.RequestID(ctx),
		CallerID:     requestcontext.CallerID(ctx),
		Query:        text,
		Domains:      domains,
		Specialists:  result.Contributors,
		Dropped:      result.Dropped,
		Reasoning:    analysis.Plan.Reasoning,
		Confidence:   result.Confidence,
		CacheHit:     cacheHit,
		Degraded:     result.Degraded,
		UsedFallback: analysis.Plan.UsedFallback,
		LatencyMS:    time.Since(start).Milliseconds(),
		CreatedAt:    time.Now(),
	}
	if err := s.decisions.Append(ctx, decision); err != nil {
		s.logger.WarnContext(ctx, "could not record routing decision",
			"error", err,
			"request_id", decision.RequestID,
		)
	}
}

func (s *Service) toQueryResult(result synthesizer.Result, cached bool, requestID string) QueryResult {
	return QueryResult{
		Answer:       result.Text,
		Confidence:   result.Confidence,
		Contributors: result.Contributors,
		Dropped:      result.Dropped,
		Degraded:     result.Degraded,
		Cached:       cached,
		RequestID:    requestID,
	}
}
