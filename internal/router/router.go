// Package router turns classified queries into dispatch plans and executes
// them against specialist backends: concurrent fan-out under one deadline,
// one retry per call, partial-failure tolerance.
package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ninefold/internal/classifier"
	"ninefold/internal/registry"
	"ninefold/internal/registry/models"
	"ninefold/internal/router/metrics"
	"ninefold/internal/specialist"
	dErrors "ninefold/pkg/domain-errors"
	"ninefold/pkg/requestcontext"
)

const tracerName = "ninefold/router"

// Config carries the routing knobs.
type Config struct {
	MaxSpecialists     int
	DominanceRatio     float64
	CallTimeout        time.Duration
	OverallDeadline    time.Duration
	RetryBackoff       time.Duration
	FallbackSpecialist string
}

// Analysis is the dry-run output: classification plus the plan that would
// run, with no specialist contacted.
type Analysis struct {
	Domains []classifier.DomainWeight `json:"domains"`
	Plan    Plan                      `json:"plan"`
}

// DroppedCall is a planned call that failed, timed out, or never completed
// before the deadline. Its planned weight feeds the confidence penalty.
type DroppedCall struct {
	SpecialistID string  `json:"specialist_id"`
	Domain       string  `json:"domain"`
	Weight       float64 `json:"weight"`
	Reason       string  `json:"reason"`
}

// DispatchResult is everything the synthesizer needs: the plan, the
// responses that arrived, and the calls that were dropped.
type DispatchResult struct {
	Analysis  Analysis
	Responses []specialist.Response
	Dropped   []DroppedCall
}

// Degraded reports whether the answer is missing planned or classified
// coverage: a planned call was dropped, or a classified domain had no
// eligible specialist. Surfaced as response metadata rather than an error,
// provided at least one specialist answered.
func (r DispatchResult) Degraded() bool {
	if len(r.Responses) == 0 {
		return false
	}
	return len(r.Dropped) > 0 || len(r.Analysis.Plan.Omitted) > 0
}

// Router plans and executes specialist dispatches.
type Router struct {
	classifier *classifier.Classifier
	registry   *registry.Registry
	client     specialist.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	cfg        Config
}

// New creates a Router. metrics may be nil in tests.
func New(
	cls *classifier.Classifier,
	reg *registry.Registry,
	client specialist.Client,
	logger *slog.Logger,
	m *metrics.Metrics,
	cfg Config,
) *Router {
	return &Router{
		classifier: cls,
		registry:   reg,
		client:     client,
		logger:     logger,
		metrics:    m,
		cfg:        cfg,
	}
}

// Analyze classifies text and builds the plan without calling any
// specialist. Backs the gateway's dry-run endpoint.
func (r *Router) Analyze(ctx context.Context, text string) (Analysis, error) {
	domains, err := r.classifier.Classify(text)
	if err != nil {
		return Analysis{}, err
	}
	plan, err := buildPlan(r.registry, domains, r.cfg.MaxSpecialists, r.cfg.DominanceRatio, r.cfg.FallbackSpecialist)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{Domains: domains, Plan: plan}, nil
}

// Dispatch analyzes text and executes the plan. Callers that already hold an
// Analysis (the gateway computes one for cache fingerprinting) should use
// Execute instead to avoid classifying twice.
func (r *Router) Dispatch(ctx context.Context, text string) (DispatchResult, error) {
	analysis, err := r.Analyze(ctx, text)
	if err != nil {
		return DispatchResult{}, err
	}
	return r.Execute(ctx, analysis, text)
}

// Execute runs a previously built plan: all calls issued in parallel, joined
// under the overall deadline, stragglers cancelled. At least one response or
// an error is always returned.
func (r *Router) Execute(ctx context.Context, analysis Analysis, text string) (DispatchResult, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "router.Dispatch",
		trace.WithAttributes(
			attribute.Int("plan.calls", len(analysis.Plan.Calls)),
			attribute.Bool("plan.synthesis", analysis.Plan.SynthesisRequired),
		))
	defer span.End()

	if r.metrics != nil {
		r.metrics.ObserveDispatch(analysis.Plan.SynthesisRequired)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, r.cfg.OverallDeadline)
	defer cancel()

	var (
		mu        sync.Mutex
		responses []specialist.Response
		dropped   []DroppedCall
	)

	g := new(errgroup.Group)
	for _, call := range analysis.Plan.Calls {
		g.Go(func() error {
			resp, callErr := r.callWithRetry(dispatchCtx, call, text)
			mu.Lock()
			defer mu.Unlock()
			if callErr != nil {
				dropped = append(dropped, DroppedCall{
					SpecialistID: call.SpecialistID,
					Domain:       call.Domain,
					Weight:       call.Weight,
					Reason:       callErr.Error(),
				})
				return nil
			}
			responses = append(responses, resp)
			return nil
		})
	}
	_ = g.Wait()

	requestID := requestcontext.RequestID(ctx)
	for _, d := range dropped {
		if r.metrics != nil {
			r.metrics.IncrementDropped()
		}
		r.logger.WarnContext(ctx, "specialist call dropped",
			"specialist_id", d.SpecialistID,
			"domain", d.Domain,
			"reason", d.Reason,
			"request_id", requestID,
		)
	}

	if len(responses) == 0 {
		if dispatchCtx.Err() != nil {
			return DispatchResult{}, dErrors.New(dErrors.CodeDispatchTimeout,
				"no specialist responded before the deadline")
		}
		return DispatchResult{}, dErrors.New(dErrors.CodeSpecialistUnavailable,
			"all planned specialists failed")
	}

	// stable order for deterministic synthesis and cacheable payloads
	orderByPlan(analysis.Plan, responses)

	return DispatchResult{Analysis: analysis, Responses: responses, Dropped: dropped}, nil
}

// callWithRetry issues one planned call with a per-call timeout and a single
// retry after a short backoff. The registry load counter brackets the whole
// attempt chain; no shared lock is held across the network call.
func (r *Router) callWithRetry(ctx context.Context, call PlannedCall, text string) (specialist.Response, error) {
	sp, err := r.registry.Get(call.SpecialistID)
	if err != nil {
		return specialist.Response{}, err
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "router.call",
		trace.WithAttributes(attribute.String("specialist.id", call.SpecialistID)))
	defer span.End()

	r.registry.IncLoad(call.SpecialistID)
	defer r.registry.DecLoad(call.SpecialistID)

	req := specialist.Request{Text: text}

	start := time.Now()
	resp, err := r.attempt(ctx, sp, req)
	if err != nil && ctx.Err() == nil {
		select {
		case <-time.After(r.cfg.RetryBackoff):
		case <-ctx.Done():
			return specialist.Response{}, ctx.Err()
		}
		resp, err = r.attempt(ctx, sp, req)
	}

	if r.metrics != nil {
		r.metrics.ObserveCall(call.SpecialistID, err == nil, time.Since(start).Seconds())
	}
	if err != nil {
		return specialist.Response{}, err
	}
	resp.SpecialistID = call.SpecialistID
	return resp, nil
}

func (r *Router) attempt(ctx context.Context, sp models.Specialist, req specialist.Request) (specialist.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return r.client.Query(callCtx, sp.Endpoint, req)
}

func orderByPlan(plan Plan, responses []specialist.Response) {
	rank := make(map[string]int, len(plan.Calls))
	for i, c := range plan.Calls {
		rank[c.SpecialistID] = i
	}
	for i := 1; i < len(responses); i++ {
		for j := i; j > 0 && rank[responses[j].SpecialistID] < rank[responses[j-1].SpecialistID]; j-- {
			responses[j], responses[j-1] = responses[j-1], responses[j]
		}
	}
}
