// Package handler exposes the gateway's HTTP surface.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	decmodels "ninefold/internal/decisions/models"
	"ninefold/internal/gateway"
	ratemodels "ninefold/internal/ratelimit/models"
	"ninefold/internal/registry/models"
	"ninefold/internal/router"
	dErrors "ninefold/pkg/domain-errors"
	"ninefold/pkg/platform/httputil"
	"ninefold/pkg/requestcontext"
)

const defaultDecisionLimit = 50

// Service defines the gateway operations the handler needs.
type Service interface {
	Query(ctx context.Context, text string) (gateway.QueryResult, error)
	Analyze(ctx context.Context, text string) (router.Analysis, error)
	Specialists(ctx context.Context) []models.Specialist
	Specialist(ctx context.Context, id string) (models.Specialist, error)
	RecentDecisions(ctx context.Context, limit int) ([]decmodels.Decision, error)
	Stats() *gateway.Stats
}

// Handler wires gateway endpoints to the gateway service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts gateway endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/query", h.HandleQuery)
	r.Post("/v1/analyze", h.HandleAnalyze)
	r.Get("/v1/specialists", h.HandleSpecialists)
	r.Get("/v1/specialists/{id}", h.HandleSpecialist)
	r.Get("/v1/stats", h.HandleStats)
	r.Get("/v1/decisions", h.HandleDecisions)
}

type queryRequest struct {
	Query string `json:"query"`
}

// HandleQuery handles POST /v1/query.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := decode[queryRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Query(ctx, req.Query)
	if err != nil {
		h.logger.ErrorContext(ctx, "query failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

type analyzeResponse struct {
	Domains            []domainWeight `json:"domains"`
	Plan               router.Plan    `json:"plan"`
	EstimatedLatencyMS int64          `json:"estimated_latency_ms"`
}

type domainWeight struct {
	Domain string  `json:"domain"`
	Weight float64 `json:"weight"`
}

// HandleAnalyze handles POST /v1/analyze: classification and planning only,
// no specialist is contacted.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := decode[queryRequest](w, r)
	if !ok {
		return
	}

	analysis, err := h.service.Analyze(ctx, req.Query)
	if err != nil {
		h.logger.WarnContext(ctx, "analyze failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := analyzeResponse{
		Plan:               analysis.Plan,
		EstimatedLatencyMS: analysis.Plan.EstimatedLatency.Milliseconds(),
	}
	for _, d := range analysis.Domains {
		resp.Domains = append(resp.Domains, domainWeight{Domain: d.Domain, Weight: d.Weight})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type specialistView struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Version string             `json:"version"`
	Domains []models.DomainTag `json:"domains"`
	Health  string             `json:"health"`
	Load    int64              `json:"load"`
}

func viewOf(sp models.Specialist) specialistView {
	return specialistView{
		ID:      sp.ID,
		Name:    sp.Name,
		Version: sp.Version,
		Domains: sp.Domains,
		Health:  string(sp.Health),
		Load:    sp.Load,
	}
}

// HandleSpecialists handles GET /v1/specialists. Endpoints and probe
// counters are deliberately not exposed.
func (h *Handler) HandleSpecialists(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.Specialists(r.Context())
	views := make([]specialistView, 0, len(snapshot))
	for _, sp := range snapshot {
		views = append(views, viewOf(sp))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"specialists": views})
}

// HandleSpecialist handles GET /v1/specialists/{id}.
func (h *Handler) HandleSpecialist(w http.ResponseWriter, r *http.Request) {
	sp, err := h.service.Specialist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, viewOf(sp))
}

// HandleStats handles GET /v1/stats. Restricted to beta and premium tiers.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tier := ratemodels.ParseTier(requestcontext.Tier(ctx))
	if !tier.StatsEligible() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "stats require a beta or premium tier"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.service.Stats().Snapshot())
}

// HandleDecisions handles GET /v1/decisions.
func (h *Handler) HandleDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultDecisionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	decisions, err := h.service.RecentDecisions(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "could not list decisions",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "could not list decisions", err))
		return
	}
	if decisions == nil {
		decisions = []decmodels.Decision{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidQuery, "malformed request body"))
		return v, false
	}
	return v, true
}
