// Package handler exposes the token exchange endpoint.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ninefold/internal/auth/models"
	dErrors "ninefold/pkg/domain-errors"
	"ninefold/pkg/platform/httputil"
	"ninefold/pkg/requestcontext"
)

// Service is the auth operation the handler needs.
type Service interface {
	MintToken(ctx context.Context, rawKey string) (models.TokenResponse, error)
}

// Handler wires the token endpoint to the auth service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts auth endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/auth/token", h.HandleToken)
}

type tokenRequest struct {
	APIKey string `json:"api_key"`
}

// HandleToken handles POST /v1/auth/token: exchanges an API key for a
// short-lived bearer token. The key may arrive in the body or the X-API-Key
// header.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req tokenRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	rawKey := req.APIKey
	if rawKey == "" {
		rawKey = r.Header.Get("X-API-Key")
	}
	if rawKey == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing api key"))
		return
	}

	resp, err := h.service.MintToken(ctx, rawKey)
	if err != nil {
		h.logger.WarnContext(ctx, "token exchange failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
