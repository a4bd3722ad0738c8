package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"orderfront/internal/analytics"
	apperrors "orderfront/internal/errors"
	"orderfront/internal/middleware"
	"orderfront/internal/observability"
	"orderfront/internal/ordering"
)

// APIHandlers are the JSON mirrors of the fragment endpoints, plus
// health and operator stats.
type APIHandlers struct {
	ordering  *ordering.Service
	analytics *analytics.Service
	logger    *slog.Logger
}

func NewAPIHandlers(orderingSvc *ordering.Service, analyticsSvc *analytics.Service, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		ordering:  orderingSvc,
		analytics: analyticsSvc,
		logger:    logger,
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	apperrors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"ordering_sessions":  h.ordering.Sessions(),
		"analytics_sessions": h.analytics.Sessions(),
	}

	apperrors.WriteSuccess(w, stats)
}

// HandleCart returns the session's cart and recomputed total.
func (h *APIHandlers) HandleCart(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	apperrors.WriteSuccess(w, map[string]any{
		"items": h.ordering.Cart(sessionID),
		"total": h.ordering.Total(sessionID),
	})
}

// HandleSnapshot returns the retained analytics snapshot, if any.
func (h *APIHandlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	state := h.analytics.Current(sessionID)
	if state.Snapshot == nil {
		requestID := observability.GetRequestID(r.Context())
		apperrors.WriteError(w, h.logger, apperrors.NotFound("no analytics snapshot loaded"), requestID)
		return
	}

	apperrors.WriteSuccess(w, state.Snapshot)
}
