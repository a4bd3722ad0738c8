package server

import (
	"log/slog"
	"net/http"

	"orderfront/internal/handlers"
)

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	ordering  *handlers.OrderingHandlers
	analytics *handlers.AnalyticsHandlers
	updates   *handlers.UpdatesHandler
	api       *handlers.APIHandlers
}

// TemplateHandlers are the host-page roots, built in main where the
// templ components live.
type TemplateHandlers struct {
	Order     http.HandlerFunc
	Analytics http.HandlerFunc
}

func NewServer(
	ordering *handlers.OrderingHandlers,
	analytics *handlers.AnalyticsHandlers,
	updates *handlers.UpdatesHandler,
	api *handlers.APIHandlers,
	templateHandlers *TemplateHandlers,
	logger *slog.Logger,
) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		ordering:  ordering,
		analytics: analytics,
		updates:   updates,
		api:       api,
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Host pages
	s.mux.HandleFunc("GET /{$}", templateHandlers.Order)
	s.mux.HandleFunc("GET /analytics", templateHandlers.Analytics)
	s.mux.HandleFunc("GET /health", s.api.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.api.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/cart", s.api.HandleCart)
	s.mux.HandleFunc("GET /api/analytics/snapshot", s.api.HandleSnapshot)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/menu", s.ordering.HandleMenu)
	s.mux.HandleFunc("GET /sse/cart", s.ordering.HandleCartView)
	s.mux.HandleFunc("POST /sse/cart/items/{id}", s.ordering.HandleAddItem)
	s.mux.HandleFunc("POST /sse/cart/lines/{index}/increase", s.ordering.HandleIncrease)
	s.mux.HandleFunc("POST /sse/cart/lines/{index}/decrease", s.ordering.HandleDecrease)
	s.mux.HandleFunc("POST /sse/cart/lines/{index}/remove", s.ordering.HandleRemove)
	s.mux.HandleFunc("POST /sse/cart/clear", s.ordering.HandleClear)
	s.mux.HandleFunc("GET /sse/change", s.ordering.HandleChange)
	s.mux.HandleFunc("POST /sse/orders", s.ordering.HandleSubmit)
	s.mux.HandleFunc("POST /sse/notifications/{id}/dismiss", s.ordering.HandleDismiss)
	s.mux.HandleFunc("GET /sse/analytics", s.analytics.HandleLoad)
	s.mux.HandleFunc("GET /sse/updates", s.updates.HandleUpdates)

	// CSV download
	s.mux.HandleFunc("GET /export/sales.csv", s.analytics.HandleExport)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
