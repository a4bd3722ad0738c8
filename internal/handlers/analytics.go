package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/starfederation/datastar-go/datastar"

	"orderfront/internal/analytics"
	apperrors "orderfront/internal/errors"
	"orderfront/internal/middleware"
	"orderfront/internal/notify"
	"orderfront/internal/observability"
	"orderfront/internal/ui/templates"
)

// AnalyticsHandlers drives the sales dashboard: load with filters,
// fragment re-render, chart signals and CSV export.
type AnalyticsHandlers struct {
	svc        *analytics.Service
	center     *notify.Center
	render     *templates.Renderer
	logger     *slog.Logger
	generation atomic.Int64
}

func NewAnalyticsHandlers(svc *analytics.Service, center *notify.Center, render *templates.Renderer, logger *slog.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		svc:    svc,
		center: center,
		render: render,
		logger: logger,
	}
}

// HandleLoad toggles the loading indicator, fetches a fresh snapshot
// and rebuilds every dashboard fragment. The indicator is restored
// regardless of outcome; on failure the previous snapshot keeps
// rendering and only the notification area changes.
func (h *AnalyticsHandlers) HandleLoad(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	signals := readSignals(r)

	sse := datastar.NewSSE(w, r)

	h.patchLoading(sse, true)
	flush(w)
	defer func() {
		h.patchLoading(sse, false)
		h.patchNotifications(sse, sessionID)
		flush(w)
	}()

	err := h.svc.Load(r.Context(), sessionID,
		signalString(signals, "date"),
		signalString(signals, "customdate"),
		signalString(signals, "category"),
	)

	state := h.svc.Current(sessionID)
	h.patchFilterError(sse, state.FilterError)
	if err != nil {
		return
	}

	h.patchSnapshot(sse, sessionID)
}

// HandleExport streams the retained snapshot as a CSV download. With
// no snapshot loaded the visitor gets a warning and no file.
func (h *AnalyticsHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	filename, data, err := h.svc.ExportCSV(sessionID)
	if err != nil {
		requestID := observability.GetRequestID(r.Context())
		if stderrors.Is(err, analytics.ErrNoSnapshot) {
			apperrors.WriteError(w, h.logger,
				apperrors.Validation("尚無可匯出的資料，請先載入分析數據"), requestID)
			return
		}
		apperrors.WriteError(w, h.logger, err, requestID)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

func (h *AnalyticsHandlers) patchSnapshot(sse *datastar.ServerSentEventGenerator, sessionID string) {
	state := h.svc.Current(sessionID)

	summaryHTML, err := h.render.Summary(state.Snapshot)
	if err != nil {
		h.logger.Error("render summary", "error", err)
		return
	}
	sse.PatchElements(summaryHTML)

	tableHTML, err := h.render.SalesTable(state.Snapshot)
	if err != nil {
		h.logger.Error("render sales table", "error", err)
		return
	}
	sse.PatchElements(tableHTML)

	filterHTML, err := h.render.CategoryFilter(h.svc.Categories(sessionID))
	if err != nil {
		h.logger.Error("render category filter", "error", err)
		return
	}
	sse.PatchElements(filterHTML)

	// New container node first, then fresh chart data: the host draws
	// into the replacement, never on top of the previous instance.
	chartHTML, err := h.render.Chart(h.generation.Add(1))
	if err != nil {
		h.logger.Error("render chart container", "error", err)
		return
	}
	sse.PatchElements(chartHTML)

	signalData, err := json.Marshal(map[string]any{
		"categorydata": h.svc.CategoryShares(sessionID),
	})
	if err != nil {
		h.logger.Error("marshal category signals", "error", err)
		return
	}
	sse.PatchSignals(signalData)
}

// patchLoading toggles the loading indicator and the loading signal
// the refresh and export controls disable themselves on. Both travel
// together so the controls are never enabled while the indicator
// still shows.
func (h *AnalyticsHandlers) patchLoading(sse *datastar.ServerSentEventGenerator, loading bool) {
	html, err := h.render.Loading(loading)
	if err != nil {
		h.logger.Error("render loading indicator", "error", err)
		return
	}
	sse.PatchElements(html)

	signals, err := json.Marshal(map[string]bool{"loading": loading})
	if err != nil {
		h.logger.Error("marshal loading signal", "error", err)
		return
	}
	sse.PatchSignals(signals)
}

func (h *AnalyticsHandlers) patchFilterError(sse *datastar.ServerSentEventGenerator, message string) {
	html, err := h.render.FilterError(message)
	if err != nil {
		h.logger.Error("render filter error", "error", err)
		return
	}
	sse.PatchElements(html)
}

func (h *AnalyticsHandlers) patchNotifications(sse *datastar.ServerSentEventGenerator, sessionID string) {
	html, err := h.render.Notifications(h.center.Active(sessionID))
	if err != nil {
		h.logger.Error("render notifications", "error", err)
		return
	}
	sse.PatchElements(html)
}
