package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"orderfront/internal/middleware"
	"orderfront/internal/notify"
	"orderfront/internal/ui/templates"
)

// UpdatesHandler is the long-lived notification stream. Push-channel
// order-status events and dismissal timers both land here; every event
// re-renders the session's whole notification area.
type UpdatesHandler struct {
	center *notify.Center
	render *templates.Renderer
	logger *slog.Logger
}

func NewUpdatesHandler(center *notify.Center, render *templates.Renderer, logger *slog.Logger) *UpdatesHandler {
	return &UpdatesHandler{
		center: center,
		render: render,
		logger: logger,
	}
}

func (h *UpdatesHandler) HandleUpdates(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	// The stream stays open for the whole visit. The server's write
	// timeout is set at request start, so it must be lifted here or
	// every write after the first deadline window fails silently.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Warn("clear write deadline for update stream", "error", err)
	}

	sse := datastar.NewSSE(w, r)

	events, cancel := h.center.Subscribe(sessionID)
	defer cancel()

	h.patch(sse, sessionID)
	flush(w)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-events:
			h.patch(sse, sessionID)
			flush(w)
		}
	}
}

func (h *UpdatesHandler) patch(sse *datastar.ServerSentEventGenerator, sessionID string) {
	html, err := h.render.Notifications(h.center.Active(sessionID))
	if err != nil {
		h.logger.Error("render notifications", "error", err)
		return
	}
	sse.PatchElements(html)
}
