package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starfederation/datastar-go/datastar"

	apperrors "orderfront/internal/errors"
	"orderfront/internal/middleware"
	"orderfront/internal/notify"
	"orderfront/internal/observability"
	"orderfront/internal/ordering"
	"orderfront/internal/ui/templates"
)

// OrderingHandlers drives the ordering page: every mutation is
// followed by a full re-render of the cart view, total and change.
type OrderingHandlers struct {
	svc    *ordering.Service
	center *notify.Center
	render *templates.Renderer
	logger *slog.Logger
}

func NewOrderingHandlers(svc *ordering.Service, center *notify.Center, render *templates.Renderer, logger *slog.Logger) *OrderingHandlers {
	return &OrderingHandlers{
		svc:    svc,
		center: center,
		render: render,
		logger: logger,
	}
}

// HandleMenu loads the catalog and renders it grouped by category.
// A failed load keeps the previous render; the danger notification is
// the only visible change.
func (h *OrderingHandlers) HandleMenu(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	sse := datastar.NewSSE(w, r)

	if err := h.svc.LoadMenu(r.Context(), sessionID); err == nil {
		html, err := h.render.Menu(h.svc.MenuGroups(sessionID))
		if err != nil {
			h.logger.Error("render menu", "error", err)
			return
		}
		sse.PatchElements(html)
	}

	h.patchNotifications(sse, sessionID)
	flush(w)
}

// HandleCartView re-renders the cart without mutating anything. Used
// by the host page to restore the cart view on reconnect.
func (h *OrderingHandlers) HandleCartView(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	sse := datastar.NewSSE(w, r)
	h.patchCart(sse, sessionID, signalString(readSignals(r), "payment"))
	flush(w)
}

func (h *OrderingHandlers) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	itemID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		requestID := observability.GetRequestID(r.Context())
		apperrors.WriteError(w, h.logger, apperrors.BadRequest("invalid menu item id"), requestID)
		return
	}

	h.svc.AddToCart(sessionID, itemID)

	sse := datastar.NewSSE(w, r)
	h.patchCart(sse, sessionID, signalString(readSignals(r), "payment"))
	flush(w)
}

func (h *OrderingHandlers) HandleIncrease(w http.ResponseWriter, r *http.Request) {
	h.lineOp(w, r, h.svc.IncreaseQuantity)
}

func (h *OrderingHandlers) HandleDecrease(w http.ResponseWriter, r *http.Request) {
	h.lineOp(w, r, h.svc.DecreaseQuantity)
}

func (h *OrderingHandlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.lineOp(w, r, h.svc.RemoveFromCart)
}

func (h *OrderingHandlers) lineOp(w http.ResponseWriter, r *http.Request, op func(sessionID string, index int)) {
	sessionID := middleware.SessionID(r.Context())

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		requestID := observability.GetRequestID(r.Context())
		apperrors.WriteError(w, h.logger, apperrors.BadRequest("invalid cart line index"), requestID)
		return
	}

	op(sessionID, index)

	sse := datastar.NewSSE(w, r)
	h.patchCart(sse, sessionID, signalString(readSignals(r), "payment"))
	flush(w)
}

func (h *OrderingHandlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	h.svc.ClearCart(sessionID)

	sse := datastar.NewSSE(w, r)
	h.patchCart(sse, sessionID, "")
	flush(w)
}

// HandleChange recomputes the change display. Runs on every keystroke
// in the payment field; it is a pure function of the current total and
// the payment input.
func (h *OrderingHandlers) HandleChange(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	signals := readSignals(r)

	sse := datastar.NewSSE(w, r)
	h.patchChange(sse, sessionID, signalString(signals, "payment"))
	flush(w)
}

// HandleSubmit runs the validation-then-send sequence. Rejections and
// send failures leave the cart intact; success shows the returned
// order number and clears it.
func (h *OrderingHandlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	signals := readSignals(r)
	payment := signalString(signals, "payment")

	h.svc.SetNotes(sessionID, signalString(signals, "notes"))

	sse := datastar.NewSSE(w, r)

	order, err := h.svc.SubmitOrder(r.Context(), sessionID, payment)
	if err == nil {
		html, renderErr := h.render.OrderStatus(order.OrderNumber)
		if renderErr != nil {
			h.logger.Error("render order status", "error", renderErr)
		} else {
			sse.PatchElements(html)
		}
	}

	h.patchCart(sse, sessionID, payment)
	flush(w)
}

func (h *OrderingHandlers) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	h.center.Dismiss(sessionID, r.PathValue("id"))

	sse := datastar.NewSSE(w, r)
	h.patchNotifications(sse, sessionID)
	flush(w)
}

// patchCart re-renders the cart view, total, change and notification
// area after any cart mutation.
func (h *OrderingHandlers) patchCart(sse *datastar.ServerSentEventGenerator, sessionID, payment string) {
	cartHTML, err := h.render.Cart(h.svc.Cart(sessionID))
	if err != nil {
		h.logger.Error("render cart", "error", err)
		return
	}
	sse.PatchElements(cartHTML)

	totalHTML, err := h.render.Total(h.svc.Total(sessionID))
	if err != nil {
		h.logger.Error("render total", "error", err)
		return
	}
	sse.PatchElements(totalHTML)

	h.patchChange(sse, sessionID, payment)
	h.patchNotifications(sse, sessionID)
}

func (h *OrderingHandlers) patchChange(sse *datastar.ServerSentEventGenerator, sessionID, payment string) {
	html, err := h.render.Change(h.svc.CalculateChange(sessionID, payment))
	if err != nil {
		h.logger.Error("render change", "error", err)
		return
	}
	sse.PatchElements(html)
}

func (h *OrderingHandlers) patchNotifications(sse *datastar.ServerSentEventGenerator, sessionID string) {
	html, err := h.render.Notifications(h.center.Active(sessionID))
	if err != nil {
		h.logger.Error("render notifications", "error", err)
		return
	}
	sse.PatchElements(html)
}
