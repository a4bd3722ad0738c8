// Package ordering owns the per-visitor ordering state: the loaded
// menu catalog, the cart and the order-notes text. State lives for the
// visitor's session only; nothing here is persisted.
package ordering

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	apperrors "orderfront/internal/errors"
	"orderfront/internal/models"
	"orderfront/internal/notify"
)

// Backend is the slice of the backend API the ordering module needs.
type Backend interface {
	Menu(ctx context.Context) ([]models.MenuItem, error)
	SubmitOrder(ctx context.Context, sub models.OrderSubmission) (*models.Order, error)
}

// Notifier publishes transient notifications to a session.
type Notifier interface {
	Notify(sessionID string, level notify.Level, message string) string
}

// State is one visitor's ordering state container.
type State struct {
	Menu  []models.MenuItem
	Cart  []models.CartLine
	Notes string
}

// MenuGroup is one category block of the rendered menu, in first-seen
// category order.
type MenuGroup struct {
	Category string
	Items    []models.MenuItem
}

// ChangeResult is what the change calculator displays: a pure function
// of (displayed total, payment input), recomputed on every mutation.
type ChangeResult struct {
	Total     float64
	Payment   float64
	Change    float64
	Shortfall string
}

type Service struct {
	mu       sync.RWMutex
	states   map[string]*State
	backend  Backend
	notifier Notifier
	logger   *slog.Logger
}

func NewService(backend Backend, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		states:   make(map[string]*State),
		backend:  backend,
		notifier: notifier,
		logger:   logger,
	}
}

// LoadMenu replaces the session's catalog with a fresh fetch. On
// failure the previous catalog is kept (or stays empty on first load)
// and the visitor gets a danger notification.
func (s *Service) LoadMenu(ctx context.Context, sessionID string) error {
	items, err := s.backend.Menu(ctx)
	if err != nil {
		s.logger.Error("load menu failed", "session_id", sessionID, "error", err)
		s.notifier.Notify(sessionID, notify.LevelDanger, "無法載入菜單，請稍後重試")
		return err
	}

	if items == nil {
		items = []models.MenuItem{}
	}

	s.mu.Lock()
	s.state(sessionID).Menu = items
	s.mu.Unlock()

	s.logger.Debug("menu loaded", "session_id", sessionID, "items", len(items))
	return nil
}

// MenuGroups returns the catalog grouped by category in first-seen
// order, the order the menu renderer displays.
func (s *Service) MenuGroups(sessionID string) []MenuGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return GroupByCategory(s.lookup(sessionID).Menu)
}

// GroupByCategory groups items preserving the order categories first
// appear in the catalog.
func GroupByCategory(items []models.MenuItem) []MenuGroup {
	var groups []MenuGroup
	index := make(map[string]int)

	for _, item := range items {
		i, ok := index[item.Category]
		if !ok {
			i = len(groups)
			index[item.Category] = i
			groups = append(groups, MenuGroup{Category: item.Category})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// AddToCart adds one unit of a menu item. Unknown ids are a logged
// no-op. Repeat adds increment the existing line's quantity.
func (s *Service) AddToCart(sessionID string, itemID int) bool {
	s.mu.Lock()
	st := s.state(sessionID)

	var item *models.MenuItem
	for i := range st.Menu {
		if st.Menu[i].ID == itemID {
			item = &st.Menu[i]
			break
		}
	}
	if item == nil {
		s.mu.Unlock()
		s.logger.Warn("add to cart: unknown menu item", "session_id", sessionID, "item_id", itemID)
		return false
	}

	found := false
	for i := range st.Cart {
		if st.Cart[i].ID == itemID {
			st.Cart[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		st.Cart = append(st.Cart, models.CartLine{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Category: item.Category,
			Quantity: 1,
		})
	}
	name := item.Name
	s.mu.Unlock()

	s.notifier.Notify(sessionID, notify.LevelSuccess, fmt.Sprintf("已將「%s」加入購物車", name))
	return true
}

// IncreaseQuantity increments a line unconditionally.
func (s *Service) IncreaseQuantity(sessionID string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(sessionID)
	if index < 0 || index >= len(st.Cart) {
		s.logger.Warn("increase quantity: stale cart index", "session_id", sessionID, "index", index)
		return
	}
	st.Cart[index].Quantity++
}

// DecreaseQuantity decrements a line but never below 1; at the floor
// it is a no-op. Removal is an explicit, separate operation.
func (s *Service) DecreaseQuantity(sessionID string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(sessionID)
	if index < 0 || index >= len(st.Cart) {
		s.logger.Warn("decrease quantity: stale cart index", "session_id", sessionID, "index", index)
		return
	}
	if st.Cart[index].Quantity > 1 {
		st.Cart[index].Quantity--
	}
}

// RemoveFromCart deletes a line entirely, regardless of quantity.
func (s *Service) RemoveFromCart(sessionID string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(sessionID)
	if index < 0 || index >= len(st.Cart) {
		s.logger.Warn("remove from cart: stale cart index", "session_id", sessionID, "index", index)
		return
	}
	st.Cart = append(st.Cart[:index], st.Cart[index+1:]...)
}

// ClearCart empties the cart and the notes field.
func (s *Service) ClearCart(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(sessionID)
	st.Cart = nil
	st.Notes = ""
}

// SetNotes stores the free-text order notes.
func (s *Service) SetNotes(sessionID, notes string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state(sessionID).Notes = notes
}

// Cart returns a copy of the session's cart lines.
func (s *Service) Cart(sessionID string) []models.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.lookup(sessionID)
	out := make([]models.CartLine, len(st.Cart))
	copy(out, st.Cart)
	return out
}

// Total recomputes the cart total from scratch on every call. The
// total is never cached incrementally, so it cannot drift from the
// line set.
func (s *Service) Total(sessionID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cartTotal(s.lookup(sessionID).Cart)
}

func cartTotal(cart []models.CartLine) float64 {
	var total float64
	for _, line := range cart {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

// CalculateChange re-derives the change display from the formatted
// total and the raw payment input; both default to 0 when unparsable.
// Insufficient payment yields a zero change plus shortfall text.
func (s *Service) CalculateChange(sessionID, payment string) ChangeResult {
	total := ParseAmount(fmt.Sprintf("%.2f", s.Total(sessionID)))
	paid := ParseAmount(payment)

	result := ChangeResult{Total: total, Payment: paid}
	if paid >= total {
		result.Change = paid - total
	} else {
		result.Shortfall = fmt.Sprintf("%.2f", total-paid)
	}
	return result
}

// ParseAmount parses a user-entered money amount, defaulting to 0 on
// any parse failure.
func ParseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// SubmitOrder runs the linear validation-then-send sequence. Both
// rejections happen before any network call; a failed send leaves the
// cart intact for a manual retry, and a successful one clears it.
func (s *Service) SubmitOrder(ctx context.Context, sessionID, payment string) (*models.Order, error) {
	s.mu.RLock()
	st := s.lookup(sessionID)
	cart := make([]models.CartLine, len(st.Cart))
	copy(cart, st.Cart)
	notes := st.Notes
	s.mu.RUnlock()

	if len(cart) == 0 {
		s.notifier.Notify(sessionID, notify.LevelWarning, "購物車是空的，請先加入餐點")
		return nil, apperrors.Validation("cart is empty")
	}

	total := cartTotal(cart)
	paid := ParseAmount(payment)
	if paid < total {
		s.notifier.Notify(sessionID, notify.LevelDanger,
			fmt.Sprintf("付款金額不足，還差 %.2f", total-paid))
		return nil, apperrors.Validation("insufficient payment")
	}

	sub := models.OrderSubmission{
		Items:       cart,
		TotalAmount: total,
		Notes:       notes,
	}

	order, err := s.backend.SubmitOrder(ctx, sub)
	if err != nil {
		s.logger.Error("submit order failed", "session_id", sessionID, "error", err)
		s.notifier.Notify(sessionID, notify.LevelDanger, "送出訂單失敗，請稍後重試")
		return nil, err
	}

	s.ClearCart(sessionID)
	s.notifier.Notify(sessionID, notify.LevelSuccess,
		fmt.Sprintf("訂單已送出：%s", order.OrderNumber))
	s.logger.Info("order submitted",
		"session_id", sessionID,
		"order_number", order.OrderNumber,
		"total", total,
	)
	return order, nil
}

// Sessions reports how many ordering sessions hold state.
func (s *Service) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

var emptyState = State{}

// state must be called with the write lock held; it creates the
// session container on first use.
func (s *Service) state(sessionID string) *State {
	if st, ok := s.states[sessionID]; ok {
		return st
	}
	st := &State{Menu: []models.MenuItem{}}
	s.states[sessionID] = st
	return st
}

// lookup must be called with at least the read lock held. Unknown
// sessions read as empty state without allocating a container.
func (s *Service) lookup(sessionID string) *State {
	if st, ok := s.states[sessionID]; ok {
		return st
	}
	return &emptyState
}
