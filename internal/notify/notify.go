package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the color class of a transient notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// DefaultTTL is how long a notification stays visible before its
// dismissal timer fires.
const DefaultTTL = 3 * time.Second

// Notification is one transient, auto-dismissing message.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// EventKind distinguishes stream events sent to subscribers.
type EventKind string

const (
	EventShow    EventKind = "show"
	EventDismiss EventKind = "dismiss"
)

// Event is one change of a session's notification area.
type Event struct {
	Kind         EventKind
	Notification Notification
}

type session struct {
	active      []Notification
	subscribers map[chan Event]struct{}
}

// Center owns per-session notification state. Dismissal timers are
// scoped, cancellable handles: manual dismissal stops the timer so an
// already-removed notification is never dismissed twice.
type Center struct {
	mu       sync.RWMutex
	sessions map[string]*session
	timers   map[string]*time.Timer
	ttl      time.Duration
	logger   *slog.Logger
}

func NewCenter(ttl time.Duration, logger *slog.Logger) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Center{
		sessions: make(map[string]*session),
		timers:   make(map[string]*time.Timer),
		ttl:      ttl,
		logger:   logger,
	}
}

// Notify publishes a notification to one session and arms its
// dismissal timer. The notification id is returned for tests and for
// manual dismissal.
func (c *Center) Notify(sessionID string, level Level, message string) string {
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	s := c.ensureSessionLocked(sessionID)
	s.active = append(s.active, n)
	c.timers[n.ID] = time.AfterFunc(c.ttl, func() {
		c.expire(sessionID, n.ID)
	})
	c.emitLocked(s, Event{Kind: EventShow, Notification: n})
	c.mu.Unlock()

	return n.ID
}

// Broadcast publishes a notification to every session that currently
// has at least one subscriber. Used by the push listener: order-status
// events are informational for everyone connected.
func (c *Center) Broadcast(level Level, message string) {
	c.mu.RLock()
	ids := make([]string, 0, len(c.sessions))
	for id, s := range c.sessions {
		if len(s.subscribers) > 0 {
			ids = append(ids, id)
		}
	}
	c.mu.RUnlock()

	for _, id := range ids {
		c.Notify(id, level, message)
	}
}

// Dismiss removes a notification before its timer fires. Unknown ids
// are a no-op: the timer may have won the race already.
func (c *Center) Dismiss(sessionID, notificationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[notificationID]; ok {
		t.Stop()
		delete(c.timers, notificationID)
	}
	c.removeLocked(sessionID, notificationID)
}

func (c *Center) expire(sessionID, notificationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.timers, notificationID)
	c.removeLocked(sessionID, notificationID)
}

// Active returns the currently visible notifications of a session,
// oldest first.
func (c *Center) Active(sessionID string) []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]Notification, len(s.active))
	copy(out, s.active)
	return out
}

// Subscribe registers a stream of notification events for a session.
// The returned cancel func must be called when the stream closes.
func (c *Center) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	c.mu.Lock()
	s := c.ensureSessionLocked(sessionID)
	s.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if s, ok := c.sessions[sessionID]; ok {
			delete(s.subscribers, ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Stop cancels every pending dismissal timer. Used as a shutdown hook.
func (c *Center) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Center) ensureSessionLocked(sessionID string) *session {
	s, ok := c.sessions[sessionID]
	if !ok {
		s = &session{subscribers: make(map[chan Event]struct{})}
		c.sessions[sessionID] = s
	}
	return s
}

func (c *Center) removeLocked(sessionID, notificationID string) {
	s, ok := c.sessions[sessionID]
	if !ok {
		return
	}
	for i, n := range s.active {
		if n.ID == notificationID {
			s.active = append(s.active[:i], s.active[i+1:]...)
			c.emitLocked(s, Event{Kind: EventDismiss, Notification: n})
			return
		}
	}
}

func (c *Center) emitLocked(s *session, ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			c.logger.Warn("notification subscriber is slow, dropping event",
				"kind", ev.Kind,
				"notification_id", ev.Notification.ID,
			)
		}
	}
}
