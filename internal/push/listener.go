// Package push subscribes to the order-status push channel and turns
// each order_updated event into exactly one informational
// notification. Delivery order is whatever the channel provides; no
// reordering or deduplication happens here.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"orderfront/internal/models"
	"orderfront/internal/notify"
)

// Broadcaster fans a notification out to every connected session.
type Broadcaster interface {
	Broadcast(level notify.Level, message string)
}

type Listener struct {
	conn        *nats.Conn
	subject     string
	sub         *nats.Subscription
	broadcaster Broadcaster
	logger      *slog.Logger
}

// Connect dials the push channel. The connection reconnects forever on
// its own; order-status updates are informational, losing a few during
// an outage is acceptable.
func Connect(url, subject string, broadcaster Broadcaster, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url, nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to push channel: %w", err)
	}

	return &Listener{
		conn:        conn,
		subject:     subject,
		broadcaster: broadcaster,
		logger:      logger,
	}, nil
}

// Start subscribes to the order_updated subject.
func (l *Listener) Start() error {
	sub, err := l.conn.Subscribe(l.subject, func(msg *nats.Msg) {
		l.handleMessage(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", l.subject, err)
	}
	l.sub = sub

	l.logger.Info("order-status listener started", "subject", l.subject)
	return nil
}

// handleMessage maps one push event to one notification. Malformed or
// incomplete events are logged and dropped.
func (l *Listener) handleMessage(data []byte) {
	var evt models.OrderStatusEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		l.logger.Warn("invalid order_updated event", "error", err)
		return
	}
	if evt.OrderNumber == "" {
		l.logger.Warn("order_updated event missing order_number")
		return
	}

	label := models.StatusLabel(evt.Status)
	l.broadcaster.Broadcast(notify.LevelInfo,
		fmt.Sprintf("訂單 %s 狀態更新：%s", evt.OrderNumber, label))

	l.logger.Debug("order status event",
		"order_number", evt.OrderNumber,
		"status", evt.Status,
	)
}

// Close drains the subscription and closes the connection. Registered
// as a shutdown hook.
func (l *Listener) Close(ctx context.Context) error {
	if l.sub != nil {
		if err := l.sub.Unsubscribe(); err != nil {
			l.logger.Warn("unsubscribe failed", "error", err)
		}
	}
	l.conn.Close()
	return nil
}
