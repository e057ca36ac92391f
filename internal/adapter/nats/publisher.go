package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/service/effect"
	"github.com/nats-io/nats.go"
)

type notificationMessage struct {
	UserID     string            `json:"user_id"`
	Kind       string            `json:"kind"`
	Payload    map[string]string `json:"payload,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NotificationPublisher pushes user notifications onto the delivery
// queue. Delivery workers subscribe on the subject and render per
// transport.
type NotificationPublisher struct {
	conn    *nats.Conn
	subject string
	logger  logger.Logger
}

func NewNotificationPublisher(conn *nats.Conn, subject string, log logger.Logger) *NotificationPublisher {
	return &NotificationPublisher{conn: conn, subject: subject, logger: log}
}

func (p *NotificationPublisher) Notify(_ context.Context, notification effect.Notification) error {
	msg := notificationMessage{
		UserID:     notification.UserID,
		Kind:       notification.Kind,
		Payload:    notification.Payload,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Errorf("Failed to publish notification for user %s: %v", notification.UserID, err)
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
