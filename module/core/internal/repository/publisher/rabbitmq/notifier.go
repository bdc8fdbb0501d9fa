package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/gird/module/core/domain"
	"github.com/nandanugg/gird/module/core/internal/repository/publisher"
)

var _ publisher.Notifier = (*Notifier)(nil)

const (
	ExchangeName = "gird.events"
	QueueName    = "geofence_notifications"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Notifier struct {
	ch channel
}

func NewNotifier(conn *amqp.Connection) (*Notifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := DeclareTopology(ch); err != nil {
		return nil, err
	}

	return &Notifier{ch: ch}, nil
}

// DeclareTopology declares the fanout exchange and durable queue shared with the listener.
func DeclareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

type notificationMessage struct {
	DedupKey  string `json:"dedup_key"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func (n *Notifier) Notify(ctx context.Context, note *domain.Notification) error {
	msg := notificationMessage{
		DedupKey:  note.DedupKey,
		Title:     note.Title,
		Body:      note.Body,
		Type:      string(note.Type),
		Timestamp: note.Timestamp,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = n.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   note.DedupKey,
		Timestamp:   time.UnixMilli(note.Timestamp),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
