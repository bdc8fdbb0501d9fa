package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/gird/module/core/domain"
)

type mockChannel struct {
	publishFn func(ctx context.Context, exchange, key string, msg amqp.Publishing) error
	published []amqp.Publishing
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	m.published = append(m.published, msg)
	if m.publishFn != nil {
		return m.publishFn(ctx, exchange, key, msg)
	}
	return nil
}

func TestNotify_Success(t *testing.T) {
	ch := &mockChannel{
		publishFn: func(_ context.Context, exchange, _ string, _ amqp.Publishing) error {
			if exchange != ExchangeName {
				t.Errorf("expected exchange %s, got %s", ExchangeName, exchange)
			}
			return nil
		},
	}
	n := &Notifier{ch: ch}

	err := n.Notify(context.Background(), &domain.Notification{
		DedupKey:  "fence-1",
		Title:     "Entered Home",
		Body:      "You have arrived at your monitored area.",
		Type:      domain.StateInside,
		Timestamp: 1715003456000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(ch.published))
	}

	pub := ch.published[0]
	if pub.MessageId != "fence-1" {
		t.Errorf("expected message id fence-1, got %s", pub.MessageId)
	}

	var msg notificationMessage
	if err := json.Unmarshal(pub.Body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Title != "Entered Home" {
		t.Errorf("expected title Entered Home, got %s", msg.Title)
	}
	if msg.Type != "INSIDE" {
		t.Errorf("expected INSIDE, got %s", msg.Type)
	}
}

func TestNotify_PublishError(t *testing.T) {
	ch := &mockChannel{
		publishFn: func(_ context.Context, _, _ string, _ amqp.Publishing) error {
			return errors.New("channel closed")
		},
	}
	n := &Notifier{ch: ch}

	err := n.Notify(context.Background(), &domain.Notification{DedupKey: "x", Type: domain.StateOutside})
	if err == nil {
		t.Fatal("expected error")
	}
}
