package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
	"github.com/nandanugg/gird/module/core/internal/repository/provider"
)

var _ provider.PositionProvider = (*Provider)(nil)

const (
	actionRequest = "request"
	actionRemove  = "remove"

	// bounds the background wait for the broker's ack, not the caller
	defaultPublishTimeout = 5 * time.Second
)

// Provider forwards subscription requests to the device's positioning agent over
// MQTT. The agent answers by publishing fixes on the fix topic. Requests are fire
// and forget: a broker ack that arrives later is only logged.
type Provider struct {
	client   pahomqtt.Client
	topic    string
	deviceID string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewProvider(client pahomqtt.Client, topic, deviceID string, logger *zap.Logger) *Provider {
	return &Provider{
		client:   client,
		topic:    topic,
		deviceID: deviceID,
		timeout:  defaultPublishTimeout,
		logger:   logger,
	}
}

type requestMessage struct {
	Action         string  `json:"action"`
	DeviceID       string  `json:"device_id"`
	SubscriptionID string  `json:"subscription_id"`
	Tier           string  `json:"tier,omitempty"`
	MinIntervalMs  int64   `json:"min_interval_ms,omitempty"`
	MinDistanceM   float64 `json:"min_distance_m,omitempty"`
}

func (p *Provider) RequestUpdates(ctx context.Context, sub domain.Subscription) error {
	return p.publish(ctx, requestMessage{
		Action:         actionRequest,
		DeviceID:       p.deviceID,
		SubscriptionID: sub.ID,
		Tier:           string(sub.Tier),
		MinIntervalMs:  sub.MinInterval.Milliseconds(),
		MinDistanceM:   sub.MinDistance,
	})
}

func (p *Provider) RemoveUpdates(ctx context.Context, subscriptionID string) error {
	return p.publish(ctx, requestMessage{
		Action:         actionRemove,
		DeviceID:       p.deviceID,
		SubscriptionID: subscriptionID,
	})
}

func (p *Provider) publish(ctx context.Context, msg requestMessage) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("%s %s: not connected: %w", msg.Action, msg.SubscriptionID, domain.ErrProvider)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Action, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("%s %s: %w: %w", msg.Action, msg.SubscriptionID, domain.ErrProvider, err)
		}
		return nil
	default:
	}

	go p.awaitAck(token, msg)
	return nil
}

func (p *Provider) awaitAck(token pahomqtt.Token, msg requestMessage) {
	fields := []zap.Field{zap.String("action", msg.Action), zap.String("subscription_id", msg.SubscriptionID)}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			p.logger.Error("provider request failed", append(fields, zap.String("category", "provider"), zap.Error(err))...)
		}
	case <-timer.C:
		p.logger.Warn("provider request not acknowledged", append(fields, zap.Duration("timeout", p.timeout))...)
	}
}
