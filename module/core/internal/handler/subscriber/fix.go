package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
)

// submitTimeout bounds how long a message callback waits for a busy monitor.
const submitTimeout = 30 * time.Second

type fixSink interface {
	Submit(ctx context.Context, fix domain.Fix) error
}

type fixMessage struct {
	DeviceID  string   `json:"device_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Timestamp int64    `json:"timestamp"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// FixSubscriber feeds position fixes published on MQTT into the monitor. paho
// delivers messages in order on one goroutine, so fixes reach the monitor in
// publish order.
type FixSubscriber struct {
	client   mqtt.Client
	topic    string
	deviceID string
	sink     fixSink
	logger   *zap.Logger
}

// NewFixSubscriber listens on topic. A non-empty deviceID drops fixes from other
// devices.
func NewFixSubscriber(client mqtt.Client, topic, deviceID string, sink fixSink, logger *zap.Logger) *FixSubscriber {
	return &FixSubscriber{
		client:   client,
		topic:    topic,
		deviceID: deviceID,
		sink:     sink,
		logger:   logger,
	}
}

func (s *FixSubscriber) Start() error {
	token := s.client.Subscribe(s.topic, 1, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	s.logger.Info("fix subscriber started", zap.String("topic", s.topic))
	return nil
}

func (s *FixSubscriber) Stop() error {
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	return token.Error()
}

func (s *FixSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw fixMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.logger.Warn("invalid fix message", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	if err := validateFixMessage(&raw); err != nil {
		s.logger.Warn("fix validation error", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	if s.deviceID != "" && raw.DeviceID != s.deviceID {
		s.logger.Debug("fix from other device ignored", zap.String("device_id", raw.DeviceID))
		return
	}

	fix := domain.Fix{
		Lat:       raw.Latitude,
		Lon:       raw.Longitude,
		Timestamp: time.UnixMilli(raw.Timestamp),
		Accuracy:  raw.Accuracy,
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	err := s.sink.Submit(ctx, fix)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMonitorStopped):
		s.logger.Debug("fix discarded, monitor stopped")
	default:
		s.logger.Error("submit fix", zap.Error(err))
	}
}

func validateFixMessage(msg *fixMessage) error {
	if msg.DeviceID == "" {
		return fmt.Errorf("device_id: required")
	}
	if msg.Latitude < -90 || msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	if msg.Accuracy != nil && *msg.Accuracy < 0 {
		return fmt.Errorf("accuracy: must not be negative")
	}
	return nil
}
