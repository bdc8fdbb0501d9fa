package subscriber

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nandanugg/gird/module/core/domain"
)

type mockSink struct {
	submitFn func(ctx context.Context, fix domain.Fix) error
}

func (m *mockSink) Submit(ctx context.Context, fix domain.Fix) error {
	return m.submitFn(ctx, fix)
}

type fakeMQTTMessage struct {
	payload []byte
}

func (f *fakeMQTTMessage) Duplicate() bool   { return false }
func (f *fakeMQTTMessage) Qos() byte         { return 0 }
func (f *fakeMQTTMessage) Retained() bool    { return false }
func (f *fakeMQTTMessage) Topic() string     { return "/gird/device/phone-1/fix" }
func (f *fakeMQTTMessage) MessageID() uint16 { return 0 }
func (f *fakeMQTTMessage) Payload() []byte   { return f.payload }
func (f *fakeMQTTMessage) Ack()              {}

func newTestSubscriber(sink fixSink, deviceID string) (*FixSubscriber, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &FixSubscriber{deviceID: deviceID, sink: sink, logger: zap.New(core)}, logs
}

func payloadOf(t *testing.T, msg fixMessage) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleMessage_Success(t *testing.T) {
	var got *domain.Fix
	sink := &mockSink{
		submitFn: func(_ context.Context, fix domain.Fix) error {
			got = &fix
			return nil
		},
	}
	sub, _ := newTestSubscriber(sink, "phone-1")

	acc := 12.5
	sub.handleMessage(nil, &fakeMQTTMessage{payload: payloadOf(t, fixMessage{
		DeviceID:  "phone-1",
		Latitude:  40.7128,
		Longitude: -74.006,
		Timestamp: 1715003456789,
		Accuracy:  &acc,
	})})

	if got == nil {
		t.Fatal("expected Submit to be called")
	}
	if got.Lat != 40.7128 || got.Lon != -74.006 {
		t.Errorf("unexpected position %f,%f", got.Lat, got.Lon)
	}
	if want := time.UnixMilli(1715003456789); !got.Timestamp.Equal(want) {
		t.Errorf("expected %v, got %v", want, got.Timestamp)
	}
	if got.Accuracy == nil || *got.Accuracy != 12.5 {
		t.Errorf("expected accuracy 12.5, got %v", got.Accuracy)
	}
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	sink := &mockSink{
		submitFn: func(_ context.Context, _ domain.Fix) error {
			t.Fatal("Submit should not be called")
			return nil
		},
	}
	sub, logs := newTestSubscriber(sink, "")
	sub.handleMessage(nil, &fakeMQTTMessage{payload: []byte("invalid")})

	if logs.FilterMessage("invalid fix message").Len() != 1 {
		t.Error("expected invalid message to be logged")
	}
}

func TestHandleMessage_OtherDeviceIgnored(t *testing.T) {
	sink := &mockSink{
		submitFn: func(_ context.Context, _ domain.Fix) error {
			t.Fatal("Submit should not be called")
			return nil
		},
	}
	sub, _ := newTestSubscriber(sink, "phone-1")
	sub.handleMessage(nil, &fakeMQTTMessage{payload: payloadOf(t, fixMessage{
		DeviceID: "phone-2", Latitude: 1, Longitude: 1, Timestamp: 1,
	})})
}

func TestHandleMessage_AnyDeviceWhenUnset(t *testing.T) {
	calls := 0
	sink := &mockSink{
		submitFn: func(_ context.Context, _ domain.Fix) error {
			calls++
			return nil
		},
	}
	sub, _ := newTestSubscriber(sink, "")
	sub.handleMessage(nil, &fakeMQTTMessage{payload: payloadOf(t, fixMessage{
		DeviceID: "phone-2", Latitude: 1, Longitude: 1, Timestamp: 1,
	})})

	if calls != 1 {
		t.Errorf("expected 1 submit, got %d", calls)
	}
}

func TestHandleMessage_MonitorStopped(t *testing.T) {
	sink := &mockSink{
		submitFn: func(_ context.Context, _ domain.Fix) error {
			return domain.ErrMonitorStopped
		},
	}
	sub, logs := newTestSubscriber(sink, "")
	sub.handleMessage(nil, &fakeMQTTMessage{payload: payloadOf(t, fixMessage{
		DeviceID: "phone-1", Latitude: 1, Longitude: 1, Timestamp: 1,
	})})

	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 0 {
		t.Error("a stopped monitor is not an error")
	}
	if logs.FilterMessage("fix discarded, monitor stopped").Len() != 1 {
		t.Error("expected discard to be logged")
	}
}

func TestValidateFixMessage(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name    string
		msg     fixMessage
		wantErr bool
	}{
		{"valid", fixMessage{DeviceID: "X", Latitude: 0, Longitude: 0, Timestamp: 1}, false},
		{"empty device_id", fixMessage{Latitude: 0, Longitude: 0, Timestamp: 1}, true},
		{"lat too low", fixMessage{DeviceID: "X", Latitude: -91, Longitude: 0, Timestamp: 1}, true},
		{"lat too high", fixMessage{DeviceID: "X", Latitude: 91, Longitude: 0, Timestamp: 1}, true},
		{"lon too low", fixMessage{DeviceID: "X", Latitude: 0, Longitude: -181, Timestamp: 1}, true},
		{"lon too high", fixMessage{DeviceID: "X", Latitude: 0, Longitude: 181, Timestamp: 1}, true},
		{"zero timestamp", fixMessage{DeviceID: "X", Latitude: 0, Longitude: 0, Timestamp: 0}, true},
		{"negative accuracy", fixMessage{DeviceID: "X", Latitude: 0, Longitude: 0, Timestamp: 1, Accuracy: &neg}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFixMessage(&tt.msg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFixMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
