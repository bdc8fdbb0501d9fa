package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
	"github.com/nandanugg/gird/module/core/internal/repository/database/memory"
)

type mockNotifier struct {
	mu       sync.Mutex
	notifyFn func(ctx context.Context, n *domain.Notification) error
	calls    []*domain.Notification
}

func (m *mockNotifier) Notify(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	m.calls = append(m.calls, n)
	m.mu.Unlock()
	if m.notifyFn != nil {
		return m.notifyFn(ctx, n)
	}
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type providerCall struct {
	action string
	sub    domain.Subscription
	id     string
}

type mockProvider struct {
	mu        sync.Mutex
	requestFn func(ctx context.Context, sub domain.Subscription) error
	removeFn  func(ctx context.Context, id string) error
	calls     []providerCall
}

func (m *mockProvider) RequestUpdates(ctx context.Context, sub domain.Subscription) error {
	m.mu.Lock()
	m.calls = append(m.calls, providerCall{action: "request", sub: sub})
	m.mu.Unlock()
	if m.requestFn != nil {
		return m.requestFn(ctx, sub)
	}
	return nil
}

func (m *mockProvider) RemoveUpdates(ctx context.Context, id string) error {
	m.mu.Lock()
	m.calls = append(m.calls, providerCall{action: "remove", id: id})
	m.mu.Unlock()
	if m.removeFn != nil {
		return m.removeFn(ctx, id)
	}
	return nil
}

func (m *mockProvider) snapshot() []providerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]providerCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// mockKV wraps the in-memory backend with injectable failures.
type mockKV struct {
	*memory.KVStore
	getErr error
	setErr error
	sets   atomic.Int32
}

func newMockKV() *mockKV {
	return &mockKV{KVStore: memory.NewKVStore()}
}

func (m *mockKV) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	return m.KVStore.Get(ctx, key)
}

func (m *mockKV) Set(ctx context.Context, key, value string) error {
	m.sets.Add(1)
	if m.setErr != nil {
		return m.setErr
	}
	return m.KVStore.Set(ctx, key, value)
}

var errDisk = errors.New("disk full")

const metersPerDegreeLat = earthRadiusMeters * math.Pi / 180

// north returns a fix the given number of meters due north of (lat, lon).
func north(lat, lon, meters float64) domain.Fix {
	return domain.Fix{Lat: lat + meters/metersPerDegreeLat, Lon: lon}
}

func newTestStore(kv *mockKV) *GeofenceStore {
	return NewGeofenceStore(kv, zap.NewNop())
}
