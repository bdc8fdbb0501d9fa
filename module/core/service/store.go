package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
	"github.com/nandanugg/gird/module/core/internal/repository/database"
)

// LoadReport summarises what Load recovered from the key-value store.
type LoadReport struct {
	Fences  int
	Events  int
	Skipped int
	// Fresh is set when no fence collection has ever been written.
	Fresh bool
}

// GeofenceStore owns the canonical fence set and event history. Reads return
// copies; every mutation that goes through an exported method is persisted
// before returning.
type GeofenceStore struct {
	kv     database.KeyValueStore
	logger *zap.Logger

	mu      sync.RWMutex
	fences  []domain.Geofence
	history *EventLog

	// serialises writes so the last write always carries the newest snapshot
	saveMu sync.Mutex

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}

	newID func() string
}

func NewGeofenceStore(kv database.KeyValueStore, logger *zap.Logger) *GeofenceStore {
	return &GeofenceStore{
		kv:      kv,
		logger:  logger,
		history: NewEventLog(),
		subs:    make(map[chan struct{}]struct{}),
		newID:   uuid.NewString,
	}
}

// Load replaces in-memory state with the persisted collections. Malformed records
// are skipped and logged individually. A read failure leaves the store empty and
// is returned wrapped in domain.ErrPersistence.
func (s *GeofenceStore) Load(ctx context.Context) (LoadReport, error) {
	var report LoadReport
	var errs []error

	fences, skipped, found, err := s.loadFences(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	report.Fences = len(fences)
	report.Fresh = !found && err == nil
	report.Skipped += skipped

	events, skipped, err := s.loadEvents(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	report.Skipped += skipped

	s.mu.Lock()
	s.fences = fences
	s.history.replace(events)
	s.mu.Unlock()
	report.Events = s.history.Len()

	s.broadcast()
	return report, errors.Join(errs...)
}

func (s *GeofenceStore) loadFences(ctx context.Context) ([]domain.Geofence, int, bool, error) {
	raw, ok, err := s.kv.Get(ctx, keyGeofences)
	if err != nil {
		return nil, 0, false, fmt.Errorf("read %s: %w: %w", keyGeofences, domain.ErrPersistence, err)
	}
	if !ok {
		return nil, 0, false, nil
	}

	fences, skipped, err := decodeFences(raw)
	if err != nil {
		return nil, 0, true, err
	}
	for _, rerr := range skipped {
		s.logger.Error("skipping malformed geofence record", zap.Int("index", rerr.Index), zap.Error(rerr.Err))
	}
	return fences, len(skipped), true, nil
}

func (s *GeofenceStore) loadEvents(ctx context.Context) ([]domain.GeofenceEvent, int, error) {
	raw, ok, err := s.kv.Get(ctx, keyHistory)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w: %w", keyHistory, domain.ErrPersistence, err)
	}
	if !ok {
		return nil, 0, nil
	}

	events, skipped, err := decodeEvents(raw)
	if err != nil {
		return nil, 0, err
	}
	for _, rerr := range skipped {
		s.logger.Error("skipping malformed history record", zap.Int("index", rerr.Index), zap.Error(rerr.Err))
	}
	return events, len(skipped), nil
}

// Save writes both collections. In-memory state stays authoritative when the
// write fails.
func (s *GeofenceStore) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	fences := s.snapshotLocked()
	events := s.history.Snapshot()
	s.mu.RUnlock()

	fenceJSON, err := encodeFences(fences)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	historyJSON, err := encodeEvents(events)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	if err := s.kv.Set(ctx, keyGeofences, fenceJSON); err != nil {
		return fmt.Errorf("write %s: %w: %w", keyGeofences, domain.ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, keyHistory, historyJSON); err != nil {
		return fmt.Errorf("write %s: %w: %w", keyHistory, domain.ErrPersistence, err)
	}
	return nil
}

func (s *GeofenceStore) snapshotLocked() []domain.Geofence {
	out := make([]domain.Geofence, len(s.fences))
	copy(out, s.fences)
	return out
}

// Fences returns a copy of all fences in insertion order.
func (s *GeofenceStore) Fences() []domain.Geofence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *GeofenceStore) ActiveFences() []domain.Geofence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Geofence
	for _, g := range s.fences {
		if g.IsActive {
			out = append(out, g)
		}
	}
	return out
}

func (s *GeofenceStore) Fence(id string) (domain.Geofence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.fences[i], true
	}
	return domain.Geofence{}, false
}

func (s *GeofenceStore) History() []domain.GeofenceEvent {
	return s.history.Snapshot()
}

func (s *GeofenceStore) indexLocked(id string) int {
	for i := range s.fences {
		if s.fences[i].ID == id {
			return i
		}
	}
	return -1
}

// Add inserts g with defaults applied: a generated id, a generated name when blank,
// and UNKNOWN state. The returned fence is kept in memory even when the
// persistence error is non-nil.
func (s *GeofenceStore) Add(ctx context.Context, g domain.Geofence) (domain.Geofence, error) {
	if err := g.Validate(); err != nil {
		return domain.Geofence{}, err
	}
	if g.ID == "" {
		g.ID = s.newID()
	}
	if strings.TrimSpace(g.Name) == "" {
		g.Name = "Fence " + s.newID()[:4]
	}
	g.LastState = domain.StateUnknown

	s.mu.Lock()
	if s.indexLocked(g.ID) >= 0 {
		s.mu.Unlock()
		return domain.Geofence{}, fmt.Errorf("duplicate id %s: %w", g.ID, domain.ErrInvalidFence)
	}
	s.fences = append(s.fences, g)
	s.mu.Unlock()

	return g, s.commit(ctx)
}

// Update replaces the editable attributes of an existing fence. Identity, position
// in the set and last observed state are preserved.
func (s *GeofenceStore) Update(ctx context.Context, g domain.Geofence) (domain.Geofence, error) {
	if err := g.Validate(); err != nil {
		return domain.Geofence{}, err
	}

	s.mu.Lock()
	i := s.indexLocked(g.ID)
	if i < 0 {
		s.mu.Unlock()
		return domain.Geofence{}, fmt.Errorf("%s: %w", g.ID, domain.ErrFenceNotFound)
	}
	cur := s.fences[i]
	if strings.TrimSpace(g.Name) == "" {
		g.Name = cur.Name
	}
	g.LastState = cur.LastState
	s.fences[i] = g
	s.mu.Unlock()

	return g, s.commit(ctx)
}

func (s *GeofenceStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", id, domain.ErrFenceNotFound)
	}
	s.fences = append(s.fences[:i:i], s.fences[i+1:]...)
	s.mu.Unlock()

	return s.commit(ctx)
}

// UpdateState sets the observed state of a fence and persists, but only when it
// differs from the current one. UNKNOWN is rejected since a fence never returns
// to it.
func (s *GeofenceStore) UpdateState(ctx context.Context, id string, state domain.GeofenceState) (bool, error) {
	if state != domain.StateInside && state != domain.StateOutside {
		return false, fmt.Errorf("state %q: %w", state, domain.ErrInvalidFence)
	}
	if !s.setState(id, state) {
		return false, nil
	}
	return true, s.commit(ctx)
}

// setState mutates memory only. The transition engine batches the write for a fix.
func (s *GeofenceStore) setState(id string, state domain.GeofenceState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 || s.fences[i].LastState == state {
		return false
	}
	s.fences[i].LastState = state
	return true
}

func (s *GeofenceStore) appendEvent(e domain.GeofenceEvent) {
	s.history.Add(e)
}

func (s *GeofenceStore) ClearHistory(ctx context.Context) error {
	s.history.Clear()
	return s.commit(ctx)
}

// Reset removes every fence and all history.
func (s *GeofenceStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.fences = nil
	s.mu.Unlock()
	s.history.Clear()
	return s.commit(ctx)
}

func (s *GeofenceStore) commit(ctx context.Context) error {
	s.broadcast()
	return s.Save(ctx)
}

// Subscribe returns a channel signalled after every mutation. Signals coalesce:
// a slow reader sees at least one pending signal, never a backlog.
func (s *GeofenceStore) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}
}

func (s *GeofenceStore) broadcast() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
