package service

import (
	"sync"

	"github.com/nandanugg/gird/module/core/domain"
)

const EventLogCapacity = 100

// EventLog is a bounded, most-recent-first history of transitions.
type EventLog struct {
	mu       sync.RWMutex
	events   []domain.GeofenceEvent
	capacity int
}

func NewEventLog() *EventLog {
	return &EventLog{capacity: EventLogCapacity}
}

// Add inserts e at the front, evicting the oldest entry once at capacity.
func (l *EventLog) Add(e domain.GeofenceEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) >= l.capacity {
		l.events = l.events[:l.capacity-1]
	}
	l.events = append(l.events, domain.GeofenceEvent{})
	copy(l.events[1:], l.events)
	l.events[0] = e
}

func (l *EventLog) Snapshot() []domain.GeofenceEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.GeofenceEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// replace installs a loaded history, already ordered most-recent-first.
func (l *EventLog) replace(events []domain.GeofenceEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(events) > l.capacity {
		events = events[:l.capacity]
	}
	l.events = make([]domain.GeofenceEvent, len(events))
	copy(l.events, events)
}
