package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandanugg/gird/module/core/domain"
)

func testEvent(i int) domain.GeofenceEvent {
	return domain.GeofenceEvent{
		ID:        fmt.Sprintf("evt-%d", i),
		FenceName: "Home",
		Type:      domain.StateInside,
		Timestamp: int64(i),
	}
}

func TestEventLog_MostRecentFirst(t *testing.T) {
	l := NewEventLog()
	l.Add(testEvent(1))
	l.Add(testEvent(2))
	l.Add(testEvent(3))

	got := l.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, "evt-3", got[0].ID)
	assert.Equal(t, "evt-2", got[1].ID)
	assert.Equal(t, "evt-1", got[2].ID)
}

func TestEventLog_EvictsOldest(t *testing.T) {
	l := NewEventLog()
	for i := 1; i <= EventLogCapacity+1; i++ {
		l.Add(testEvent(i))
		require.LessOrEqual(t, l.Len(), EventLogCapacity)
	}

	got := l.Snapshot()
	require.Len(t, got, EventLogCapacity)
	assert.Equal(t, "evt-101", got[0].ID)
	assert.Equal(t, "evt-2", got[len(got)-1].ID)
	for _, e := range got {
		assert.NotEqual(t, "evt-1", e.ID)
	}
}

func TestEventLog_SnapshotIsCopy(t *testing.T) {
	l := NewEventLog()
	l.Add(testEvent(1))

	snap := l.Snapshot()
	snap[0].FenceName = "changed"

	assert.Equal(t, "Home", l.Snapshot()[0].FenceName)
}

func TestEventLog_ReplaceTruncates(t *testing.T) {
	events := make([]domain.GeofenceEvent, 0, 150)
	for i := 150; i > 0; i-- {
		events = append(events, testEvent(i))
	}

	l := NewEventLog()
	l.replace(events)

	got := l.Snapshot()
	require.Len(t, got, EventLogCapacity)
	assert.Equal(t, "evt-150", got[0].ID)
	assert.Equal(t, "evt-51", got[EventLogCapacity-1].ID)
}

func TestEventLog_Clear(t *testing.T) {
	l := NewEventLog()
	l.Add(testEvent(1))
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Snapshot())
}
