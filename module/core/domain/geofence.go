package domain

import (
	"fmt"
	"math"
)

type GeofenceState string

const (
	StateInside  GeofenceState = "INSIDE"
	StateOutside GeofenceState = "OUTSIDE"
	StateUnknown GeofenceState = "UNKNOWN"
)

func ParseGeofenceState(s string) (GeofenceState, error) {
	switch GeofenceState(s) {
	case StateInside, StateOutside, StateUnknown:
		return GeofenceState(s), nil
	}
	return "", fmt.Errorf("geofence state %q: %w", s, ErrMalformedRecord)
}

// Geofence is a circular boundary. Radius is in meters; any positive value is accepted.
type Geofence struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Lat       float64       `json:"latitude"`
	Lon       float64       `json:"longitude"`
	Radius    float64       `json:"radius"`
	IsActive  bool          `json:"isActive"`
	LastState GeofenceState `json:"lastState"`
}

func (g Geofence) Validate() error {
	// written as positive ranges so NaN fails every check
	if !(g.Radius > 0) || math.IsInf(g.Radius, 1) {
		return fmt.Errorf("radius: must be positive and finite: %w", ErrInvalidFence)
	}
	if !(g.Lat >= -90 && g.Lat <= 90) {
		return fmt.Errorf("latitude: must be between -90 and 90: %w", ErrInvalidFence)
	}
	if !(g.Lon >= -180 && g.Lon <= 180) {
		return fmt.Errorf("longitude: must be between -180 and 180: %w", ErrInvalidFence)
	}
	return nil
}

// GeofenceEvent is an immutable history entry. FenceName is captured by value so
// the entry survives renames and deletion of the fence.
type GeofenceEvent struct {
	ID        string        `json:"id"`
	FenceName string        `json:"name"`
	Type      GeofenceState `json:"type"`
	Timestamp int64         `json:"time"`
}

// Notification is handed to the notifier once per committed transition.
type Notification struct {
	DedupKey  string        `json:"dedup_key"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	Type      GeofenceState `json:"type"`
	Timestamp int64         `json:"timestamp"`
}
