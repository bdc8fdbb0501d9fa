package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nandanugg/gird/module/core/domain"
)

const (
	keyGeofences = "geofences_json"
	keyHistory   = "history_json"
)

// fenceRecord mirrors the persisted schema. Pointer fields distinguish a missing
// field from a zero value.
type fenceRecord struct {
	ID        *string  `json:"id"`
	Name      *string  `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Radius    *float64 `json:"radius"`
	IsActive  *bool    `json:"isActive"`
	LastState *string  `json:"lastState"`
}

type eventRecord struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
	Type *string `json:"type"`
	Time *int64  `json:"time"`
}

// recordError describes one skipped record during a partial load.
type recordError struct {
	Index int
	Err   error
}

func (e recordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e recordError) Unwrap() error { return e.Err }

func missingField(name string) error {
	return fmt.Errorf("%s: required: %w", name, domain.ErrMalformedRecord)
}

func (r fenceRecord) toGeofence() (domain.Geofence, error) {
	switch {
	case r.ID == nil || *r.ID == "":
		return domain.Geofence{}, missingField("id")
	case r.Latitude == nil:
		return domain.Geofence{}, missingField("latitude")
	case r.Longitude == nil:
		return domain.Geofence{}, missingField("longitude")
	case r.Radius == nil:
		return domain.Geofence{}, missingField("radius")
	}

	g := domain.Geofence{
		ID:        *r.ID,
		Lat:       *r.Latitude,
		Lon:       *r.Longitude,
		Radius:    *r.Radius,
		IsActive:  true,
		LastState: domain.StateUnknown,
	}
	if r.Name != nil {
		g.Name = *r.Name
	}
	if r.IsActive != nil {
		g.IsActive = *r.IsActive
	}
	if r.LastState != nil {
		state, err := domain.ParseGeofenceState(*r.LastState)
		if err != nil {
			return domain.Geofence{}, err
		}
		g.LastState = state
	}
	if err := g.Validate(); err != nil {
		return domain.Geofence{}, errors.Join(domain.ErrMalformedRecord, err)
	}
	return g, nil
}

func (r eventRecord) toEvent() (domain.GeofenceEvent, error) {
	switch {
	case r.ID == nil:
		return domain.GeofenceEvent{}, missingField("id")
	case r.Name == nil:
		return domain.GeofenceEvent{}, missingField("name")
	case r.Type == nil:
		return domain.GeofenceEvent{}, missingField("type")
	case r.Time == nil:
		return domain.GeofenceEvent{}, missingField("time")
	}

	state, err := domain.ParseGeofenceState(*r.Type)
	if err != nil {
		return domain.GeofenceEvent{}, err
	}
	if state == domain.StateUnknown {
		return domain.GeofenceEvent{}, fmt.Errorf("type UNKNOWN: %w", domain.ErrMalformedRecord)
	}

	return domain.GeofenceEvent{
		ID:        *r.ID,
		FenceName: *r.Name,
		Type:      state,
		Timestamp: *r.Time,
	}, nil
}

func decodeFences(raw string) ([]domain.Geofence, []recordError, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w: %w", keyGeofences, domain.ErrMalformedRecord, err)
	}

	fences := make([]domain.Geofence, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	var skipped []recordError
	for i, item := range items {
		var rec fenceRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			skipped = append(skipped, recordError{Index: i, Err: errors.Join(domain.ErrMalformedRecord, err)})
			continue
		}
		g, err := rec.toGeofence()
		if err != nil {
			skipped = append(skipped, recordError{Index: i, Err: err})
			continue
		}
		if _, dup := seen[g.ID]; dup {
			skipped = append(skipped, recordError{Index: i, Err: fmt.Errorf("duplicate id %s: %w", g.ID, domain.ErrMalformedRecord)})
			continue
		}
		seen[g.ID] = struct{}{}
		fences = append(fences, g)
	}
	return fences, skipped, nil
}

func decodeEvents(raw string) ([]domain.GeofenceEvent, []recordError, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w: %w", keyHistory, domain.ErrMalformedRecord, err)
	}

	events := make([]domain.GeofenceEvent, 0, len(items))
	var skipped []recordError
	for i, item := range items {
		var rec eventRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			skipped = append(skipped, recordError{Index: i, Err: errors.Join(domain.ErrMalformedRecord, err)})
			continue
		}
		e, err := rec.toEvent()
		if err != nil {
			skipped = append(skipped, recordError{Index: i, Err: err})
			continue
		}
		events = append(events, e)
	}
	return events, skipped, nil
}

func encodeFences(fences []domain.Geofence) (string, error) {
	recs := make([]fenceRecord, len(fences))
	for i := range fences {
		g := &fences[i]
		state := string(g.LastState)
		recs[i] = fenceRecord{
			ID:        &g.ID,
			Name:      &g.Name,
			Latitude:  &g.Lat,
			Longitude: &g.Lon,
			Radius:    &g.Radius,
			IsActive:  &g.IsActive,
			LastState: &state,
		}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", keyGeofences, err)
	}
	return string(b), nil
}

func encodeEvents(events []domain.GeofenceEvent) (string, error) {
	b, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", keyHistory, err)
	}
	return string(b), nil
}
