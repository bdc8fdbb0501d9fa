package domain

import "time"

// Fix is a single position sample delivered by the positioning provider.
type Fix struct {
	Lat       float64   `json:"latitude"`
	Lon       float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
}

type MapState struct {
	Lat  float64 `json:"latitude"`
	Lon  float64 `json:"longitude"`
	Zoom float64 `json:"zoom"`
}

var DefaultMapState = MapState{Lat: 40.7128, Lon: -74.0060, Zoom: 12}
