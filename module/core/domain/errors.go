package domain

import "errors"

var (
	ErrProvider           = errors.New("positioning provider")
	ErrPersistence        = errors.New("persistence")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrNotifier           = errors.New("notifier")
	ErrMonitorStopped     = errors.New("monitor stopped")
	ErrFenceNotFound      = errors.New("geofence not found")
	ErrInvalidFence       = errors.New("invalid geofence")
	ErrUnknownPollingMode = errors.New("unknown polling mode")
)
