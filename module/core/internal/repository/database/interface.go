package database

import "context"

// KeyValueStore is the durable backing for fences, history and settings.
// Get reports ok=false when the key has never been written.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
}
