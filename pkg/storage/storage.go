package storage

import "context"

// Store is the device-local key/value surface both client stores persist to.
// Get reports ok=false with a nil error when the key has never been written.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by backends holding connections.
type Closer interface {
	Close() error
}
