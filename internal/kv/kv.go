// Package kv provides the persistent key-value storage that reminders live in.
// Values are stored as JSON documents under string keys.
package kv

import "context"

// Store reads and writes JSON values by key.
type Store interface {
	// Get decodes the value stored under key into dst. It reports false when the key is absent.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set encodes value and stores it under key, replacing any previous value.
	Set(ctx context.Context, key string, value any) error
}
