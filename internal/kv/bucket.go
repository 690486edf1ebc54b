// Package kv provides key-value buckets persisted in SQLite.
package kv

import "time"

// StoreOptions contains optional parameters for Store operations.
type StoreOptions struct {
	TTL time.Duration // Time-to-live; zero means no expiry
}

// Bucket is the interface for key-value storage operations.
type Bucket interface {
	// Name returns the bucket name.
	Name() string

	// Store saves a JSON-encodable value with the given key.
	Store(key string, value any, opts *StoreOptions) error

	// Load decodes the value stored under key into dst.
	// Returns false if the key doesn't exist or has expired.
	Load(key string, dst any) (bool, error)

	// Delete removes a key from the bucket.
	// Returns true if the key existed.
	Delete(key string) (bool, error)

	// Keys returns all non-expired keys in the bucket.
	Keys() ([]string, error)
}
