// Package storage holds the key-value backends behind port.KeyValueStore and the errors they share.
package storage

import "errors"

// Errors returned by every backend.
var (
	// ErrQuotaExceeded indicates a write would exceed the store's capacity.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")

	// ErrUnavailable indicates the store is disabled or cannot be reached.
	ErrUnavailable = errors.New("storage: unavailable")

	// ErrInvalidKey indicates an empty or malformed key.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// EntrySize is the number of bytes a key and its value count against a store's capacity.
func EntrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
