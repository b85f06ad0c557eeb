// Package memory is an in-process key-value store with a byte capacity, modelled on browser localStorage.
package memory

import (
	"context"
	"sort"
	"sync"

	"invoicestore/internal/storage"
)

// Store keeps entries in a map. A zero capacity means unlimited.
type Store struct {
	mu       sync.RWMutex
	data     map[string]string
	used     int64
	capacity int64
	disabled bool
}

// New creates an empty store limited to capacity bytes of keys plus values.
func New(capacity int64) *Store {
	return &Store{
		data:     make(map[string]string),
		capacity: capacity,
	}
}

// SetDisabled simulates a store blocked by browser policy. While disabled every call fails with ErrUnavailable.
func (s *Store) SetDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = disabled
}

// Used returns the bytes currently stored.
func (s *Store) Used() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.disabled {
		return "", false, storage.ErrUnavailable
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return storage.ErrUnavailable
	}

	next := s.used + storage.EntrySize(key, value)
	if old, ok := s.data[key]; ok {
		next -= storage.EntrySize(key, old)
	}
	if s.capacity > 0 && next > s.capacity {
		return storage.ErrQuotaExceeded
	}

	s.data[key] = value
	s.used = next
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return storage.ErrUnavailable
	}
	if old, ok := s.data[key]; ok {
		s.used -= storage.EntrySize(key, old)
		delete(s.data, key)
	}
	return nil
}

func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.disabled {
		return nil, storage.ErrUnavailable
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Available(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disabled
}
