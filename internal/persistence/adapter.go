// Package persistence is the only code that talks to the raw key-value store.
// It handles JSON encoding, date revival, corruption detection and quota recovery.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"invoicestore/internal/domain"
	"invoicestore/internal/port"
	"invoicestore/internal/storage"
)

// DefaultEvictionAge is how old a timestamped payload must be before quota recovery may remove it.
const DefaultEvictionAge = 30 * 24 * time.Hour

// evictablePrefixes mark keys holding temporary or cached data.
var evictablePrefixes = []string{"temp_", "tmp_", "cache_"}

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)

// Adapter wraps a port.KeyValueStore.
type Adapter struct {
	store       port.KeyValueStore
	logger      zerolog.Logger
	now         func() time.Time
	evictionAge time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock overrides the clock used to age entries during eviction.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithEvictionAge overrides DefaultEvictionAge.
func WithEvictionAge(age time.Duration) Option {
	return func(a *Adapter) { a.evictionAge = age }
}

// New creates an Adapter over store.
func New(store port.KeyValueStore, logger zerolog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		store:       store,
		logger:      logger.With().Str("component", "persistence").Logger(),
		now:         time.Now,
		evictionAge: DefaultEvictionAge,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Read decodes the value under key into dest. When the key is absent or the store is
// unavailable dest is left untouched and found is false. Text that fails to parse
// yields a *domain.DataCorruptionError.
func (a *Adapter) Read(ctx context.Context, key string, dest any) (bool, error) {
	text, found, err := a.ReadRaw(ctx, key)
	if err != nil || !found {
		return false, err
	}

	if err := json.Unmarshal([]byte(text), dest); err != nil {
		a.logger.Error().Err(err).Str("key", key).Msg("stored data failed to parse")
		return false, &domain.DataCorruptionError{Key: key, Err: err}
	}
	if p, ok := dest.(*any); ok {
		*p = ReviveDates(*p)
	}
	return true, nil
}

// ReadRaw returns the stored text under key without decoding it.
func (a *Adapter) ReadRaw(ctx context.Context, key string) (string, bool, error) {
	if !a.store.Available(ctx) {
		a.logger.Warn().Str("key", key).Msg("store unavailable, using default")
		return "", false, nil
	}
	text, found, err := a.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			a.logger.Warn().Err(err).Str("key", key).Msg("store unavailable, using default")
			return "", false, nil
		}
		return "", false, fmt.Errorf("persistence.Read %q: %w", key, err)
	}
	return text, found, nil
}

// Write encodes value as JSON and stores it under key. When the store is full it
// evicts old and temporary entries and retries once before returning a
// *domain.StorageQuotaError.
func (a *Adapter) Write(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("persistence.Write %q: encoding: %w", key, err)
	}
	text := string(data)

	if !a.store.Available(ctx) {
		return domain.ErrStorageUnavailable
	}

	err = a.store.Set(ctx, key, text)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		return a.mapWriteError(key, err)
	}

	evicted, evictErr := a.evict(ctx, key)
	if evictErr != nil {
		a.logger.Warn().Err(evictErr).Msg("eviction incomplete")
	}
	a.logger.Warn().Str("key", key).Int("size", len(text)).Int("evicted", evicted).
		Msg("storage quota exceeded, retrying after cleanup")

	err = a.store.Set(ctx, key, text)
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrQuotaExceeded) {
		a.logger.Error().Str("key", key).Int("size", len(text)).Msg("storage full after cleanup")
		return &domain.StorageQuotaError{Key: key, Size: len(text), Err: err}
	}
	return a.mapWriteError(key, err)
}

func (a *Adapter) mapWriteError(key string, err error) error {
	if errors.Is(err, storage.ErrUnavailable) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("persistence.Write %q: %w", key, err)
}

// Remove deletes key. Removing an absent key is not an error.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if !a.store.Available(ctx) {
		return domain.ErrStorageUnavailable
	}
	if err := a.store.Remove(ctx, key); err != nil {
		return a.mapWriteError(key, err)
	}
	return nil
}

// IsAvailable reports whether the underlying store can be used.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	return a.store.Available(ctx)
}

// SizeEstimate sums the byte length of every key and value currently stored.
func (a *Adapter) SizeEstimate(ctx context.Context) (int64, error) {
	if !a.store.Available(ctx) {
		return 0, nil
	}
	keys, err := a.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("persistence.SizeEstimate: %w", err)
	}
	var total int64
	for _, k := range keys {
		v, found, err := a.store.Get(ctx, k)
		if err != nil {
			return 0, fmt.Errorf("persistence.SizeEstimate %q: %w", k, err)
		}
		if found {
			total += storage.EntrySize(k, v)
		}
	}
	return total, nil
}

// evict removes temporary entries and timestamped payloads older than the eviction age.
// The key being written is never removed.
func (a *Adapter) evict(ctx context.Context, keep string) (int, error) {
	keys, err := a.store.Keys(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := a.now().Add(-a.evictionAge)

	evicted := 0
	for _, k := range keys {
		if k == keep {
			continue
		}
		stale := hasEvictablePrefix(k)
		if !stale {
			v, found, err := a.store.Get(ctx, k)
			if err != nil || !found {
				continue
			}
			stale = olderThan(v, cutoff)
		}
		if !stale {
			continue
		}
		if err := a.store.Remove(ctx, k); err != nil {
			return evicted, fmt.Errorf("evicting %q: %w", k, err)
		}
		a.logger.Info().Str("key", k).Msg("evicted entry")
		evicted++
	}
	return evicted, nil
}

func hasEvictablePrefix(key string) bool {
	for _, p := range evictablePrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// olderThan reports whether text is a JSON object whose updatedAt (or, failing that,
// createdAt) is before cutoff.
func olderThan(text string, cutoff time.Time) bool {
	var payload struct {
		CreatedAt *time.Time `json:"createdAt"`
		UpdatedAt *time.Time `json:"updatedAt"`
	}
	if !strings.HasPrefix(strings.TrimSpace(text), "{") {
		return false
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return false
	}
	stamp := payload.UpdatedAt
	if stamp == nil {
		stamp = payload.CreatedAt
	}
	return stamp != nil && stamp.Before(cutoff)
}

// ReviveDates walks decoded JSON and converts strings in ISO-8601 form to time.Time.
// Any other string is left as it is.
func ReviveDates(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = ReviveDates(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = ReviveDates(item)
		}
		return t
	case string:
		if !isoDatePattern.MatchString(t) {
			return t
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return t
		}
		return parsed
	default:
		return v
	}
}
