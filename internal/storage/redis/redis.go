// Package redis keeps key-value entries as Redis strings under a key prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"invoicestore/internal/storage"
)

const scanBatch = 100

// Options configures a Store.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// Capacity caps the bytes of keys plus values under Prefix. Zero leaves it to Redis maxmemory.
	Capacity int64
}

// Store is a Redis-backed key-value store.
type Store struct {
	client   goredis.UniversalClient
	prefix   string
	capacity int64
	logger   zerolog.Logger
}

// Connect dials Redis and verifies the connection with PING.
func Connect(ctx context.Context, opts Options, logger zerolog.Logger) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	s := New(client, opts.Prefix, opts.Capacity, logger)
	s.logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("redis store connected")
	return s, nil
}

// New wraps an existing client.
func New(client goredis.UniversalClient, prefix string, capacity int64, logger zerolog.Logger) *Store {
	return &Store{
		client:   client,
		prefix:   prefix,
		capacity: capacity,
		logger:   logger.With().Str("system", "storage.redis").Logger(),
	}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, mapError(err))
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	if s.capacity > 0 {
		used, err := s.usage(ctx, key)
		if err != nil {
			return err
		}
		if used+storage.EntrySize(key, value) > s.capacity {
			return storage.ErrQuotaExceeded
		}
	}
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, mapError(err))
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, mapError(err))
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	full, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Available(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}

func (s *Store) scan(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", mapError(err))
	}
	return keys, nil
}

// usage sums the stored bytes under the prefix, leaving out exclude.
func (s *Store) usage(ctx context.Context, exclude string) (int64, error) {
	keys, err := s.scan(ctx)
	if err != nil {
		return 0, err
	}
	pipe := s.client.Pipeline()
	lens := make(map[string]*goredis.IntCmd, len(keys))
	for _, k := range keys {
		if k == s.prefix+exclude {
			continue
		}
		lens[k] = pipe.StrLen(ctx, k)
	}
	if len(lens) == 0 {
		return 0, nil
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return 0, fmt.Errorf("redis strlen: %w", mapError(err))
	}
	var used int64
	for k, cmd := range lens {
		used += int64(len(strings.TrimPrefix(k, s.prefix))) + cmd.Val()
	}
	return used, nil
}

func mapError(err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "OOM"):
		return fmt.Errorf("%w: %v", storage.ErrQuotaExceeded, err)
	case strings.Contains(msg, "connection refused"), errors.Is(err, goredis.ErrClosed):
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return err
}
