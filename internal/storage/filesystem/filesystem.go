// Package filesystem stores each key as a file under a base directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"invoicestore/internal/storage"
)

const (
	filePrefix = "kv_"
	tmpSuffix  = ".tmp"
)

// Store is a directory-backed key-value store. Writes go to a temp file and are renamed into place.
type Store struct {
	mu       sync.Mutex
	basePath string
	capacity int64
	used     int64
	logger   zerolog.Logger
}

// New opens (creating if needed) a store rooted at basePath. A zero capacity means unlimited.
func New(basePath string, capacity int64, logger zerolog.Logger) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path required")
	}
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("create base path: %w", err)
	}

	s := &Store{
		basePath: absPath,
		capacity: capacity,
		logger:   logger.With().Str("system", "storage.filesystem").Logger(),
	}
	used, err := s.scanUsage()
	if err != nil {
		return nil, err
	}
	s.used = used
	s.logger.Info().Str("base_path", absPath).Int64("used_bytes", used).Msg("filesystem store opened")
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	path, err := s.fullPath(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, mapError(err)
	}
	return string(data), true, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	path, err := s.fullPath(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.used + storage.EntrySize(key, value)
	if info, err := os.Stat(path); err == nil {
		next -= int64(len(key)) + info.Size()
	}
	if s.capacity > 0 && next > s.capacity {
		return storage.ErrQuotaExceeded
	}

	tmpPath := path + tmpSuffix
	if err := os.WriteFile(tmpPath, []byte(value), 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return mapError(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return mapError(err)
	}
	s.used = next
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	path, err := s.fullPath(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return mapError(err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return mapError(err)
	}
	s.used -= int64(len(key)) + info.Size()
	return nil
}

func (s *Store) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, mapError(err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		key, ok := decodeName(e)
		if ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Available(_ context.Context) bool {
	info, err := os.Stat(s.basePath)
	return err == nil && info.IsDir()
}

func (s *Store) fullPath(key string) (string, error) {
	if key == "" {
		return "", storage.ErrInvalidKey
	}
	return filepath.Join(s.basePath, filePrefix+url.PathEscape(key)), nil
}

func (s *Store) scanUsage() (int64, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("scan base path: %w", err)
	}
	var used int64
	for _, e := range entries {
		key, ok := decodeName(e)
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		used += int64(len(key)) + info.Size()
	}
	return used, nil
}

func decodeName(e fs.DirEntry) (string, bool) {
	name := e.Name()
	if e.IsDir() || !strings.HasPrefix(name, filePrefix) || strings.HasSuffix(name, tmpSuffix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(name, filePrefix))
	if err != nil {
		return "", false
	}
	return key, true
}

func mapError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if isNoSpace(err) {
		return fmt.Errorf("%w: %v", storage.ErrQuotaExceeded, err)
	}
	return err
}
