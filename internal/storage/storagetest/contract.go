// Package storagetest holds the behaviour every key-value backend must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicestore/internal/port"
	"invoicestore/internal/storage"
)

// Factory opens a fresh, empty store limited to capacity bytes (zero for unlimited).
type Factory func(t *testing.T, capacity int64) port.KeyValueStore

// Run exercises a backend against the shared key-value contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("missing key", func(t *testing.T) {
		s := newStore(t, 0)
		v, found, err := s.Get(context.Background(), "absent")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, 0)
		require.NoError(t, s.Set(ctx, "invoices", `[{"id":"1"}]`))

		v, found, err := s.Get(ctx, "invoices")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `[{"id":"1"}]`, v)
	})

	t.Run("overwrite", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, 0)
		require.NoError(t, s.Set(ctx, "k", "one"))
		require.NoError(t, s.Set(ctx, "k", "two"))

		v, _, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", v)
	})

	t.Run("remove", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, 0)
		require.NoError(t, s.Set(ctx, "k", "v"))
		require.NoError(t, s.Remove(ctx, "k"))
		require.NoError(t, s.Remove(ctx, "never-set"))

		_, found, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("keys are sorted and round-trip odd characters", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, 0)
		for _, k := range []string{"tmp_upload", "a/b", "..", "invoices"} {
			require.NoError(t, s.Set(ctx, k, "x"))
		}

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"..", "a/b", "invoices", "tmp_upload"}, keys)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		s := newStore(t, 0)
		err := s.Set(context.Background(), "", "v")
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})

	t.Run("capacity", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, 20)
		require.NoError(t, s.Set(ctx, "k", "0123456789"))

		err := s.Set(ctx, "j", "0123456789")
		assert.ErrorIs(t, err, storage.ErrQuotaExceeded)

		// replacing a value only counts the new size
		require.NoError(t, s.Set(ctx, "k", "9876543210"))
		require.NoError(t, s.Set(ctx, "j", "01234567"))

		_, found, err := s.Get(ctx, "j")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("available", func(t *testing.T) {
		s := newStore(t, 0)
		assert.True(t, s.Available(context.Background()))
	})
}
