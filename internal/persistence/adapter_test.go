package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicestore/internal/domain"
	"invoicestore/internal/storage/memory"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newAdapter(capacity int64) (*Adapter, *memory.Store) {
	store := memory.New(capacity)
	return New(store, zerolog.Nop(), WithClock(func() time.Time { return fixedNow })), store
}

func TestRead_AbsentKeyKeepsDefault(t *testing.T) {
	a, _ := newAdapter(0)
	dest := []string{"default"}

	found, err := a.Read(context.Background(), "invoices", &dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{"default"}, dest)
}

func TestRead_UnavailableStoreKeepsDefault(t *testing.T) {
	a, store := newAdapter(0)
	store.SetDisabled(true)
	dest := []string{"default"}

	found, err := a.Read(context.Background(), "invoices", &dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{"default"}, dest)
	assert.False(t, a.IsAvailable(context.Background()))
}

func TestRead_Corrupted(t *testing.T) {
	ctx := context.Background()
	a, store := newAdapter(0)
	require.NoError(t, store.Set(ctx, "invoices", `[{"id":"1",`))

	var dest []domain.Invoice
	_, err := a.Read(ctx, "invoices", &dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDataCorruption))

	var corrupt *domain.DataCorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "invoices", corrupt.Key)
}

func TestWriteRead_RoundTripsDates(t *testing.T) {
	ctx := context.Background()
	a, _ := newAdapter(0)
	created := time.Date(2024, 1, 15, 10, 30, 0, 123_000_000, time.UTC)
	in := []domain.Invoice{{
		ID:            "a1",
		InvoiceNumber: "INV-001",
		Date:          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		CustomerName:  "John Doe",
		LineItems:     []domain.LineItem{{ID: "l1", Description: "Service", Quantity: 1, UnitPrice: 100, Total: 100}},
		Subtotal:      100,
		Tax:           10,
		Total:         110,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Attachments:   []domain.FileAttachment{},
		CreatedAt:     created,
		UpdatedAt:     created,
	}}
	require.NoError(t, a.Write(ctx, "invoices", in))

	var out []domain.Invoice
	found, err := a.Read(ctx, "invoices", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestRead_UntypedRevivesISODates(t *testing.T) {
	ctx := context.Background()
	a, store := newAdapter(0)
	require.NoError(t, store.Set(ctx, "k", `{"createdAt":"2024-01-15T10:30:00.000Z","label":"2024-01-15","items":[{"at":"2024-02-01T00:00:00+02:00"}]}`))

	var dest any
	_, err := a.Read(ctx, "k", &dest)
	require.NoError(t, err)

	m := dest.(map[string]any)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), m["createdAt"])
	assert.Equal(t, "2024-01-15", m["label"])
	nested := m["items"].([]any)[0].(map[string]any)
	at, ok := nested["at"].(time.Time)
	require.True(t, ok)
	assert.True(t, at.Equal(time.Date(2024, 1, 31, 22, 0, 0, 0, time.UTC)))
}

func TestReviveDates_LeavesNonDates(t *testing.T) {
	for _, s := range []string{"hello", "2024-01-15", "2024-01-15 10:30:00", "2024-01-15T10:30:00", ""} {
		assert.Equal(t, s, ReviveDates(s), s)
	}
	assert.Equal(t, 3.5, ReviveDates(3.5))
}

func TestWrite_UnavailableStore(t *testing.T) {
	a, store := newAdapter(0)
	store.SetDisabled(true)

	err := a.Write(context.Background(), "invoices", []string{})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestWrite_EvictsOldAndTemporaryDataThenRetries(t *testing.T) {
	ctx := context.Background()
	a, store := newAdapter(120)
	require.NoError(t, store.Set(ctx, "tmp_upload", strings.Repeat("x", 40)))
	require.NoError(t, store.Set(ctx, "report", `{"updatedAt":"2020-01-01T00:00:00Z"}`))
	require.NoError(t, store.Set(ctx, "settings", `{"theme":"dark"}`))

	err := a.Write(ctx, "invoices", []string{"abcdefghijklmnopqrstuvwxyz"})
	require.NoError(t, err)

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"invoices", "settings"}, keys)
}

func TestWrite_KeepsRecentTimestampedData(t *testing.T) {
	ctx := context.Background()
	a, store := newAdapter(80)
	recent := `{"createdAt":"2024-05-30T00:00:00Z"}`
	require.NoError(t, store.Set(ctx, "draft", recent))

	err := a.Write(ctx, "invoices", []string{strings.Repeat("y", 40)})
	var quota *domain.StorageQuotaError
	require.ErrorAs(t, err, &quota)

	v, found, err := store.Get(ctx, "draft")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, recent, v)
}

func TestWrite_NeverEvictsKeyBeingWritten(t *testing.T) {
	ctx := context.Background()
	a, store := newAdapter(30)
	require.NoError(t, store.Set(ctx, "cache_k", "0123456789"))

	err := a.Write(ctx, "cache_k", strings.Repeat("z", 23))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageQuota)

	var quota *domain.StorageQuotaError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, "cache_k", quota.Key)
	assert.Equal(t, 25, quota.Size)

	v, _, err := store.Get(ctx, "cache_k")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", v)
}

func TestSizeEstimate(t *testing.T) {
	ctx := context.Background()
	a, store := newAdapter(0)
	require.NoError(t, store.Set(ctx, "ab", "1234"))
	require.NoError(t, store.Set(ctx, "c", "56"))

	size, err := a.SizeEstimate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), size)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	a, store := newAdapter(0)
	require.NoError(t, store.Set(ctx, "invoice_filters", "{}"))

	require.NoError(t, a.Remove(ctx, "invoice_filters"))
	require.NoError(t, a.Remove(ctx, "invoice_filters"))
	_, found, err := store.Get(ctx, "invoice_filters")
	require.NoError(t, err)
	assert.False(t, found)
}
