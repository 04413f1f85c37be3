package redis

import (
	"context"
	"testing"
	"time"

	"furrchum-vet/internal/ports/idempotency"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Open(Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client), mr
}

func TestIdempotencyStore_ClaimSaveLoad(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.Load(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := store.Claim(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	rec := idempotency.Record{Status: 201, ContentType: "application/json", Body: []byte(`{"id":"b1"}`), BodyHash: "abc"}
	require.NoError(t, store.Save(ctx, "k1", rec, time.Hour))

	got, found, err := store.Load(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec, got)

	// Save extiende el lock al TTL de la respuesta.
	assert.Equal(t, time.Hour, mr.TTL(lockPrefix+"k1"))
	assert.Equal(t, time.Hour, mr.TTL(responsePrefix+"k1"))

	mr.FastForward(2 * time.Hour)
	_, found, err = store.Load(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyStore_ReleaseFreesClaim(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "k1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "k1"))

	ok, err = store.Claim(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyStore_BackendDown(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.Claim(context.Background(), "k1", time.Minute)
	assert.Error(t, err)
}

func TestOpen_FailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(Options{Addr: addr})
	assert.Error(t, err)
}
