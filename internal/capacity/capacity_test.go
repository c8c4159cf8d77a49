package capacity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyplayapp/polyplay/internal/blobstore"
	"github.com/polyplayapp/polyplay/internal/models"
)

func constrained() Probe {
	return ProbeFunc(func() bool { return true })
}

func unconstrained() Probe {
	return ProbeFunc(func() bool { return false })
}

func storeWithBytes(t *testing.T, n int) *blobstore.FSStore {
	t.Helper()
	store, err := blobstore.NewFSStore(t.TempDir())
	require.NoError(t, err)
	if n > 0 {
		require.NoError(t, store.Put(context.Background(), "aabbccdd-0000", make([]byte, n), models.BlobAudio))
	}
	return store
}

func TestGuard_CapPerProfile(t *testing.T) {
	store := storeWithBytes(t, 0)

	assert.Equal(t, int64(ConstrainedCap), NewGuard(store, constrained(), 0).Cap())
	assert.Equal(t, int64(UnconstrainedCap), NewGuard(store, unconstrained(), 0).Cap())
	assert.Equal(t, int64(999), NewGuard(store, constrained(), 999).Cap())
}

func TestGuard_CapacityLaw(t *testing.T) {
	store := storeWithBytes(t, 60)
	guard := NewGuard(store, constrained(), 100)
	ctx := context.Background()

	// Fails exactly when used + additional > cap.
	assert.NoError(t, guard.EnsureCapacity(ctx, 40))
	err := guard.EnsureCapacity(ctx, 41)
	require.Error(t, err)

	var capErr *StorageCapError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, int64(100), capErr.Cap)
	assert.Equal(t, int64(60), capErr.Used)
	assert.Equal(t, int64(101), capErr.Projected)
}

func TestGuard_NoSideEffects(t *testing.T) {
	store := storeWithBytes(t, 10)
	guard := NewGuard(store, constrained(), 100)
	ctx := context.Background()

	require.Error(t, guard.EnsureCapacity(ctx, 1000))

	used, err := guard.Used(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), used)
}
