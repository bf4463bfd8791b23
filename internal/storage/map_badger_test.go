package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bubble-world/internal/world"
)

func setupBadgerStore(t *testing.T) *BadgerMapStore {
	t.Helper()
	store, err := NewBadgerMapStore(t.TempDir())
	require.NoError(t, err, "Не удалось создать хранилище")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerMapStoreRoundTrip(t *testing.T) {
	store := setupBadgerStore(t)
	ctx := context.Background()

	src := sampleMap(t, 5, 40, 33)
	require.NoError(t, store.SaveMap(ctx, src))

	dst := world.NewMap(5, nil)
	require.NoError(t, store.LoadMap(ctx, dst))
	assert.Equal(t, src.Header(), dst.Header())
	assert.Equal(t, src.Grid().Fields(), dst.Grid().Fields())
}

func TestBadgerMapStoreMissing(t *testing.T) {
	store := setupBadgerStore(t)
	err := store.LoadMap(context.Background(), world.NewMap(77, nil))
	assert.ErrorIs(t, err, ErrUnknownMap)
	assert.True(t, IsMissing(err))
}

func TestBadgerMapStoreListAndDelete(t *testing.T) {
	store, err := NewInMemoryBadgerMapStore()
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	for _, id := range []uint32{12, 3, 7} {
		require.NoError(t, store.SaveMap(ctx, sampleMap(t, id, 2, 2)))
	}

	ids, err := store.ListMaps(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 7, 12}, ids)

	require.NoError(t, store.DeleteMap(ctx, 7))
	ids, err = store.ListMaps(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 12}, ids)
}

func TestBadgerMapStoreClosed(t *testing.T) {
	store, err := NewInMemoryBadgerMapStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "повторное закрытие безопасно")

	err = store.SaveMap(context.Background(), world.NewMap(1, nil))
	assert.Error(t, err)
}
