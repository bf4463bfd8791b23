package storage

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/annel0/bubble-world/internal/world/object"
)

// TestMemoryPlacementRepo тестирует in-memory репозиторий размещений
func TestMemoryPlacementRepo(t *testing.T) {
	repo := NewMemoryPlacementRepo()
	ctx := context.Background()
	id := guid.Make(5, 123)

	t.Run("Save and Load", func(t *testing.T) {
		expected := Placement{MapID: 1, X: 10.5, Y: 20}
		require.NoError(t, repo.Save(ctx, id, expected))

		actual, found, err := repo.Load(ctx, id)
		require.NoError(t, err)
		require.True(t, found, "Размещение не найдено")
		assert.Equal(t, expected, actual)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		p, found, err := repo.Load(ctx, guid.Make(5, 999))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, Placement{}, p)
	})

	t.Run("Invalid Input", func(t *testing.T) {
		assert.Error(t, repo.Save(ctx, guid.Empty, Placement{}))
		assert.Error(t, repo.Save(ctx, id, Placement{X: math.NaN()}))
		assert.Error(t, repo.Save(ctx, id, Placement{Y: math.Inf(1)}))
		_, _, err := repo.Load(ctx, guid.Empty)
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, id))
		_, found, err := repo.Load(ctx, id)
		require.NoError(t, err)
		assert.False(t, found)
		assert.ErrorIs(t, repo.Delete(ctx, id), ErrPlacementNotFound)
	})

	t.Run("BatchSave is all or nothing", func(t *testing.T) {
		repo.Clear()
		err := repo.BatchSave(ctx, map[guid.GUID]Placement{
			guid.Make(1, 1): {MapID: 1},
			guid.Empty:      {MapID: 1},
		})
		assert.Error(t, err)
		assert.Equal(t, 0, repo.Count())

		require.NoError(t, repo.BatchSave(ctx, nil))
		require.NoError(t, repo.BatchSave(ctx, map[guid.GUID]Placement{
			guid.Make(1, 1): {MapID: 1, X: 1},
			guid.Make(1, 2): {MapID: 2, X: 2},
		}))
		assert.Equal(t, 2, repo.Count())
		assert.Len(t, repo.All(), 2)
	})

	t.Run("Canceled Context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, repo.Save(canceled, id, Placement{}), context.Canceled)
	})
}

func TestSaveMapPlacements(t *testing.T) {
	repo := NewMemoryPlacementRepo()
	m := world.NewMap(3, nil)

	for i := uint32(1); i <= 3; i++ {
		o := object.New(object.KindCreature, object.Deps{})
		o.Initialize(guid.Make(100, i))
		o.SetPosition(vec.Vec2Float{X: float64(i), Y: 0.5})
		require.NoError(t, m.AddObject(o))
	}

	require.NoError(t, SaveMapPlacements(context.Background(), repo, m))
	all := repo.All()
	require.Len(t, all, 3)
	assert.Equal(t, Placement{MapID: 3, X: 2, Y: 0.5}, all[guid.Make(100, 2)])

	require.NoError(t, SaveMapPlacements(context.Background(), repo, world.NewMap(4, nil)))
}

// TestConcurrentPlacementAccess тестирует параллельный доступ к репозиторию
func TestConcurrentPlacementAccess(t *testing.T) {
	repo := NewMemoryPlacementRepo()
	ctx := context.Background()

	const numGoroutines = 10
	const numOperations = 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			defer func() { done <- true }()

			for j := 0; j < numOperations; j++ {
				id := guid.Make(uint32(goroutineID+1), uint32(j+1))
				p := Placement{MapID: 1, X: float64(goroutineID), Y: float64(j)}

				if err := repo.Save(ctx, id, p); err != nil {
					t.Errorf("Ошибка сохранения в горутине %d: %v", goroutineID, err)
					return
				}
				loaded, found, err := repo.Load(ctx, id)
				if err != nil || !found || loaded != p {
					t.Errorf("Горутина %d: загружено %+v (found=%v, err=%v), ожидалось %+v",
						goroutineID, loaded, found, err, p)
					return
				}
			}
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Тест превысил таймаут")
		}
	}

	assert.Equal(t, numGoroutines*numOperations, repo.Count())
}
