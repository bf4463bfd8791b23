package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bubble-world/internal/eventbus"
	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/updatefield"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/annel0/bubble-world/internal/world/object"
)

func newSyncMap(t *testing.T, id uint32) *world.Map {
	t.Helper()
	m := world.NewMap(id, nil)
	m.InitEmpty(world.Header{MapID: id, SizeX: 16, SizeY: 16})
	return m
}

func addUnit(t *testing.T, m *world.Map, low uint32) *object.WorldObject {
	t.Helper()
	o := object.New(object.KindUnit, object.Deps{})
	o.Initialize(guid.Make(50, low))
	require.NoError(t, m.AddObject(o))
	return o
}

// drain забирает изменения из буфера и декодирует их
func drain(t *testing.T, bm *BatchManager) []FieldUpdate {
	t.Helper()
	bm.mu.Lock()
	changes := append([]Change(nil), bm.buf...)
	bm.buf = bm.buf[:0]
	bm.mu.Unlock()

	out := make([]FieldUpdate, len(changes))
	for i, ch := range changes {
		require.NoError(t, out[i].UnmarshalBinary(ch.Data))
	}
	return out
}

func TestCollectorLifecycle(t *testing.T) {
	bus := eventbus.NewMemoryBus(8)
	defer bus.Close()
	bm := NewBatchManager(bus, "r1", 64, 0, nil)
	c := NewCollector(bm, "r1")
	m := newSyncMap(t, 1)
	now := time.Unix(10, 0)

	o := addUnit(t, m, 1)

	// первый проход: полный снимок
	assert.Equal(t, 1, c.Collect(m, now))
	updates := drain(t, bm)
	require.Len(t, updates, 1)
	assert.Equal(t, UpdateCreate, updates[0].Kind)
	assert.Equal(t, object.KindUnit, updates[0].ObjectKind)
	assert.Len(t, updates[0].Words, o.Fields().Len())
	assert.False(t, o.Fields().HasChanges())

	// без изменений ничего не уходит
	assert.Equal(t, 0, c.Collect(m, now))

	// изменённые слова
	u, _ := o.AsUnit()
	u.SetLevel(5)
	assert.Equal(t, 1, c.Collect(m, now))
	updates = drain(t, bm)
	require.Len(t, updates, 1)
	assert.Equal(t, UpdateValues, updates[0].Kind)
	assert.Equal(t, []Word{{Index: uint16(updatefield.UnitFieldLevel), Value: 5}}, updates[0].Words)

	// смена позиции без изменения полей
	o.SetPosition(vec.Vec2Float{X: 3, Y: 4})
	assert.Equal(t, 1, c.Collect(m, now))
	updates = drain(t, bm)
	require.Len(t, updates, 1)
	assert.Empty(t, updates[0].Words)
	assert.Equal(t, vec.Vec2Float{X: 3, Y: 4}, updates[0].Position)

	// удаление
	m.RemoveObject(o)
	assert.Equal(t, 1, c.Collect(m, now))
	updates = drain(t, bm)
	require.Len(t, updates, 1)
	assert.Equal(t, UpdateRemove, updates[0].Kind)
	assert.Equal(t, o.GUID(), updates[0].GUID)
}

func TestCollectorHookOnRunner(t *testing.T) {
	bus := eventbus.NewMemoryBus(8)
	defer bus.Close()
	sink := subscribeSync(t, bus)

	bm := NewBatchManager(bus, "r1", 64, 0, nil)
	m := newSyncMap(t, 1)
	addUnit(t, m, 1)
	addUnit(t, m, 2)

	r := world.NewRunner(m)
	r.AddPostTickHook(NewCollector(bm, "r1").Hook())
	r.TickOnce(time.Unix(1, 0))

	assert.Equal(t, 2, bm.Pending())
	require.NoError(t, bm.Flush(context.Background()))
	assert.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, 5*time.Millisecond)
}
