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

func replicaRegistry(t *testing.T, id uint32) (*world.Registry, *world.Map) {
	t.Helper()
	reg := world.NewRegistry()
	m := newSyncMap(t, id)
	require.NoError(t, reg.Register(world.NewRunner(m)))
	return reg, m
}

func findOn(reg *world.Registry, mapID uint32, g guid.GUID) (o *object.WorldObject, found bool) {
	reg.Do(mapID, func(m *world.Map) error {
		o, found = m.FindObject(g)
		return nil
	})
	return o, found
}

func TestReplicationEndToEnd(t *testing.T) {
	bus := eventbus.NewMemoryBus(32)
	defer bus.Close()

	primary, err := NewSyncManager(SyncConfig{RegionID: "primary", Bus: bus, BatchSize: 64, UseGzipCompr: true})
	require.NoError(t, err)
	defer primary.Stop()

	reg, _ := replicaRegistry(t, 1)
	replica, err := NewSyncManager(SyncConfig{RegionID: "replica", Bus: bus, UseGzipCompr: true, Replica: true, Target: reg})
	require.NoError(t, err)
	defer replica.Stop()

	m := newSyncMap(t, 1)
	runner := world.NewRunner(m)
	primary.Attach(runner)
	replica.Attach(runner) // у реплики нет сборщика

	o := addUnit(t, m, 1)
	o.SetPosition(vec.Vec2Float{X: 2.5, Y: 3})
	runner.TickOnce(time.Unix(1, 0))
	require.NoError(t, primary.Batches().Flush(context.Background()))

	var copyObj *object.WorldObject
	require.Eventually(t, func() bool {
		var ok bool
		copyObj, ok = findOn(reg, 1, o.GUID())
		return ok
	}, time.Second, 5*time.Millisecond)

	reg.Do(1, func(*world.Map) error {
		assert.Equal(t, object.KindUnit, copyObj.Kind())
		assert.Equal(t, vec.Vec2Float{X: 2.5, Y: 3}, copyObj.Position())
		assert.Equal(t, o.Fields().Snapshot(), copyObj.Fields().Snapshot())
		copyObj.Fields().ClearChanges()
		return nil
	})

	runner.Do(func(*world.Map) error {
		u, _ := o.AsUnit()
		u.SetMaxHealth(90)
		u.SetHealth(80)
		return nil
	})
	runner.TickOnce(time.Unix(2, 0))
	require.NoError(t, primary.Batches().Flush(context.Background()))

	require.Eventually(t, func() bool {
		var health uint32
		reg.Do(1, func(*world.Map) error {
			health = copyObj.Fields().Uint32(updatefield.UnitFieldHealth)
			return nil
		})
		return health == 80
	}, time.Second, 5*time.Millisecond)

	runner.Do(func(m *world.Map) error {
		m.RemoveObject(o)
		return nil
	})
	runner.TickOnce(time.Unix(3, 0))
	require.NoError(t, primary.Batches().Flush(context.Background()))

	assert.Eventually(t, func() bool {
		_, ok := findOn(reg, 1, o.GUID())
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestConsumerApplySameValueKeepsMaskClean(t *testing.T) {
	reg, m := replicaRegistry(t, 1)
	o := addUnit(t, m, 1)
	o.Fields().ClearChanges()

	c, err := NewConsumer(nil, "replica", nil, reg, object.Deps{})
	require.NoError(t, err)

	level := o.Fields().Uint32(updatefield.UnitFieldLevel)
	require.NoError(t, c.Apply(FieldUpdate{
		Kind:  UpdateValues,
		MapID: 1,
		GUID:  o.GUID(),
		Words: []Word{{Index: uint16(updatefield.UnitFieldLevel), Value: level}, {Index: 60000, Value: 1}},
	}))
	assert.False(t, o.Fields().HasChanges())
	assert.Equal(t, uint64(1), c.Stats().Applied)
}

func TestConsumerSkipsUnknownAndOwn(t *testing.T) {
	reg, _ := replicaRegistry(t, 1)
	c, err := NewConsumer(nil, "replica", nil, reg, object.Deps{})
	require.NoError(t, err)

	err = c.Apply(FieldUpdate{Kind: UpdateValues, MapID: 1, GUID: guid.Make(1, 1)})
	assert.ErrorIs(t, err, ErrUnknownObject)
	err = c.Apply(FieldUpdate{Kind: UpdateValues, MapID: 9, GUID: guid.Make(1, 1)})
	assert.ErrorIs(t, err, world.ErrMapNotRunning)

	data, err := FieldUpdate{Kind: UpdateValues, MapID: 1, GUID: guid.Make(1, 1)}.MarshalBinary()
	require.NoError(t, err)
	payload, err := NewPassthroughCompressor().Compress([]Change{{Data: data}, {Data: []byte{1, 2}}})
	require.NoError(t, err)

	c.HandleEnvelope(context.Background(), &eventbus.Envelope{ID: "own", Source: "replica", Payload: payload})
	assert.Equal(t, ConsumerStats{}, c.Stats())

	c.HandleEnvelope(context.Background(), &eventbus.Envelope{ID: "other", Source: "primary", Payload: payload})
	assert.Equal(t, ConsumerStats{Batches: 1, Skipped: 1, Failed: 1}, c.Stats())
}

func TestSyncManagerConfigErrors(t *testing.T) {
	_, err := NewSyncManager(SyncConfig{RegionID: "r"})
	assert.Error(t, err)

	bus := eventbus.NewMemoryBus(4)
	defer bus.Close()
	_, err = NewSyncManager(SyncConfig{RegionID: "r", Bus: bus, Replica: true})
	assert.Error(t, err)
}
