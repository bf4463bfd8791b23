package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/logging"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/annel0/bubble-world/internal/world/object"
)

func startNotifier(t *testing.T, opts ...NotifierOption) (*Notifier, *collector) {
	t.Helper()
	bus := NewMemoryBus(64)
	t.Cleanup(func() { bus.Close() })

	c := &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	opts = append([]NotifierOption{WithNotifierLogger(logging.Discard())}, opts...)
	n := NewNotifier(bus, "region-1", opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go n.Run(ctx)
	return n, c
}

func TestNotifierRequestName(t *testing.T) {
	n, c := startNotifier(t)

	o := object.New(object.KindUnit, object.Deps{Names: n})
	o.Initialize(guid.Make(100, 3))

	require.Eventually(t, func() bool { return len(c.ofType(EventNameQuery)) == 1 }, time.Second, 5*time.Millisecond)
	ev := c.ofType(EventNameQuery)[0]
	assert.Equal(t, PriorityLow, ev.Priority)
	var q NameQueryPayload
	require.NoError(t, ev.Decode(&q))
	assert.Equal(t, uint64(guid.Make(100, 3)), q.GUID)
}

func TestNotifierCoalescesRedraws(t *testing.T) {
	n, c := startNotifier(t, WithRedrawInterval(20*time.Millisecond))

	for i := 0; i < 10; i++ {
		n.MarkDirty()
	}
	require.Eventually(t, func() bool { return len(c.ofType(EventCanvasRedraw)) >= 1 }, time.Second, 5*time.Millisecond)

	// без новых пометок перерисовки не повторяются
	time.Sleep(80 * time.Millisecond)
	assert.Len(t, c.ofType(EventCanvasRedraw), 1)
}

func TestNotifierForwardsMapEvents(t *testing.T) {
	n, c := startNotifier(t)

	m := world.NewMap(1, nil)
	m.SetEventSink(n)
	m.InitEmpty(world.Header{MapID: 1, SizeX: 4, SizeY: 4})

	o := object.New(object.KindCreature, object.Deps{})
	o.Initialize(guid.Make(100, 1))
	o.SetPosition(vec.Vec2Float{X: 1.5, Y: 2})
	require.NoError(t, m.AddObject(o))
	require.NoError(t, m.SetField(2, 3, 5, 6, 7))
	m.RemoveObject(o)

	require.Eventually(t, func() bool { return len(c.snapshot()) == 3 }, time.Second, 5*time.Millisecond)

	var entered ObjectPayload
	require.Len(t, c.ofType(EventObjectEntered), 1)
	require.NoError(t, c.ofType(EventObjectEntered)[0].Decode(&entered))
	assert.Equal(t, ObjectPayload{MapID: 1, GUID: uint64(o.GUID()), Kind: "creature", X: 1.5, Y: 2}, entered)

	var field FieldChangedPayload
	require.Len(t, c.ofType(EventFieldChanged), 1)
	require.NoError(t, c.ofType(EventFieldChanged)[0].Decode(&field))
	assert.Equal(t, FieldChangedPayload{MapID: 1, X: 2, Y: 3, Type: 5, Texture: 6, Flags: 7}, field)

	assert.Len(t, c.ofType(EventObjectLeft), 1)
}

func TestNotifierDropsWhenQueueFull(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()
	n := NewNotifier(bus, "region-1", WithQueueSize(1), WithNotifierLogger(logging.Discard()))

	n.RequestName(guid.Make(1, 1))
	n.RequestName(guid.Make(1, 2))
	n.RequestName(guid.Make(1, 3))
	assert.Equal(t, uint64(2), n.Dropped())
}
