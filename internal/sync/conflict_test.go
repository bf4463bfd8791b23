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
	"github.com/annel0/bubble-world/internal/world/object"
)

func TestLWWResolver(t *testing.T) {
	r := NewLWWResolver()
	a, b := guid.Make(1, 1), guid.Make(1, 2)
	t0 := time.Unix(100, 0)

	assert.True(t, r.Accept(a, t0))
	assert.True(t, r.Accept(a, t0))
	assert.True(t, r.Accept(a, t0.Add(time.Second)))
	assert.False(t, r.Accept(a, t0))
	assert.True(t, r.Accept(b, t0))
	assert.Equal(t, 2, r.Len())
}

func TestLWWResolverForgetsOldEntries(t *testing.T) {
	r := NewLWWResolverWithRetention(10 * time.Second)
	a, b, c := guid.Make(1, 1), guid.Make(1, 2), guid.Make(1, 3)
	t0 := time.Unix(100, 0)

	assert.True(t, r.Accept(a, t0))
	assert.True(t, r.Accept(b, t0.Add(5*time.Second)))
	assert.False(t, r.Accept(a, t0.Add(-time.Second)), "в пределах окна устаревшее отбрасывается")
	assert.Equal(t, 2, r.Len())

	// Через окно после прошлой чистки записи a и b старше границы
	assert.True(t, r.Accept(c, t0.Add(20*time.Second)))
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Accept(a, t0), "забытый объект принимается снова")
}

func TestLWWResolverSweep(t *testing.T) {
	r := NewLWWResolverWithRetention(time.Minute)
	t0 := time.Unix(100, 0)
	for i := uint32(1); i <= 3; i++ {
		r.Accept(guid.Make(1, i), t0.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, 0, r.Sweep(t0.Add(time.Minute)))
	assert.Equal(t, 2, r.Sweep(t0.Add(time.Minute+2*time.Second+time.Millisecond)))
	assert.Equal(t, 1, r.Len())

	unbounded := NewLWWResolverWithRetention(0)
	unbounded.Accept(guid.Make(1, 1), t0)
	assert.Equal(t, 0, unbounded.Sweep(t0.Add(time.Hour)))
	assert.Equal(t, 1, unbounded.Len())
}

func TestConsumerDropsStaleBatch(t *testing.T) {
	reg, m := replicaRegistry(t, 1)
	o := addUnit(t, m, 1)

	c, err := NewConsumer(nil, "replica", nil, reg, object.Deps{})
	require.NoError(t, err)

	envelope := func(id string, at time.Time, level uint32) *eventbus.Envelope {
		data, err := FieldUpdate{
			Kind:  UpdateValues,
			MapID: 1,
			GUID:  o.GUID(),
			Words: []Word{{Index: uint16(updatefield.UnitFieldLevel), Value: level}},
		}.MarshalBinary()
		require.NoError(t, err)
		payload, err := NewPassthroughCompressor().Compress([]Change{{Data: data}})
		require.NoError(t, err)
		return &eventbus.Envelope{ID: id, Source: "primary", Timestamp: at, Payload: payload}
	}

	now := time.Unix(1000, 0)
	c.HandleEnvelope(context.Background(), envelope("new", now, 9))
	c.HandleEnvelope(context.Background(), envelope("old", now.Add(-time.Second), 3))

	assert.Equal(t, uint32(9), o.Fields().Uint32(updatefield.UnitFieldLevel))
	assert.Equal(t, ConsumerStats{Batches: 2, Applied: 1, Conflicts: 1}, c.Stats())
}
