package world

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world/object"
)

type recordingDiagnostics struct {
	warns  []string
	errors []string
}

func (d *recordingDiagnostics) Warn(format string, args ...interface{}) {
	d.warns = append(d.warns, fmt.Sprintf(format, args...))
}

func (d *recordingDiagnostics) Error(format string, args ...interface{}) {
	d.errors = append(d.errors, fmt.Sprintf(format, args...))
}

func newObject(kind object.Kind, entry, low uint32) *object.WorldObject {
	o := object.New(kind, object.Deps{})
	o.Initialize(guid.Make(entry, low))
	return o
}

func TestInitEmptyScenario(t *testing.T) {
	m := NewMap(1, nil)
	m.InitEmpty(Header{
		MapID:               1,
		SizeX:               4,
		SizeY:               4,
		DefaultFieldType:    2,
		DefaultFieldTexture: 100,
		DefaultFieldFlags:   0,
	})

	f, ok := m.Field(3, 3)
	require.True(t, ok)
	assert.Equal(t, Field{Type: 2, Texture: 100, Flags: 0}, f)

	_, ok = m.Field(4, 0)
	assert.False(t, ok)

	assert.Equal(t, MapVersionMagic, m.Header().VersionMagic)
	assert.Equal(t, 16, m.Grid().Len())
}

func TestInitEmptyForeignID(t *testing.T) {
	diag := &recordingDiagnostics{}
	m := NewMap(5, diag)
	m.InitEmpty(Header{MapID: 9, SizeX: 2, SizeY: 2})

	assert.Equal(t, uint32(5), m.Header().MapID)
	assert.Len(t, diag.warns, 1)
}

func TestSetFieldAndGet(t *testing.T) {
	m := NewMap(1, nil)
	m.InitEmpty(Header{MapID: 1, SizeX: 8, SizeY: 5})

	require.NoError(t, m.SetField(7, 4, 3, 200, 0x1))
	f, ok := m.Field(7, 4)
	require.True(t, ok)
	assert.Equal(t, Field{Type: 3, Texture: 200, Flags: 0x1}, f)
	assert.Equal(t, f, m.FieldUnchecked(7, 4))

	// Хранение по столбцам: соседние y лежат рядом
	assert.Equal(t, f, m.Grid().Fields()[7*5+4])
}

func TestSetFieldOutOfRange(t *testing.T) {
	diag := &recordingDiagnostics{}
	m := NewMap(1, diag)
	m.InitEmpty(Header{MapID: 1, SizeX: 4, SizeY: 4, DefaultFieldType: 1})
	before := m.Grid().Clone()

	err := m.SetField(4, 0, 9, 9, 9)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	err = m.SetField(0, 100, 9, 9, 9)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	assert.Len(t, diag.errors, 2, "по одной диагностике на каждую неверную запись")
	assert.Equal(t, before.Fields(), m.Grid().Fields(), "сетка не изменилась")
}

func TestSetFieldPublishesChange(t *testing.T) {
	m := NewMap(1, nil)
	m.InitEmpty(Header{MapID: 1, SizeX: 4, SizeY: 4})
	var events []Event
	m.SetEventSink(EventSinkFunc(func(e Event) { events = append(events, e) }))

	require.NoError(t, m.SetField(1, 1, 5, 6, 7))
	require.NoError(t, m.SetField(1, 1, 5, 6, 7)) // то же значение

	require.Len(t, events, 1)
	fe, ok := events[0].(FieldEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeFieldChanged, fe.GetType())
	assert.Equal(t, Field{Type: 5, Texture: 6, Flags: 7}, fe.New)
	assert.Equal(t, Field{}, fe.Old)
}

func TestRestore(t *testing.T) {
	m := NewMap(3, nil)
	grid := NewFieldGrid(2, 3, Field{Type: 4})

	err := m.Restore(Header{MapID: 3, SizeX: 3, SizeY: 3}, grid)
	assert.ErrorIs(t, err, ErrGridMismatch)

	require.NoError(t, m.Restore(Header{MapID: 3, SizeX: 2, SizeY: 3}, grid))
	f, ok := m.Field(1, 2)
	require.True(t, ok)
	assert.Equal(t, uint16(4), f.Type)
}

func TestRestoreKeepsOwnMapID(t *testing.T) {
	m := NewMap(3, nil)
	grid := NewFieldGrid(2, 2, Field{})

	require.NoError(t, m.Restore(Header{MapID: 9, SizeX: 2, SizeY: 2, VersionMagic: 77}, grid))
	assert.Equal(t, uint32(3), m.Header().MapID)
	assert.Equal(t, uint32(77), m.Header().VersionMagic, "остальной заголовок без изменений")
}

func TestAddObjectIdempotent(t *testing.T) {
	m := NewMap(1, nil)
	o := newObject(object.KindCreature, 10, 1)

	require.NoError(t, m.AddObject(o))
	require.NoError(t, m.AddObject(o))

	assert.Equal(t, 1, m.ObjectCount())
	found, ok := m.FindObject(o.GUID())
	require.True(t, ok)
	assert.Same(t, o, found)
	assert.Equal(t, uint32(1), o.MapID())
}

func TestAddObjectDuplicateGUID(t *testing.T) {
	diag := &recordingDiagnostics{}
	m := NewMap(1, diag)
	first := newObject(object.KindUnit, 10, 1)
	second := newObject(object.KindUnit, 10, 1)

	require.NoError(t, m.AddObject(first))
	err := m.AddObject(second)

	assert.ErrorIs(t, err, ErrDuplicateGUID)
	assert.Len(t, diag.errors, 1)
	assert.False(t, m.HasObject(second))
	found, _ := m.FindObject(first.GUID())
	assert.Same(t, first, found)
}

func TestAddObjectNotInitialized(t *testing.T) {
	m := NewMap(1, nil)
	err := m.AddObject(object.New(object.KindGeneric, object.Deps{}))
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, 0, m.ObjectCount())
}

func TestRemoveObject(t *testing.T) {
	m := NewMap(1, nil)
	a := newObject(object.KindUnit, 1, 1)
	b := newObject(object.KindUnit, 1, 2)
	c := newObject(object.KindUnit, 1, 3)
	for _, o := range []*object.WorldObject{a, b, c} {
		require.NoError(t, m.AddObject(o))
	}

	m.RemoveObject(b)
	m.RemoveObject(b) // повторно
	m.RemoveObjectByGUID(guid.Make(1, 99))

	assert.Equal(t, []*object.WorldObject{a, c}, m.Objects())
	_, ok := m.FindObject(b.GUID())
	assert.False(t, ok)

	m.RemoveObjectByGUID(a.GUID())
	assert.Equal(t, []*object.WorldObject{c}, m.Objects())
}

func TestObjectEvents(t *testing.T) {
	m := NewMap(2, nil)
	var types []EventType
	m.SetEventSink(EventSinkFunc(func(e Event) { types = append(types, e.GetType()) }))

	o := newObject(object.KindPlayer, 0, 7)
	require.NoError(t, m.AddObject(o))
	m.RemoveObject(o)

	assert.Equal(t, []EventType{EventTypeObjectEntered, EventTypeObjectLeft}, types)
}

func TestObjectSetConsistency(t *testing.T) {
	m := NewMap(1, nil)
	rng := rand.New(rand.NewSource(42))
	pool := make([]*object.WorldObject, 0, 40)
	for i := 0; i < 40; i++ {
		// часть объектов делит GUID, чтобы проверить отказ при дубликате
		pool = append(pool, newObject(object.KindGeneric, 1, uint32(i%30)))
	}

	for step := 0; step < 2000; step++ {
		o := pool[rng.Intn(len(pool))]
		switch rng.Intn(3) {
		case 0, 1:
			_ = m.AddObject(o)
		case 2:
			if rng.Intn(2) == 0 {
				m.RemoveObject(o)
			} else {
				m.RemoveObjectByGUID(o.GUID())
			}
		}

		objects := m.Objects()
		require.Len(t, m.byGUID, len(objects))
		require.Len(t, m.members, len(objects))
		for _, cur := range objects {
			found, ok := m.FindObject(cur.GUID())
			require.True(t, ok)
			require.Same(t, cur, found)
		}
		for g, cur := range m.byGUID {
			require.Equal(t, g, cur.GUID())
			require.True(t, m.HasObject(cur))
		}
	}
}

type orderRecorder struct {
	order *[]uint32
	low   uint32
}

func (r orderRecorder) MarkDirty() { *r.order = append(*r.order, r.low) }

func TestTickOrderDeterministic(t *testing.T) {
	m := NewMap(1, nil)
	anims := animations{
		{image: 1, anim: object.AnimWalkDown}: {FrameBegin: 0, FrameEnd: 5, FrameDelay: 10 * time.Millisecond},
	}
	base := time.Unix(100, 0)
	clock := func() time.Time { return base }

	var order []uint32
	objs := make([]*object.WorldObject, 0, 3)
	for _, low := range []uint32{3, 1, 2} {
		o := object.New(object.KindUnit, object.Deps{
			Animations: anims,
			Presenter:  orderRecorder{order: &order, low: low},
			Clock:      clock,
		})
		o.Initialize(guid.Make(2, low))
		o.SetImageID(1)
		o.SetAnimation(object.AnimWalkDown)
		require.NoError(t, m.AddObject(o))
		objs = append(objs, o)
	}

	order = nil
	m.Tick(base.Add(11 * time.Millisecond))
	assert.Equal(t, []uint32{3, 1, 2}, order, "порядок добавления")
	for _, o := range objs {
		assert.Equal(t, uint32(2), o.AnimationFrame())
	}

	order = nil
	m.Tick(base.Add(12 * time.Millisecond)) // задержка ещё не прошла
	assert.Empty(t, order)
	for _, o := range objs {
		assert.Equal(t, uint32(2), o.AnimationFrame())
	}
}

func TestObjectsInChunkRange(t *testing.T) {
	m := NewMap(1, nil)
	m.InitEmpty(Header{MapID: 1, SizeX: 64, SizeY: 64})

	near := newObject(object.KindGeneric, 1, 1)
	near.SetPosition(vec.Vec2Float{X: 20.5, Y: 3})
	far := newObject(object.KindGeneric, 1, 2)
	far.SetPosition(vec.Vec2Float{X: 60, Y: 60})
	outside := newObject(object.KindGeneric, 1, 3)
	outside.SetPosition(vec.Vec2Float{X: -1, Y: 0})
	for _, o := range []*object.WorldObject{near, far, outside} {
		require.NoError(t, m.AddObject(o))
	}

	got := m.ObjectsInChunkRange(m.SurroundingChunkRange(0, 0))
	assert.Equal(t, []*object.WorldObject{near}, got)
}

func TestObjectsInChunkRangeSkipsHugeCoordinates(t *testing.T) {
	m := NewMap(1, nil)
	m.InitEmpty(Header{MapID: 1, SizeX: 64, SizeY: 64})

	// 2^32 + 5 после усечения до uint32 попало бы в клетку 5
	huge := newObject(object.KindGeneric, 1, 1)
	huge.SetPosition(vec.Vec2Float{X: 4294967301, Y: 2})
	tall := newObject(object.KindGeneric, 1, 2)
	tall.SetPosition(vec.Vec2Float{X: 2, Y: 4294967301})
	near := newObject(object.KindGeneric, 1, 3)
	near.SetPosition(vec.Vec2Float{X: 5, Y: 2})
	for _, o := range []*object.WorldObject{huge, tall, near} {
		require.NoError(t, m.AddObject(o))
	}

	got := m.ObjectsInChunkRange(m.SurroundingChunkRange(0, 0))
	assert.Equal(t, []*object.WorldObject{near}, got)
}

type animKey struct {
	image uint32
	anim  object.AnimID
}

type animations map[animKey]object.AnimationRecord

func (a animations) Animation(imageID uint32, anim object.AnimID) (object.AnimationRecord, bool) {
	rec, ok := a[animKey{image: imageID, anim: anim}]
	return rec, ok
}
