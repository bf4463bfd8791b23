package world

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/world/object"
)

var (
	// ErrInvalidCoordinate - координаты клетки вне карты
	ErrInvalidCoordinate = errors.New("world: invalid field coordinate")
	// ErrDuplicateGUID - на карте уже есть другой объект с тем же GUID
	ErrDuplicateGUID = errors.New("world: duplicate object guid")
	// ErrNotInitialized - объект без GUID нельзя добавить на карту
	ErrNotInitialized = errors.New("world: object is not initialized")
	// ErrGridMismatch - размеры сетки не совпадают с заголовком
	ErrGridMismatch = errors.New("world: grid does not match header")
)

// Map - карта: заголовок, сетка клеток и множество объектов.
// Не потокобезопасна, конкурентный доступ сериализует Runner.
type Map struct {
	id     uint32
	header Header
	grid   *FieldGrid

	objects []*object.WorldObject
	members map[*object.WorldObject]struct{}
	byGUID  map[guid.GUID]*object.WorldObject

	diag   Diagnostics
	events EventSink
}

// NewMap создаёт пустую карту без клеток
func NewMap(id uint32, diag Diagnostics) *Map {
	if diag == nil {
		diag = nopDiagnostics{}
	}
	return &Map{
		id:      id,
		header:  Header{MapID: id},
		grid:    NewFieldGrid(0, 0, Field{}),
		members: make(map[*object.WorldObject]struct{}),
		byGUID:  make(map[guid.GUID]*object.WorldObject),
		diag:    diag,
	}
}

// SetEventSink подключает получателя событий (nil отключает)
func (m *Map) SetEventSink(sink EventSink) {
	m.events = sink
}

func (m *Map) publish(e Event) {
	if m.events != nil {
		m.events.HandleMapEvent(e)
	}
}

// ID возвращает идентификатор карты
func (m *Map) ID() uint32 {
	return m.id
}

// Header возвращает заголовок карты
func (m *Map) Header() Header {
	return m.header
}

// Grid возвращает сетку клеток
func (m *Map) Grid() *FieldGrid {
	return m.grid
}

// InitEmpty заполняет карту клетками по умолчанию и ставит версию формата
func (m *Map) InitEmpty(h Header) {
	if h.MapID != m.id {
		m.diag.Warn("карта %d: заголовок с чужим id %d, используем %d", m.id, h.MapID, m.id)
		h.MapID = m.id
	}
	h.VersionMagic = MapVersionMagic
	m.header = h
	m.grid = NewFieldGrid(h.SizeX, h.SizeY, h.DefaultField())
}

// Restore подменяет заголовок и сетку загруженными данными. Заголовок
// принимается как есть, кроме MapID: он всегда равен id карты, поэтому
// Header().MapID может отличаться от записанного в файле.
func (m *Map) Restore(h Header, grid *FieldGrid) error {
	if grid == nil || grid.SizeX() != h.SizeX || grid.SizeY() != h.SizeY {
		return fmt.Errorf("%w: map %d", ErrGridMismatch, m.id)
	}
	if h.MapID != m.id {
		m.diag.Warn("карта %d: загружен заголовок с id %d", m.id, h.MapID)
		h.MapID = m.id
	}
	m.header = h
	m.grid = grid
	return nil
}

// SetField записывает клетку. Вне карты ничего не меняет.
func (m *Map) SetField(x, y uint32, fieldType uint16, texture, flags uint32) error {
	old, ok := m.grid.At(x, y)
	if !ok {
		m.diag.Error("карта %d: запись клетки (%d, %d) вне границ %dx%d", m.id, x, y, m.header.SizeX, m.header.SizeY)
		return fmt.Errorf("%w: (%d, %d) on map %d", ErrInvalidCoordinate, x, y, m.id)
	}

	f := Field{Type: fieldType, Texture: texture, Flags: flags}
	if old == f {
		return nil
	}
	m.grid.Set(x, y, f)
	m.publish(FieldEvent{MapID: m.id, X: x, Y: y, Old: old, New: f})
	return nil
}

// Field возвращает клетку или false вне карты
func (m *Map) Field(x, y uint32) (Field, bool) {
	return m.grid.At(x, y)
}

// FieldUnchecked читает клетку без проверки границ
func (m *Map) FieldUnchecked(x, y uint32) Field {
	return m.grid.AtUnchecked(x, y)
}

// AddObject добавляет объект. Повторное добавление того же объекта ничего не делает.
func (m *Map) AddObject(o *object.WorldObject) error {
	if _, ok := m.members[o]; ok {
		return nil
	}
	if !o.Initialized() {
		return ErrNotInitialized
	}
	g := o.GUID()
	if other, ok := m.byGUID[g]; ok {
		m.diag.Error("карта %d: GUID %s уже занят объектом %s", m.id, g, other)
		return fmt.Errorf("%w: %s", ErrDuplicateGUID, g)
	}

	m.objects = append(m.objects, o)
	m.members[o] = struct{}{}
	m.byGUID[g] = o
	o.SetMapID(m.id)

	m.publish(ObjectEvent{
		EventType: EventTypeObjectEntered,
		MapID:     m.id,
		GUID:      g,
		Kind:      o.Kind(),
		Position:  o.Position(),
	})
	return nil
}

// RemoveObject убирает объект, если он на карте
func (m *Map) RemoveObject(o *object.WorldObject) {
	if _, ok := m.members[o]; !ok {
		return
	}
	delete(m.members, o)
	g := o.GUID()
	if m.byGUID[g] == o {
		delete(m.byGUID, g)
	}
	for i, cur := range m.objects {
		if cur == o {
			m.objects = append(m.objects[:i], m.objects[i+1:]...)
			break
		}
	}

	m.publish(ObjectEvent{
		EventType: EventTypeObjectLeft,
		MapID:     m.id,
		GUID:      g,
		Kind:      o.Kind(),
		Position:  o.Position(),
	})
}

// RemoveObjectByGUID убирает объект по GUID
func (m *Map) RemoveObjectByGUID(g guid.GUID) {
	if o, ok := m.byGUID[g]; ok {
		m.RemoveObject(o)
	}
}

// FindObject ищет объект по GUID
func (m *Map) FindObject(g guid.GUID) (*object.WorldObject, bool) {
	o, ok := m.byGUID[g]
	return o, ok
}

// HasObject проверяет присутствие объекта
func (m *Map) HasObject(o *object.WorldObject) bool {
	_, ok := m.members[o]
	return ok
}

// Objects возвращает копию списка объектов в порядке добавления
func (m *Map) Objects() []*object.WorldObject {
	result := make([]*object.WorldObject, len(m.objects))
	copy(result, m.objects)
	return result
}

// ObjectCount возвращает количество объектов
func (m *Map) ObjectCount() int {
	return len(m.objects)
}

// ObjectsInChunkRange возвращает объекты, чья клетка попадает в диапазон чанков
func (m *Map) ObjectsInChunkRange(r ChunkRange) []*object.WorldObject {
	var result []*object.WorldObject
	for _, o := range m.objects {
		cell := o.Cell()
		if !cellInRange(cell.X) || !cellInRange(cell.Y) {
			continue
		}
		if r.ContainsCell(uint32(cell.X), uint32(cell.Y)) {
			result = append(result, o)
		}
	}
	return result
}

// cellInRange - координата клетки представима как uint32
func cellInRange(c int) bool {
	return c >= 0 && int64(c) <= math.MaxUint32
}

// Tick передаёт тик всем объектам в порядке добавления
func (m *Map) Tick(now time.Time) {
	for _, o := range m.objects {
		o.Tick(now)
	}
}
