package sync

import (
	"sync"
	"time"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/logging"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/annel0/bubble-world/internal/world/object"
)

// Collector - обработчик конца тика: собирает изменённые слова полей
// всех объектов карты, сбрасывает их маски и передаёт BatchManager'у.
// Новые объекты отправляются целиком, исчезнувшие - записью удаления.
// Позиция не входит в поля, поэтому её смена тоже даёт запись.
type Collector struct {
	bm     *BatchManager
	source string

	mu    sync.Mutex
	known map[uint32]map[guid.GUID]trackedObject
}

type trackedObject struct {
	kind     object.Kind
	position vec.Vec2Float
}

// NewCollector создаёт сборщик изменений
func NewCollector(bm *BatchManager, source string) *Collector {
	return &Collector{
		bm:     bm,
		source: source,
		known:  make(map[uint32]map[guid.GUID]trackedObject),
	}
}

// Hook возвращает обработчик для world.Runner.AddPostTickHook
func (c *Collector) Hook() world.PostTickHook {
	return func(m *world.Map, info world.TickInfo) {
		c.Collect(m, info.Now)
	}
}

// Collect обходит карту. Вызывается под блокировкой карты.
func (c *Collector) Collect(m *world.Map, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	known, ok := c.known[m.ID()]
	if !ok {
		known = make(map[guid.GUID]trackedObject)
		c.known[m.ID()] = known
	}

	seen := make(map[guid.GUID]struct{}, len(known))
	sent := 0
	for _, o := range m.Objects() {
		g := o.GUID()
		seen[g] = struct{}{}

		u := FieldUpdate{
			Kind:       UpdateValues,
			MapID:      m.ID(),
			GUID:       g,
			ObjectKind: o.Kind(),
			Position:   o.Position(),
		}
		priority := PriorityValues
		fields := o.Fields()

		prev, wasKnown := known[g]
		known[g] = trackedObject{kind: o.Kind(), position: u.Position}
		if !wasKnown {
			u.Kind = UpdateCreate
			priority = PriorityCreate
			u.Words = make([]Word, fields.Len())
			for i := range u.Words {
				u.Words[i] = Word{Index: uint16(i), Value: fields.Uint32(i)}
			}
		} else if fields.HasChanges() || prev.position != u.Position {
			for _, i := range fields.Changed() {
				u.Words = append(u.Words, Word{Index: uint16(i), Value: fields.Uint32(i)})
			}
		} else {
			continue
		}
		fields.ClearChanges()

		if c.emit(u, priority, now) {
			sent++
		}
	}

	for g, tracked := range known {
		if _, ok := seen[g]; ok {
			continue
		}
		delete(known, g)
		if c.emit(FieldUpdate{Kind: UpdateRemove, MapID: m.ID(), GUID: g, ObjectKind: tracked.kind}, PriorityCreate, now) {
			sent++
		}
	}
	return sent
}

func (c *Collector) emit(u FieldUpdate, priority int, now time.Time) bool {
	data, err := u.MarshalBinary()
	if err != nil {
		logging.Warn("Collector: объект %s не закодирован: %v", u.GUID, err)
		return false
	}
	c.bm.AddChange(Change{
		Data:         data,
		Priority:     priority,
		Timestamp:    now,
		SourceRegion: c.source,
		ChangeType:   ChangeTypeFieldUpdate,
	})
	return true
}
