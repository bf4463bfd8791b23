package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/annel0/bubble-world/internal/world/object"
)

// ErrPlacementNotFound - для GUID нет сохранённого размещения
var ErrPlacementNotFound = errors.New("storage: placement not found")

// Placement - где находится объект: карта и точная позиция
type Placement struct {
	MapID uint32  `json:"map_id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Position возвращает позицию как вектор
func (p Placement) Position() vec.Vec2Float {
	return vec.Vec2Float{X: p.X, Y: p.Y}
}

// PlacementOf снимает размещение с объекта
func PlacementOf(o *object.WorldObject) Placement {
	pos := o.Position()
	return Placement{MapID: o.MapID(), X: pos.X, Y: pos.Y}
}

func validatePlacement(id guid.GUID, p Placement) error {
	if id.IsEmpty() {
		return fmt.Errorf("недействительный GUID: %s", id)
	}
	if !p.Position().IsFinite() {
		return fmt.Errorf("недействительная позиция для %s: (%v, %v)", id, p.X, p.Y)
	}
	return nil
}

// PlacementRepo хранит размещения объектов между перезапусками.
// Ключ - GUID объекта.
type PlacementRepo interface {
	// Save сохраняет размещение объекта
	Save(ctx context.Context, id guid.GUID, p Placement) error

	// Load возвращает размещение; false - объект ещё не сохранялся
	Load(ctx context.Context, id guid.GUID) (Placement, bool, error)

	// Delete удаляет размещение, ErrPlacementNotFound если его нет
	Delete(ctx context.Context, id guid.GUID) error

	// BatchSave сохраняет несколько размещений разом (автосохранение)
	BatchSave(ctx context.Context, placements map[guid.GUID]Placement) error
}

// SaveMapPlacements сохраняет размещения всех объектов карты одним батчем.
// Вызывать под блокировкой карты (через Runner.Do).
func SaveMapPlacements(ctx context.Context, repo PlacementRepo, m *world.Map) error {
	objects := m.Objects()
	if len(objects) == 0 {
		return nil
	}
	batch := make(map[guid.GUID]Placement, len(objects))
	for _, o := range objects {
		batch[o.GUID()] = PlacementOf(o)
	}
	return repo.BatchSave(ctx, batch)
}
