package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/bubble-world/internal/guid"
)

// MemoryPlacementRepo реализует PlacementRepo в памяти.
// Используется, когда MariaDB и Redis не настроены, и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryPlacementRepo struct {
	mu   sync.RWMutex
	data map[guid.GUID]Placement
}

// NewMemoryPlacementRepo создает репозиторий размещений в памяти
func NewMemoryPlacementRepo() *MemoryPlacementRepo {
	return &MemoryPlacementRepo{
		data: make(map[guid.GUID]Placement),
	}
}

// Save сохраняет размещение в памяти
func (r *MemoryPlacementRepo) Save(ctx context.Context, id guid.GUID, p Placement) error {
	if err := validatePlacement(id, p); err != nil {
		return err
	}

	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[id] = p
	return nil
}

// Load загружает размещение из памяти
func (r *MemoryPlacementRepo) Load(ctx context.Context, id guid.GUID) (Placement, bool, error) {
	if id.IsEmpty() {
		return Placement{}, false, fmt.Errorf("недействительный GUID: %s", id)
	}

	select {
	case <-ctx.Done():
		return Placement{}, false, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.data[id]
	return p, exists, nil
}

// Delete удаляет размещение
func (r *MemoryPlacementRepo) Delete(ctx context.Context, id guid.GUID) error {
	if id.IsEmpty() {
		return fmt.Errorf("недействительный GUID: %s", id)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[id]; !exists {
		return fmt.Errorf("%w: %s", ErrPlacementNotFound, id)
	}

	delete(r.data, id)
	return nil
}

// BatchSave сохраняет все размещения или ни одного
func (r *MemoryPlacementRepo) BatchSave(ctx context.Context, placements map[guid.GUID]Placement) error {
	if len(placements) == 0 {
		return nil // Нечего сохранять
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Валидация всех записей перед сохранением
	for id, p := range placements {
		if err := validatePlacement(id, p); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range placements {
		r.data[id] = p
	}
	return nil
}

// All возвращает копию всех размещений (для отладки и тестов)
func (r *MemoryPlacementRepo) All() map[guid.GUID]Placement {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[guid.GUID]Placement, len(r.data))
	for id, p := range r.data {
		result[id] = p
	}
	return result
}

// Count возвращает количество сохранённых размещений
func (r *MemoryPlacementRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Clear очищает репозиторий (для тестов)
func (r *MemoryPlacementRepo) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = make(map[guid.GUID]Placement)
}
