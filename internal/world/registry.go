package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/bubble-world/internal/guid"
)

// ErrMapNotRunning - карта с таким id не зарегистрирована
var ErrMapNotRunning = errors.New("map is not running")

// Registry хранит исполнителей всех поднятых карт
type Registry struct {
	mu      sync.RWMutex
	runners map[uint32]*Runner
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{runners: make(map[uint32]*Runner)}
}

// Register добавляет исполнителя. Повторная регистрация того же id - ошибка.
func (r *Registry) Register(runner *Runner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := runner.MapID()
	if _, exists := r.runners[id]; exists {
		return fmt.Errorf("карта %d уже зарегистрирована", id)
	}
	r.runners[id] = runner
	return nil
}

// Runner возвращает исполнителя карты
func (r *Registry) Runner(mapID uint32) (*Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[mapID]
	return runner, ok
}

// Do выполняет fn над картой mapID под её блокировкой
func (r *Registry) Do(mapID uint32, fn func(m *Map) error) error {
	runner, ok := r.Runner(mapID)
	if !ok {
		return fmt.Errorf("карта %d: %w", mapID, ErrMapNotRunning)
	}
	return runner.Do(fn)
}

// MapIDs возвращает id карт по возрастанию
func (r *Registry) MapIDs() []uint32 {
	r.mu.RLock()
	ids := make([]uint32, 0, len(r.runners))
	for id := range r.runners {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Runners возвращает исполнителей в порядке id
func (r *Registry) Runners() []*Runner {
	ids := r.MapIDs()
	out := make([]*Runner, 0, len(ids))
	for _, id := range ids {
		if runner, ok := r.Runner(id); ok {
			out = append(out, runner)
		}
	}
	return out
}

// SetObjectName ищет объект на всех картах и задаёт ему имя.
// Возвращает false, если объект нигде не найден.
func (r *Registry) SetObjectName(g guid.GUID, name string) bool {
	for _, runner := range r.Runners() {
		found := false
		runner.Do(func(m *Map) error {
			if o, ok := m.FindObject(g); ok {
				o.SetName(name)
				found = true
			}
			return nil
		})
		if found {
			return true
		}
	}
	return false
}

// SaveAll сохраняет все карты и возвращает первую ошибку
func (r *Registry) SaveAll(ctx context.Context) error {
	var firstErr error
	for _, runner := range r.Runners() {
		if err := runner.Save(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("карта %d: %w", runner.MapID(), err)
		}
	}
	return firstErr
}
