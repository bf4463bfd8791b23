// Package assets загружает таблицу изображений и их анимаций.
package assets

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/bubble-world/internal/world/object"
)

type animationSpec struct {
	Begin   uint32 `yaml:"begin"`
	End     uint32 `yaml:"end"`
	DelayMs int    `yaml:"delay_ms"`
}

type imageSpec struct {
	ID         uint32                   `yaml:"id"`
	Name       string                   `yaml:"name"`
	Animations map[string]animationSpec `yaml:"animations"`
}

type animationsFile struct {
	Images []imageSpec `yaml:"images"`
}

type animKey struct {
	image uint32
	anim  object.AnimID
}

// AnimationTable реализует object.AnimationLookup. Таблицу можно
// перезагрузить на лету, чтение и замена потокобезопасны.
type AnimationTable struct {
	mu      sync.RWMutex
	records map[animKey]object.AnimationRecord
	names   map[uint32]string
}

var _ object.AnimationLookup = (*AnimationTable)(nil)

// NewAnimationTable создаёт пустую таблицу
func NewAnimationTable() *AnimationTable {
	return &AnimationTable{
		records: make(map[animKey]object.AnimationRecord),
		names:   make(map[uint32]string),
	}
}

// LoadAnimationsFile читает таблицу из YAML файла
func LoadAnimationsFile(path string) (*AnimationTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать анимации %s: %w", path, err)
	}
	t := NewAnimationTable()
	if err := t.Reload(data); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload разбирает YAML и атомарно подменяет содержимое таблицы
func (t *AnimationTable) Reload(data []byte) error {
	var file animationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("ошибка разбора анимаций: %w", err)
	}

	records := make(map[animKey]object.AnimationRecord)
	names := make(map[uint32]string, len(file.Images))
	for _, img := range file.Images {
		if img.ID == 0 {
			return fmt.Errorf("изображение %q: id 0 зарезервирован", img.Name)
		}
		if _, dup := names[img.ID]; dup {
			return fmt.Errorf("повторяющийся id изображения %d", img.ID)
		}
		names[img.ID] = img.Name

		for animName, spec := range img.Animations {
			anim, ok := object.ParseAnimID(animName)
			if !ok {
				return fmt.Errorf("изображение %d: неизвестная анимация %q", img.ID, animName)
			}
			if spec.End < spec.Begin {
				return fmt.Errorf("изображение %d, %s: конец %d раньше начала %d", img.ID, animName, spec.End, spec.Begin)
			}
			records[animKey{img.ID, anim}] = object.AnimationRecord{
				FrameBegin: spec.Begin,
				FrameEnd:   spec.End,
				FrameDelay: time.Duration(spec.DelayMs) * time.Millisecond,
			}
		}
	}

	t.mu.Lock()
	t.records = records
	t.names = names
	t.mu.Unlock()
	return nil
}

// Animation реализует object.AnimationLookup
func (t *AnimationTable) Animation(imageID uint32, anim object.AnimID) (object.AnimationRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[animKey{imageID, anim}]
	return rec, ok
}

// Set добавляет или заменяет запись
func (t *AnimationTable) Set(imageID uint32, anim object.AnimID, rec object.AnimationRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[animKey{imageID, anim}] = rec
}

// ImageName возвращает имя изображения
func (t *AnimationTable) ImageName(imageID uint32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.names[imageID]
	return name, ok
}

// Images возвращает id известных изображений по возрастанию
func (t *AnimationTable) Images() []uint32 {
	t.mu.RLock()
	ids := make([]uint32, 0, len(t.names))
	for id := range t.names {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
