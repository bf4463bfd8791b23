package assets

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world/object"
)

// Template - шаблон объекта по entry
type Template struct {
	Entry     uint32  `yaml:"entry"`
	Kind      string  `yaml:"kind"`
	Name      string  `yaml:"name"`
	Image     uint32  `yaml:"image"`
	Scale     float32 `yaml:"scale"`
	Level     uint32  `yaml:"level"`
	MaxHealth uint32  `yaml:"max_health"`
	Faction   uint32  `yaml:"faction"`
	NPCFlags  uint32  `yaml:"npc_flags"`
	State     uint32  `yaml:"state"`

	kind object.Kind
}

// ObjectKind возвращает разобранный тип шаблона
func (t Template) ObjectKind() object.Kind {
	return t.kind
}

// SpawnPoint - объект, который ставится на карту при старте
type SpawnPoint struct {
	Map   uint32  `yaml:"map"`
	Entry uint32  `yaml:"entry"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Anim  string  `yaml:"anim"`
}

type templatesFile struct {
	Templates []Template   `yaml:"templates"`
	Spawns    []SpawnPoint `yaml:"spawns"`
}

// TemplateTable хранит шаблоны объектов и точки появления.
// Реализует источник имён для NameQuery: имя определяется по entry.
type TemplateTable struct {
	templates map[uint32]Template
	spawns    []SpawnPoint
}

// LoadTemplatesFile читает шаблоны из YAML файла
func LoadTemplatesFile(path string) (*TemplateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать шаблоны %s: %w", path, err)
	}
	return ParseTemplates(data)
}

// ParseTemplates разбирает YAML с шаблонами и точками появления
func ParseTemplates(data []byte) (*TemplateTable, error) {
	var file templatesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ошибка разбора шаблонов: %w", err)
	}

	t := &TemplateTable{templates: make(map[uint32]Template, len(file.Templates))}
	for _, tpl := range file.Templates {
		if tpl.Entry == 0 {
			return nil, fmt.Errorf("шаблон %q: entry 0 зарезервирован", tpl.Name)
		}
		if _, dup := t.templates[tpl.Entry]; dup {
			return nil, fmt.Errorf("повторяющийся entry %d", tpl.Entry)
		}
		kind, ok := object.ParseKind(tpl.Kind)
		if !ok {
			return nil, fmt.Errorf("шаблон %d: неизвестный тип %q", tpl.Entry, tpl.Kind)
		}
		tpl.kind = kind
		t.templates[tpl.Entry] = tpl
	}

	for i, sp := range file.Spawns {
		if _, ok := t.templates[sp.Entry]; !ok {
			return nil, fmt.Errorf("точка появления %d: неизвестный entry %d", i, sp.Entry)
		}
		if sp.Anim != "" {
			if _, ok := object.ParseAnimID(sp.Anim); !ok {
				return nil, fmt.Errorf("точка появления %d: неизвестная анимация %q", i, sp.Anim)
			}
		}
		if !(vec.Vec2Float{X: sp.X, Y: sp.Y}).IsFinite() || sp.X < 0 || sp.Y < 0 {
			return nil, fmt.Errorf("точка появления %d: недопустимая позиция (%v, %v)", i, sp.X, sp.Y)
		}
	}
	t.spawns = file.Spawns
	return t, nil
}

// Template возвращает шаблон по entry
func (t *TemplateTable) Template(entry uint32) (Template, bool) {
	tpl, ok := t.templates[entry]
	return tpl, ok
}

// Entries возвращает известные entry по возрастанию
func (t *TemplateTable) Entries() []uint32 {
	out := make([]uint32, 0, len(t.templates))
	for e := range t.templates {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ObjectName возвращает имя объекта по entry его GUID
func (t *TemplateTable) ObjectName(id guid.GUID) (string, bool) {
	tpl, ok := t.templates[id.Entry()]
	if !ok || tpl.Name == "" {
		return "", false
	}
	return tpl.Name, true
}

// SpawnsFor возвращает точки появления карты
func (t *TemplateTable) SpawnsFor(mapID uint32) []SpawnPoint {
	var out []SpawnPoint
	for _, sp := range t.spawns {
		if sp.Map == mapID {
			out = append(out, sp)
		}
	}
	return out
}

// Spawn создаёт и инициализирует объект по точке появления.
// Имя объекта не задаётся: оно приходит позже через NameQuery.
func (t *TemplateTable) Spawn(sp SpawnPoint, gen *guid.Generator, deps object.Deps) (*object.WorldObject, error) {
	tpl, ok := t.templates[sp.Entry]
	if !ok {
		return nil, fmt.Errorf("неизвестный entry %d", sp.Entry)
	}

	o := object.New(tpl.kind, deps)
	o.Initialize(gen.Next(tpl.Entry))
	o.SetPosition(vec.Vec2Float{X: sp.X, Y: sp.Y})
	if tpl.Scale > 0 {
		o.SetScale(tpl.Scale)
	}

	if u, ok := o.AsUnit(); ok {
		if tpl.MaxHealth > 0 {
			u.SetMaxHealth(tpl.MaxHealth)
			u.SetHealth(tpl.MaxHealth)
		}
		if tpl.Level > 0 {
			u.SetLevel(tpl.Level)
		}
	}
	if c, ok := o.AsCreature(); ok {
		c.SetFaction(tpl.Faction)
		c.SetNPCFlags(tpl.NPCFlags)
	}
	if g, ok := o.AsGameobject(); ok {
		g.SetState(tpl.State)
	}

	// изображение ставится последним, чтобы анимация нашла запись
	o.SetImageID(tpl.Image)
	if anim, ok := object.ParseAnimID(sp.Anim); ok {
		o.SetAnimation(anim)
	}
	return o, nil
}
