package object

import (
	"fmt"
	"time"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/updatefield"
	"github.com/annel0/bubble-world/internal/vec"
)

// DefaultName - имя объекта, пока не пришёл ответ на запрос имени
const DefaultName = "???"

// WorldObject - сущность на карте: хранилище полей, позиция, имя и
// состояние анимации. Не потокобезопасен, доступ сериализует владелец карты.
type WorldObject struct {
	fields updatefield.Store
	kind   Kind

	position vec.Vec2Float
	mapID    uint32
	name     string

	animID    AnimID
	animFrame uint32
	animTimer time.Time

	deps Deps
}

// New создаёт объект заданного типа. Хранилище полей выделяется в Initialize.
func New(kind Kind, deps Deps) *WorldObject {
	if !kind.Valid() {
		panic(fmt.Sprintf("object: unknown kind %d", uint8(kind)))
	}
	return &WorldObject{
		kind:   kind,
		name:   DefaultName,
		animID: AnimIdle,
		deps:   deps,
	}
}

// Initialize выделяет хранилище под тип, записывает GUID и маску типа,
// заполняет начальные значения и отправляет запрос имени.
func (o *WorldObject) Initialize(g guid.GUID) {
	info := kindTable[o.kind]
	o.fields.Allocate(info.fieldCount)
	o.fields.SetUint64(updatefield.ObjectFieldGUID, uint64(g))
	o.fields.SetUint32(updatefield.ObjectFieldType, info.typeMask)
	if info.init != nil {
		info.init(&o.fields)
	}
	o.animTimer = o.deps.now()

	if o.deps.Names != nil {
		o.deps.Names.RequestName(g)
	}
}

// Initialized сообщает, было ли выделено хранилище
func (o *WorldObject) Initialized() bool {
	return o.fields.Allocated()
}

// Kind возвращает тип объекта
func (o *WorldObject) Kind() Kind {
	return o.kind
}

// Fields даёт прямой доступ к хранилищу полей
func (o *WorldObject) Fields() *updatefield.Store {
	return &o.fields
}

// GUID возвращает идентификатор объекта (Empty до Initialize)
func (o *WorldObject) GUID() guid.GUID {
	if !o.fields.Allocated() {
		return guid.Empty
	}
	return guid.GUID(o.fields.Uint64(updatefield.ObjectFieldGUID))
}

func (o *WorldObject) Entry() uint32 { return o.GUID().Entry() }
func (o *WorldObject) Low() uint32   { return o.GUID().Low() }

// ImageID возвращает ссылку на изображение, 0 - визуала нет
func (o *WorldObject) ImageID() uint32 {
	if !o.fields.Allocated() {
		return 0
	}
	return o.fields.Uint32(updatefield.ObjectFieldImageID)
}

func (o *WorldObject) SetImageID(id uint32) {
	o.fields.SetUint32(updatefield.ObjectFieldImageID, id)
	o.deps.markDirty()
}

func (o *WorldObject) Scale() float32 {
	return o.fields.Float(updatefield.ObjectFieldScale)
}

func (o *WorldObject) SetScale(scale float32) {
	o.fields.SetFloat(updatefield.ObjectFieldScale, scale)
}

// Name возвращает отображаемое имя
func (o *WorldObject) Name() string {
	return o.name
}

// SetName сохраняет имя и запрашивает перерисовку
func (o *WorldObject) SetName(name string) {
	o.name = name
	o.deps.markDirty()
}

// Position возвращает позицию в координатах клеток
func (o *WorldObject) Position() vec.Vec2Float {
	return o.position
}

func (o *WorldObject) SetPosition(pos vec.Vec2Float) {
	o.position = pos
}

// Cell возвращает клетку, в которой находится объект
func (o *WorldObject) Cell() vec.Vec2 {
	return o.position.ToVec2()
}

func (o *WorldObject) MapID() uint32 {
	return o.mapID
}

func (o *WorldObject) SetMapID(id uint32) {
	o.mapID = id
}

// String для логов
func (o *WorldObject) String() string {
	return fmt.Sprintf("%s[%s %q]", o.kind, o.GUID(), o.name)
}
