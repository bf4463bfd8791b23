package world

import (
	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world/object"
)

// EventType определяет тип события карты
type EventType uint8

const (
	EventTypeObjectEntered EventType = iota // Объект добавлен на карту
	EventTypeObjectLeft                     // Объект убран с карты
	EventTypeFieldChanged                   // Клетка изменена
)

// String возвращает имя типа события
func (t EventType) String() string {
	switch t {
	case EventTypeObjectEntered:
		return "ObjectEntered"
	case EventTypeObjectLeft:
		return "ObjectLeft"
	case EventTypeFieldChanged:
		return "FieldChanged"
	default:
		return "Unknown"
	}
}

// Event - общий интерфейс событий карты
type Event interface {
	GetType() EventType
}

// ObjectEvent - вход или выход объекта
type ObjectEvent struct {
	EventType EventType
	MapID     uint32
	GUID      guid.GUID
	Kind      object.Kind
	Position  vec.Vec2Float
}

// GetType возвращает тип события
func (e ObjectEvent) GetType() EventType {
	return e.EventType
}

// FieldEvent - изменение клетки
type FieldEvent struct {
	MapID uint32
	X, Y  uint32
	Old   Field
	New   Field
}

// GetType возвращает тип события
func (e FieldEvent) GetType() EventType {
	return EventTypeFieldChanged
}

// EventSink получает события карты. Вызывается под блокировкой карты и
// не должен блокировать.
type EventSink interface {
	HandleMapEvent(e Event)
}

// EventSinkFunc адаптирует функцию к EventSink
type EventSinkFunc func(e Event)

func (f EventSinkFunc) HandleMapEvent(e Event) {
	f(e)
}
