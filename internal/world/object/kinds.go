package object

import (
	"fmt"

	"github.com/annel0/bubble-world/internal/updatefield"
)

// Kind - закрытый набор типов объектов мира.
type Kind uint8

const (
	KindGeneric Kind = iota
	KindUnit
	KindPlayer
	KindCreature
	KindGameobject

	kindCount // всегда последний
)

// String возвращает имя типа
func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindUnit:
		return "unit"
	case KindPlayer:
		return "player"
	case KindCreature:
		return "creature"
	case KindGameobject:
		return "gameobject"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind разбирает имя типа, обратная операция к String
func ParseKind(name string) (Kind, bool) {
	for k := KindGeneric; k < kindCount; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Valid проверяет, что тип входит в закрытый набор
func (k Kind) Valid() bool {
	return k < kindCount
}

// IsUnit возвращает true для unit и его наследников
func (k Kind) IsUnit() bool {
	return k == KindUnit || k == KindPlayer || k == KindCreature
}

// kindInfo описывает тип: размер хранилища, маску и начальные значения полей.
type kindInfo struct {
	fieldCount int
	typeMask   uint32
	init       func(s *updatefield.Store)
}

const (
	// DefaultScale - масштаб визуала по умолчанию
	DefaultScale float32 = 1.0
	// DefaultMoveSpeed - скорость передвижения юнита по умолчанию (клеток/сек)
	DefaultMoveSpeed float32 = 2.5
)

var kindTable = [kindCount]kindInfo{
	KindGeneric: {
		fieldCount: updatefield.ObjectFieldsEnd,
		typeMask:   updatefield.TypeMaskObject,
		init:       initObjectFields,
	},
	KindUnit: {
		fieldCount: updatefield.UnitFieldsEnd,
		typeMask:   updatefield.TypeMaskObject | updatefield.TypeMaskUnit,
		init:       initUnitFields,
	},
	KindPlayer: {
		fieldCount: updatefield.PlayerFieldsEnd,
		typeMask:   updatefield.TypeMaskObject | updatefield.TypeMaskUnit | updatefield.TypeMaskPlayer,
		init:       initUnitFields,
	},
	KindCreature: {
		fieldCount: updatefield.CreatureFieldsEnd,
		typeMask:   updatefield.TypeMaskObject | updatefield.TypeMaskUnit | updatefield.TypeMaskCreature,
		init:       initUnitFields,
	},
	KindGameobject: {
		fieldCount: updatefield.GameobjectFieldsEnd,
		typeMask:   updatefield.TypeMaskObject | updatefield.TypeMaskGameobject,
		init:       initObjectFields,
	},
}

// FieldCount возвращает размер хранилища полей для типа
func (k Kind) FieldCount() int {
	return kindTable[k].fieldCount
}

// TypeMask возвращает маску типа, записываемую в ObjectFieldType
func (k Kind) TypeMask() uint32 {
	return kindTable[k].typeMask
}

func initObjectFields(s *updatefield.Store) {
	s.SetFloat(updatefield.ObjectFieldScale, DefaultScale)
}

func initUnitFields(s *updatefield.Store) {
	initObjectFields(s)
	s.SetUint32(updatefield.UnitFieldLevel, 1)
	s.SetFloat(updatefield.UnitFieldMoveSpeed, DefaultMoveSpeed)
}
