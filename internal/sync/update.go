package sync

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world/object"
)

// ErrBadUpdate - повреждённая запись FieldUpdate
var ErrBadUpdate = errors.New("sync: malformed field update")

// UpdateKind - что произошло с объектом
type UpdateKind uint8

const (
	UpdateValues UpdateKind = iota // изменились слова полей
	UpdateCreate                   // объект впервые замечен, слова полные
	UpdateRemove                   // объект покинул карту
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateValues:
		return "values"
	case UpdateCreate:
		return "create"
	case UpdateRemove:
		return "remove"
	default:
		return fmt.Sprintf("update(%d)", uint8(k))
	}
}

// Word - пара (индекс слова, значение)
type Word struct {
	Index uint16
	Value uint32
}

// FieldUpdate - изменения одного объекта за тик
type FieldUpdate struct {
	Kind       UpdateKind
	MapID      uint32
	GUID       guid.GUID
	ObjectKind object.Kind
	Position   vec.Vec2Float
	Words      []Word
}

// ChangeType для Change, несущего FieldUpdate
const ChangeTypeFieldUpdate = "FieldUpdate"

// updateHeader - 36 байт, little-endian
type updateHeader struct {
	Kind       uint8
	ObjectKind uint8
	Count      uint16
	MapID      uint32
	GUID       uint64
	X          float64
	Y          float64
	_          uint32
}

type wireWord struct {
	Index uint16
	_     uint16
	Value uint32
}

// MarshalBinary кодирует обновление в компактный little-endian вид
func (u FieldUpdate) MarshalBinary() ([]byte, error) {
	if len(u.Words) > 0xFFFF {
		return nil, fmt.Errorf("%w: %d words", ErrBadUpdate, len(u.Words))
	}
	var buf bytes.Buffer
	h := updateHeader{
		Kind:       uint8(u.Kind),
		ObjectKind: uint8(u.ObjectKind),
		Count:      uint16(len(u.Words)),
		MapID:      u.MapID,
		GUID:       uint64(u.GUID),
		X:          u.Position.X,
		Y:          u.Position.Y,
	}
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	words := make([]wireWord, len(u.Words))
	for i, w := range u.Words {
		words[i] = wireWord{Index: w.Index, Value: w.Value}
	}
	if err := binary.Write(&buf, binary.LittleEndian, words); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary разбирает запись, закодированную MarshalBinary
func (u *FieldUpdate) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	var h updateHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("%w: header: %v", ErrBadUpdate, err)
	}
	if UpdateKind(h.Kind) > UpdateRemove || !object.Kind(h.ObjectKind).Valid() {
		return fmt.Errorf("%w: kind %d/%d", ErrBadUpdate, h.Kind, h.ObjectKind)
	}
	words := make([]wireWord, h.Count)
	if err := binary.Read(r, binary.LittleEndian, words); err != nil {
		return fmt.Errorf("%w: words: %v", ErrBadUpdate, err)
	}
	if _, err := r.ReadByte(); err != io.EOF {
		return fmt.Errorf("%w: trailing bytes", ErrBadUpdate)
	}

	*u = FieldUpdate{
		Kind:       UpdateKind(h.Kind),
		MapID:      h.MapID,
		GUID:       guid.GUID(h.GUID),
		ObjectKind: object.Kind(h.ObjectKind),
		Position:   vec.Vec2Float{X: h.X, Y: h.Y},
		Words:      make([]Word, len(words)),
	}
	for i, w := range words {
		u.Words[i] = Word{Index: w.Index, Value: w.Value}
	}
	return nil
}
