package updatefield

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidLane - байтовая дорожка вне диапазона 0..3.
	ErrInvalidLane = errors.New("updatefield: invalid byte lane")
	// ErrSizeMismatch - размер снимка не совпадает с размером хранилища.
	ErrSizeMismatch = errors.New("updatefield: snapshot size mismatch")
	// ErrNotAllocated - хранилище ещё не выделено.
	ErrNotAllocated = errors.New("updatefield: store is not allocated")
)

// Store - плотный массив 32-битных слов объекта.
//
// Индексы полей не проверяются: вызывающий код обязан соблюдать
// *FieldsEnd своего типа. Запись значения, совпадающего с текущим,
// ничего не меняет и не попадает в маску изменений.
type Store struct {
	words         []uint32
	mask          UpdateMask
	changeCounter int
}

// Allocate выделяет n обнулённых слов. Повторный вызов - ошибка программиста.
func (s *Store) Allocate(n int) {
	if s.words != nil {
		panic("updatefield: store already allocated")
	}
	s.words = make([]uint32, n)
	s.mask = NewUpdateMask(n)
}

// Allocated возвращает true после Allocate.
func (s *Store) Allocated() bool {
	return s.words != nil
}

// Len возвращает количество слов.
func (s *Store) Len() int {
	return len(s.words)
}

// SetUint32 записывает слово index.
func (s *Store) SetUint32(index int, value uint32) {
	if s.words[index] == value {
		return
	}
	s.words[index] = value
	s.mask.Set(index)
	s.changeCounter++
}

// Uint32 читает слово index.
func (s *Store) Uint32(index int) uint32 {
	return s.words[index]
}

// SetInt32 записывает знаковое значение.
func (s *Store) SetInt32(index int, value int32) {
	s.SetUint32(index, uint32(value))
}

// Int32 читает знаковое значение.
func (s *Store) Int32(index int) int32 {
	return int32(s.Uint32(index))
}

// SetUint64 записывает 64-битное значение в слова index (младшее) и index+1 (старшее).
func (s *Store) SetUint64(index int, value uint64) {
	s.SetUint32(index, uint32(value&0xFFFFFFFF))
	s.SetUint32(index+1, uint32(value>>32))
}

// Uint64 читает 64-битное значение из index и index+1.
func (s *Store) Uint64(index int) uint64 {
	return uint64(s.words[index]) | uint64(s.words[index+1])<<32
}

// SetInt64 записывает знаковое 64-битное значение.
func (s *Store) SetInt64(index int, value int64) {
	s.SetUint64(index, uint64(value))
}

// Int64 читает знаковое 64-битное значение.
func (s *Store) Int64(index int) int64 {
	return int64(s.Uint64(index))
}

// SetByte записывает байт в дорожку lane (0..3) слова index,
// не затрагивая остальные три дорожки.
func (s *Store) SetByte(index int, lane uint8, value uint8) {
	shift := laneShift(lane)
	word := s.words[index]
	if uint8(word>>shift) == value {
		return
	}
	s.SetUint32(index, word&^(0xFF<<shift)|uint32(value)<<shift)
}

// Byte читает байт из дорожки lane слова index.
func (s *Store) Byte(index int, lane uint8) uint8 {
	return uint8(s.words[index] >> laneShift(lane))
}

// SetInt8 записывает знаковый байт.
func (s *Store) SetInt8(index int, lane uint8, value int8) {
	s.SetByte(index, lane, uint8(value))
}

// Int8 читает знаковый байт.
func (s *Store) Int8(index int, lane uint8) int8 {
	return int8(s.Byte(index, lane))
}

// SetFloat записывает float побитово (без числового преобразования).
func (s *Store) SetFloat(index int, value float32) {
	s.SetUint32(index, math.Float32bits(value))
}

// Float читает слово как float.
func (s *Store) Float(index int) float32 {
	return math.Float32frombits(s.words[index])
}

// Load перезаписывает всё хранилище из little-endian снимка
// длиной ровно 4*Len() байт. Изменившиеся слова попадают в маску.
func (s *Store) Load(data []byte) error {
	if s.words == nil {
		return ErrNotAllocated
	}
	if len(data) != 4*len(s.words) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(data), 4*len(s.words))
	}
	for i := range s.words {
		s.SetUint32(i, binary.LittleEndian.Uint32(data[i*4:]))
	}
	return nil
}

// Snapshot возвращает little-endian копию хранилища.
func (s *Store) Snapshot() []byte {
	out := make([]byte, 4*len(s.words))
	for i, w := range s.words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// HasChanges возвращает true, если после последнего ClearChanges были записи.
func (s *Store) HasChanges() bool {
	return s.changeCounter > 0
}

// ChangeCounter возвращает количество фактических записей слов.
func (s *Store) ChangeCounter() int {
	return s.changeCounter
}

// Changed возвращает индексы изменённых слов по возрастанию.
func (s *Store) Changed() []int {
	return s.mask.Indices()
}

// ClearChanges сбрасывает маску изменений.
func (s *Store) ClearChanges() {
	s.mask.Clear()
	s.changeCounter = 0
}

func laneShift(lane uint8) uint {
	if lane > 3 {
		panic(fmt.Errorf("%w: %d", ErrInvalidLane, lane))
	}
	return uint(lane) * 8
}
