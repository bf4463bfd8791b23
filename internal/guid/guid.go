package guid

import (
	"fmt"
	"strconv"
	"strings"
)

// GUID - глобально уникальный 64-битный идентификатор объекта.
// Старшие 32 бита - entry (шаблон/тип), младшие 32 бита - low (номер экземпляра).
type GUID uint64

// Empty - недействительный идентификатор.
const Empty GUID = 0

// Make собирает GUID из entry и low.
func Make(entry, low uint32) GUID {
	return GUID(uint64(entry)<<32 | uint64(low))
}

// Entry возвращает entry-часть идентификатора.
func (g GUID) Entry() uint32 {
	return uint32(uint64(g) >> 32)
}

// Low возвращает low-часть идентификатора.
func (g GUID) Low() uint32 {
	return uint32(uint64(g) & 0xFFFFFFFF)
}

// IsEmpty возвращает true для нулевого GUID.
func (g GUID) IsEmpty() bool {
	return g == Empty
}

func (g GUID) String() string {
	return fmt.Sprintf("%08X:%08X", g.Entry(), g.Low())
}

// Parse разбирает GUID в формате String ("EEEEEEEE:LLLLLLLL", hex)
// или как десятичное 64-битное число.
func Parse(s string) (GUID, error) {
	if entry, low, ok := strings.Cut(s, ":"); ok {
		e, err := strconv.ParseUint(entry, 16, 32)
		if err != nil {
			return Empty, fmt.Errorf("guid %q: entry: %w", s, err)
		}
		l, err := strconv.ParseUint(low, 16, 32)
		if err != nil {
			return Empty, fmt.Errorf("guid %q: low: %w", s, err)
		}
		return Make(uint32(e), uint32(l)), nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Empty, fmt.Errorf("guid %q: %w", s, err)
	}
	return GUID(v), nil
}
