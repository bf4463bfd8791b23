package updatefield

import "math/bits"

// UpdateMask - битовая маска изменённых слов хранилища.
type UpdateMask struct {
	bits []uint64
	n    int
}

// NewUpdateMask создаёт маску на n слов.
func NewUpdateMask(n int) UpdateMask {
	return UpdateMask{
		bits: make([]uint64, (n+63)/64),
		n:    n,
	}
}

// Len возвращает количество слов, покрываемых маской.
func (m *UpdateMask) Len() int {
	return m.n
}

// Set помечает слово i.
func (m *UpdateMask) Set(i int) {
	m.bits[i>>6] |= 1 << (uint(i) & 63)
}

// IsSet проверяет, помечено ли слово i.
func (m *UpdateMask) IsSet(i int) bool {
	if i < 0 || i >= m.n {
		return false
	}
	return m.bits[i>>6]&(1<<(uint(i)&63)) != 0
}

// Count возвращает количество помеченных слов.
func (m *UpdateMask) Count() int {
	total := 0
	for _, b := range m.bits {
		total += bits.OnesCount64(b)
	}
	return total
}

// Indices возвращает индексы помеченных слов по возрастанию.
func (m *UpdateMask) Indices() []int {
	out := make([]int, 0, m.Count())
	for blk, b := range m.bits {
		for b != 0 {
			tz := bits.TrailingZeros64(b)
			out = append(out, blk*64+tz)
			b &= b - 1
		}
	}
	return out
}

// Clear снимает все пометки.
func (m *UpdateMask) Clear() {
	for i := range m.bits {
		m.bits[i] = 0
	}
}
