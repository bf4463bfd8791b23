package world

// Размер чанка в клетках и радиус окрестности в чанках
const (
	ChunkWidth  uint32 = 16
	ChunkHeight uint32 = 16
	SurroundX   uint32 = 1
	SurroundY   uint32 = 1
)

// ChunkIndexOf возвращает индекс чанка для координаты
func ChunkIndexOf(c, size uint32) uint32 {
	return c / size
}

// ChunkStartOf возвращает первую координату чанка
func ChunkStartOf(i, size uint32) uint32 {
	return i * size
}

func ChunkIndexX(x uint32) uint32 { return ChunkIndexOf(x, ChunkWidth) }
func ChunkIndexY(y uint32) uint32 { return ChunkIndexOf(y, ChunkHeight) }
func ChunkStartX(i uint32) uint32 { return ChunkStartOf(i, ChunkWidth) }
func ChunkStartY(i uint32) uint32 { return ChunkStartOf(i, ChunkHeight) }

// ChunkCount возвращает количество чанков по оси размера size
func ChunkCount(size, chunk uint32) uint32 {
	if size == 0 {
		return 0
	}
	return ChunkIndexOf(size-1, chunk) + 1
}

// ChunkRange - прямоугольник индексов чанков, границы включительно
type ChunkRange struct {
	BeginX, BeginY uint32
	EndX, EndY     uint32
	empty          bool
}

// Empty возвращает true для диапазона карты без клеток
func (r ChunkRange) Empty() bool {
	return r.empty
}

// Contains проверяет индекс чанка
func (r ChunkRange) Contains(cx, cy uint32) bool {
	if r.empty {
		return false
	}
	return cx >= r.BeginX && cx <= r.EndX && cy >= r.BeginY && cy <= r.EndY
}

// ContainsCell проверяет, попадает ли клетка в один из чанков диапазона
func (r ChunkRange) ContainsCell(x, y uint32) bool {
	return r.Contains(ChunkIndexX(x), ChunkIndexY(y))
}

// Count возвращает количество чанков в диапазоне
func (r ChunkRange) Count() int {
	if r.empty {
		return 0
	}
	return int(r.EndX-r.BeginX+1) * int(r.EndY-r.BeginY+1)
}

// ForEach обходит чанки по столбцам, как хранится сетка
func (r ChunkRange) ForEach(fn func(cx, cy uint32)) {
	if r.empty {
		return
	}
	for cx := r.BeginX; cx <= r.EndX; cx++ {
		for cy := r.BeginY; cy <= r.EndY; cy++ {
			fn(cx, cy)
		}
	}
}

// surroundingRange считает окрестность по одной оси с прижатием к [0, last]
func surroundingRange(c, radius, last uint32) (uint32, uint32) {
	begin := uint32(0)
	if c > radius {
		begin = c - radius
	}
	if begin > last {
		begin = last
	}
	end := last
	if c <= last && last-c > radius {
		end = c + radius
	}
	return begin, end
}

// SurroundingChunkRange возвращает окрестность чанка (cx, cy) радиусом
// SurroundX x SurroundY, прижатую к границам карты
func (m *Map) SurroundingChunkRange(cx, cy uint32) ChunkRange {
	countX := ChunkCount(m.header.SizeX, ChunkWidth)
	countY := ChunkCount(m.header.SizeY, ChunkHeight)
	if countX == 0 || countY == 0 {
		return ChunkRange{empty: true}
	}

	var r ChunkRange
	r.BeginX, r.EndX = surroundingRange(cx, SurroundX, countX-1)
	r.BeginY, r.EndY = surroundingRange(cy, SurroundY, countY-1)
	return r
}

// ChunkCountX возвращает количество чанков по X
func (m *Map) ChunkCountX() uint32 {
	return ChunkCount(m.header.SizeX, ChunkWidth)
}

// ChunkCountY возвращает количество чанков по Y
func (m *Map) ChunkCountY() uint32 {
	return ChunkCount(m.header.SizeY, ChunkHeight)
}
