package vec

// Vec2 представляет целочисленные 2D координаты (клетки карты, индексы чанков)
type Vec2 struct {
	X, Y int
}

// ToChunkCoords преобразует координаты клетки в индекс чанка размером w x h
func (v Vec2) ToChunkCoords(w, h int) Vec2 {
	return Vec2{X: v.X / w, Y: v.Y / h}
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}
