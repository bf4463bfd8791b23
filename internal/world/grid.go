package world

// FieldGrid - плотная сетка клеток, хранимая по столбцам: index = x*sizeY + y.
type FieldGrid struct {
	sizeX  uint32
	sizeY  uint32
	fields []Field
}

// NewFieldGrid создаёт сетку, заполненную значением fill
func NewFieldGrid(sizeX, sizeY uint32, fill Field) *FieldGrid {
	fields := make([]Field, int(sizeX)*int(sizeY))
	for i := range fields {
		fields[i] = fill
	}
	return &FieldGrid{sizeX: sizeX, sizeY: sizeY, fields: fields}
}

// NewFieldGridFrom оборачивает готовый срез клеток. Длина среза должна быть sizeX*sizeY.
func NewFieldGridFrom(sizeX, sizeY uint32, fields []Field) (*FieldGrid, bool) {
	if uint64(len(fields)) != uint64(sizeX)*uint64(sizeY) {
		return nil, false
	}
	return &FieldGrid{sizeX: sizeX, sizeY: sizeY, fields: fields}, true
}

func (g *FieldGrid) SizeX() uint32 { return g.sizeX }
func (g *FieldGrid) SizeY() uint32 { return g.sizeY }
func (g *FieldGrid) Len() int      { return len(g.fields) }

// InBounds проверяет координаты
func (g *FieldGrid) InBounds(x, y uint32) bool {
	return x < g.sizeX && y < g.sizeY
}

func (g *FieldGrid) index(x, y uint32) int {
	return int(x)*int(g.sizeY) + int(y)
}

// At возвращает клетку или false, если координаты вне карты
func (g *FieldGrid) At(x, y uint32) (Field, bool) {
	if !g.InBounds(x, y) {
		return Field{}, false
	}
	return g.fields[g.index(x, y)], true
}

// AtUnchecked - чтение без проверки границ, координаты проверяет вызывающий
func (g *FieldGrid) AtUnchecked(x, y uint32) Field {
	return g.fields[g.index(x, y)]
}

// Set записывает клетку; вне карты возвращает false и ничего не меняет
func (g *FieldGrid) Set(x, y uint32, f Field) bool {
	if !g.InBounds(x, y) {
		return false
	}
	g.fields[g.index(x, y)] = f
	return true
}

// Fields возвращает клетки в порядке хранения (по столбцам). Срез общий с сеткой.
func (g *FieldGrid) Fields() []Field {
	return g.fields
}

// Clone возвращает независимую копию
func (g *FieldGrid) Clone() *FieldGrid {
	fields := make([]Field, len(g.fields))
	copy(fields, g.fields)
	return &FieldGrid{sizeX: g.sizeX, sizeY: g.sizeY, fields: fields}
}
