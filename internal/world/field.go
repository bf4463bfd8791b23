package world

// MapVersionMagic записывается в заголовок каждой новой карты ("BWM1")
const MapVersionMagic uint32 = 0x314D5742

// Field - одна клетка карты
type Field struct {
	Type    uint16
	Texture uint32
	Flags   uint32
}

// Header описывает размеры карты и клетку по умолчанию
type Header struct {
	MapID               uint32
	SizeX               uint32
	SizeY               uint32
	DefaultFieldType    uint16
	DefaultFieldTexture uint32
	DefaultFieldFlags   uint32
	VersionMagic        uint32
}

// DefaultField возвращает клетку, которой заполняется пустая карта
func (h Header) DefaultField() Field {
	return Field{
		Type:    h.DefaultFieldType,
		Texture: h.DefaultFieldTexture,
		Flags:   h.DefaultFieldFlags,
	}
}

// FieldCount возвращает количество клеток карты
func (h Header) FieldCount() uint64 {
	return uint64(h.SizeX) * uint64(h.SizeY)
}

// HasValidMagic сообщает, стоит ли в заголовке текущая версия формата
func (h Header) HasValidMagic() bool {
	return h.VersionMagic == MapVersionMagic
}
