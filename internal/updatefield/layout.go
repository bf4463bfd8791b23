package updatefield

// Раскладка полей по типам объектов. Каждый тип продолжает диапазон
// родителя; *FieldsEnd - количество 32-битных слов хранилища этого типа.
const (
	ObjectFieldGUID    = 0 // uint64, 2 слова
	ObjectFieldType    = 2 // маска TypeMask*
	ObjectFieldImageID = 3 // ссылка на изображение (0 - нет визуала)
	ObjectFieldScale   = 4 // float
	ObjectFieldsEnd    = 5
)

const (
	UnitFieldHealth    = ObjectFieldsEnd + 0
	UnitFieldMaxHealth = ObjectFieldsEnd + 1
	UnitFieldLevel     = ObjectFieldsEnd + 2
	UnitFieldBytes0    = ObjectFieldsEnd + 3 // race, class, gender, power type
	UnitFieldMoveSpeed = ObjectFieldsEnd + 4 // float
	UnitFieldTarget    = ObjectFieldsEnd + 5 // uint64, 2 слова
	UnitFieldsEnd      = ObjectFieldsEnd + 7
)

const (
	PlayerFieldXP          = UnitFieldsEnd + 0
	PlayerFieldNextLevelXP = UnitFieldsEnd + 1
	PlayerFieldMoney       = UnitFieldsEnd + 2 // uint64, 2 слова
	PlayerFieldBytes       = UnitFieldsEnd + 4 // skin, face, hair style, hair color
	PlayerFieldsEnd        = UnitFieldsEnd + 5
)

const (
	CreatureFieldFaction  = UnitFieldsEnd + 0
	CreatureFieldNPCFlags = UnitFieldsEnd + 1
	CreatureFieldsEnd     = UnitFieldsEnd + 2
)

const (
	GameobjectFieldState    = ObjectFieldsEnd + 0
	GameobjectFieldFlags    = ObjectFieldsEnd + 1
	GameobjectFieldRotation = ObjectFieldsEnd + 2 // float
	GameobjectFieldBytes    = ObjectFieldsEnd + 3
	GameobjectFieldsEnd     = ObjectFieldsEnd + 4
)

// Маски типов, записываемые в ObjectFieldType.
const (
	TypeMaskObject     uint32 = 1 << 0
	TypeMaskUnit       uint32 = 1 << 1
	TypeMaskPlayer     uint32 = 1 << 2
	TypeMaskCreature   uint32 = 1 << 3
	TypeMaskGameobject uint32 = 1 << 4
)

// Байтовые дорожки UnitFieldBytes0.
const (
	UnitBytes0Race      = 0
	UnitBytes0Class     = 1
	UnitBytes0Gender    = 2
	UnitBytes0PowerType = 3
)
