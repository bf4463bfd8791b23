package eventbus

import "time"

// Типы событий мира
const (
	EventCanvasRedraw  = "CanvasRedraw"
	EventNameQuery     = "NameQuery"
	EventNameResponse  = "NameResponse"
	EventObjectEntered = "ObjectEntered"
	EventObjectLeft    = "ObjectLeft"
	EventFieldChanged  = "FieldChanged"
	EventFieldSync     = "FieldSync"
)

// CanvasRedrawPayload - запрос перерисовки
type CanvasRedrawPayload struct {
	At time.Time `json:"at"`
}

// NameQueryPayload - запрос имени объекта
type NameQueryPayload struct {
	GUID uint64 `json:"guid"`
}

// NameResponsePayload - ответ на NameQuery
type NameResponsePayload struct {
	GUID uint64 `json:"guid"`
	Name string `json:"name"`
}

// ObjectPayload - объект вошёл на карту или покинул её
type ObjectPayload struct {
	MapID uint32  `json:"map_id"`
	GUID  uint64  `json:"guid"`
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// FieldChangedPayload - новое содержимое клетки
type FieldChangedPayload struct {
	MapID   uint32 `json:"map_id"`
	X       uint32 `json:"x"`
	Y       uint32 `json:"y"`
	Type    uint16 `json:"type"`
	Texture uint32 `json:"texture"`
	Flags   uint32 `json:"flags"`
}
