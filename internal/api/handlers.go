package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/annel0/bubble-world/internal/world/object"
	"github.com/gin-gonic/gin"
)

// MapInfo - сводка карты
type MapInfo struct {
	ID          uint32 `json:"id"`
	SizeX       uint32 `json:"size_x"`
	SizeY       uint32 `json:"size_y"`
	ChunksX     uint32 `json:"chunks_x"`
	ChunksY     uint32 `json:"chunks_y"`
	Objects     int    `json:"objects"`
	Ticks       uint64 `json:"ticks"`
	ValidMagic  bool   `json:"valid_magic"`
	DefaultType uint16 `json:"default_type"`
}

// FieldDTO - содержимое клетки
type FieldDTO struct {
	Type    uint16 `json:"type"`
	Texture uint32 `json:"texture"`
	Flags   uint32 `json:"flags"`
}

// ObjectDTO - объект карты
type ObjectDTO struct {
	GUID      string   `json:"guid"`
	Kind      string   `json:"kind"`
	Name      string   `json:"name"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	ImageID   uint32   `json:"image_id"`
	Animation string   `json:"animation"`
	Frame     uint32   `json:"frame"`
	Health    *uint32  `json:"health,omitempty"`
	Level     *uint32  `json:"level,omitempty"`
	Fields    []uint32 `json:"fields,omitempty"`
}

// ChunkRangeDTO - окрестность чанка
type ChunkRangeDTO struct {
	BeginX  uint32      `json:"begin_x"`
	BeginY  uint32      `json:"begin_y"`
	EndX    uint32      `json:"end_x"`
	EndY    uint32      `json:"end_y"`
	Empty   bool        `json:"empty"`
	Count   int         `json:"count"`
	Objects []ObjectDTO `json:"objects"`
}

func mapInfo(m *world.Map, ticks uint64) MapInfo {
	h := m.Header()
	return MapInfo{
		ID:          m.ID(),
		SizeX:       h.SizeX,
		SizeY:       h.SizeY,
		ChunksX:     m.ChunkCountX(),
		ChunksY:     m.ChunkCountY(),
		Objects:     m.ObjectCount(),
		Ticks:       ticks,
		ValidMagic:  h.HasValidMagic(),
		DefaultType: h.DefaultFieldType,
	}
}

func objectDTO(o *object.WorldObject, withFields bool) ObjectDTO {
	pos := o.Position()
	dto := ObjectDTO{
		GUID:      o.GUID().String(),
		Kind:      o.Kind().String(),
		Name:      o.Name(),
		X:         pos.X,
		Y:         pos.Y,
		ImageID:   o.ImageID(),
		Animation: o.Animation().String(),
		Frame:     o.AnimationFrame(),
	}
	if u, ok := o.AsUnit(); ok {
		health, level := u.Health(), u.Level()
		dto.Health = &health
		dto.Level = &level
	}
	if withFields {
		fields := o.Fields()
		dto.Fields = make([]uint32, fields.Len())
		for i := range dto.Fields {
			dto.Fields[i] = fields.Uint32(i)
		}
	}
	return dto
}

func parseUint32(c *gin.Context, name string) (uint32, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("параметр %s: ожидается целое без знака", name))
		return 0, false
	}
	return uint32(v), true
}

// withMap выполняет fn под блокировкой карты из параметра :id
func (rs *RestServer) withMap(c *gin.Context, fn func(r *world.Runner, m *world.Map) error) bool {
	id, ok := parseUint32(c, "id")
	if !ok {
		return false
	}
	runner, ok := rs.registry.Runner(id)
	if !ok {
		respondError(c, http.StatusNotFound, fmt.Sprintf("карта %d не найдена", id))
		return false
	}
	if err := runner.Do(func(m *world.Map) error { return fn(runner, m) }); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, world.ErrInvalidCoordinate) {
			status = http.StatusBadRequest
		}
		if errors.Is(err, errObjectNotFound) {
			status = http.StatusNotFound
		}
		respondError(c, status, err.Error())
		return false
	}
	return true
}

var errObjectNotFound = errors.New("object not found")

// handleHealth проверка состояния узла
func (rs *RestServer) handleHealth(c *gin.Context) {
	snap := rs.metrics.Snapshot(true)
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"time":        time.Now().Unix(),
		"uptime":      snap.Uptime,
		"maps":        snap.Maps,
		"objects":     snap.Objects,
		"rss_mb":      fmt.Sprintf("%.1f", snap.RSSMB),
		"cpu_percent": fmt.Sprintf("%.1f", snap.CPUPercent),
	})
}

// handleStats возвращает сводку узла и карт
func (rs *RestServer) handleStats(c *gin.Context) {
	maps := make([]MapInfo, 0)
	for _, runner := range rs.registry.Runners() {
		runner.Do(func(m *world.Map) error {
			maps = append(maps, mapInfo(m, runner.Ticks()))
			return nil
		})
	}
	respondOK(c, "Статистика получена", gin.H{
		"server":      rs.metrics.Snapshot(false),
		"server_time": time.Now().Unix(),
		"maps":        maps,
	})
}

// handleListMaps возвращает сводки всех карт
func (rs *RestServer) handleListMaps(c *gin.Context) {
	maps := make([]MapInfo, 0)
	for _, runner := range rs.registry.Runners() {
		runner.Do(func(m *world.Map) error {
			maps = append(maps, mapInfo(m, runner.Ticks()))
			return nil
		})
	}
	respondOK(c, "Список карт", maps)
}

// handleGetMap возвращает сводку карты
func (rs *RestServer) handleGetMap(c *gin.Context) {
	var info MapInfo
	if rs.withMap(c, func(r *world.Runner, m *world.Map) error {
		info = mapInfo(m, r.Ticks())
		return nil
	}) {
		respondOK(c, "Карта", info)
	}
}

// handleSaveMap сохраняет карту через настроенное хранилище
func (rs *RestServer) handleSaveMap(c *gin.Context) {
	id, ok := parseUint32(c, "id")
	if !ok {
		return
	}
	runner, ok := rs.registry.Runner(id)
	if !ok {
		respondError(c, http.StatusNotFound, fmt.Sprintf("карта %d не найдена", id))
		return
	}
	if err := runner.Save(c.Request.Context()); err != nil {
		rs.logger.Error("Сохранение карты %d через API: %v", id, err)
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, fmt.Sprintf("Карта %d сохранена", id), nil)
}

// handleGetField возвращает клетку
func (rs *RestServer) handleGetField(c *gin.Context) {
	x, ok := parseUint32(c, "x")
	if !ok {
		return
	}
	y, ok := parseUint32(c, "y")
	if !ok {
		return
	}
	var f world.Field
	if rs.withMap(c, func(_ *world.Runner, m *world.Map) error {
		var found bool
		if f, found = m.Field(x, y); !found {
			return fmt.Errorf("%w: (%d, %d)", world.ErrInvalidCoordinate, x, y)
		}
		return nil
	}) {
		respondOK(c, "Клетка", FieldDTO{Type: f.Type, Texture: f.Texture, Flags: f.Flags})
	}
}

// handleSetField записывает клетку
func (rs *RestServer) handleSetField(c *gin.Context) {
	x, ok := parseUint32(c, "x")
	if !ok {
		return
	}
	y, ok := parseUint32(c, "y")
	if !ok {
		return
	}
	var req FieldDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	var mapID uint32
	ok = rs.withMap(c, func(_ *world.Runner, m *world.Map) error {
		mapID = m.ID()
		err := m.SetField(x, y, req.Type, req.Texture, req.Flags)
		if rs.world != nil {
			rs.world.RecordFieldWrite(mapID, err)
		}
		return err
	})
	if ok {
		respondOK(c, "Клетка записана", req)
	}
}

// handleSurroundingChunks возвращает окрестность чанка и объекты в ней
func (rs *RestServer) handleSurroundingChunks(c *gin.Context) {
	cx, ok := parseUint32(c, "cx")
	if !ok {
		return
	}
	cy, ok := parseUint32(c, "cy")
	if !ok {
		return
	}
	var dto ChunkRangeDTO
	if rs.withMap(c, func(_ *world.Runner, m *world.Map) error {
		r := m.SurroundingChunkRange(cx, cy)
		dto = ChunkRangeDTO{
			BeginX:  r.BeginX,
			BeginY:  r.BeginY,
			EndX:    r.EndX,
			EndY:    r.EndY,
			Empty:   r.Empty(),
			Count:   r.Count(),
			Objects: make([]ObjectDTO, 0),
		}
		for _, o := range m.ObjectsInChunkRange(r) {
			dto.Objects = append(dto.Objects, objectDTO(o, false))
		}
		return nil
	}) {
		respondOK(c, "Окрестность чанка", dto)
	}
}

// handleListObjects возвращает объекты карты в порядке добавления
func (rs *RestServer) handleListObjects(c *gin.Context) {
	objects := make([]ObjectDTO, 0)
	if rs.withMap(c, func(_ *world.Runner, m *world.Map) error {
		for _, o := range m.Objects() {
			objects = append(objects, objectDTO(o, false))
		}
		return nil
	}) {
		respondOK(c, "Объекты карты", objects)
	}
}

// handleGetObject возвращает объект со всеми словами полей
func (rs *RestServer) handleGetObject(c *gin.Context) {
	g, err := guid.Parse(c.Param("guid"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	var dto ObjectDTO
	if rs.withMap(c, func(_ *world.Runner, m *world.Map) error {
		o, found := m.FindObject(g)
		if !found {
			return fmt.Errorf("%w: %s", errObjectNotFound, g)
		}
		dto = objectDTO(o, true)
		return nil
	}) {
		respondOK(c, "Объект", dto)
	}
}
