package world

import (
	"fmt"
	"math/rand"

	"github.com/annel0/bubble-world/internal/util"
)

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
	BiomeMountains
	BiomeWater
	BiomeDeepWater
)

// Константы высот для генерации
const (
	DeepWaterMax    = 0.20 // Ниже - глубинная вода
	ShallowWaterMax = 0.30 // Ниже - мелководье
	HillsStart      = 0.60 // Выше - холмы
	MountainStart   = 0.80 // Выше - горы
)

// Типы клеток, которые выдаёт генератор
const (
	FieldTypeDeepWater uint16 = iota + 1
	FieldTypeWater
	FieldTypeSand
	FieldTypeDirt
	FieldTypeGrass
	FieldTypeStone
)

// Флаги клеток
const (
	FieldFlagBlocked uint32 = 1 << iota // Непроходимая клетка
	FieldFlagWater                      // Вода
	FieldFlagTree                       // На клетке стоит дерево
	FieldFlagHill                       // Возвышенность
)

// textureVariants - число вариантов текстуры на один тип клетки
const textureVariants = 4

// MapGenerator заполняет сетку клеток по шуму Перлина
type MapGenerator struct {
	Seed          int64   // Сид для генерации шума
	NoiseScale    float64 // Масштаб основного шума (высота)
	BiomeScale    float64 // Масштаб шума биомов
	ForestDensity float64 // Плотность лесов (от 0 до 1)

	height *util.Noise
	biome  *util.Noise
}

// NewMapGenerator создаёт новый генератор карт
func NewMapGenerator(seed int64) *MapGenerator {
	return &MapGenerator{
		Seed:          seed,
		NoiseScale:    0.05,
		BiomeScale:    0.02,
		ForestDensity: 0.15,
		height:        util.NewNoise(seed),
		biome:         util.NewNoise(seed + 1),
	}
}

// Generate возвращает сетку клеток размером с карту из заголовка
func (g *MapGenerator) Generate(h Header) *FieldGrid {
	grid := NewFieldGrid(h.SizeX, h.SizeY, h.DefaultField())
	// Отдельный генератор на карту, чтобы результат не зависел от порядка вызовов
	rng := rand.New(rand.NewSource(g.Seed + int64(h.MapID)*31))

	for x := uint32(0); x < h.SizeX; x++ {
		for y := uint32(0); y < h.SizeY; y++ {
			grid.Set(x, y, g.FieldAt(float64(x), float64(y), rng))
		}
	}
	return grid
}

// Fill генерирует ландшафт прямо в карту. Заголовок карты должен быть уже задан.
func (g *MapGenerator) Fill(m *Map) error {
	h := m.Header()
	if h.SizeX == 0 || h.SizeY == 0 {
		return fmt.Errorf("карта %d: пустой заголовок", m.ID())
	}
	h.VersionMagic = MapVersionMagic
	return m.Restore(h, g.Generate(h))
}

// FieldAt вычисляет клетку для мировых координат
func (g *MapGenerator) FieldAt(x, y float64, rng *rand.Rand) Field {
	height := g.height.At(x*g.NoiseScale, y*g.NoiseScale)
	biome := g.BiomeAt(height, g.biome.At(x*g.BiomeScale+1000, y*g.BiomeScale+1000))

	var f Field
	switch {
	case height < DeepWaterMax:
		f.Type = FieldTypeDeepWater
		f.Flags = FieldFlagWater | FieldFlagBlocked
	case height < ShallowWaterMax:
		f.Type = FieldTypeWater
		f.Flags = FieldFlagWater
	case height < MountainStart:
		f.Type = floorForBiome(biome)
		if height >= HillsStart {
			f.Flags |= FieldFlagHill
		}
		if biome == BiomeForest && rng.Float64() < g.ForestDensity {
			f.Flags |= FieldFlagTree | FieldFlagBlocked
		}
	default:
		f.Type = FieldTypeStone
		f.Flags = FieldFlagHill | FieldFlagBlocked
	}

	f.Texture = uint32(f.Type)<<8 | uint32(rng.Intn(textureVariants))
	return f
}

// BiomeAt определяет тип биома на основе высоты и шума биомов
func (g *MapGenerator) BiomeAt(height, biomeValue float64) BiomeType {
	// Водные биомы в низинах
	if height < DeepWaterMax {
		return BiomeDeepWater
	}
	if height < ShallowWaterMax {
		return BiomeWater
	}

	// Горные биомы на возвышенностях
	if height >= MountainStart {
		return BiomeMountains
	}

	switch {
	case biomeValue < 0.35:
		return BiomeDesert
	case biomeValue > 0.65:
		return BiomeForest
	}
	return BiomePlains
}

// floorForBiome возвращает тип пола для указанного биома
func floorForBiome(biome BiomeType) uint16 {
	switch biome {
	case BiomeDesert:
		return FieldTypeSand
	case BiomeMountains:
		return FieldTypeStone
	case BiomeForest:
		return FieldTypeDirt
	default:
		return FieldTypeGrass
	}
}
