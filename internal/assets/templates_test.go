package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world/object"
)

const sampleTemplates = `
templates:
  - {entry: 100, kind: creature, name: Orc, image: 7, level: 3, max_health: 40, faction: 14}
  - {entry: 200, kind: gameobject, name: Chest, image: 8, state: 1, scale: 0.5}
spawns:
  - {map: 1, entry: 100, x: 3.5, y: 4, anim: walk_down}
  - {map: 1, entry: 200, x: 1, y: 1}
  - {map: 2, entry: 100, x: 0, y: 0}
`

func TestParseTemplates(t *testing.T) {
	table, err := ParseTemplates([]byte(sampleTemplates))
	require.NoError(t, err)

	assert.Equal(t, []uint32{100, 200}, table.Entries())
	tpl, ok := table.Template(100)
	require.True(t, ok)
	assert.Equal(t, object.KindCreature, tpl.ObjectKind())
	assert.Len(t, table.SpawnsFor(1), 2)
	assert.Len(t, table.SpawnsFor(2), 1)
	assert.Empty(t, table.SpawnsFor(3))

	name, ok := table.ObjectName(guid.Make(100, 5))
	assert.True(t, ok)
	assert.Equal(t, "Orc", name)
	_, ok = table.ObjectName(guid.Make(300, 1))
	assert.False(t, ok)
}

func TestParseTemplatesRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"zero entry":    "templates: [{entry: 0, kind: unit}]",
		"duplicate":     "templates: [{entry: 1, kind: unit}, {entry: 1, kind: unit}]",
		"unknown kind":  "templates: [{entry: 1, kind: dragon}]",
		"unknown entry": "templates: [{entry: 1, kind: unit}]\nspawns: [{map: 1, entry: 2}]",
		"unknown anim":  "templates: [{entry: 1, kind: unit}]\nspawns: [{map: 1, entry: 1, anim: dance}]",
		"negative pos":  "templates: [{entry: 1, kind: unit}]\nspawns: [{map: 1, entry: 1, x: -1}]",
		"not yaml":      "templates: [",
	}
	for name, data := range cases {
		_, err := ParseTemplates([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestSpawnAppliesTemplate(t *testing.T) {
	table, err := ParseTemplates([]byte(sampleTemplates))
	require.NoError(t, err)
	anims := NewAnimationTable()
	require.NoError(t, anims.Reload([]byte(sampleAnimations)))

	gen := guid.NewGenerator()
	spawns := table.SpawnsFor(1)

	orc, err := table.Spawn(spawns[0], gen, object.Deps{Animations: anims})
	require.NoError(t, err)
	assert.Equal(t, guid.Make(100, 1), orc.GUID())
	assert.Equal(t, vec.Vec2Float{X: 3.5, Y: 4}, orc.Position())
	assert.Equal(t, uint32(7), orc.ImageID())
	assert.Equal(t, object.AnimWalkDown, orc.Animation())
	assert.Equal(t, uint32(11), orc.AnimationFrame())
	assert.Equal(t, object.DefaultName, orc.Name())

	c, ok := orc.AsCreature()
	require.True(t, ok)
	assert.Equal(t, uint32(3), c.Level())
	assert.Equal(t, uint32(40), c.Health())
	assert.Equal(t, uint32(40), c.MaxHealth())
	assert.Equal(t, uint32(14), c.Faction())

	chest, err := table.Spawn(spawns[1], gen, object.Deps{})
	require.NoError(t, err)
	g, ok := chest.AsGameobject()
	require.True(t, ok)
	assert.Equal(t, uint32(1), g.State())
	assert.Equal(t, float32(0.5), chest.Scale())

	second, err := table.Spawn(table.SpawnsFor(2)[0], gen, object.Deps{})
	require.NoError(t, err)
	assert.Equal(t, guid.Make(100, 2), second.GUID())

	_, err = table.Spawn(SpawnPoint{Entry: 999}, gen, object.Deps{})
	assert.Error(t, err)
}
