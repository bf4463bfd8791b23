package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bubble-world/internal/config"
	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/logging"
	"github.com/annel0/bubble-world/internal/storage"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world"
)

const testMaps = `
maps:
  - {id: 1, name: Start, file: start.map, size_x: 16, size_y: 16}
  - {id: 2, name: Cave, file: cave.map, size_x: 8, size_y: 8}
`

const testSpawns = `
templates:
  - {entry: 100, kind: creature, name: Orc, image: 7, level: 3, max_health: 40}
  - {entry: 200, kind: gameobject, name: Chest, image: 8}
spawns:
  - {map: 1, entry: 100, x: 3.5, y: 4}
  - {map: 1, entry: 200, x: 1, y: 1}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	mapsFile := filepath.Join(dir, "maps.yaml")
	spawnFile := filepath.Join(dir, "spawns.yaml")
	require.NoError(t, os.WriteFile(mapsFile, []byte(testMaps), 0644))
	require.NoError(t, os.WriteFile(spawnFile, []byte(testSpawns), 0644))

	cfg := config.Default()
	cfg.World.MapsFile = mapsFile
	cfg.World.SpawnFile = spawnFile
	cfg.World.TickMs = 5
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Sync.FlushEvery = 1
	return cfg
}

func newTestNode(t *testing.T, cfg *config.Config, placements storage.PlacementRepo) *Node {
	t.Helper()
	reg := prometheus.NewRegistry()
	node, err := NewNode(context.Background(), NodeConfig{
		Config:     cfg,
		Logger:     logging.Discard(),
		Registerer: reg,
		Gatherer:   reg,
		Placements: placements,
	})
	require.NoError(t, err)
	return node
}

func objectName(reg *world.Registry, mapID uint32, g guid.GUID) (name string) {
	reg.Do(mapID, func(m *world.Map) error {
		if o, ok := m.FindObject(g); ok {
			name = o.Name()
		}
		return nil
	})
	return name
}

func TestNodeLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	placements := storage.NewMemoryPlacementRepo()
	orc := guid.Make(100, 1)
	require.NoError(t, placements.Save(ctx, orc, storage.Placement{MapID: 1, X: 10, Y: 5}))

	node := newTestNode(t, cfg, placements)
	assert.Equal(t, []uint32{1, 2}, node.Registry().MapIDs())

	var pos vec.Vec2Float
	require.NoError(t, node.Registry().Do(1, func(m *world.Map) error {
		assert.Equal(t, 2, m.ObjectCount())
		o, ok := m.FindObject(orc)
		require.True(t, ok)
		pos = o.Position()
		return nil
	}))
	assert.Equal(t, vec.Vec2Float{X: 10, Y: 5}, pos, "сохранённое размещение важнее шаблона")

	require.NoError(t, node.Start(ctx))
	assert.Error(t, node.Start(ctx))

	require.Eventually(t, func() bool {
		return objectName(node.Registry(), 1, orc) == "Orc"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, node.Stop(ctx))

	_, err := os.Stat(filepath.Join(cfg.Storage.DataDir, "start.map"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.Storage.DataDir, "cave.map"))
	assert.NoError(t, err)

	p, ok, err := placements.Load(ctx, guid.Make(200, 1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, storage.Placement{MapID: 1, X: 1, Y: 1}, p)
}

func TestNodeReloadsSavedMap(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	first := newTestNode(t, cfg, nil)
	require.NoError(t, first.Registry().Do(2, func(m *world.Map) error {
		return m.SetField(3, 4, 9, 90, 1)
	}))
	require.NoError(t, first.Start(ctx))
	require.NoError(t, first.Stop(ctx))

	second := newTestNode(t, cfg, nil)
	defer second.Stop(ctx)

	var f world.Field
	require.NoError(t, second.Registry().Do(2, func(m *world.Map) error {
		f, _ = m.Field(3, 4)
		return nil
	}))
	assert.Equal(t, world.Field{Type: 9, Texture: 90, Flags: 1}, f)
}

func TestNodeReplicaSkipsSpawns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sync.Replica = true

	node := newTestNode(t, cfg, nil)
	defer node.Stop(context.Background())

	require.NoError(t, node.Registry().Do(1, func(m *world.Map) error {
		assert.Zero(t, m.ObjectCount())
		return nil
	}))
}

func TestNewNodeErrors(t *testing.T) {
	_, err := NewNode(context.Background(), NodeConfig{})
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.World.MapsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewNode(context.Background(), NodeConfig{Config: cfg, Registerer: prometheus.NewRegistry()})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.World.Maps = []uint32{42}
	_, err = NewNode(context.Background(), NodeConfig{Config: cfg, Registerer: prometheus.NewRegistry()})
	assert.Error(t, err)
}
