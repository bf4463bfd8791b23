package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/annel0/bubble-world/internal/config"
	"github.com/annel0/bubble-world/internal/logging"
	"github.com/annel0/bubble-world/internal/storage"
	"github.com/annel0/bubble-world/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to server config (default: $BW_CONFIG)")
		mapsFlag   = flag.String("maps", "", "Map ids to generate (comma-separated, empty = all)")
		seed       = flag.Int64("seed", 1, "Noise seed")
		forest     = flag.Float64("forest", 0.15, "Tree density in forests (0..1)")
		force      = flag.Bool("force", false, "Overwrite maps that already exist in storage")
	)
	flag.Parse()

	logger := logging.NewConsoleLogger("mapgen", os.Stdout)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	records, err := storage.LoadYAMLMapRecords(cfg.World.MapsFile)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки таблицы карт: %v", err)
	}

	var store storage.MapStore
	switch cfg.Storage.Backend {
	case "badger":
		bs, err := storage.NewBadgerMapStore(cfg.Storage.DataDir)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer bs.Close()
		store = bs
	default:
		store = storage.NewFileMapStore(cfg.Storage.DataDir, records, nil)
	}

	ids, err := parseIDs(*mapsFlag)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if len(ids) == 0 {
		for _, rec := range records.All() {
			ids = append(ids, rec.ID)
		}
	}

	gen := world.NewMapGenerator(*seed)
	gen.ForestDensity = *forest

	ctx := context.Background()
	for _, id := range ids {
		rec, ok := records.MapRecord(id)
		if !ok {
			logger.Error("карта %d отсутствует в таблице карт", id)
			continue
		}

		m := world.NewMap(id, logger)
		if !*force && store.LoadMap(ctx, m) == nil {
			logger.Info("карта %d уже существует, пропускаем (-force для перезаписи)", id)
			continue
		}

		m.InitEmpty(rec.Header())
		if err := gen.Fill(m); err != nil {
			logger.Error("%v", err)
			continue
		}
		if err := store.SaveMap(ctx, m); err != nil {
			logger.Error("карта %d: ошибка сохранения: %v", id, err)
			continue
		}
		logger.Info("✅ карта %d (%s) %dx%d сгенерирована", id, rec.Name, rec.SizeX, rec.SizeY)
	}
}

// parseIDs разбирает список id карт через запятую
func parseIDs(s string) ([]uint32, error) {
	var ids []uint32
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint32(v))
	}
	return ids, nil
}
