package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/bubble-world/internal/api"
	"github.com/annel0/bubble-world/internal/assets"
	"github.com/annel0/bubble-world/internal/config"
	"github.com/annel0/bubble-world/internal/eventbus"
	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/logging"
	"github.com/annel0/bubble-world/internal/observability"
	"github.com/annel0/bubble-world/internal/storage"
	syncpkg "github.com/annel0/bubble-world/internal/sync"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/annel0/bubble-world/internal/world/object"
)

// defaultBusCapacity - буфер шины в памяти
const defaultBusCapacity = 1024

// recordSource - таблица карт с возможностью перечисления
type recordSource interface {
	storage.MapRecordLookup
	All() []storage.MapRecord
}

// NodeConfig содержит зависимости узла. Незаданные поля строятся по Config.
type NodeConfig struct {
	Config     *config.Config
	Logger     *logging.Logger
	Registerer prometheus.Registerer // nil - глобальный регистр
	Gatherer   prometheus.Gatherer   // nil - глобальный регистр
	Bus        eventbus.EventBus     // nil - по eventbus.url
	Placements storage.PlacementRepo // nil - по storage.placements
}

// Node собирает карты, хранилища, шину событий и REST API в один процесс
type Node struct {
	cfg    *config.Config
	logger *logging.Logger

	records    recordSource
	store      storage.MapStore
	placements storage.PlacementRepo
	animations *assets.AnimationTable
	templates  *assets.TemplateTable
	guids      *guid.Generator

	registry   *world.Registry
	metrics    *observability.WorldMetrics
	bus        eventbus.EventBus
	notifier   *eventbus.Notifier
	busMetrics *eventbus.MetricsExporter
	sync       *syncpkg.SyncManager
	rest       *api.RestServer

	subs    []eventbus.Subscription
	closers []func() error

	// Управление жизненным циклом
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNode открывает хранилища и поднимает все карты из конфигурации.
// Ничего не запускает: тики и сервисы стартуют в Start.
func NewNode(ctx context.Context, nc NodeConfig) (*Node, error) {
	if nc.Config == nil {
		return nil, errors.New("app: config обязателен")
	}
	if nc.Logger == nil {
		nc.Logger = logging.Default()
	}
	if nc.Registerer == nil {
		nc.Registerer = prometheus.DefaultRegisterer
	}
	if nc.Gatherer == nil {
		nc.Gatherer = prometheus.DefaultGatherer
	}

	n := &Node{
		cfg:      nc.Config,
		logger:   nc.Logger,
		guids:    guid.NewGenerator(),
		registry: world.NewRegistry(),
		metrics:  observability.NewWorldMetrics(nc.Registerer),
	}

	err := n.build(ctx, nc)
	if err != nil {
		n.closeAll()
		return nil, err
	}
	return n, nil
}

func (n *Node) build(ctx context.Context, nc NodeConfig) error {
	cfg := n.cfg

	if err := n.openRecords(ctx); err != nil {
		return err
	}
	if err := n.openStore(); err != nil {
		return err
	}
	n.placements = nc.Placements
	if n.placements == nil {
		if err := n.openPlacements(ctx); err != nil {
			return err
		}
	}
	if err := n.loadAssets(); err != nil {
		return err
	}

	n.bus = nc.Bus
	if n.bus == nil {
		if err := n.openBus(); err != nil {
			return err
		}
	}
	eventbus.Init(n.bus)

	n.notifier = eventbus.NewNotifier(n.bus, cfg.Sync.RegionID, eventbus.WithNotifierLogger(n.logger))
	n.busMetrics = eventbus.NewMetricsExporter(n.bus, nc.Registerer)

	deps := n.objectDeps()
	sm, err := syncpkg.NewSyncManager(syncpkg.SyncConfig{
		RegionID:     cfg.Sync.RegionID,
		Bus:          n.bus,
		BatchSize:    cfg.Sync.BatchSize,
		FlushEvery:   time.Duration(cfg.Sync.FlushEvery) * time.Second,
		UseGzipCompr: cfg.Sync.UseGzipCompr,
		Replica:      cfg.Sync.Replica,
		Target:       n.registry,
		Deps:         deps,
	})
	if err != nil {
		return err
	}
	n.sync = sm
	n.closers = append(n.closers, func() error { sm.Stop(); return nil })

	ids := cfg.World.Maps
	if len(ids) == 0 {
		for _, rec := range n.records.All() {
			ids = append(ids, rec.ID)
		}
	}
	for _, id := range ids {
		if err := n.openMap(ctx, id, deps); err != nil {
			return err
		}
	}

	n.rest = api.NewRestServer(api.Config{
		Port:        fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Registry:    n.registry,
		WorldMetric: n.metrics,
		Logger:      n.logger,
		Registerer:  nc.Registerer,
		Gatherer:    nc.Gatherer,
	})
	return nil
}

func (n *Node) openRecords(ctx context.Context) error {
	switch n.cfg.Storage.Records {
	case "mongo":
		mc := n.cfg.Storage.Mongo
		recs, err := storage.NewMongoMapRecords(ctx, storage.MongoRecordsConfig{
			URI:        mc.URI,
			Database:   mc.Database,
			Collection: mc.Collection,
		})
		if err != nil {
			return fmt.Errorf("таблица карт: %w", err)
		}
		n.records = recs
		n.closers = append(n.closers, recs.Close)
	default:
		recs, err := storage.LoadYAMLMapRecords(n.cfg.World.MapsFile)
		if err != nil {
			return err
		}
		n.records = recs
	}
	return nil
}

func (n *Node) openStore() error {
	var store storage.MapStore
	switch n.cfg.Storage.Backend {
	case "badger":
		bs, err := storage.NewBadgerMapStore(n.cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		n.closers = append(n.closers, bs.Close)
		store = bs
	default:
		store = storage.NewFileMapStore(n.cfg.Storage.DataDir, n.records, n.logger,
			storage.WithVerifyMagic(n.cfg.Storage.VerifyMagic))
	}
	n.store = n.metrics.InstrumentStore(store)
	return nil
}

func (n *Node) openPlacements(ctx context.Context) error {
	switch n.cfg.Storage.Placements {
	case "redis":
		repo, err := storage.NewRedisPlacementRepo(ctx, n.redisConfig())
		if err != nil {
			return err
		}
		n.closers = append(n.closers, repo.Close)
		n.placements = repo
	case "maria":
		repo, err := storage.NewMariaPlacementRepo(n.cfg.Storage.MariaDSN)
		if err != nil {
			return err
		}
		n.closers = append(n.closers, repo.Close)
		n.placements = repo
	case "tiered":
		cold, err := storage.NewMariaPlacementRepo(n.cfg.Storage.MariaDSN)
		if err != nil {
			return err
		}
		n.closers = append(n.closers, cold.Close)
		hot, err := storage.NewRedisPlacementRepo(ctx, n.redisConfig())
		if err != nil {
			return err
		}
		n.closers = append(n.closers, hot.Close)
		n.placements = storage.NewTieredPlacementRepo(hot, cold)
	default:
		n.placements = storage.NewMemoryPlacementRepo()
	}
	return nil
}

func (n *Node) redisConfig() *storage.RedisConfig {
	rc := n.cfg.Storage.Redis
	return &storage.RedisConfig{
		Addr:      rc.Addr,
		Password:  rc.Password,
		DB:        rc.DB,
		KeyPrefix: rc.KeyPrefix,
		TTL:       rc.TTL(),
	}
}

func (n *Node) loadAssets() error {
	n.animations = assets.NewAnimationTable()
	if path := n.cfg.Assets.AnimationsFile; path != "" {
		anims, err := assets.LoadAnimationsFile(path)
		if err != nil {
			return err
		}
		n.animations = anims
	}

	n.templates = &assets.TemplateTable{}
	if path := n.cfg.World.SpawnFile; path != "" {
		tpls, err := assets.LoadTemplatesFile(path)
		if err != nil {
			return err
		}
		n.templates = tpls
	}
	return nil
}

func (n *Node) openBus() error {
	if n.cfg.EventBus.URL == "" {
		n.bus = eventbus.NewMemoryBus(defaultBusCapacity)
	} else {
		retention := time.Duration(n.cfg.EventBus.Retention) * time.Hour
		jb, err := eventbus.NewJetStreamBus(n.cfg.EventBus.URL, n.cfg.EventBus.Stream, retention)
		if err != nil {
			return err
		}
		n.bus = jb
	}
	n.closers = append(n.closers, n.bus.Close)
	return nil
}

func (n *Node) objectDeps() object.Deps {
	return object.Deps{
		Animations: n.animations,
		Presenter:  n.notifier,
		Names:      n.notifier,
	}
}

// openMap загружает (или создаёт) карту, расставляет объекты и регистрирует исполнителя
func (n *Node) openMap(ctx context.Context, id uint32, deps object.Deps) error {
	m := world.NewMap(id, n.metrics.Diagnostics(n.logger))
	created, err := storage.LoadOrInit(ctx, n.store, n.records, m)
	if err != nil {
		return fmt.Errorf("карта %d: %w", id, err)
	}
	if created {
		n.logger.Info("🗺️  карта %d создана пустой %dx%d", id, m.Header().SizeX, m.Header().SizeY)
	}
	m.SetEventSink(n.notifier)

	if !n.cfg.Sync.Replica {
		n.spawnObjects(ctx, m, deps)
	}

	runner := world.NewRunner(m,
		world.WithTickInterval(n.cfg.World.TickInterval()),
		world.WithAutoSave(&mapSaver{store: n.store, placements: n.placements}, n.cfg.World.AutosaveInterval()),
	)
	runner.AddPostTickHook(n.metrics.Hook())
	n.sync.Attach(runner)
	return n.registry.Register(runner)
}

// spawnObjects создаёт объекты из точек появления. Сохранённое размещение
// важнее позиции из шаблона.
func (n *Node) spawnObjects(ctx context.Context, m *world.Map, deps object.Deps) {
	for _, sp := range n.templates.SpawnsFor(m.ID()) {
		o, err := n.templates.Spawn(sp, n.guids, deps)
		if err != nil {
			n.logger.Warn("карта %d: точка появления %d: %v", m.ID(), sp.Entry, err)
			continue
		}
		if p, ok, err := n.placements.Load(ctx, o.GUID()); err != nil {
			n.logger.Warn("размещение %s: %v", o.GUID(), err)
		} else if ok && p.MapID == m.ID() {
			o.SetPosition(p.Position())
		}
		if err := m.AddObject(o); err != nil {
			n.logger.Warn("карта %d: %v", m.ID(), err)
		}
	}
}

// Registry возвращает реестр исполнителей карт
func (n *Node) Registry() *world.Registry {
	return n.registry
}

// Bus возвращает шину событий узла
func (n *Node) Bus() eventbus.EventBus {
	return n.bus
}

// Placements возвращает репозиторий размещений
func (n *Node) Placements() storage.PlacementRepo {
	return n.placements
}

// Rest возвращает REST сервер
func (n *Node) Rest() *api.RestServer {
	return n.rest
}

// Start запускает тики карт, уведомления, службу имён и метрики шины.
// REST API запускается отдельно через ServeREST.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel != nil {
		return errors.New("app: узел уже запущен")
	}
	ctx, n.cancel = context.WithCancel(ctx)

	nameSub, err := eventbus.ServeNameQueries(ctx, n.bus, n.cfg.Sync.RegionID, n.templates)
	if err != nil {
		n.cancel()
		return fmt.Errorf("подписка на NameQuery: %w", err)
	}
	respSub, err := eventbus.ApplyNameResponses(ctx, n.bus, n.registry)
	if err != nil {
		nameSub.Unsubscribe()
		n.cancel()
		return fmt.Errorf("подписка на NameResponse: %w", err)
	}
	n.subs = append(n.subs, nameSub, respSub)

	if logSub, err := eventbus.StartLoggingListener(n.bus, eventbus.Filter{}, n.logger); err == nil {
		n.subs = append(n.subs, logSub)
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.notifier.Run(ctx)
	}()

	for _, r := range n.registry.Runners() {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := r.Run(ctx); err != nil {
				n.logger.Error("карта %d: %v", r.MapID(), err)
			}
		}()
	}

	// отдельный /metrics только если порт задан явно, иначе метрики отдаёт REST API
	if port := n.cfg.Server.MetricsPort; port > 0 {
		n.busMetrics.StartHTTP(fmt.Sprintf(":%d", port))
	} else {
		n.busMetrics.Start()
	}
	n.logger.Info("✅ Узел %s запущен: карт %d, replica=%v", n.cfg.Sync.RegionID, len(n.registry.MapIDs()), n.cfg.Sync.Replica)
	return nil
}

// ServeREST запускает REST API и блокирует до его остановки
func (n *Node) ServeREST() error {
	return n.rest.Start()
}

// Stop останавливает REST, тики (с финальным сохранением) и закрывает хранилища
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var errs []error
	if err := n.rest.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("rest: %w", err))
	}

	if n.cancel != nil {
		n.cancel()
		n.wg.Wait()
		n.busMetrics.Stop()
		n.cancel = nil
	}
	for _, s := range n.subs {
		s.Unsubscribe()
	}
	n.subs = nil

	if bm := n.sync.Batches(); bm != nil {
		if err := bm.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("sync flush: %w", err))
		}
	}
	if err := n.closeAll(); err != nil {
		errs = append(errs, err)
	}

	n.logger.Info("👋 Узел %s остановлен", n.cfg.Sync.RegionID)
	return errors.Join(errs...)
}

// closeAll закрывает ресурсы в обратном порядке открытия
func (n *Node) closeAll() error {
	var errs []error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	n.closers = nil
	return errors.Join(errs...)
}

// mapSaver сохраняет карту и размещения её объектов.
// Runner вызывает SaveMap под блокировкой карты.
type mapSaver struct {
	store      storage.MapStore
	placements storage.PlacementRepo
}

func (s *mapSaver) SaveMap(ctx context.Context, m *world.Map) error {
	if err := s.store.SaveMap(ctx, m); err != nil {
		return err
	}
	return storage.SaveMapPlacements(ctx, s.placements, m)
}
