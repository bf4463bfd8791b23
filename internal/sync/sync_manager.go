package sync

import (
	"errors"
	"time"

	"github.com/annel0/bubble-world/internal/eventbus"
	"github.com/annel0/bubble-world/internal/logging"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/annel0/bubble-world/internal/world/object"
)

// SyncManager координирует компоненты синхронизации:
// BatchManager, Collector и Consumer.
type SyncManager struct {
	bm        *BatchManager
	collector *Collector
	consumer  *Consumer
}

type SyncConfig struct {
	RegionID     string
	Bus          eventbus.EventBus
	BatchSize    int
	FlushEvery   time.Duration
	UseGzipCompr bool

	// Replica включает применение чужих FieldSync к картам Target
	Replica bool
	Target  Applier
	Deps    object.Deps
}

func NewSyncManager(cfg SyncConfig) (*SyncManager, error) {
	if cfg.Bus == nil {
		return nil, errors.New("sync: bus is required")
	}

	var compressor DeltaCompressor
	if cfg.UseGzipCompr {
		compressor = NewGzipCompressor()
		logging.Info("🔄 SyncManager: используется gzip-компрессия")
	} else {
		compressor = NewPassthroughCompressor()
		logging.Info("🔄 SyncManager: компрессия отключена")
	}

	sm := &SyncManager{}
	if cfg.Replica {
		if cfg.Target == nil {
			return nil, errors.New("sync: replica requires target")
		}
		consumer, err := NewConsumer(cfg.Bus, cfg.RegionID, compressor, cfg.Target, cfg.Deps)
		if err != nil {
			return nil, err
		}
		sm.consumer = consumer
	} else {
		sm.bm = NewBatchManager(cfg.Bus, cfg.RegionID, cfg.BatchSize, cfg.FlushEvery, compressor)
		sm.collector = NewCollector(sm.bm, cfg.RegionID)
	}

	logging.Info("✅ SyncManager инициализирован: region=%s, replica=%v, batch=%d, flush=%v",
		cfg.RegionID, cfg.Replica, cfg.BatchSize, cfg.FlushEvery)
	return sm, nil
}

// Attach подключает сборщик изменений к исполнителю карты.
// У реплики ничего не делает: её карты меняются только через Consumer.
func (sm *SyncManager) Attach(r *world.Runner) {
	if sm.collector == nil {
		return
	}
	r.AddPostTickHook(sm.collector.Hook())
}

// Consumer возвращает потребителя или nil на основном узле
func (sm *SyncManager) Consumer() *Consumer {
	return sm.consumer
}

// Batches возвращает BatchManager или nil на реплике
func (sm *SyncManager) Batches() *BatchManager {
	return sm.bm
}

func (sm *SyncManager) Stop() {
	if sm.consumer != nil {
		sm.consumer.Stop()
	}
	if sm.bm != nil {
		sm.bm.Stop()
	}
	logging.Info("🔄 SyncManager остановлен")
}
