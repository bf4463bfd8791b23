package storage

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/logging"
)

// TieredStats - счётчики обращений к горячему уровню
type TieredStats struct {
	Hits   int64
	Misses int64
}

// TieredPlacementRepo - горячий кэш (обычно Redis) перед постоянным
// хранилищем (обычно MariaDB). Чтение идёт через кэш (read-through),
// запись сначала в постоянное хранилище, затем в кэш (write-through).
// Ошибки кэша не мешают работе: они только логируются.
type TieredPlacementRepo struct {
	hot  PlacementRepo
	cold PlacementRepo

	hits   atomic.Int64
	misses atomic.Int64
}

var _ PlacementRepo = (*TieredPlacementRepo)(nil)

// NewTieredPlacementRepo создаёт двухуровневый репозиторий
func NewTieredPlacementRepo(hot, cold PlacementRepo) *TieredPlacementRepo {
	return &TieredPlacementRepo{hot: hot, cold: cold}
}

func (r *TieredPlacementRepo) Save(ctx context.Context, id guid.GUID, p Placement) error {
	if err := r.cold.Save(ctx, id, p); err != nil {
		return err
	}
	if err := r.hot.Save(ctx, id, p); err != nil {
		logging.Warn("Tiered: кэш не обновлён для %s: %v", id, err)
	}
	return nil
}

func (r *TieredPlacementRepo) Load(ctx context.Context, id guid.GUID) (Placement, bool, error) {
	p, ok, err := r.hot.Load(ctx, id)
	if err == nil && ok {
		r.hits.Add(1)
		return p, true, nil
	}
	r.misses.Add(1)
	if err != nil {
		logging.Warn("Tiered: ошибка кэша для %s: %v", id, err)
	}

	p, ok, err = r.cold.Load(ctx, id)
	if err != nil || !ok {
		return p, ok, err
	}

	// прогреваем кэш для следующих запросов
	if err := r.hot.Save(ctx, id, p); err != nil {
		logging.Debug("Tiered: прогрев кэша для %s: %v", id, err)
	}
	return p, true, nil
}

func (r *TieredPlacementRepo) Delete(ctx context.Context, id guid.GUID) error {
	if err := r.hot.Delete(ctx, id); err != nil && !errors.Is(err, ErrPlacementNotFound) {
		logging.Warn("Tiered: удаление из кэша %s: %v", id, err)
	}
	return r.cold.Delete(ctx, id)
}

func (r *TieredPlacementRepo) BatchSave(ctx context.Context, placements map[guid.GUID]Placement) error {
	if err := r.cold.BatchSave(ctx, placements); err != nil {
		return err
	}
	if err := r.hot.BatchSave(ctx, placements); err != nil {
		logging.Warn("Tiered: кэш не обновлён для батча из %d: %v", len(placements), err)
	}
	return nil
}

// Stats возвращает счётчики попаданий в кэш
func (r *TieredPlacementRepo) Stats() TieredStats {
	return TieredStats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}
