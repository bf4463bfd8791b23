package storage

import (
	"context"

	"github.com/annel0/bubble-world/internal/world"
)

// MapStore загружает и сохраняет карты целиком. Обе операции возвращают
// ошибку одного вида: nil при успехе.
type MapStore interface {
	LoadMap(ctx context.Context, m *world.Map) error
	SaveMap(ctx context.Context, m *world.Map) error
}

var (
	_ MapStore    = (*FileMapStore)(nil)
	_ MapStore    = (*BadgerMapStore)(nil)
	_ world.Saver = (*FileMapStore)(nil)
	_ world.Saver = (*BadgerMapStore)(nil)
)

// LoadOrInit загружает карту, а если данных нет, создаёт пустую по записи
func LoadOrInit(ctx context.Context, store MapStore, records MapRecordLookup, m *world.Map) (created bool, err error) {
	err = store.LoadMap(ctx, m)
	if err == nil {
		return false, nil
	}
	if !IsMissing(err) {
		return false, err
	}

	rec, ok := records.MapRecord(m.ID())
	if !ok {
		return false, err
	}
	m.InitEmpty(rec.Header())
	return true, nil
}
