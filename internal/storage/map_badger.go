package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/bubble-world/internal/world"
)

const mapKeyPrefix = "map:"

// errMapKeyMissing помечает отсутствующую запись карты в BadgerDB
var errMapKeyMissing = fmt.Errorf("%w: key not found", ErrUnknownMap)

// BadgerMapStore хранит закодированные карты в BadgerDB, сжатые zstd
type BadgerMapStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	opts    DecodeOptions
}

// NewBadgerMapStore открывает BadgerDB в dataPath/maps
func NewBadgerMapStore(dataPath string) (*BadgerMapStore, error) {
	dbPath := filepath.Join(dataPath, "maps")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	return newBadgerMapStore(db, dbPath)
}

// NewInMemoryBadgerMapStore открывает BadgerDB в памяти (для тестов и реплик)
func NewInMemoryBadgerMapStore() (*BadgerMapStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	return newBadgerMapStore(db, "")
}

func newBadgerMapStore(db *badger.DB, dbPath string) (*BadgerMapStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("ошибка создания zstd decoder: %w", err)
	}

	return &BadgerMapStore{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Close закрывает хранилище
func (s *BadgerMapStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

func mapKey(id uint32) []byte {
	return []byte(mapKeyPrefix + strconv.FormatUint(uint64(id), 10))
}

// SaveMap кодирует и сохраняет карту
func (s *BadgerMapStore) SaveMap(ctx context.Context, m *world.Map) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	var buf bytes.Buffer
	buf.Grow(int(EncodedSize(m.Header())))
	if err := EncodeMap(&buf, m.Header(), m.Grid()); err != nil {
		return fmt.Errorf("карта %d: %w", m.ID(), err)
	}
	compressed := s.encoder.EncodeAll(buf.Bytes(), nil)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(mapKey(m.ID()), compressed)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// LoadMap читает карту. Нет записи - ErrUnknownMap.
func (s *BadgerMapStore) LoadMap(ctx context.Context, m *world.Map) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(mapKey(m.ID()))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: map %d", errMapKeyMissing, m.ID())
	}
	if err != nil {
		return fmt.Errorf("ошибка загрузки из BadgerDB: %w", err)
	}

	raw, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("%w: zstd: %v", ErrCorruptData, err)
	}

	h, grid, err := DecodeMap(bytes.NewReader(raw), s.opts)
	if err != nil {
		return fmt.Errorf("карта %d: %w", m.ID(), err)
	}
	return m.Restore(h, grid)
}

// DeleteMap удаляет карту
func (s *BadgerMapStore) DeleteMap(ctx context.Context, id uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(mapKey(id))
	})
}

// ListMaps возвращает id сохранённых карт по возрастанию
func (s *BadgerMapStore) ListMaps(ctx context.Context) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var ids []uint32
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(mapKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			id, err := strconv.ParseUint(strings.TrimPrefix(key, mapKeyPrefix), 10, 32)
			if err != nil {
				continue
			}
			ids = append(ids, uint32(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения списка карт: %w", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
