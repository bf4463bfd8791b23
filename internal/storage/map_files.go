package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/annel0/bubble-world/internal/world"
)

// errMapFileMissing помечает отсутствующий файл карты
var errMapFileMissing = errors.New("storage: map file does not exist")

// FileMapStore хранит карты файлами в dataDir. Имя файла берётся из записи карты.
type FileMapStore struct {
	dataDir string
	records MapRecordLookup
	diag    world.Diagnostics
	opts    DecodeOptions
}

// FileStoreOption настраивает FileMapStore
type FileStoreOption func(s *FileMapStore)

// WithVerifyMagic включает проверку версии формата при загрузке
func WithVerifyMagic(verify bool) FileStoreOption {
	return func(s *FileMapStore) {
		s.opts.VerifyMagic = verify
	}
}

// NewFileMapStore создаёт файловое хранилище карт
func NewFileMapStore(dataDir string, records MapRecordLookup, diag world.Diagnostics, opts ...FileStoreOption) *FileMapStore {
	s := &FileMapStore{
		dataDir: dataDir,
		records: records,
		diag:    diag,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path возвращает путь к файлу карты
func (s *FileMapStore) Path(mapID uint32) (string, error) {
	rec, ok := s.records.MapRecord(mapID)
	if !ok || rec.File == "" {
		return "", fmt.Errorf("%w: %d", ErrUnknownMap, mapID)
	}
	return filepath.Join(s.dataDir, rec.File), nil
}

func (s *FileMapStore) fail(err error) error {
	if s.diag != nil {
		s.diag.Error("%v", err)
	}
	return err
}

// missing сообщает об отсутствии файла предупреждением: при первом запуске
// это штатная ситуация, LoadOrInit создаёт карту по записи
func (s *FileMapStore) missing(path string) error {
	err := fmt.Errorf("%w: %s", errMapFileMissing, path)
	if s.diag != nil {
		s.diag.Warn("%v", err)
	}
	return err
}

// LoadMap читает файл карты и подменяет её сетку
func (s *FileMapStore) LoadMap(ctx context.Context, m *world.Map) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.Path(m.ID())
	if err != nil {
		return s.fail(err)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.missing(path)
		}
		return s.fail(fmt.Errorf("не удалось открыть файл карты %s: %w", path, err))
	}
	defer f.Close()

	h, grid, err := DecodeMap(f, s.opts)
	if err != nil {
		return s.fail(fmt.Errorf("карта %d (%s): %w", m.ID(), path, err))
	}
	if err := m.Restore(h, grid); err != nil {
		return s.fail(err)
	}
	return nil
}

// SaveMap пишет карту во временный файл и атомарно переименовывает его
func (s *FileMapStore) SaveMap(ctx context.Context, m *world.Map) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.Path(m.ID())
	if err != nil {
		return s.fail(err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return s.fail(fmt.Errorf("не удалось создать каталог %s: %w", dir, err))
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return s.fail(fmt.Errorf("не удалось создать временный файл карты: %w", err))
	}
	tmpName := tmp.Name()

	if err := EncodeMap(tmp, m.Header(), m.Grid()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return s.fail(fmt.Errorf("карта %d: %w", m.ID(), err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return s.fail(fmt.Errorf("карта %d: ошибка sync: %w", m.ID(), err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return s.fail(fmt.Errorf("карта %d: ошибка закрытия файла: %w", m.ID(), err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return s.fail(fmt.Errorf("карта %d: ошибка переименования: %w", m.ID(), err))
	}
	return nil
}

// IsMissing - данных карты нет, её можно создать заново
func IsMissing(err error) bool {
	return errors.Is(err, errMapFileMissing) || errors.Is(err, errMapKeyMissing)
}
