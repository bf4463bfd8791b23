package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"

	"github.com/annel0/bubble-world/internal/world"
)

// MapRecord - описание карты из таблицы карт
type MapRecord struct {
	ID                  uint32 `yaml:"id" bson:"map_id"`
	Name                string `yaml:"name" bson:"name"`
	File                string `yaml:"file" bson:"file"`
	SizeX               uint32 `yaml:"size_x" bson:"size_x"`
	SizeY               uint32 `yaml:"size_y" bson:"size_y"`
	DefaultFieldType    uint16 `yaml:"default_field_type" bson:"default_field_type"`
	DefaultFieldTexture uint32 `yaml:"default_field_texture" bson:"default_field_texture"`
	DefaultFieldFlags   uint32 `yaml:"default_field_flags" bson:"default_field_flags"`
}

// Header строит заголовок пустой карты по записи
func (r MapRecord) Header() world.Header {
	return world.Header{
		MapID:               r.ID,
		SizeX:               r.SizeX,
		SizeY:               r.SizeY,
		DefaultFieldType:    r.DefaultFieldType,
		DefaultFieldTexture: r.DefaultFieldTexture,
		DefaultFieldFlags:   r.DefaultFieldFlags,
		VersionMagic:        world.MapVersionMagic,
	}
}

// MapRecordLookup ищет запись карты по id
type MapRecordLookup interface {
	MapRecord(id uint32) (MapRecord, bool)
}

// MapRecordTable - таблица записей карт в памяти
type MapRecordTable struct {
	mu      sync.RWMutex
	records map[uint32]MapRecord
}

// NewMapRecordTable создаёт таблицу из записей
func NewMapRecordTable(records ...MapRecord) *MapRecordTable {
	t := &MapRecordTable{records: make(map[uint32]MapRecord, len(records))}
	for _, r := range records {
		t.records[r.ID] = r
	}
	return t
}

// MapRecord реализует MapRecordLookup
func (t *MapRecordTable) MapRecord(id uint32) (MapRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[id]
	return r, ok
}

// Put добавляет или заменяет запись
func (t *MapRecordTable) Put(r MapRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[r.ID] = r
}

// Replace подменяет всё содержимое таблицы
func (t *MapRecordTable) Replace(records []MapRecord) {
	fresh := make(map[uint32]MapRecord, len(records))
	for _, r := range records {
		fresh[r.ID] = r
	}
	t.mu.Lock()
	t.records = fresh
	t.mu.Unlock()
}

// All возвращает записи по возрастанию id
func (t *MapRecordTable) All() []MapRecord {
	t.mu.RLock()
	result := make([]MapRecord, 0, len(t.records))
	for _, r := range t.records {
		result = append(result, r)
	}
	t.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Len возвращает количество записей
func (t *MapRecordTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

type mapRecordsFile struct {
	Maps []MapRecord `yaml:"maps"`
}

// LoadYAMLMapRecords читает таблицу карт из YAML файла
func LoadYAMLMapRecords(path string) (*MapRecordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать таблицу карт %s: %w", path, err)
	}
	return ParseYAMLMapRecords(data)
}

// ParseYAMLMapRecords разбирает таблицу карт. Повторяющиеся id запрещены.
func ParseYAMLMapRecords(data []byte) (*MapRecordTable, error) {
	var file mapRecordsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ошибка разбора таблицы карт: %w", err)
	}

	seen := make(map[uint32]struct{}, len(file.Maps))
	for _, r := range file.Maps {
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("таблица карт: повторяющийся id %d", r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.File == "" {
			return nil, fmt.Errorf("таблица карт: у карты %d не указан файл", r.ID)
		}
	}
	return NewMapRecordTable(file.Maps...), nil
}

// MongoRecordsConfig - подключение к коллекции записей карт
type MongoRecordsConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. bubbleworld
	Collection string // e.g. maps
}

// MongoMapRecords держит записи карт из MongoDB в памяти.
// MapRecord читает кэш, Refresh перечитывает коллекцию.
type MongoMapRecords struct {
	*MapRecordTable

	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

// NewMongoMapRecords подключается к MongoDB и загружает записи
func NewMongoMapRecords(ctx context.Context, cfg MongoRecordsConfig) (*MongoMapRecords, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "bubbleworld"
	}
	if cfg.Collection == "" {
		cfg.Collection = "maps"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, err
	}

	r := &MongoMapRecords{
		MapRecordTable: NewMapRecordTable(),
		client:         client,
		collection:     client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout:     5 * time.Second,
	}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoMapRecords) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.ctxTimeout)
	defer cancel()
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "map_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("mapid_unique"),
	}
	_, err := r.collection.Indexes().CreateOne(ctx, idx)
	return err
}

// Refresh перечитывает все записи из коллекции
func (r *MongoMapRecords) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.ctxTimeout)
	defer cancel()

	cur, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("ошибка чтения записей карт: %w", err)
	}
	var records []MapRecord
	if err := cur.All(ctx, &records); err != nil {
		return fmt.Errorf("ошибка разбора записей карт: %w", err)
	}
	r.Replace(records)
	return nil
}

// Upsert сохраняет запись в коллекцию и в кэш
func (r *MongoMapRecords) Upsert(ctx context.Context, rec MapRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.ctxTimeout)
	defer cancel()

	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"map_id": rec.ID},
		rec,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения записи карты %d: %w", rec.ID, err)
	}
	r.Put(rec)
	return nil
}

// Close закрывает соединение
func (r *MongoMapRecords) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
