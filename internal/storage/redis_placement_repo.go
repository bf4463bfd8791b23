package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/bubble-world/internal/guid"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 - без срока
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "bw:place:",
		TTL:       30 * time.Minute,
	}
}

// RedisPlacementRepo держит размещения в Redis: горячий кэш перед MariaDB
// или самостоятельное хранилище для реплик
type RedisPlacementRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

type redisPlacement struct {
	Placement
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRedisPlacementRepo подключается к Redis
func NewRedisPlacementRepo(ctx context.Context, config *RedisConfig) (*RedisPlacementRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	return &RedisPlacementRepo{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

func (r *RedisPlacementRepo) key(id guid.GUID) string {
	return r.keyPrefix + id.String()
}

func (r *RedisPlacementRepo) mapKey(mapID uint32) string {
	return fmt.Sprintf("%smap:%d", r.keyPrefix, mapID)
}

func marshalPlacement(p Placement) ([]byte, error) {
	return json.Marshal(redisPlacement{Placement: p, UpdatedAt: time.Now()})
}

// Save сохраняет размещение и добавляет GUID в индекс карты
func (r *RedisPlacementRepo) Save(ctx context.Context, id guid.GUID, p Placement) error {
	return r.BatchSave(ctx, map[guid.GUID]Placement{id: p})
}

// Load читает размещение
func (r *RedisPlacementRepo) Load(ctx context.Context, id guid.GUID) (Placement, bool, error) {
	if id.IsEmpty() {
		return Placement{}, false, fmt.Errorf("недействительный GUID: %s", id)
	}

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Placement{}, false, nil
	}
	if err != nil {
		return Placement{}, false, fmt.Errorf("ошибка чтения размещения %s: %w", id, err)
	}

	var rp redisPlacement
	if err := json.Unmarshal(data, &rp); err != nil {
		return Placement{}, false, fmt.Errorf("ошибка разбора размещения %s: %w", id, err)
	}
	return rp.Placement, true, nil
}

// Delete удаляет размещение
func (r *RedisPlacementRepo) Delete(ctx context.Context, id guid.GUID) error {
	p, found, err := r.Load(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrPlacementNotFound, id)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(id))
	pipe.SRem(ctx, r.mapKey(p.MapID), id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка удаления размещения %s: %w", id, err)
	}
	return nil
}

// BatchSave пишет размещения одним pipeline
func (r *RedisPlacementRepo) BatchSave(ctx context.Context, placements map[guid.GUID]Placement) error {
	if len(placements) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for id, p := range placements {
		if err := validatePlacement(id, p); err != nil {
			return err
		}
		data, err := marshalPlacement(p)
		if err != nil {
			return fmt.Errorf("ошибка сериализации размещения %s: %w", id, err)
		}
		pipe.Set(ctx, r.key(id), data, r.ttl)
		pipe.SAdd(ctx, r.mapKey(p.MapID), id.String())
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка выполнения batch: %w", err)
	}
	return nil
}

// MapMembers возвращает GUID объектов, когда-либо сохранённых на карте
func (r *RedisPlacementRepo) MapMembers(ctx context.Context, mapID uint32) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.mapKey(mapID)).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения индекса карты %d: %w", mapID, err)
	}
	return members, nil
}

// Close закрывает соединение с Redis
func (r *RedisPlacementRepo) Close() error {
	return r.client.Close()
}
