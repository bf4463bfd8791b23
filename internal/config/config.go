package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера карт
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	Assets    AssetsConfig    `yaml:"assets"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Sync      SyncConfig      `yaml:"sync"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// WorldConfig - какие карты поднимать и как часто их тикать
type WorldConfig struct {
	MapsFile        string   `yaml:"maps_file"` // YAML таблица карт
	Maps            []uint32 `yaml:"maps"`      // пусто - все карты из таблицы
	TickMs          int      `yaml:"tick_ms"`
	AutosaveSeconds int      `yaml:"autosave_seconds"`
	SpawnFile       string   `yaml:"spawn_file"` // начальные объекты
}

// StorageConfig - бэкенды хранения карт и размещений
type StorageConfig struct {
	Backend     string      `yaml:"backend"` // file | badger
	DataDir     string      `yaml:"data_dir"`
	VerifyMagic bool        `yaml:"verify_magic"`
	Records     string      `yaml:"records"` // yaml | mongo
	Mongo       MongoConfig `yaml:"mongo"`
	Placements  string      `yaml:"placements"` // memory | redis | maria | tiered
	Redis       RedisConfig `yaml:"redis"`
	MariaDSN    string      `yaml:"maria_dsn"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"` // < 0 - без срока
}

type AssetsConfig struct {
	AnimationsFile string `yaml:"animations_file"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто - шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type SyncConfig struct {
	RegionID     string `yaml:"region_id"`
	BatchSize    int    `yaml:"batch_size"`
	FlushEvery   int    `yaml:"flush_every_seconds"`
	UseGzipCompr bool   `yaml:"use_gzip_compression"`
	Replica      bool   `yaml:"replica"` // применять чужие FieldSync к своим картам
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults заполняет незаданные поля
func (c *Config) ApplyDefaults() {
	if c.World.MapsFile == "" {
		c.World.MapsFile = "configs/maps.yaml"
	}
	if c.World.TickMs <= 0 {
		c.World.TickMs = 50
	}
	if c.World.AutosaveSeconds <= 0 {
		c.World.AutosaveSeconds = 300
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.Records == "" {
		c.Storage.Records = "yaml"
	}
	if c.Storage.Placements == "" {
		c.Storage.Placements = "memory"
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = "localhost:6379"
	}
	if c.Storage.Redis.KeyPrefix == "" {
		c.Storage.Redis.KeyPrefix = "bw:place:"
	}
	if c.Storage.Redis.TTLSeconds == 0 {
		c.Storage.Redis.TTLSeconds = 1800
	}
	if c.EventBus.Stream == "" {
		c.EventBus.Stream = "BUBBLE_EVENTS"
	}
	if c.EventBus.Retention <= 0 {
		c.EventBus.Retention = 24
	}
	if c.Sync.RegionID == "" {
		c.Sync.RegionID = "local"
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 256
	}
	if c.Sync.FlushEvery <= 0 {
		c.Sync.FlushEvery = 1
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Logging.ConsoleLevel == "" {
		c.Logging.ConsoleLevel = "INFO"
	}
	if c.Logging.FileLevel == "" {
		c.Logging.FileLevel = "DEBUG"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "bubble-world"
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
}

// Validate проверяет значения, которые нельзя исправить умолчаниями
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "badger":
	default:
		return fmt.Errorf("storage.backend: неизвестный бэкенд %q", c.Storage.Backend)
	}
	switch c.Storage.Records {
	case "yaml", "mongo":
	default:
		return fmt.Errorf("storage.records: неизвестный источник %q", c.Storage.Records)
	}
	switch c.Storage.Placements {
	case "memory", "redis", "maria", "tiered":
	default:
		return fmt.Errorf("storage.placements: неизвестный бэкенд %q", c.Storage.Placements)
	}
	if (c.Storage.Placements == "maria" || c.Storage.Placements == "tiered") && c.Storage.MariaDSN == "" {
		return fmt.Errorf("storage.maria_dsn обязателен для placements=%s", c.Storage.Placements)
	}
	return nil
}

// TickInterval возвращает период тика карт
func (w *WorldConfig) TickInterval() time.Duration {
	return time.Duration(w.TickMs) * time.Millisecond
}

// AutosaveInterval возвращает период автосохранения
func (w *WorldConfig) AutosaveInterval() time.Duration {
	return time.Duration(w.AutosaveSeconds) * time.Second
}

// TTL возвращает время жизни записей Redis
func (r *RedisConfig) TTL() time.Duration {
	if r.TTLSeconds < 0 {
		return 0
	}
	return time.Duration(r.TTLSeconds) * time.Second
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BW_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "BW_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации и применяет умолчания.
// Если path == "", берёт путь из BW_CONFIG; без файла возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BW_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать конфиг %s: %w", path, err)
	}
	return Parse(data)
}

// Parse разбирает YAML конфигурацию
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфига: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
