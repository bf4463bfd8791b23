package sync

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/bubble-world/internal/eventbus"
	"github.com/annel0/bubble-world/internal/logging"
	"github.com/google/uuid"
)

// Change содержит одно сериализованное изменение
type Change struct {
	Data         []byte    // Сериализованный FieldUpdate
	Priority     int       // приоритизация для сброса при перегрузке
	Timestamp    time.Time // Время создания изменения
	SourceRegion string    // Регион-источник изменения
	ChangeType   string    // Тип изменения: "FieldUpdate"
}

// Приоритеты изменений
const (
	PriorityValues = 3 // обычные изменения слов
	PriorityCreate = 6 // создание и удаление объектов
)

// BatchManager накапливает изменения и отправляет их пакетами FieldSync через EventBus.
// У каждого узла собственный экземпляр.
type BatchManager struct {
	mu       sync.Mutex
	buf      []Change
	capacity int

	flushEvery time.Duration
	bus        eventbus.EventBus
	source     string // имя текущего узла/region-id
	compressor DeltaCompressor

	dropped  atomic.Uint64
	batches  atomic.Uint64
	quit     chan struct{}
	stopOnce sync.Once
}

// NewBatchManager создаёт менеджер с указанным лимитом буфера и интервалом отправки.
// При flushEvery <= 0 периодической отправки нет, только Flush.
func NewBatchManager(bus eventbus.EventBus, source string, capacity int, flushEvery time.Duration, compressor DeltaCompressor) *BatchManager {
	if compressor == nil {
		compressor = NewPassthroughCompressor()
	}
	if capacity <= 0 {
		capacity = 1024
	}
	bm := &BatchManager{
		capacity:   capacity,
		flushEvery: flushEvery,
		bus:        bus,
		source:     source,
		compressor: compressor,
		quit:       make(chan struct{}),
	}
	if flushEvery > 0 {
		go bm.loop()
	}
	return bm
}

// AddChange добавляет изменение в буфер; при переполнении вытесняется
// изменение с самым низким приоритетом, если новое важнее.
func (bm *BatchManager) AddChange(ch Change) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if len(bm.buf) < bm.capacity {
		bm.buf = append(bm.buf, ch)
		return
	}

	lowIdx := -1
	lowPri := ch.Priority
	for i, c := range bm.buf {
		if c.Priority < lowPri {
			lowPri = c.Priority
			lowIdx = i
		}
	}
	bm.dropped.Add(1)
	if lowIdx >= 0 {
		bm.buf[lowIdx] = ch
	}
}

// Pending возвращает количество изменений в буфере
func (bm *BatchManager) Pending() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return len(bm.buf)
}

// Dropped возвращает количество вытесненных изменений
func (bm *BatchManager) Dropped() uint64 {
	return bm.dropped.Load()
}

// Batches возвращает количество отправленных батчей
func (bm *BatchManager) Batches() uint64 {
	return bm.batches.Load()
}

func (bm *BatchManager) loop() {
	ticker := time.NewTicker(bm.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bm.Flush(context.Background())
		case <-bm.quit:
			return
		}
	}
}

// Flush отсылает накопленные изменения единым сообщением.
func (bm *BatchManager) Flush(ctx context.Context) error {
	bm.mu.Lock()
	if len(bm.buf) == 0 {
		bm.mu.Unlock()
		return nil
	}
	changes := make([]Change, len(bm.buf))
	copy(changes, bm.buf)
	bm.buf = bm.buf[:0]
	bm.mu.Unlock()

	payload, err := bm.compressor.Compress(changes)
	if err != nil {
		logging.Warn("BatchManager: ошибка сжатия: %v", err)
		return err
	}

	env := &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    bm.source,
		EventType: eventbus.EventFieldSync,
		Version:   1,
		Priority:  eventbus.PriorityHigh,
		Payload:   payload,
		Metadata:  map[string]string{"changes": strconv.Itoa(len(changes))},
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := bm.bus.Publish(ctx, env); err != nil {
		logging.Warn("BatchManager: ошибка публикации: %v", err)
		return err
	}
	bm.batches.Add(1)
	return nil
}

// Stop завершает работу менеджера и отправляет оставшиеся изменения.
func (bm *BatchManager) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.quit)
		bm.Flush(context.Background())
	})
}
