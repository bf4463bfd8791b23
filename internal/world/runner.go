package world

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTickInterval - период тика карты по умолчанию
const DefaultTickInterval = 50 * time.Millisecond

// TickInfo описывает завершённый тик
type TickInfo struct {
	Seq      uint64
	Now      time.Time
	Duration time.Duration
}

// PostTickHook вызывается после каждого тика под блокировкой карты
type PostTickHook func(m *Map, info TickInfo)

// Saver сохраняет карту. storage.MapStore удовлетворяет этому интерфейсу.
type Saver interface {
	SaveMap(ctx context.Context, m *Map) error
}

// RunnerOption настраивает Runner
type RunnerOption func(r *Runner)

// WithTickInterval задаёт период тика
func WithTickInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithAutoSave включает периодическое сохранение карты
func WithAutoSave(s Saver, every time.Duration) RunnerOption {
	return func(r *Runner) {
		r.saver = s
		r.saveEvery = every
	}
}

// WithClock подменяет источник времени (для тестов)
func WithClock(clock func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.clock = clock
	}
}

// Runner - единственный исполнитель карты: тики, внешние запросы и
// сохранение проходят через одну блокировку.
type Runner struct {
	mu sync.Mutex
	m  *Map

	interval  time.Duration
	saver     Saver
	saveEvery time.Duration
	clock     func() time.Time
	hooks     []PostTickHook

	seq     atomic.Uint64
	running atomic.Bool
}

// NewRunner создаёт исполнителя для карты
func NewRunner(m *Map, opts ...RunnerOption) *Runner {
	r := &Runner{
		m:        m,
		interval: DefaultTickInterval,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MapID возвращает id обслуживаемой карты
func (r *Runner) MapID() uint32 {
	return r.m.ID()
}

// Interval возвращает период тика
func (r *Runner) Interval() time.Duration {
	return r.interval
}

// Ticks возвращает количество выполненных тиков
func (r *Runner) Ticks() uint64 {
	return r.seq.Load()
}

// AddPostTickHook регистрирует обработчик конца тика
func (r *Runner) AddPostTickHook(h PostTickHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// Do выполняет fn с эксклюзивным доступом к карте
func (r *Runner) Do(fn func(m *Map) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.m)
}

// TickOnce выполняет один тик
func (r *Runner) TickOnce(now time.Time) TickInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickLocked(now)
}

func (r *Runner) tickLocked(now time.Time) TickInfo {
	start := time.Now()
	r.m.Tick(now)
	info := TickInfo{
		Seq:      r.seq.Add(1),
		Now:      now,
		Duration: time.Since(start),
	}
	for _, h := range r.hooks {
		h(r.m, info)
	}
	return info
}

// Save сохраняет карту через настроенный Saver
func (r *Runner) Save(ctx context.Context) error {
	if r.saver == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saver.SaveMap(ctx, r.m)
}

// Run крутит тики до отмены контекста. При остановке выполняет финальное сохранение.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return nil
	}
	defer r.running.Store(false)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var saveC <-chan time.Time
	if r.saver != nil && r.saveEvery > 0 {
		saveTicker := time.NewTicker(r.saveEvery)
		defer saveTicker.Stop()
		saveC = saveTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			if r.saver != nil {
				// контекст уже отменён, финальное сохранение идёт без него
				if err := r.Save(context.Background()); err != nil {
					r.m.diag.Error("карта %d: ошибка сохранения при остановке: %v", r.m.ID(), err)
					return err
				}
			}
			return nil
		case <-ticker.C:
			r.TickOnce(r.clock())
		case <-saveC:
			if err := r.Save(ctx); err != nil {
				r.m.diag.Error("карта %d: ошибка автосохранения: %v", r.m.ID(), err)
			}
		}
	}
}
