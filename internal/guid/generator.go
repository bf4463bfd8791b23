package guid

import (
	"sync"
	"sync/atomic"
)

// Generator выдаёт уникальные low-идентификаторы отдельно для каждого entry.
// Low = 0 никогда не выдаётся (зарезервирован как недействительный).
type Generator struct {
	mu       sync.RWMutex
	counters map[uint32]*atomic.Uint32
}

// NewGenerator создаёт пустой генератор.
func NewGenerator() *Generator {
	return &Generator{
		counters: make(map[uint32]*atomic.Uint32),
	}
}

// Next возвращает следующий GUID для указанного entry.
// Потокобезопасен.
func (g *Generator) Next(entry uint32) GUID {
	return Make(entry, g.counter(entry).Add(1))
}

// Reserve гарантирует, что следующие выданные low будут больше low.
// Используется после загрузки ранее сохранённых объектов.
func (g *Generator) Reserve(id GUID) {
	c := g.counter(id.Entry())
	for {
		cur := c.Load()
		if cur >= id.Low() || c.CompareAndSwap(cur, id.Low()) {
			return
		}
	}
}

func (g *Generator) counter(entry uint32) *atomic.Uint32 {
	g.mu.RLock()
	c, ok := g.counters[entry]
	g.mu.RUnlock()
	if ok {
		return c
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Повторная проверка под write lock
	if c, ok = g.counters[entry]; ok {
		return c
	}
	c = &atomic.Uint32{}
	g.counters[entry] = c
	return c
}
