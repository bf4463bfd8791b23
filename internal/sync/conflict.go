package sync

import (
	"sync"
	"time"

	"github.com/annel0/bubble-world/internal/guid"
)

// ConflictResolver решает, применять ли удалённое изменение объекта
type ConflictResolver interface {
	// Accept сообщает, можно ли применить изменение объекта id со временем at
	Accept(id guid.GUID, at time.Time) bool
}

// DefaultLWWRetention - сколько помнить время последнего изменения объекта.
// Батчи, опоздавшие сильнее, уже не отличить от новых.
const DefaultLWWRetention = time.Minute

// LWWResolver реализует Last-Write-Wins: изменение старше уже применённого
// для того же объекта отбрасывается. Время берётся из конверта батча.
// Записи старше retention удаляются не чаще раза за retention.
type LWWResolver struct {
	mu        sync.Mutex
	last      map[guid.GUID]time.Time
	retention time.Duration
	swept     time.Time
}

// NewLWWResolver создаёт resolver с DefaultLWWRetention
func NewLWWResolver() *LWWResolver {
	return NewLWWResolverWithRetention(DefaultLWWRetention)
}

// NewLWWResolverWithRetention создаёт resolver. retention <= 0 - помнить всё.
func NewLWWResolverWithRetention(retention time.Duration) *LWWResolver {
	return &LWWResolver{
		last:      make(map[guid.GUID]time.Time),
		retention: retention,
	}
}

// Accept реализует ConflictResolver для LWW стратегии
func (r *LWWResolver) Accept(id guid.GUID, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.last[id]; ok && at.Before(prev) {
		return false
	}
	r.last[id] = at
	r.maybeSweep(at)
	return true
}

// Sweep удаляет записи старше now - retention и возвращает их число
func (r *LWWResolver) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retention <= 0 {
		return 0
	}
	r.swept = now
	return r.sweepBefore(now.Add(-r.retention))
}

func (r *LWWResolver) maybeSweep(now time.Time) {
	if r.retention <= 0 {
		return
	}
	if r.swept.IsZero() {
		r.swept = now
		return
	}
	if now.Sub(r.swept) < r.retention {
		return
	}
	r.swept = now
	r.sweepBefore(now.Add(-r.retention))
}

func (r *LWWResolver) sweepBefore(cutoff time.Time) int {
	removed := 0
	for id, at := range r.last {
		if at.Before(cutoff) {
			delete(r.last, id)
			removed++
		}
	}
	return removed
}

// Len возвращает количество отслеживаемых объектов
func (r *LWWResolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.last)
}
