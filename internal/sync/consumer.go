package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/annel0/bubble-world/internal/eventbus"
	"github.com/annel0/bubble-world/internal/logging"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/annel0/bubble-world/internal/world/object"
)

// ErrUnknownObject - обновление пришло для объекта, которого нет на карте
var ErrUnknownObject = errors.New("sync: object not on map")

// Applier даёт эксклюзивный доступ к карте по id. world.Registry удовлетворяет ему.
type Applier interface {
	Do(mapID uint32, fn func(m *world.Map) error) error
}

// ConsumerStats - счётчики применения
type ConsumerStats struct {
	Batches   uint64
	Applied   uint64
	Skipped   uint64
	Failed    uint64
	Conflicts uint64 // отброшены как устаревшие
}

// Consumer слушает FieldSync других узлов и применяет изменения к
// локальным копиям карт. Собственные батчи пропускаются.
type Consumer struct {
	sub        eventbus.Subscription
	source     string
	compressor DeltaCompressor
	target     Applier
	deps       object.Deps
	resolver   ConflictResolver

	batches   atomic.Uint64
	applied   atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
	conflicts atomic.Uint64
}

// NewConsumer создаёт потребителя. Без подписки на шину (bus == nil) изменения
// подаются вручную через HandleEnvelope.
func NewConsumer(bus eventbus.EventBus, source string, compressor DeltaCompressor, target Applier, deps object.Deps) (*Consumer, error) {
	if compressor == nil {
		compressor = NewPassthroughCompressor()
	}
	c := &Consumer{
		source:     source,
		compressor: compressor,
		target:     target,
		deps:       deps,
		resolver:   NewLWWResolver(),
	}
	if bus == nil {
		return c, nil
	}
	sub, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.EventFieldSync}}, c.HandleEnvelope)
	if err != nil {
		return nil, err
	}
	c.sub = sub
	return c, nil
}

// HandleEnvelope разбирает батч и применяет изменения
func (c *Consumer) HandleEnvelope(ctx context.Context, ev *eventbus.Envelope) {
	if ev.Source == c.source {
		return
	}
	c.batches.Add(1)

	changes, err := c.compressor.Decompress(ev.Payload)
	if err != nil {
		logging.Warn("Consumer: батч %s от %s не распакован: %v", ev.ID, ev.Source, err)
	}
	logging.Trace("Consumer: батч %s от %s, изменений %d", ev.ID, ev.Source, len(changes))

	for i := range changes {
		var u FieldUpdate
		if err := u.UnmarshalBinary(changes[i].Data); err != nil {
			c.failed.Add(1)
			logging.Warn("Consumer: изменение %d батча %s: %v", i, ev.ID, err)
			continue
		}
		if !c.resolver.Accept(u.GUID, ev.Timestamp) {
			c.conflicts.Add(1)
			logging.Debug("Consumer: устаревшее изменение %s из батча %s отброшено", u.GUID, ev.ID)
			continue
		}
		if err := c.Apply(u); err != nil {
			if errors.Is(err, ErrUnknownObject) || errors.Is(err, world.ErrMapNotRunning) {
				c.skipped.Add(1)
				logging.Debug("Consumer: %v", err)
				continue
			}
			c.failed.Add(1)
			logging.Warn("Consumer: %v", err)
		}
	}
}

// Apply применяет одно обновление к карте
func (c *Consumer) Apply(u FieldUpdate) error {
	err := c.target.Do(u.MapID, func(m *world.Map) error {
		switch u.Kind {
		case UpdateRemove:
			m.RemoveObjectByGUID(u.GUID)
			return nil
		case UpdateCreate:
			if _, ok := m.FindObject(u.GUID); ok {
				break
			}
			o := object.New(u.ObjectKind, c.deps)
			o.Initialize(u.GUID)
			applyWords(o, u)
			return m.AddObject(o)
		}

		o, ok := m.FindObject(u.GUID)
		if !ok {
			return fmt.Errorf("%w: %s на карте %d", ErrUnknownObject, u.GUID, u.MapID)
		}
		applyWords(o, u)
		return nil
	})
	if err == nil {
		c.applied.Add(1)
	}
	return err
}

// applyWords записывает слова; SetUint32 не меняет маску при равном значении.
// Индексы за пределами хранилища отбрасываются.
func applyWords(o *object.WorldObject, u FieldUpdate) {
	fields := o.Fields()
	for _, w := range u.Words {
		if int(w.Index) >= fields.Len() {
			continue
		}
		fields.SetUint32(int(w.Index), w.Value)
	}
	o.SetPosition(u.Position)
}

// Stats возвращает счётчики
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Batches:   c.batches.Load(),
		Applied:   c.applied.Load(),
		Skipped:   c.skipped.Load(),
		Failed:    c.failed.Load(),
		Conflicts: c.conflicts.Load(),
	}
}

// Stop отписывается от шины
func (c *Consumer) Stop() {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
}
