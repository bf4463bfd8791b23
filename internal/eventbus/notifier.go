package eventbus

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/logging"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/annel0/bubble-world/internal/world/object"
)

// Notifier переводит сигналы объектов и карт в события шины.
// Все входящие вызовы неблокирующие: конверты копятся в очереди, а при её
// переполнении отбрасываются. Запросы перерисовки склеиваются в один
// CanvasRedraw за период.
type Notifier struct {
	bus         EventBus
	source      string
	queue       chan *Envelope
	redrawEvery time.Duration
	logger      *logging.Logger

	dirty   atomic.Bool
	dropped atomic.Uint64
}

var (
	_ object.Presenter     = (*Notifier)(nil)
	_ object.NameRequester = (*Notifier)(nil)
	_ world.EventSink      = (*Notifier)(nil)
)

// NotifierOption настраивает Notifier
type NotifierOption func(n *Notifier)

// WithQueueSize задаёт размер очереди исходящих событий
func WithQueueSize(size int) NotifierOption {
	return func(n *Notifier) {
		if size > 0 {
			n.queue = make(chan *Envelope, size)
		}
	}
}

// WithRedrawInterval задаёт период склейки перерисовок
func WithRedrawInterval(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.redrawEvery = d
		}
	}
}

// WithNotifierLogger задаёт логгер
func WithNotifierLogger(l *logging.Logger) NotifierOption {
	return func(n *Notifier) {
		n.logger = l
	}
}

// NewNotifier создаёт уведомитель. Публикация начинается после Run.
func NewNotifier(bus EventBus, source string, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		bus:         bus,
		source:      source,
		queue:       make(chan *Envelope, 1024),
		redrawEvery: 100 * time.Millisecond,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// MarkDirty помечает холст как требующий перерисовки
func (n *Notifier) MarkDirty() {
	n.dirty.Store(true)
}

// RequestName отправляет NameQuery для объекта
func (n *Notifier) RequestName(id guid.GUID) {
	n.enqueue(EventNameQuery, PriorityLow, NameQueryPayload{GUID: uint64(id)})
}

// HandleMapEvent пересылает события карты в шину
func (n *Notifier) HandleMapEvent(e world.Event) {
	switch ev := e.(type) {
	case world.ObjectEvent:
		eventType := EventObjectEntered
		if ev.EventType == world.EventTypeObjectLeft {
			eventType = EventObjectLeft
		}
		n.enqueue(eventType, PriorityNormal, ObjectPayload{
			MapID: ev.MapID,
			GUID:  uint64(ev.GUID),
			Kind:  ev.Kind.String(),
			X:     ev.Position.X,
			Y:     ev.Position.Y,
		})
	case world.FieldEvent:
		n.enqueue(EventFieldChanged, PriorityNormal, FieldChangedPayload{
			MapID:   ev.MapID,
			X:       ev.X,
			Y:       ev.Y,
			Type:    ev.New.Type,
			Texture: ev.New.Texture,
			Flags:   ev.New.Flags,
		})
	}
}

// Dropped возвращает число отброшенных событий
func (n *Notifier) Dropped() uint64 {
	return n.dropped.Load()
}

func (n *Notifier) enqueue(eventType string, priority int, payload interface{}) {
	ev, err := NewEnvelope(n.source, eventType, priority, payload)
	if err != nil {
		n.dropped.Add(1)
		return
	}
	select {
	case n.queue <- ev:
	default:
		n.dropped.Add(1)
	}
}

// Run публикует накопленные события до отмены контекста
func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.redrawEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.queue:
			n.publish(ctx, ev)
		case now := <-ticker.C:
			if !n.dirty.Swap(false) {
				continue
			}
			ev, err := NewEnvelope(n.source, EventCanvasRedraw, PriorityLow, CanvasRedrawPayload{At: now.UTC()})
			if err == nil {
				n.publish(ctx, ev)
			}
		}
	}
}

func (n *Notifier) publish(ctx context.Context, ev *Envelope) {
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.dropped.Add(1)
		n.logger.Debug("Notifier: событие %s не опубликовано: %v", ev.EventType, err)
	}
}
