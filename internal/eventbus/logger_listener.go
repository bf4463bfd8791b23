package eventbus

import (
	"context"

	"github.com/annel0/bubble-world/internal/logging"
)

// StartLoggingListener подписывается на события по фильтру и пишет их в лог компонента.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus, f Filter, logger *logging.Logger) (Subscription, error) {
	if logger == nil {
		logger = logging.Default()
	}
	sub, err := bus.Subscribe(context.Background(), f, func(ctx context.Context, ev *Envelope) {
		logger.Trace("[EventBus] %s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка активирована (types=%v)", f.Types)
	return sub, nil
}
