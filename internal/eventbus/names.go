package eventbus

import (
	"context"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/logging"
)

// NameSource знает имена объектов
type NameSource interface {
	ObjectName(id guid.GUID) (string, bool)
}

// NameTarget применяет полученные имена к объектам
type NameTarget interface {
	SetObjectName(id guid.GUID, name string) bool
}

// ServeNameQueries отвечает на NameQuery событиями NameResponse.
// Неизвестные объекты остаются без ответа.
func ServeNameQueries(ctx context.Context, bus EventBus, source string, names NameSource) (Subscription, error) {
	return bus.Subscribe(ctx, Filter{Types: []string{EventNameQuery}}, func(ctx context.Context, ev *Envelope) {
		var q NameQueryPayload
		if err := ev.Decode(&q); err != nil {
			logging.Warn("NameQuery %s: повреждённая полезная нагрузка: %v", ev.ID, err)
			return
		}
		name, ok := names.ObjectName(guid.GUID(q.GUID))
		if !ok {
			return
		}
		resp, err := NewEnvelope(source, EventNameResponse, PriorityNormal, NameResponsePayload{GUID: q.GUID, Name: name})
		if err != nil {
			return
		}
		resp.CorrelationID = ev.ID
		if err := bus.Publish(ctx, resp); err != nil {
			logging.Debug("NameResponse для %s не опубликован: %v", guid.GUID(q.GUID), err)
		}
	})
}

// ApplyNameResponses применяет NameResponse к объектам через target
func ApplyNameResponses(ctx context.Context, bus EventBus, target NameTarget) (Subscription, error) {
	return bus.Subscribe(ctx, Filter{Types: []string{EventNameResponse}}, func(ctx context.Context, ev *Envelope) {
		var r NameResponsePayload
		if err := ev.Decode(&r); err != nil {
			logging.Warn("NameResponse %s: повреждённая полезная нагрузка: %v", ev.ID, err)
			return
		}
		if !target.SetObjectName(guid.GUID(r.GUID), r.Name) {
			logging.Debug("NameResponse: объект %s не найден", guid.GUID(r.GUID))
		}
	})
}
