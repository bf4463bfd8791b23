package observability

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/annel0/bubble-world/internal/storage"
	"github.com/annel0/bubble-world/internal/world"
)

// WorldMetrics - Prometheus-метрики карт
type WorldMetrics struct {
	tickDuration *prometheus.HistogramVec
	objects      *prometheus.GaugeVec
	diagnostics  *prometheus.CounterVec
	fieldWrites  *prometheus.CounterVec
	saves        *prometheus.CounterVec
	loads        *prometheus.CounterVec
}

// NewWorldMetrics создаёт метрики и регистрирует их в reg.
// При reg == nil используется глобальный регистр.
func NewWorldMetrics(reg prometheus.Registerer) *WorldMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	wm := &WorldMetrics{
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bubble",
			Subsystem: "world",
			Name:      "tick_duration_seconds",
			Help:      "Длительность тика карты.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"map"}),
		objects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bubble",
			Subsystem: "world",
			Name:      "objects",
			Help:      "Количество объектов на карте.",
		}, []string{"map"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bubble",
			Subsystem: "world",
			Name:      "diagnostics_total",
			Help:      "Предупреждения и ошибки карт (отклонённые записи, дубли GUID).",
		}, []string{"level"}),
		fieldWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bubble",
			Subsystem: "world",
			Name:      "field_writes_total",
			Help:      "Записи клеток через API.",
		}, []string{"map", "result"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bubble",
			Subsystem: "storage",
			Name:      "map_saves_total",
			Help:      "Сохранения карт.",
		}, []string{"map", "result"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bubble",
			Subsystem: "storage",
			Name:      "map_loads_total",
			Help:      "Загрузки карт.",
		}, []string{"map", "result"}),
	}
	reg.MustRegister(wm.tickDuration, wm.objects, wm.diagnostics, wm.fieldWrites, wm.saves, wm.loads)
	return wm
}

func mapLabel(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case storage.IsMissing(err):
		return "missing"
	default:
		return "error"
	}
}

// Hook возвращает обработчик конца тика, снимающий длительность и число объектов
func (wm *WorldMetrics) Hook() world.PostTickHook {
	return func(m *world.Map, info world.TickInfo) {
		label := mapLabel(m.ID())
		wm.tickDuration.WithLabelValues(label).Observe(info.Duration.Seconds())
		wm.objects.WithLabelValues(label).Set(float64(m.ObjectCount()))
	}
}

// RecordFieldWrite учитывает запись клетки
func (wm *WorldMetrics) RecordFieldWrite(mapID uint32, err error) {
	wm.fieldWrites.WithLabelValues(mapLabel(mapID), resultLabel(err)).Inc()
}

// Diagnostics оборачивает приёмник диагностики и считает сообщения
func (wm *WorldMetrics) Diagnostics(inner world.Diagnostics) world.Diagnostics {
	return &countingDiagnostics{inner: inner, counter: wm.diagnostics}
}

type countingDiagnostics struct {
	inner   world.Diagnostics
	counter *prometheus.CounterVec
}

func (d *countingDiagnostics) Warn(format string, args ...interface{}) {
	d.counter.WithLabelValues("warn").Inc()
	if d.inner != nil {
		d.inner.Warn(format, args...)
	}
}

func (d *countingDiagnostics) Error(format string, args ...interface{}) {
	d.counter.WithLabelValues("error").Inc()
	if d.inner != nil {
		d.inner.Error(format, args...)
	}
}

// InstrumentStore оборачивает хранилище карт метриками и трассами
func (wm *WorldMetrics) InstrumentStore(store storage.MapStore) storage.MapStore {
	return &instrumentedStore{inner: store, metrics: wm}
}

type instrumentedStore struct {
	inner   storage.MapStore
	metrics *WorldMetrics
}

func (s *instrumentedStore) LoadMap(ctx context.Context, m *world.Map) error {
	ctx, span := Tracer().Start(ctx, "storage.LoadMap")
	defer span.End()
	span.SetAttributes(attribute.Int64("map.id", int64(m.ID())))

	err := s.inner.LoadMap(ctx, m)
	s.metrics.loads.WithLabelValues(mapLabel(m.ID()), resultLabel(err)).Inc()
	if err != nil && !storage.IsMissing(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *instrumentedStore) SaveMap(ctx context.Context, m *world.Map) error {
	ctx, span := Tracer().Start(ctx, "storage.SaveMap")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("map.id", int64(m.ID())),
		attribute.String("map.size", fmt.Sprintf("%dx%d", m.Header().SizeX, m.Header().SizeY)),
	)

	err := s.inner.SaveMap(ctx, m)
	s.metrics.saves.WithLabelValues(mapLabel(m.ID()), resultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
