package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/bubble-world/internal/eventbus"
	"github.com/annel0/bubble-world/internal/sync"
)

const (
	defaultNATSURL = "nats://127.0.0.1:4222"
	timeFormat     = "2006-01-02T15:04:05Z"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNATSURL, "NATS server address")
		stream     = flag.String("stream", "BUBBLE_EVENTS", "JetStream stream name")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "Source regions filter (comma-separated)")
		limit      = flag.Int("limit", 0, "Stop after N events (0 = follow)")
		gzipSync   = flag.Bool("gzip", true, "FieldSync batches are gzip-compressed")
		timeout    = flag.Duration("timeout", 0, "Stop after duration (0 = no timeout)")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to connect to bus: %v", err)
	}
	defer bus.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if *timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	compressor := sync.NewPassthroughCompressor()
	if *gzipSync {
		compressor = sync.NewGzipCompressor()
	}

	if err := tailEvents(ctx, bus, &TailOptions{
		Filter: eventbus.Filter{
			Types:   parseStringList(*eventTypes),
			Sources: parseStringList(*sources),
		},
		Limit:      *limit,
		Compressor: compressor,
	}); err != nil {
		log.Fatalf("❌ Tail failed: %v", err)
	}
}

type TailOptions struct {
	Filter     eventbus.Filter
	Limit      int
	Compressor sync.DeltaCompressor
}

// tailEvents выводит события в реальном времени
func tailEvents(ctx context.Context, bus eventbus.EventBus, opts *TailOptions) error {
	fmt.Printf("🎬 Tailing events (types: %v, limit: %d)\n", opts.Filter.Types, opts.Limit)

	events := make(chan *eventbus.Envelope, 64)
	sub, err := bus.Subscribe(ctx, opts.Filter, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	eventCount := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n📊 Total events: %d\n", eventCount)
			return nil
		case ev := <-events:
			printEvent(ev, opts.Compressor)
			eventCount++
			if opts.Limit > 0 && eventCount >= opts.Limit {
				fmt.Printf("\n📊 Total events: %d\n", eventCount)
				return nil
			}
		}
	}
}

// printEvent выводит событие в читаемом виде
func printEvent(ev *eventbus.Envelope, compressor sync.DeltaCompressor) {
	fmt.Printf("[%s] %s/%s prio=%d id=%s\n",
		ev.Timestamp.Format(timeFormat), ev.Source, ev.EventType, ev.Priority, ev.ID)

	switch ev.EventType {
	case eventbus.EventFieldSync:
		changes, err := compressor.Decompress(ev.Payload)
		if err != nil {
			fmt.Printf("  ⚠️  %v\n", err)
		}
		for _, c := range changes {
			var u sync.FieldUpdate
			if err := u.UnmarshalBinary(c.Data); err != nil {
				fmt.Printf("  ⚠️  %v\n", err)
				continue
			}
			fmt.Printf("  %s map=%d guid=%s pos=(%.2f,%.2f) words=%d\n",
				u.Kind, u.MapID, u.GUID, u.Position.X, u.Position.Y, len(u.Words))
		}
	default:
		fmt.Printf("  %s\n", string(ev.Payload))
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
