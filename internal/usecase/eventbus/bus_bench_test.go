package eventbus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"toolfeed/internal/domain"
)

func BenchmarkPublish(b *testing.B) {
	for _, subs := range []int{0, 1, 10} {
		b.Run(slog.IntValue(subs).String()+"-subs", func(b *testing.B) {
			bus := New(slog.Default())
			for i := 0; i < subs; i++ {
				bus.Subscribe(domain.EventProgressReceived, func(_ context.Context, _ domain.Event) {})
			}
			ctx := context.Background()
			event := domain.Event{Type: domain.EventProgressReceived, Timestamp: time.Now()}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				bus.Publish(ctx, event)
			}
			bus.Close()
		})
	}
}

// BenchmarkPublishFanOut measures a progress event that triggers view events,
// the shape of traffic the feed generates.
func BenchmarkPublishFanOut(b *testing.B) {
	bus := New(slog.Default())
	bus.Subscribe(domain.EventProgressReceived, func(ctx context.Context, _ domain.Event) {
		bus.Publish(ctx, domain.Event{Type: domain.EventViewEntry})
		bus.Publish(ctx, domain.Event{Type: domain.EventViewScroll})
	})
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {})
	ctx := context.Background()
	event := domain.Event{Type: domain.EventProgressReceived}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(ctx, event)
	}
	bus.Close()
}

func BenchmarkPublishParallel(b *testing.B) {
	bus := New(slog.Default())
	bus.Subscribe(domain.EventProgressReceived, func(_ context.Context, _ domain.Event) {})
	event := domain.Event{Type: domain.EventProgressReceived}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			bus.Publish(ctx, event)
		}
	})
	bus.Close()
}
