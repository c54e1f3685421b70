package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolfeed/internal/domain"
	"toolfeed/internal/usecase/eventbus"
)

func TestServiceConsumesBusEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, sink := newTestAggregator(t)
	a.SetStaleAfter(time.Minute)
	svc := NewService(a, logger)

	bus := eventbus.New(logger)
	unsub := svc.Subscribe(bus)
	ctx := context.Background()

	bus.Publish(ctx, domain.NewEvent(domain.EventProgressReceived, start("A")))
	bus.Publish(ctx, domain.NewEvent(domain.EventProgressReceived, typed("A", domain.KindInfo, "x")))
	bus.Publish(ctx, domain.NewEvent(domain.EventProgressReceived, typed("A", domain.KindSuccess, "y")))
	bus.Publish(ctx, domain.Event{Type: domain.EventProgressReceived, Payload: []byte(`{"tool":`)})

	assert.True(t, svc.Busy())
	assert.Equal(t, []string{"x <span class='success'>y</span>"}, sink.lines("A"))

	bus.Publish(ctx, domain.NewEvent(domain.EventFeedSweep, domain.SweepPayload{Now: time.Now().Add(time.Hour)}))
	assert.False(t, svc.Busy())
	assert.Equal(t, []bool{true, false}, sink.busyCalls)

	unsub()
	bus.Publish(ctx, domain.NewEvent(domain.EventProgressReceived, start("B")))
	bus.Close()
	assert.False(t, svc.Busy(), "unsubscribed service ignores events")

	snap := svc.Snapshot()
	require.Len(t, snap.Containers, 1)
	assert.Equal(t, "A", snap.Containers[0].CallID)
}

func TestServiceSweepWithoutPayloadUsesTimestamp(t *testing.T) {
	a, _ := newTestAggregator(t)
	a.SetStaleAfter(time.Minute)
	svc := NewService(a, nil)

	svc.Process(context.Background(), start("A"))
	svc.handleSweep(context.Background(), domain.Event{Type: domain.EventFeedSweep, Timestamp: time.Now().Add(2 * time.Minute)})
	assert.False(t, svc.Busy())
}
