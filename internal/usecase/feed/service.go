package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"toolfeed/internal/domain"
)

// Service owns an Aggregator and connects it to the event bus. Bus delivery
// is already serialised; the mutex lets readers such as the gateway take
// snapshots while events are being processed.
type Service struct {
	mu     sync.Mutex
	agg    *Aggregator
	logger *slog.Logger
}

// NewService wraps agg.
func NewService(agg *Aggregator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{agg: agg, logger: logger.With("component", "feed")}
}

// Subscribe registers the service for progress and sweep events.
// The returned function unsubscribes both.
func (s *Service) Subscribe(bus domain.EventBus) func() {
	unsubProgress := bus.Subscribe(domain.EventProgressReceived, s.handleProgress)
	unsubSweep := bus.Subscribe(domain.EventFeedSweep, s.handleSweep)
	return func() {
		unsubProgress()
		unsubSweep()
	}
}

func (s *Service) handleProgress(ctx context.Context, event domain.Event) {
	var ev domain.ProgressEvent
	if err := json.Unmarshal(event.Payload, &ev); err != nil {
		s.logger.Warn("undecodable progress event dropped",
			"error", domain.WrapOp("feed.handleProgress", domain.ErrMalformedEvent),
			"cause", err,
		)
		return
	}
	s.Process(ctx, ev)
}

func (s *Service) handleSweep(ctx context.Context, event domain.Event) {
	now := event.Timestamp
	var p domain.SweepPayload
	if len(event.Payload) > 0 && json.Unmarshal(event.Payload, &p) == nil && !p.Now.IsZero() {
		now = p.Now
	}
	if now.IsZero() {
		now = time.Now()
	}
	s.Sweep(ctx, now)
}

// Process applies one event.
func (s *Service) Process(ctx context.Context, ev domain.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg.Process(ctx, ev)
}

// Sweep drops stale invocations. See Aggregator.Sweep.
func (s *Service) Sweep(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.Sweep(ctx, now)
}

// Snapshot returns a copy of the feed state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.Snapshot()
}

// Busy reports whether any invocation is active.
func (s *Service) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.Busy()
}
