// Package feed reduces a stream of tool progress events into per-invocation
// activity logs and a global busy indicator.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"

	"toolfeed/internal/domain"
	"toolfeed/internal/infra/tracer"
	"toolfeed/internal/usecase/format"
)

// Formatter renders a single event as display markup.
type Formatter interface {
	Format(ev domain.ProgressEvent) string
}

// Aggregator is a synchronous reducer over State. Process must not be called
// concurrently; callers serialise delivery (see eventbus.Bus).
type Aggregator struct {
	state      *State
	sink       domain.ViewSink
	formatter  Formatter
	logger     *slog.Logger
	busy       bool
	staleAfter time.Duration
	now        func() time.Time
}

// New creates an aggregator that renders into sink.
func New(sink domain.ViewSink, formatter Formatter, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		state:     NewState(),
		sink:      sink,
		formatter: formatter,
		logger:    logger.With("component", "feed"),
		now:       time.Now,
	}
}

// SetStaleAfter enables the liveness timeout used by Sweep. Zero disables it.
func (a *Aggregator) SetStaleAfter(d time.Duration) {
	a.staleAfter = d
}

// SetClock overrides the time source used to stamp starts.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// State exposes the underlying state for inspection.
func (a *Aggregator) State() *State { return a.state }

// Busy reports whether at least one invocation is active.
func (a *Aggregator) Busy() bool { return a.busy }

// ActiveCount returns the number of active invocations.
func (a *Aggregator) ActiveCount() int { return len(a.state.active) }

// Snapshot returns a deep copy of the current state.
func (a *Aggregator) Snapshot() Snapshot { return a.state.snapshot() }

// Process applies one event.
func (a *Aggregator) Process(ctx context.Context, ev domain.ProgressEvent) {
	callID := ev.ResolvedCallID()
	_, span := tracer.StartSpan(ctx, "feed.process",
		trace.WithAttributes(
			tracer.StringAttr("tool.name", ev.Tool),
			tracer.StringAttr("tool.call_id", callID),
			tracer.StringAttr("event.phase", string(ev.Phase)),
			tracer.StringAttr("event.kind", string(ev.Kind)),
		),
	)
	defer span.End()

	c := a.container(callID)
	typed := ev.Kind.Known() && !ev.Kind.Structural()

	switch ev.Phase {
	case domain.PhaseStart:
		a.begin(callID)
		if !typed {
			return
		}
	case domain.PhaseFinish:
		a.end(callID)
		if !typed {
			return
		}
	}

	if ev.Kind.Structural() {
		return
	}

	var appended bool
	switch ev.Kind {
	case domain.KindInfo:
		if text := a.typedText(ev); text != "" {
			a.append(c, domain.StyleInfo, text)
			c.pending = len(c.Entries) - 1
			appended = true
		}
	case domain.KindSuccess, domain.KindError:
		if text := a.typedText(ev); text != "" {
			if c.pending >= 0 {
				a.merge(c, ev.Kind.Style(), text)
			} else {
				a.append(c, ev.Kind.Style(), text)
			}
			appended = true
		}
	case domain.KindStdout, domain.KindStderr:
		a.append(c, ev.Kind.Style(), format.Escape(ev.Message))
		appended = true
	default:
		appended = a.generic(c, ev)
	}

	if appended {
		a.sink.ScrollToLatest(c.Handle)
	}
	tracer.SetOK(span)
}

// Sweep drops invocations that started more than the stale timeout before now
// and never finished. It returns the dropped call ids.
func (a *Aggregator) Sweep(ctx context.Context, now time.Time) []string {
	if a.staleAfter <= 0 || len(a.state.active) == 0 {
		return nil
	}
	_, span := tracer.StartSpan(ctx, "feed.sweep")
	defer span.End()

	cutoff := now.Add(-a.staleAfter)
	var dropped []string
	for id, started := range a.state.active {
		if started.Before(cutoff) {
			delete(a.state.active, id)
			dropped = append(dropped, id)
		}
	}
	if len(dropped) == 0 {
		return nil
	}
	sort.Strings(dropped)
	a.logger.Warn("dropped stale invocations", "call_ids", dropped, "stale_after", a.staleAfter)
	span.SetAttributes(tracer.IntAttr("feed.dropped", len(dropped)))
	a.syncBusy()
	return dropped
}

func (a *Aggregator) container(callID string) *Container {
	if c, ok := a.state.containers[callID]; ok {
		return c
	}
	c := &Container{
		CallID:  callID,
		Handle:  a.sink.EnsureContainer(callID),
		pending: -1,
	}
	a.state.containers[callID] = c
	a.state.order = append(a.state.order, callID)
	return c
}

func (a *Aggregator) begin(callID string) {
	if a.state.IsActive(callID) {
		a.logger.Debug("duplicate start ignored", "call_id", callID)
		return
	}
	a.state.active[callID] = a.now()
	a.syncBusy()
}

func (a *Aggregator) end(callID string) {
	if !a.state.IsActive(callID) {
		a.logger.Debug("finish without start",
			"call_id", callID,
			"error", domain.ErrUnmatchedCallID,
		)
		return
	}
	delete(a.state.active, callID)
	a.syncBusy()
}

// syncBusy notifies the sink only on idle/busy transitions.
func (a *Aggregator) syncBusy() {
	busy := len(a.state.active) > 0
	if busy == a.busy {
		return
	}
	a.busy = busy
	a.sink.SetBusy(busy)
}

// typedText is the escaped message of a typed event, or the formatter's
// rendering when the message is empty.
func (a *Aggregator) typedText(ev domain.ProgressEvent) string {
	if ev.Message != "" {
		return format.Escape(ev.Message)
	}
	return a.formatter.Format(ev)
}

func (a *Aggregator) generic(c *Container, ev domain.ProgressEvent) bool {
	var text string
	if ev.Phase == domain.PhaseProgress && ev.Message != "" {
		// Progress messages arrive pre-formatted from the backend.
		text = ev.Message
	} else if ev.Malformed() {
		// Tool formatters describe start and finish only; a malformed event
		// always gets the diagnostic dump so it stays visible.
		a.logger.Debug("rendering malformed event with fallback",
			"tool", ev.Tool,
			"call_id", c.CallID,
			"error", domain.ErrMalformedEvent,
		)
		text = format.Default(ev)
	} else {
		text = a.formatter.Format(ev)
	}
	if text == "" {
		return false
	}
	a.append(c, domain.StylePlain, text)
	return true
}

func (a *Aggregator) append(c *Container, style domain.Style, text string) {
	h := a.sink.AppendEntry(c.Handle, style, text)
	c.Entries = append(c.Entries, Entry{Style: style, Text: text, Handle: h})
	c.pending = -1
}

func (a *Aggregator) merge(c *Container, style domain.Style, text string) {
	suffix := fmt.Sprintf(" <span class='%s'>%s</span>", style, text)
	e := &c.Entries[c.pending]
	a.sink.MergeIntoEntry(e.Handle, suffix)
	e.Text += suffix
	e.Outcome = style
	c.pending = -1
}
