package sink

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"toolfeed/internal/domain"
)

// Publishing forwards every call to an inner sink and mirrors it onto the bus
// as a view.* event, so remote viewers can rebuild the same feed. Entry
// handles returned to the aggregator carry ULIDs that remote viewers use to
// address merges.
type Publishing struct {
	inner domain.ViewSink
	bus   domain.EventBus
	ctx   context.Context

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	handles map[string]domain.EntryHandle // ulid -> inner handle
}

// NewPublishing wraps inner. inner may be nil when only the bus is of interest.
func NewPublishing(ctx context.Context, inner domain.ViewSink, bus domain.EventBus) *Publishing {
	return &Publishing{
		inner:   inner,
		bus:     bus,
		ctx:     ctx,
		entropy: ulid.Monotonic(rand.Reader, 0),
		handles: make(map[string]domain.EntryHandle),
	}
}

func (p *Publishing) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), p.entropy).String()
}

func (p *Publishing) publish(t domain.EventType, payload domain.ViewPayload) {
	p.bus.Publish(p.ctx, domain.NewEvent(t, payload))
}

func (p *Publishing) EnsureContainer(callID string) domain.ContainerHandle {
	h := domain.ContainerHandle{CallID: callID}
	if p.inner != nil {
		h = p.inner.EnsureContainer(callID)
	}
	p.publish(domain.EventViewContainer, domain.ViewPayload{CallID: callID})
	return h
}

func (p *Publishing) AppendEntry(c domain.ContainerHandle, style domain.Style, html string) domain.EntryHandle {
	var inner domain.EntryHandle
	if p.inner != nil {
		inner = p.inner.AppendEntry(c, style, html)
	}

	p.mu.Lock()
	id := p.newID()
	p.handles[id] = inner
	p.mu.Unlock()

	p.publish(domain.EventViewEntry, domain.ViewPayload{
		CallID:  c.CallID,
		EntryID: id,
		Style:   style,
		HTML:    html,
	})
	return domain.EntryHandle{CallID: c.CallID, ID: id}
}

func (p *Publishing) MergeIntoEntry(e domain.EntryHandle, suffix string) {
	p.mu.Lock()
	inner, ok := p.handles[e.ID]
	p.mu.Unlock()
	if ok && p.inner != nil {
		p.inner.MergeIntoEntry(inner, suffix)
	}
	p.publish(domain.EventViewMerge, domain.ViewPayload{
		CallID:  e.CallID,
		EntryID: e.ID,
		HTML:    suffix,
	})
}

func (p *Publishing) SetBusy(busy bool) {
	if p.inner != nil {
		p.inner.SetBusy(busy)
	}
	p.publish(domain.EventViewBusy, domain.ViewPayload{Busy: &busy})
}

func (p *Publishing) ScrollToLatest(c domain.ContainerHandle) {
	if p.inner != nil {
		p.inner.ScrollToLatest(c)
	}
	p.publish(domain.EventViewScroll, domain.ViewPayload{CallID: c.CallID})
}
