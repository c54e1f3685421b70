// Package sink provides ViewSink implementations: an in-memory HTML document,
// a decorator that mirrors view updates onto the event bus, and a fan-out.
package sink

import (
	"html"
	"io"
	"strconv"
	"strings"
	"sync"

	"toolfeed/internal/domain"
)

type htmlEntry struct {
	style domain.Style
	html  string
}

type htmlContainer struct {
	callID  string
	entries []*htmlEntry
}

// HTMLDocument is a goroutine-safe ViewSink that keeps the whole feed as
// breadcrumb markup.
type HTMLDocument struct {
	mu         sync.RWMutex
	containers []*htmlContainer
	byCallID   map[string]*htmlContainer
	entries    map[string]*htmlEntry
	busy       bool
	latest     string
}

// NewHTMLDocument returns an empty document.
func NewHTMLDocument() *HTMLDocument {
	return &HTMLDocument{
		byCallID: make(map[string]*htmlContainer),
		entries:  make(map[string]*htmlEntry),
	}
}

func (d *HTMLDocument) EnsureContainer(callID string) domain.ContainerHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byCallID[callID]; !ok {
		c := &htmlContainer{callID: callID}
		d.byCallID[callID] = c
		d.containers = append(d.containers, c)
	}
	return domain.ContainerHandle{CallID: callID}
}

func (d *HTMLDocument) AppendEntry(h domain.ContainerHandle, style domain.Style, markup string) domain.EntryHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.byCallID[h.CallID]
	if !ok {
		c = &htmlContainer{callID: h.CallID}
		d.byCallID[h.CallID] = c
		d.containers = append(d.containers, c)
	}
	e := &htmlEntry{style: style, html: markup}
	c.entries = append(c.entries, e)
	id := strconv.Itoa(len(d.entries) + 1)
	d.entries[id] = e
	return domain.EntryHandle{CallID: h.CallID, ID: id}
}

func (d *HTMLDocument) MergeIntoEntry(h domain.EntryHandle, suffix string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[h.ID]; ok {
		e.html += suffix
	}
}

func (d *HTMLDocument) SetBusy(busy bool) {
	d.mu.Lock()
	d.busy = busy
	d.mu.Unlock()
}

func (d *HTMLDocument) ScrollToLatest(h domain.ContainerHandle) {
	d.mu.Lock()
	d.latest = h.CallID
	d.mu.Unlock()
}

// Busy reports the last busy state set by the aggregator.
func (d *HTMLDocument) Busy() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.busy
}

// Render returns the document markup.
func (d *HTMLDocument) Render() string {
	var b strings.Builder
	_, _ = d.WriteTo(&b)
	return b.String()
}

// WriteTo writes the document markup to w.
func (d *HTMLDocument) WriteTo(w io.Writer) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var b strings.Builder
	b.WriteString("<div class='feed' data-busy='")
	b.WriteString(strconv.FormatBool(d.busy))
	b.WriteString("'>\n")
	for _, c := range d.containers {
		b.WriteString("<div id='call-")
		b.WriteString(html.EscapeString(c.callID))
		b.WriteString("' class='breadcrumb-container")
		if c.callID == d.latest {
			b.WriteString(" latest")
		}
		b.WriteString("'>\n")
		for _, e := range c.entries {
			b.WriteString("<div class='breadcrumb-tab ")
			b.WriteString(string(e.style))
			b.WriteString("'>")
			b.WriteString(e.html)
			b.WriteString("</div>\n")
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</div>\n")

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
