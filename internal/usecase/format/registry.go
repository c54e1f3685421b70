// Package format turns a single progress event into a line of display markup.
package format

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"toolfeed/internal/domain"
)

// A tool formatter that fails this many times in a row is bypassed for
// breakerCooldown; its events render with Default meanwhile.
const (
	breakerMaxFailures uint32 = 5
	breakerCooldown           = time.Minute
)

// Formatter renders one event for a specific tool. It returns "" for phases it
// does not describe and an error when the payload has an unexpected shape.
type Formatter func(ev domain.ProgressEvent, links Linker) (string, error)

// Linker hands large content to the content store and returns link markup.
type Linker interface {
	Link(content, lang string) string
}

// Registry dispatches events to per-tool formatters.
type Registry struct {
	table    [toolKindCount]Formatter
	breakers [toolKindCount]*gobreaker.CircuitBreaker[string]
	store    domain.ContentStore
	logger   *slog.Logger

	mu    sync.Mutex
	index map[string]int // content -> store index, keeps Format output stable
}

// NewRegistry creates a registry with the built-in tool formatters.
// store may be nil, in which case content links render as plain line counts.
func NewRegistry(store domain.ContentStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		table:  builtinFormatters(),
		store:  store,
		logger: logger.With("component", "format"),
		index:  make(map[string]int),
	}
	for k := ToolKind(1); k < toolKindCount; k++ {
		r.breakers[k] = r.newBreaker(k)
	}
	return r
}

func (r *Registry) newBreaker(kind ToolKind) *gobreaker.CircuitBreaker[string] {
	return gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "format:" + kind.String(),
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("formatter breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// Register replaces the formatter for kind. Registering ToolUnknown is ignored;
// the default formatter always handles unknown tools.
func (r *Registry) Register(kind ToolKind, f Formatter) {
	if kind <= ToolUnknown || kind >= toolKindCount {
		return
	}
	r.table[kind] = f
	r.breakers[kind] = r.newBreaker(kind)
}

// Format renders ev. A failing tool formatter degrades to the default one for
// that event only.
func (r *Registry) Format(ev domain.ProgressEvent) (out string) {
	kind := ParseToolKind(ev.Tool)
	f := r.table[kind]
	if f == nil {
		return Default(ev)
	}
	if ev.Phase == domain.PhaseFinish && ev.Error != "" {
		return Default(ev)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logFailure(ev, fmt.Errorf("panic: %v", rec))
			out = Default(ev)
		}
	}()

	s, err := r.breakers[kind].Execute(func() (string, error) { return f(ev, r) })
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return Default(ev)
	case err != nil:
		r.logFailure(ev, err)
		return Default(ev)
	}
	return s
}

func (r *Registry) logFailure(ev domain.ProgressEvent, cause error) {
	err := domain.NewDomainError("Registry.Format", domain.ErrFormatterFailure, cause.Error())
	r.logger.Warn("tool formatter failed, using fallback",
		"tool", ev.Tool,
		"call_id", ev.CallID,
		"error", err,
	)
}

// Link implements Linker. Identical content maps to the same store index so
// formatting the same event twice yields the same markup.
func (r *Registry) Link(content, lang string) string {
	label := plural(countLines(content), "line")
	if r.store == nil {
		return label
	}

	r.mu.Lock()
	idx, ok := r.index[content]
	if !ok {
		idx = r.store.Push(content)
		r.index[content] = idx
	}
	r.mu.Unlock()

	return fmt.Sprintf("<a href='#' class='content-link' data-index='%d' data-lang='%s'>%s</a>",
		idx, Escape(lang), label)
}
