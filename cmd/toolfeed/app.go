package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"toolfeed/internal/adapter/contentstore"
	"toolfeed/internal/adapter/gateway"
	"toolfeed/internal/adapter/sink"
	tuifeed "toolfeed/internal/adapter/tui/feed"
	"toolfeed/internal/adapter/tui/theme"
	"toolfeed/internal/domain"
	"toolfeed/internal/infra/config"
	"toolfeed/internal/infra/middleware"
	"toolfeed/internal/usecase/eventbus"
	"toolfeed/internal/usecase/feed"
	"toolfeed/internal/usecase/format"
	"toolfeed/internal/usecase/scheduling"
)

// maxReplayLine bounds one JSONL record in replay input.
const maxReplayLine = 4 << 20

// components is the wired feed pipeline shared by every command.
type components struct {
	bus      *eventbus.Bus
	store    *contentstore.Memory
	document *sink.HTMLDocument
	service  *feed.Service
	unsub    func()
}

// newComponents wires bus, content store, formatter registry and aggregator.
// extra sinks receive every view call next to the HTML document; when
// publish is set, view calls are also mirrored onto the bus for viewers.
func newComponents(ctx context.Context, cfg *config.Config, log *slog.Logger, store *contentstore.Memory, publish bool, extra ...domain.ViewSink) *components {
	bus := eventbus.New(log)
	doc := sink.NewHTMLDocument()

	var view domain.ViewSink = doc
	if len(extra) > 0 {
		view = sink.NewTee(append([]domain.ViewSink{doc}, extra...)...)
	}
	if publish {
		view = sink.NewPublishing(ctx, view, bus)
	}

	agg := feed.New(view, format.NewRegistry(store, log), log)
	agg.SetStaleAfter(cfg.Feed.StaleAfter)
	service := feed.NewService(agg, log)

	return &components{
		bus:      bus,
		store:    store,
		document: doc,
		service:  service,
		unsub:    service.Subscribe(bus),
	}
}

func (c *components) close() {
	c.unsub()
	c.bus.Close()
}

// startSweeper schedules the liveness sweep. It returns nil when stale
// invocations are kept forever.
func startSweeper(ctx context.Context, cfg *config.Config, bus domain.EventBus, log *slog.Logger) (*scheduling.Scheduler, error) {
	if cfg.Feed.StaleAfter <= 0 || cfg.Feed.SweepInterval == "" {
		return nil, nil
	}
	s := scheduling.NewScheduler(log)
	err := s.Add("feed_sweep", cfg.Feed.SweepInterval, func(ctx context.Context) error {
		bus.Publish(ctx, domain.NewEvent(domain.EventFeedSweep, domain.SweepPayload{Now: time.Now()}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Start(ctx)
	return s, nil
}

// newGateway builds the WebSocket/HTTP gateway over c. It returns nil when
// the gateway is disabled.
func newGateway(ctx context.Context, cfg *config.Config, c *components, log *slog.Logger) (*gateway.Server, error) {
	gw := cfg.Gateway
	if !gw.Enabled {
		return nil, nil
	}

	entries := make([]gateway.TokenEntry, 0, len(gw.Auth.Tokens))
	for _, t := range gw.Auth.Tokens {
		entries = append(entries, gateway.TokenEntry{Token: t.Token, Name: t.Name, Roles: t.Roles})
	}

	srv, err := gateway.NewServer(c.bus, gateway.NewStaticTokenAuth(entries), gateway.Options{
		Addr:            gw.Addr,
		FramesPerSecond: gw.FramesPerSecond,
		Burst:           gw.Burst,
		SendBuffer:      gw.SendBuffer,
	}, log)
	if err != nil {
		return nil, err
	}

	limit := middleware.RateLimit(ctx, gw.HTTPRequestsPerMin, gw.HTTPBurst)
	deps := gateway.HandlerDeps{
		Feed:     c.service,
		Content:  c.store,
		Document: c.document,
		Wrap: func(h http.Handler) http.Handler {
			return middleware.SecurityHeaders(limit(h))
		},
	}
	gateway.RegisterDefaultHandlers(srv, deps)
	gateway.RegisterRESTHandlers(srv, deps)
	return srv, nil
}

func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	c := newComponents(ctx, cfg, log, contentstore.NewMemory(), true)
	defer c.close()

	sweeper, err := startSweeper(ctx, cfg, c.bus, log)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if sweeper != nil {
		defer sweeper.Stop()
	}

	srv, err := newGateway(ctx, cfg, c, log)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if srv == nil {
		return errors.New("nothing to serve: gateway is disabled")
	}

	log.Info("toolfeed serving", "addr", cfg.Gateway.Addr, "stale_after", cfg.Feed.StaleAfter)
	return srv.Start(ctx)
}

func runTUI(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	theme.UseASCII(cfg.TUI.ASCIISymbols || !theme.DetectUnicodeSupport())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := contentstore.NewMemory()
	program := tuifeed.NewProgram(ctx, tuifeed.ModelDeps{
		Content:  store,
		Markdown: cfg.TUI.Markdown,
		Logger:   log,
	})

	c := newComponents(ctx, cfg, log, store, true, program.Sink())
	defer c.close()

	sweeper, err := startSweeper(ctx, cfg, c.bus, log)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if sweeper != nil {
		defer sweeper.Stop()
	}

	srv, err := newGateway(ctx, cfg, c, log)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	var wg sync.WaitGroup
	if srv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(ctx); err != nil {
				log.Error("gateway server error", "error", err)
				program.Notify(err)
			}
		}()
	}

	err = program.Run()
	cancel()
	wg.Wait()
	return err
}

// runReplay feeds a JSONL event log through the pipeline and writes the
// resulting HTML document to out.
func runReplay(ctx context.Context, cfg *config.Config, log *slog.Logger, path string, out io.Writer) error {
	in := io.Reader(os.Stdin)
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open replay input: %w", err)
		}
		defer f.Close()
		in = f
	}

	c := newComponents(ctx, cfg, log, contentstore.NewMemory(), false)
	defer c.close()

	n, err := replay(ctx, c.bus, in)
	if err != nil {
		return err
	}
	log.Info("replay finished", "events", n, "busy", c.document.Busy())

	_, err = c.document.WriteTo(out)
	return err
}

// replay publishes every non-blank line of in as a progress event. Lines
// that are not valid events are still published; the feed service logs and
// drops them.
func replay(ctx context.Context, bus domain.EventBus, in io.Reader) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxReplayLine)

	n := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		payload := make([]byte, len(line))
		copy(payload, line)
		bus.Publish(ctx, domain.Event{
			Type:      domain.EventProgressReceived,
			Timestamp: time.Now(),
			Payload:   payload,
		})
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("read replay input: %w", err)
	}
	return n, nil
}
