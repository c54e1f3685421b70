package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolfeed/internal/adapter/contentstore"
	"toolfeed/internal/domain"
	"toolfeed/internal/infra/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseArgs(t *testing.T) {
	t.Setenv(config.EnvPrefix+"CONFIG", "")

	tests := []struct {
		name    string
		argv    []string
		want    cliArgs
		wantErr string
	}{
		{"default", nil, cliArgs{command: "serve", configPath: "toolfeed.yaml"}, ""},
		{"help", []string{"--help"}, cliArgs{command: "serve", configPath: "toolfeed.yaml", help: true}, ""},
		{"tui with config", []string{"tui", "--config", "/etc/tf.yaml"}, cliArgs{command: "tui", configPath: "/etc/tf.yaml"}, ""},
		{"config equals", []string{"--config=x.yaml", "serve"}, cliArgs{command: "serve", configPath: "x.yaml"}, ""},
		{"replay file", []string{"replay", "log.jsonl"}, cliArgs{command: "replay", configPath: "toolfeed.yaml", replayPath: "log.jsonl"}, ""},
		{"replay stdin", []string{"replay", "-"}, cliArgs{command: "replay", configPath: "toolfeed.yaml", replayPath: "-"}, ""},
		{"replay missing file", []string{"replay"}, cliArgs{}, "exactly one FILE"},
		{"serve extra arg", []string{"serve", "x"}, cliArgs{}, "takes no arguments"},
		{"unknown command", []string{"dance"}, cliArgs{}, "unknown command"},
		{"unknown flag", []string{"--verbose"}, cliArgs{}, "unknown flag"},
		{"config without path", []string{"--config"}, cliArgs{}, "requires a path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.argv)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArgsConfigFromEnv(t *testing.T) {
	t.Setenv(config.EnvPrefix+"CONFIG", "/run/toolfeed.yaml")
	got, err := parseArgs([]string{"tui"})
	require.NoError(t, err)
	assert.Equal(t, "/run/toolfeed.yaml", got.configPath)
}

func TestShowUsage(t *testing.T) {
	var buf bytes.Buffer
	showUsage(&buf)
	assert.Contains(t, buf.String(), "replay FILE")
}

const replayLog = `{"tool":"bash_exec","event":"start","call_id":"c1","args":{"command":"ls"}}
{"type":"info","call_id":"c1","message":"<checking>"}

not json at all
{"type":"success","call_id":"c1","message":"ok"}
{"tool":"bash_exec","event":"finish","type":"success","call_id":"c1","result":"done\nreturncode: 0"}
`

func TestReplayRendersDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(replayLog), 0o600))

	var out bytes.Buffer
	err := runReplay(context.Background(), config.Defaults(), discardLogger(), path, &out)
	require.NoError(t, err)

	html := out.String()
	assert.True(t, strings.HasPrefix(html, "<div class='feed' data-busy='false'>"), html)
	assert.Contains(t, html, "<div id='call-c1' class='breadcrumb-container latest'>")
	assert.Contains(t, html, "&lt;checking&gt; <span class='success'>ok</span>")
	assert.Contains(t, html, "Command finished (code 0)")
}

func TestReplayCountsLines(t *testing.T) {
	c := newComponents(context.Background(), config.Defaults(), discardLogger(), contentstore.NewMemory(), false)
	defer c.close()

	n, err := replay(context.Background(), c.bus, strings.NewReader(replayLog))
	require.NoError(t, err)
	assert.Equal(t, 5, n, "blank lines are skipped, malformed ones are still published")
	assert.False(t, c.service.Busy())
}

func TestReplayMissingFile(t *testing.T) {
	err := runReplay(context.Background(), config.Defaults(), discardLogger(), filepath.Join(t.TempDir(), "nope"), io.Discard)
	assert.Error(t, err)
}

func TestSweeperDropsStaleInvocations(t *testing.T) {
	cfg := config.Defaults()
	cfg.Feed.StaleAfter = time.Nanosecond
	cfg.Feed.SweepInterval = "20ms"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newComponents(ctx, cfg, discardLogger(), contentstore.NewMemory(), false)
	defer c.close()

	c.bus.Publish(ctx, domain.NewEvent(domain.EventProgressReceived,
		domain.ProgressEvent{Tool: "bash_exec", Phase: domain.PhaseStart, CallID: "c1"}))
	require.True(t, c.service.Busy())

	s, err := startSweeper(ctx, cfg, c.bus, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Stop()

	assert.Eventually(t, func() bool { return !c.service.Busy() }, 2*time.Second, 10*time.Millisecond)
}

func TestSweeperDisabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.Feed.StaleAfter = 0
	s, err := startSweeper(context.Background(), cfg, nil, discardLogger())
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestNewGatewayDisabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.Gateway.Enabled = false
	c := newComponents(context.Background(), cfg, discardLogger(), contentstore.NewMemory(), true)
	defer c.close()

	srv, err := newGateway(context.Background(), cfg, c, discardLogger())
	assert.NoError(t, err)
	assert.Nil(t, srv)
}
