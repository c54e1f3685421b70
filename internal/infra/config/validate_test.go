package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Defaults()
	cfg.Gateway.Auth.Tokens = []TokenConfig{{Token: "t", Name: "agent", Roles: []string{"producer", "viewer"}}}
	return cfg
}

func TestValidateDefaultsWithToken(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidateGatewayDisabledNeedsNoToken(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Enabled = false
	assert.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad level", func(c *Config) { c.Logger.Level = "loud" }, "logger.level"},
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
		{"bad exporter", func(c *Config) { c.Tracer.Enabled = true; c.Tracer.Exporter = "jaeger" }, "tracer.exporter"},
		{"negative stale", func(c *Config) { c.Feed.StaleAfter = -time.Second }, "feed.stale_after"},
		{"bad sweep", func(c *Config) { c.Feed.SweepInterval = "often" }, "feed.sweep_interval"},
		{"zero sweep", func(c *Config) { c.Feed.SweepInterval = "0s" }, "feed.sweep_interval"},
		{"bad addr", func(c *Config) { c.Gateway.Addr = "localhost" }, "gateway.addr"},
		{"no tokens", func(c *Config) { c.Gateway.Auth.Tokens = nil }, "at least one token"},
		{"empty token", func(c *Config) { c.Gateway.Auth.Tokens[0].Token = "" }, "must not be empty"},
		{"unknown role", func(c *Config) { c.Gateway.Auth.Tokens[0].Roles = []string{"admin"} }, "unknown role"},
		{"negative fps", func(c *Config) { c.Gateway.FramesPerSecond = -1 }, "frames_per_second"},
		{"negative buffer", func(c *Config) { c.Gateway.SendBuffer = -1 }, "send_buffer"},
		{"negative http rate", func(c *Config) { c.Gateway.HTTPRequestsPerMin = -1 }, "http_requests_per_min"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Error(), tt.want)
		})
	}
}

func TestValidateAccumulates(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "loud"
	cfg.Gateway.Addr = "nope"
	cfg.Gateway.Burst = -1

	var ve *ValidationError
	require.ErrorAs(t, Validate(cfg), &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateSchedule(t *testing.T) {
	for _, s := range []string{"30s", "1m30s", "@every 1m", "@hourly", "*/2 * * * *"} {
		assert.NoError(t, validateSchedule(s), s)
	}
	for _, s := range []string{"", "-5s", "every minute", "* * *"} {
		assert.Error(t, validateSchedule(s), s)
	}
}

func TestValidateSweepIgnoredWhenStaleDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Feed.StaleAfter = 0
	cfg.Feed.SweepInterval = "garbage"
	assert.NoError(t, Validate(cfg))
}
