package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// listing every problem found.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateFeed(cfg, ve)
	validateGateway(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q must be debug, info, warn or error", cfg.Logger.Level)
	}
	switch cfg.Logger.Format {
	case "text", "json":
	default:
		ve.Add("logger.format %q must be text or json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop":
	default:
		ve.Add("tracer.exporter %q must be stdout or noop", cfg.Tracer.Exporter)
	}
}

func validateFeed(cfg *Config, ve *ValidationError) {
	if cfg.Feed.StaleAfter < 0 {
		ve.Add("feed.stale_after must be >= 0")
	}
	if cfg.Feed.StaleAfter == 0 || cfg.Feed.SweepInterval == "" {
		return
	}
	if err := validateSchedule(cfg.Feed.SweepInterval); err != nil {
		ve.Add("feed.sweep_interval: %v", err)
	}
}

// validateSchedule accepts a positive duration or a standard cron expression.
func validateSchedule(s string) error {
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return fmt.Errorf("duration %q must be > 0", s)
		}
		return nil
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return fmt.Errorf("%q is neither a duration nor a cron expression", s)
	}
	return nil
}

func validateGateway(cfg *Config, ve *ValidationError) {
	gw := cfg.Gateway
	if !gw.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(gw.Addr); err != nil {
		ve.Add("gateway.addr %q must be host:port", gw.Addr)
	}
	if len(gw.Auth.Tokens) == 0 {
		ve.Add("gateway.auth.tokens must contain at least one token")
	}
	for i, tok := range gw.Auth.Tokens {
		if tok.Token == "" {
			ve.Add("gateway.auth.tokens[%d].token must not be empty", i)
		}
		for _, role := range tok.Roles {
			if role != "producer" && role != "viewer" {
				ve.Add("gateway.auth.tokens[%d]: unknown role %q", i, role)
			}
		}
	}
	if gw.FramesPerSecond < 0 {
		ve.Add("gateway.frames_per_second must be >= 0")
	}
	if gw.Burst < 0 {
		ve.Add("gateway.burst must be >= 0")
	}
	if gw.SendBuffer < 0 {
		ve.Add("gateway.send_buffer must be >= 0")
	}
	if gw.HTTPRequestsPerMin < 0 {
		ve.Add("gateway.http_requests_per_min must be >= 0")
	}
	if gw.HTTPBurst < 0 {
		ve.Add("gateway.http_burst must be >= 0")
	}
}
