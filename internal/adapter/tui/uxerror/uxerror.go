// Package uxerror turns raw errors into short messages with recovery hints
// for the terminal view and the command line.
package uxerror

import (
	"errors"
	"strings"

	"toolfeed/internal/adapter/tui/theme"
	"toolfeed/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string
	Message string
	Hints   []string
	Raw     string
}

// Render formats the error as plain multi-line text.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString("\n    " + theme.SymbolBullet + " " + h)
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

// Sentinels come first so errors.Is works through wrapping.
var patterns = []errorPattern{
	{
		match: isErr(domain.ErrContentNotFound),
		produce: constantError("Content Not Available",
			"The referenced output is not in this session's content store.",
			[]string{"Content is kept only for the lifetime of the process"}),
	},
	{
		match: isErr(domain.ErrConfigLoad),
		produce: withRaw("Configuration Error",
			[]string{"Check the YAML syntax of the config file and its includes", "Config files must not be group or world writable"}),
	},
	{
		match: isErr(domain.ErrAuthInvalid),
		produce: constantError("Not Authorized",
			"The gateway token was rejected or lacks the needed role.",
			[]string{"Check gateway.auth.tokens in config", "Viewers need the viewer role, producers the producer role"}),
	},
	{
		match: isErr(domain.ErrRateLimit),
		produce: constantError("Rate Limited",
			"Events are arriving faster than the gateway accepts them.",
			[]string{"Raise gateway.frames_per_second or gateway.burst"}),
	},
	{
		match: func(err error) bool {
			var ve interface{ HasErrors() bool }
			return errors.As(err, &ve)
		},
		produce: withRaw("Invalid Configuration", []string{"Fix the listed fields and restart"}),
	},
	{
		match: containsAny("address already in use"),
		produce: constantError("Port In Use",
			"Another process is already listening on the gateway address.",
			[]string{"Stop the other process or change gateway.addr", "Set TOOLFEED_GATEWAY_ADDR to pick another port"}),
	},
	{
		match: containsAny("permission denied"),
		produce: constantError("Permission Denied",
			"toolfeed could not open a file or bind the gateway address.",
			[]string{"Check file permissions of the config and log output", "Use a port above 1024"}),
	},
	{
		match: containsAny("decrypt"),
		produce: constantError("Secret Decryption Failed",
			"An enc: value in the config could not be decrypted.",
			[]string{"Check TOOLFEED_CONFIG_KEY matches the key used to encrypt it"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}
	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}
	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Set TOOLFEED_LOGGER_LEVEL=debug for more details"},
		Raw:     err.Error(),
	}
}

func isErr(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny matches errors whose text contains any of substrs, ignoring case.
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{Title: title, Message: message, Hints: hints, Raw: err.Error()}
	}
}

// withRaw uses the error text itself as the message.
func withRaw(title string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{Title: title, Message: err.Error(), Hints: hints, Raw: err.Error()}
	}
}
