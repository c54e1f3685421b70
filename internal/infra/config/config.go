package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"toolfeed/internal/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TOOLFEED_"

// Config is the top-level application configuration.
type Config struct {
	Logger   LoggerConfig  `yaml:"logger"`
	Tracer   TracerConfig  `yaml:"tracer"`
	Feed     FeedConfig    `yaml:"feed"`
	Gateway  GatewayConfig `yaml:"gateway"`
	TUI      TUIConfig     `yaml:"tui"`
	Includes []string      `yaml:"includes,omitempty"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
	Output   string `yaml:"output"`   // stdout exporter target: "stderr", "stdout" or a file path
}

// FeedConfig holds aggregator settings.
type FeedConfig struct {
	// StaleAfter drops invocations that never finish. Zero disables it.
	StaleAfter time.Duration `yaml:"stale_after"`
	// SweepInterval is a duration ("30s") or cron expression ("@every 1m").
	SweepInterval string `yaml:"sweep_interval"`
}

// GatewayConfig holds WebSocket/HTTP gateway settings.
type GatewayConfig struct {
	Enabled            bool       `yaml:"enabled"`
	Addr               string     `yaml:"addr"`
	Auth               AuthConfig `yaml:"auth"`
	FramesPerSecond    float64    `yaml:"frames_per_second"`
	Burst              int        `yaml:"burst"`
	SendBuffer         int        `yaml:"send_buffer"`
	HTTPRequestsPerMin int        `yaml:"http_requests_per_min"`
	HTTPBurst          int        `yaml:"http_burst"`
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
}

// TokenConfig holds a single gateway auth token.
type TokenConfig struct {
	Token string   `yaml:"token"`
	Name  string   `yaml:"name"`
	Roles []string `yaml:"roles"`
}

// TUIConfig holds terminal view settings.
type TUIConfig struct {
	ASCIISymbols bool `yaml:"ascii_symbols"`
	// Markdown renders markdown content with glamour in the content viewer.
	Markdown bool `yaml:"markdown"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
			Output:   "stderr",
		},
		Feed: FeedConfig{
			StaleAfter:    10 * time.Minute,
			SweepInterval: "30s",
		},
		Gateway: GatewayConfig{
			Enabled:            true,
			Addr:               "127.0.0.1:7420",
			FramesPerSecond:    200,
			Burst:              400,
			SendBuffer:         256,
			HTTPRequestsPerMin: 600,
			HTTPBurst:          60,
		},
		TUI: TUIConfig{
			Markdown: true,
		},
	}
}

// LoadOption adjusts a config after overrides and before validation.
type LoadOption func(*Config)

// WithoutGateway disables the gateway, for commands that never serve it.
func WithoutGateway() LoadOption {
	return func(cfg *Config) { cfg.Gateway.Enabled = false }
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file yields the defaults.
func Load(path string, opts ...LoadOption) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfigLoad, path, err)
		}
		data = nil
	}

	if data != nil {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		if err := validatePermissions(absPath); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfigLoad, path, err)
		}
		if len(cfg.Includes) > 0 {
			visited := map[string]bool{absPath: true}
			if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
				return nil, err
			}
			// The main file wins over its includes.
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfigLoad, path, err)
			}
			cfg.Includes = nil
		}
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv(EnvPrefix + "CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps TOOLFEED_* env vars to config fields.
// Values that fail to parse are ignored and caught by Validate if relevant.
func ApplyEnvOverrides(cfg *Config) {
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	if v := env("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := env("LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := env("LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := env("TRACER_ENABLED"); v != "" {
		cfg.Tracer.Enabled = v == "true" || v == "1"
	}
	if v := env("TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := env("FEED_STALE_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Feed.StaleAfter = d
		}
	}
	if v := env("FEED_SWEEP_INTERVAL"); v != "" {
		cfg.Feed.SweepInterval = v
	}
	if v := env("GATEWAY_ENABLED"); v != "" {
		cfg.Gateway.Enabled = v == "true" || v == "1"
	}
	if v := env("GATEWAY_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := env("GATEWAY_FRAMES_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Gateway.FramesPerSecond = f
		}
	}
	if v := env("GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Auth.Tokens = append(cfg.Gateway.Auth.Tokens, TokenConfig{Token: v, Name: "env"})
	}
	if v := env("TUI_ASCII_SYMBOLS"); v != "" {
		cfg.TUI.ASCIISymbols = v == "true" || v == "1"
	}
}

// decryptSecrets replaces "enc:..." gateway tokens with their plaintext.
func decryptSecrets(cfg *Config, passphrase string) error {
	for i := range cfg.Gateway.Auth.Tokens {
		tok := &cfg.Gateway.Auth.Tokens[i]
		if !strings.HasPrefix(tok.Token, "enc:") {
			continue
		}
		decrypted, err := DecryptValue(strings.TrimPrefix(tok.Token, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("gateway auth token %s: %w", tok.Name, err)
		}
		tok.Token = decrypted
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
// The result is hex(salt) + ":" + hex(nonce+ciphertext).
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts a value produced by EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("invalid encrypted format")
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects config files writable by group or others.
// Config files may hold gateway tokens.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o022 != 0 {
		return fmt.Errorf("%w: %s has insecure permissions %o (want 0600 or 0644)", domain.ErrConfigLoad, path, mode)
	}
	return nil
}
