package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolfeed/internal/domain"
)

func TestIncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "logging.yaml", "logger:\n  level: debug\n  format: json\n")
	writeConfig(t, dir, "gateway.yaml", "gateway:\n  enabled: false\n  addr: \"127.0.0.1:9999\"\n")
	main := writeConfig(t, dir, "toolfeed.yaml", `
includes:
  - logging.yaml
  - gateway.yaml
logger:
  format: text
`)

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "text", cfg.Logger.Format, "main file wins")
	assert.Equal(t, "127.0.0.1:9999", cfg.Gateway.Addr)
	assert.Nil(t, cfg.Includes)
}

func TestIncludesGlob(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.part.yaml", "logger:\n  level: warn\n")
	writeConfig(t, dir, "b.part.yaml", "gateway:\n  enabled: false\n")
	main := writeConfig(t, dir, "toolfeed.yaml", "includes: [\"*.part.yaml\"]\n")

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.False(t, cfg.Gateway.Enabled)
}

func TestIncludesGlobWithoutMatches(t *testing.T) {
	dir := t.TempDir()
	main := writeConfig(t, dir, "toolfeed.yaml", "includes: [\"conf.d/*.yaml\"]\ngateway:\n  enabled: false\n")

	_, err := Load(main)
	assert.NoError(t, err)
}

func TestIncludesNested(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "inner.yaml", "logger:\n  level: error\n  format: json\n")
	writeConfig(t, dir, "outer.yaml", "includes: [inner.yaml]\nlogger:\n  level: warn\n")
	main := writeConfig(t, dir, "toolfeed.yaml", "includes: [outer.yaml]\ngateway:\n  enabled: false\n")

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestIncludesCircular(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "includes: [b.yaml]\n")
	writeConfig(t, dir, "b.yaml", "includes: [a.yaml]\n")
	main := writeConfig(t, dir, "toolfeed.yaml", "includes: [a.yaml]\n")

	_, err := Load(main)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfigLoad))
	assert.Contains(t, err.Error(), "circular")
}

func TestIncludesMissingFile(t *testing.T) {
	dir := t.TempDir()
	main := writeConfig(t, dir, "toolfeed.yaml", "includes: [absent.yaml]\n")

	_, err := Load(main)
	assert.Error(t, err)
}

func TestIncludesRejectTraversal(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	_, err := resolveIncludePaths("../outside.yaml", sub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestIncludesDepthLimit(t *testing.T) {
	cfg := Defaults()
	cfg.Includes = []string{"x.yaml"}
	err := processIncludes(cfg, t.TempDir(), map[string]bool{}, maxIncludeDepth)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested deeper")
}
