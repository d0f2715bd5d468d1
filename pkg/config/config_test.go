package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleYAML = `
ObserverManagerConfiguration:
  ObserverLoopSleepSeconds: "30"
  EnableVerboseLogging: "true"
AppObserverConfiguration:
  RunInterval: "1m"
  MaxDumps: "3"
  CpuErrorLimitPercent: "95.5"
`

func TestAccessor_ReadsScopedSettings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sampleYAML)

	a, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, a.Int("ObserverManagerConfiguration", "ObserverLoopSleepSeconds", 60))
	assert.True(t, a.Bool("ObserverManagerConfiguration", "EnableVerboseLogging", false))
	assert.Equal(t, time.Minute, a.Duration("AppObserverConfiguration", "RunInterval", 5*time.Minute))
	assert.Equal(t, 3, a.Int("AppObserverConfiguration", "MaxDumps", 5))
	assert.InDelta(t, 95.5, a.Float64("AppObserverConfiguration", "CpuErrorLimitPercent", 0), 0.001)
}

func TestAccessor_MissingSettingReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sampleYAML)

	a, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fallback", a.String("MissingSection", "Missing", "fallback"))
	assert.Equal(t, 5, a.Int("AppObserverConfiguration", "MissingParam", 5))
}

func TestAccessor_ReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sampleYAML)

	a, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, a.Int("ObserverManagerConfiguration", "ObserverLoopSleepSeconds", 0))

	require.NoError(t, os.WriteFile(path, []byte(`
ObserverManagerConfiguration:
  ObserverLoopSleepSeconds: "45"
`), 0o644))
	require.NoError(t, a.Reload())
	assert.Equal(t, 45, a.Int("ObserverManagerConfiguration", "ObserverLoopSleepSeconds", 0))
}
