package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTargetList_EmptyFileBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	list, err := LoadTargetList(path)
	require.NoError(t, err)
	assert.Empty(t, list.Targets)
}

func TestLoadTargetList_ValidatesExclusivity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json")
	body := `[{"targetApp":"fabric:/App1","targetAppType":"AppType1","cpuWarningLimitPercent":50}]`
	require.NoError(t, os.WriteFile(path, []byte(body+strings.Repeat(" ", 50)), 0o644))

	_, err := LoadTargetList(path)
	assert.Error(t, err)
}

func TestLoadTargetList_ParsesAndResolvesWildcard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json")
	body := `[
		{"targetApp":"*","cpuWarningLimitPercent":60,"cpuErrorLimitPercent":90},
		{"targetApp":"fabric:/App1","cpuWarningLimitPercent":0,"cpuErrorLimitPercent":0}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body+strings.Repeat(" ", 50)), 0o644))

	list, err := LoadTargetList(path)
	require.NoError(t, err)
	require.Len(t, list.Targets, 2)

	resolved := list.Resolved()
	require.Len(t, resolved, 2)
	assert.Equal(t, 60.0, resolved[1].CPUWarn)
	assert.Equal(t, 90.0, resolved[1].CPUErr)
}

func TestTargetListAccessor_ReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json")
	initial := `[{"targetApp":"fabric:/App1","cpuWarningLimitPercent":50}]` + strings.Repeat(" ", 50)
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o644))

	a, err := NewTargetListAccessor(path)
	require.NoError(t, err)
	assert.Len(t, a.Targets(), 1)

	updated := `[]`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, a.Reload())
	assert.Empty(t, a.Targets())
}
