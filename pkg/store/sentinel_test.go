package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSentinel(t *testing.T) *Sentinel {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSentinel_GetUnknownProcessIsZeroValue(t *testing.T) {
	s := openTestSentinel(t)

	rec, err := s.Get("nginx")
	require.NoError(t, err)
	assert.Equal(t, "nginx", rec.ProcessName)
	assert.Equal(t, 0, rec.DumpsUsed)
}

func TestSentinel_IncrementDumpCountPersists(t *testing.T) {
	s := openTestSentinel(t)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := s.IncrementDumpCount("worker", now)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.DumpsUsed)

	rec, err = s.IncrementDumpCount("worker", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.DumpsUsed)

	fetched, err := s.Get("worker")
	require.NoError(t, err)
	assert.Equal(t, 2, fetched.DumpsUsed)
}

func TestSentinel_DistinctProcessesDistinctCounters(t *testing.T) {
	s := openTestSentinel(t)

	now := time.Now()
	_, err := s.IncrementDumpCount("a", now)
	require.NoError(t, err)

	recA, err := s.Get("a")
	require.NoError(t, err)
	recB, err := s.Get("b")
	require.NoError(t, err)

	assert.Equal(t, 1, recA.DumpsUsed)
	assert.Equal(t, 0, recB.DumpsUsed)
}
