package dump

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/latticeco/resobserver/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	calls int
	err   error
}

func (f *fakePlatform) dumpProcess(ctx context.Context, pid int32, kind Kind, outPath string) error {
	f.calls++
	return f.err
}

func openTestSentinel(t *testing.T) *store.Sentinel {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "sentinel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWriter_DumpProcess_Success(t *testing.T) {
	sentinel := openTestSentinel(t)
	platform := &fakePlatform{}
	w := newWithPlatform(platform, sentinel, nil, 5, 0.90)

	err := w.DumpProcess(context.Background(), 1234, "nginx", KindMini, "/tmp/out.dmp")
	require.NoError(t, err)
	assert.Equal(t, 1, platform.calls)

	rec, err := sentinel.Get("nginx")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.DumpsUsed)
}

func TestWriter_DumpProcess_BudgetExhausted(t *testing.T) {
	sentinel := openTestSentinel(t)
	platform := &fakePlatform{}
	w := newWithPlatform(platform, sentinel, nil, 2, 0.90)

	ctx := context.Background()
	require.NoError(t, w.DumpProcess(ctx, 1, "svc", KindMini, "/tmp/a"))
	require.NoError(t, w.DumpProcess(ctx, 1, "svc", KindMini, "/tmp/b"))

	err := w.DumpProcess(ctx, 1, "svc", KindMini, "/tmp/c")
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Equal(t, 2, platform.calls)
}

func TestWriter_DumpProcess_DiskGuardSuppresses(t *testing.T) {
	sentinel := openTestSentinel(t)
	platform := &fakePlatform{}
	diskUsage := func(path string) (float64, error) { return 0.95, nil }
	w := newWithPlatform(platform, sentinel, diskUsage, 5, 0.90)

	err := w.DumpProcess(context.Background(), 1, "svc", KindMini, "/tmp/out")
	assert.ErrorIs(t, err, ErrDiskGuard)
	assert.Equal(t, 0, platform.calls)
}

func TestWriter_DumpProcess_UnsupportedPlatform(t *testing.T) {
	sentinel := openTestSentinel(t)
	platform := &fakePlatform{err: ErrUnsupported}
	w := newWithPlatform(platform, sentinel, nil, 5, 0.90)

	err := w.DumpProcess(context.Background(), 1, "svc", KindMini, "/tmp/out")
	assert.True(t, errors.Is(err, ErrUnsupported))

	rec, rerr := sentinel.Get("svc")
	require.NoError(t, rerr)
	assert.Equal(t, 0, rec.DumpsUsed, "unsupported dump must not consume budget")
}
