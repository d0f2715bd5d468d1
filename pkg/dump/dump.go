// Package dump implements the dump writer (C11): a budget- and
// disk-guarded live process dump, backed by the sentinel store (C13)
// for the per-process counter that must survive an agent restart.
package dump

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/latticeco/resobserver/pkg/metrics"
	"github.com/latticeco/resobserver/pkg/store"
)

// Kind selects the depth of a live process dump.
type Kind string

const (
	KindMini     Kind = "Mini"
	KindMiniPlus Kind = "MiniPlus"
	KindFull     Kind = "Full"
)

// ErrUnsupported is returned by platformWriter on a GOOS without a live
// dump facility. The AppObserver treats this as "suppress without
// reporting an error" per spec.md §6.
var ErrUnsupported = errors.New("dump: unsupported on this platform")

// ErrBudgetExhausted is returned when a process name has already used its
// per-lifetime dump budget.
var ErrBudgetExhausted = errors.New("dump: per-process budget exhausted")

// ErrDiskGuard is returned when the dump volume is over the fill-level
// guard (default 90%) and a dump is refused to avoid making things worse.
var ErrDiskGuard = errors.New("dump: dump volume over capacity guard")

// platformWriter performs the actual OS-level dump. Implemented per-GOOS
// in dump_linux.go / dump_windows.go / dump_unsupported.go.
type platformWriter interface {
	dumpProcess(ctx context.Context, pid int32, kind Kind, outPath string) error
}

// DiskUsage reports the fraction (0..1) of the dump volume currently used.
// Satisfied by pkg/probe in production; a small function value in tests.
type DiskUsage func(path string) (float64, error)

// Writer is the C11 dump writer: budget- and disk-guard-checked, backed
// by the sentinel store for the cross-restart counter.
type Writer struct {
	platform  platformWriter
	sentinel  *store.Sentinel
	diskUsage DiskUsage
	maxDumps  int
	guardPct  float64
}

// New creates a dump writer. maxDumps is the per-process lifetime budget
// (MaxDumps setting, default 5); guardPct is the disk-usage fraction
// above which dumps are refused (default 0.90, spec.md §5).
func New(sentinel *store.Sentinel, diskUsage DiskUsage, maxDumps int, guardPct float64) *Writer {
	return newWithPlatform(newPlatformWriter(), sentinel, diskUsage, maxDumps, guardPct)
}

func newWithPlatform(platform platformWriter, sentinel *store.Sentinel, diskUsage DiskUsage, maxDumps int, guardPct float64) *Writer {
	if maxDumps <= 0 {
		maxDumps = 5
	}
	if guardPct <= 0 {
		guardPct = 0.90
	}
	return &Writer{
		platform:  platform,
		sentinel:  sentinel,
		diskUsage: diskUsage,
		maxDumps:  maxDumps,
		guardPct:  guardPct,
	}
}

// DumpProcess requests a live dump of pid, named processName for budget
// accounting, writing kind to outPath. Suppression (budget exhausted,
// disk guard, unsupported platform) is reported via the returned error;
// callers MUST treat every error here as "suppressed", never as a health
// impact (spec.md §7 "Dump failure — logged, no health impact").
func (w *Writer) DumpProcess(ctx context.Context, pid int32, processName string, kind Kind, outPath string) error {
	if w.diskUsage != nil {
		used, err := w.diskUsage(outPath)
		if err == nil && used > w.guardPct {
			metrics.DumpsSuppressedTotal.WithLabelValues("disk_guard").Inc()
			return ErrDiskGuard
		}
	}

	if w.sentinel != nil {
		rec, err := w.sentinel.Get(processName)
		if err == nil && rec.DumpsUsed >= w.maxDumps {
			metrics.DumpsSuppressedTotal.WithLabelValues("budget").Inc()
			return ErrBudgetExhausted
		}
	}

	if err := w.platform.dumpProcess(ctx, pid, kind, outPath); err != nil {
		if errors.Is(err, ErrUnsupported) {
			metrics.DumpsSuppressedTotal.WithLabelValues("unsupported").Inc()
		}
		return err
	}

	if w.sentinel != nil {
		if _, err := w.sentinel.IncrementDumpCount(processName, time.Now()); err != nil {
			return fmt.Errorf("dump succeeded but sentinel update failed: %w", err)
		}
	}

	metrics.DumpsWrittenTotal.WithLabelValues(string(kind)).Inc()
	return nil
}
