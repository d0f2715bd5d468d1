// Package observer implements the sampling components the scheduler (C10)
// drives each loop iteration: the common observer lifecycle (C7), the
// process-centric AppObserver/FabricSystemObserver (C8), and the
// host-level NodeObserver/DiskObserver (C9).
package observer

import (
	"context"
	"time"
)

// Observer is the single capability every sampling component implements,
// replacing a virtual-method hierarchy per spec.md §9 Design Notes.
type Observer interface {
	Name() string
	Enabled() bool
	Observe(ctx context.Context) error
	Report(ctx context.Context) error
}

// Base holds the per-observer lifecycle state common to every concrete
// observer: the enable flag, the run-interval gate, and IsUnhealthy
// bookkeeping the scheduler consults (spec.md §4.1, §4.6).
type Base struct {
	name           string
	enabled        bool
	runInterval    time.Duration
	monitorWindow  time.Duration
	sampleInterval time.Duration
	lastRun        time.Time
	unhealthy      bool
}

// NewBase constructs the common observer lifecycle state.
func NewBase(name string, enabled bool, runInterval, monitorWindow, sampleInterval time.Duration) Base {
	return Base{
		name:           name,
		enabled:        enabled,
		runInterval:    runInterval,
		monitorWindow:  monitorWindow,
		sampleInterval: sampleInterval,
	}
}

func (b *Base) Name() string  { return b.name }
func (b *Base) Enabled() bool { return b.enabled }

// ShouldRun gates Observe per spec.md §4.1: "Observe is a no-op if
// now - last_run < run_interval".
func (b *Base) ShouldRun(now time.Time) bool {
	if b.runInterval <= 0 {
		return true
	}
	return now.Sub(b.lastRun) >= b.runInterval
}

// MarkRan records the run-interval gate's last-run timestamp.
func (b *Base) MarkRan(now time.Time) { b.lastRun = now }

// MonitorWindow is the total sample-window duration for this observer.
func (b *Base) MonitorWindow() time.Duration { return b.monitorWindow }

// SampleInterval is the fixed tick between samples within a window.
func (b *Base) SampleInterval() time.Duration { return b.sampleInterval }

// IsUnhealthy reports whether this observer previously timed out and has
// been permanently skipped for the rest of the agent lifetime.
func (b *Base) IsUnhealthy() bool { return b.unhealthy }

// MarkUnhealthy permanently disables this observer for the scheduler, per
// spec.md §4.6: "Timeout mark the observer IsUnhealthy = true; it is
// skipped for the rest of the agent lifetime".
func (b *Base) MarkUnhealthy() { b.unhealthy = true }

// SampleTicks returns how many sample-interval ticks fit in window,
// bounded below by 1 so an observer with no configured window still
// samples once.
func SampleTicks(window, interval time.Duration) int {
	if interval <= 0 {
		return 1
	}
	n := int(window / interval)
	if n < 1 {
		n = 1
	}
	return n
}
