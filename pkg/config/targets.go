package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/latticeco/resobserver/pkg/metrics"
	"github.com/latticeco/resobserver/pkg/types"
)

// emptyFileThresholdBytes is the spec.md §6 "file size ≤ 42 bytes is
// treated as empty" rule, checked before any JSON parsing is attempted.
const emptyFileThresholdBytes = 42

// TargetList is the parsed AppObserver target-list file: a JSON array of
// application targets, each validated for the exactly-one-of
// TargetApp/TargetAppType invariant.
type TargetList struct {
	Targets []types.ApplicationTarget
}

// LoadTargetList reads and validates the AppObserver target-list file at
// path. A file at or under the empty-file threshold yields a TargetList
// with zero targets rather than an error, per spec.md §6.
func LoadTargetList(path string) (TargetList, error) {
	info, err := os.Stat(path)
	if err != nil {
		return TargetList{}, fmt.Errorf("config: stat target list %s: %w", path, err)
	}
	if info.Size() <= emptyFileThresholdBytes {
		return TargetList{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return TargetList{}, fmt.Errorf("config: read target list %s: %w", path, err)
	}

	var targets []types.ApplicationTarget
	if err := json.Unmarshal(data, &targets); err != nil {
		return TargetList{}, fmt.Errorf("config: parse target list %s: %w", path, err)
	}

	for i, t := range targets {
		if err := t.Validate(); err != nil {
			return TargetList{}, fmt.Errorf("config: target list %s entry %d: %w", path, i, err)
		}
	}

	return TargetList{Targets: targets}, nil
}

// Wildcard returns the wildcard target (TargetApp == "*" or "all"), if
// present, so per-app targets can inherit its thresholds.
func (l TargetList) Wildcard() (types.ApplicationTarget, bool) {
	for _, t := range l.Targets {
		if t.IsWildcard() {
			return t, true
		}
	}
	return types.ApplicationTarget{}, false
}

// Resolved returns the target list with every non-wildcard entry's
// zero-valued thresholds filled in from the wildcard record, per
// spec.md §4.3 step 2.
func (l TargetList) Resolved() []types.ApplicationTarget {
	wildcard, hasWildcard := l.Wildcard()
	out := make([]types.ApplicationTarget, 0, len(l.Targets))
	for _, t := range l.Targets {
		if hasWildcard && !t.IsWildcard() {
			t.InheritFrom(wildcard)
		}
		out = append(out, t)
	}
	return out
}

// TargetListAccessor holds the most recently loaded target list and
// refreshes it from disk when Reload is called (once at construction,
// then by the fsnotify watcher whenever the file changes). Targets does
// not reload.
type TargetListAccessor struct {
	mu   sync.RWMutex
	path string
	list TargetList
}

// NewTargetListAccessor loads path once and returns an accessor over it.
func NewTargetListAccessor(path string) (*TargetListAccessor, error) {
	a := &TargetListAccessor{path: path}
	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload re-reads and re-validates the target-list file in place.
func (a *TargetListAccessor) Reload() error {
	list, err := LoadTargetList(a.path)
	if err != nil {
		metrics.ConfigReloadsTotal.WithLabelValues(a.path, "error").Inc()
		return err
	}

	a.mu.Lock()
	a.list = list
	a.mu.Unlock()
	metrics.ConfigReloadsTotal.WithLabelValues(a.path, "ok").Inc()
	return nil
}

// Targets returns the resolved target list as of the last successful load.
func (a *TargetListAccessor) Targets() []types.ApplicationTarget {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.list.Resolved()
}
