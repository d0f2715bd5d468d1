//go:build !windows

package probe

import "context"

// AvgDiskQueueLength is Windows-only per spec.md §6; every other platform
// returns ErrUnsupported so callers omit the metric for the iteration.
func (p *GopsutilProbe) AvgDiskQueueLength(ctx context.Context, drive string) (float64, error) {
	return 0, ErrUnsupported
}

// FirewallRulesCount has no portable gopsutil equivalent off Windows.
func (p *GopsutilProbe) FirewallRulesCount(ctx context.Context) (int, error) {
	return 0, ErrUnsupported
}
