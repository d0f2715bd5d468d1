//go:build windows

package probe

import (
	"context"

	"github.com/yusufpapurcu/wmi"
)

type win32PerfDisk struct {
	Name                string
	AvgDiskQueueLength  uint64
}

// AvgDiskQueueLength queries the WMI perf counter the legacy agent reads
// natively on Windows. There is no portable equivalent off Windows
// (spec.md §6 says so explicitly), hence the build-tagged split.
func (p *GopsutilProbe) AvgDiskQueueLength(ctx context.Context, drive string) (float64, error) {
	var rows []win32PerfDisk
	q := "SELECT Name, AvgDiskQueueLength FROM Win32_PerfFormattedData_PerfDisk_PhysicalDisk"
	if err := wmi.Query(q, &rows); err != nil {
		return 0, err
	}
	for _, r := range rows {
		if r.Name == drive {
			return float64(r.AvgDiskQueueLength), nil
		}
	}
	return 0, ErrUnsupported
}

type win32FirewallRule struct {
	Enabled bool
}

// FirewallRulesCount counts enabled Windows Firewall rules via WMI's
// firewall provider, the source spec.md §3's TotalActiveFirewallRules
// metric describes.
func (p *GopsutilProbe) FirewallRulesCount(ctx context.Context) (int, error) {
	var rows []win32FirewallRule
	q := "SELECT Enabled FROM HNet_FirewallRule"
	if err := wmi.Query(q, &rows); err != nil {
		return 0, err
	}
	count := 0
	for _, r := range rows {
		if r.Enabled {
			count++
		}
	}
	return count, nil
}
