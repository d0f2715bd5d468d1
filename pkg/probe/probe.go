// Package probe implements the OS probe layer (C2): the one concrete,
// gopsutil-backed implementation of the Prober contract spec.md §6
// defines as an external collaborator. Capabilities gopsutil (or the
// current GOOS) cannot answer return ErrUnsupported; callers treat that
// as "metric omitted for the iteration", never as a hard failure
// (spec.md §4.4/§7).
package probe

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned by any Prober method the current platform
// cannot answer (disk queue length off Windows, firewall rule counts off
// Windows, etc.).
var ErrUnsupported = errors.New("probe: unsupported on this platform")

// ProcessCPUSample is an opaque previous-sample token for
// ProcessCpuPercent's caller-supplied differencing, per spec.md §6's
// "per-process CpuPercent(pid, prev_sample)".
type ProcessCPUSample struct {
	userTime   float64
	systemTime float64
	at         time.Time
}

// MemoryInfo is the host-wide memory snapshot spec.md §6 requires.
type MemoryInfo struct {
	TotalGB float64
	UsedMb  float64
	UsedPct float64
}

// Prober is the OS probe contract from spec.md §6.
type Prober interface {
	CpuPercent(ctx context.Context) (float64, error)
	MemoryInfo(ctx context.Context) (MemoryInfo, error)
	ActiveTcpPortCount(ctx context.Context, pid *int32) (int, error)
	ActiveEphemeralTcpPortCount(ctx context.Context, pid *int32) (int, error)
	FabricAppPortRangeForNodeType(nodeType, manifestXML string) (low, high int, err error)
	FirewallRulesCount(ctx context.Context) (int, error)

	ProcessCpuPercent(ctx context.Context, pid int32, prev *ProcessCPUSample) (float64, *ProcessCPUSample, error)
	PrivateWorkingSetMb(ctx context.Context, pid int32) (float64, error)

	Drives(ctx context.Context) ([]DriveInfo, error)
	DiskSpaceUsedPercent(ctx context.Context, drive string) (float64, error)
	DiskSpaceUsageMb(ctx context.Context, drive string) (usedMb, availableMb, totalMb float64, err error)
	AvgDiskQueueLength(ctx context.Context, drive string) (float64, error)
}

// DriveInfo is one mounted filesystem DiskObserver considers, carrying
// enough of gopsutil's partition record for ShouldCheckDrive to classify
// it (spec.md §4.4: "exclude CD-ROM, network, unknown, not-ready").
type DriveInfo struct {
	Mountpoint string
	Device     string
	Fstype     string
}
