package probe

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	gcpu "github.com/shirou/gopsutil/v3/cpu"
	gdisk "github.com/shirou/gopsutil/v3/disk"
	gmem "github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
	gprocess "github.com/shirou/gopsutil/v3/process"
)

// ephemeralPortLow/High bounds the Linux/IANA default ephemeral range.
// The range is fixed: a platform-configured range (e.g.
// /proc/sys/net/ipv4/ip_local_port_range) is not read, so this default
// is an approximation on hosts that change it.
const (
	ephemeralPortLow  = 32768
	ephemeralPortHigh = 60999
)

// GopsutilProbe is the Prober implementation backed by
// github.com/shirou/gopsutil/v3.
type GopsutilProbe struct{}

// New creates a gopsutil-backed prober.
func New() *GopsutilProbe { return &GopsutilProbe{} }

func (p *GopsutilProbe) CpuPercent(ctx context.Context) (float64, error) {
	percents, err := gcpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("probe: no cpu percent samples returned")
	}
	return percents[0], nil
}

func (p *GopsutilProbe) MemoryInfo(ctx context.Context) (MemoryInfo, error) {
	vm, err := gmem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryInfo{}, err
	}
	return MemoryInfo{
		TotalGB: float64(vm.Total) / (1024 * 1024 * 1024),
		UsedMb:  float64(vm.Used) / (1024 * 1024),
		UsedPct: vm.UsedPercent,
	}, nil
}

func (p *GopsutilProbe) ActiveTcpPortCount(ctx context.Context, pid *int32) (int, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return 0, err
	}
	return countByPidAndPortRange(conns, pid, 0, 0), nil
}

func (p *GopsutilProbe) ActiveEphemeralTcpPortCount(ctx context.Context, pid *int32) (int, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return 0, err
	}
	return countByPidAndPortRange(conns, pid, ephemeralPortLow, ephemeralPortHigh), nil
}

func countByPidAndPortRange(conns []gnet.ConnectionStat, pid *int32, low, high uint32) int {
	seen := make(map[uint32]bool)
	for _, c := range conns {
		if pid != nil && c.Pid != *pid {
			continue
		}
		port := c.Laddr.Port
		if low != 0 || high != 0 {
			if port < low || port > high {
				continue
			}
		}
		seen[port] = true
	}
	return len(seen)
}

// FabricAppPortRangeForNodeType extracts a node type's declared
// application port range from a cluster manifest. This is a deliberately
// narrow scanner, not a full XML schema implementation, matching the
// spec's framing of the manifest as an opaque blob the cluster query
// client hands back (spec.md §6's GetClusterManifestXml).
func (p *GopsutilProbe) FabricAppPortRangeForNodeType(nodeType, manifestXML string) (int, int, error) {
	pattern := regexp.MustCompile(fmt.Sprintf(`(?s)<NodeType\s+Name="%s".*?ApplicationPortRange="(\d+)-(\d+)"`, regexp.QuoteMeta(nodeType)))
	m := pattern.FindStringSubmatch(manifestXML)
	if m == nil {
		return 0, 0, fmt.Errorf("probe: no ApplicationPortRange found for node type %q", nodeType)
	}
	low, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, err
	}
	high, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, err
	}
	return low, high, nil
}

func (p *GopsutilProbe) ProcessCpuPercent(ctx context.Context, pid int32, prev *ProcessCPUSample) (float64, *ProcessCPUSample, error) {
	proc, err := gprocess.NewProcessWithContext(ctx, pid)
	if err != nil {
		return 0, nil, err
	}
	times, err := proc.TimesWithContext(ctx)
	if err != nil {
		return 0, nil, err
	}

	now := ProcessCPUSample{userTime: times.User, systemTime: times.System, at: time.Now()}

	if prev == nil {
		// First sample: no prior window to difference against.
		return 0, &now, nil
	}

	elapsed := now.at.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return 0, &now, nil
	}

	deltaCPU := (now.userTime - prev.userTime) + (now.systemTime - prev.systemTime)
	pct := (deltaCPU / elapsed) * 100
	if pct < 0 {
		pct = 0
	}
	return pct, &now, nil
}

func (p *GopsutilProbe) PrivateWorkingSetMb(ctx context.Context, pid int32) (float64, error) {
	proc, err := gprocess.NewProcessWithContext(ctx, pid)
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / (1024 * 1024), nil
}

func (p *GopsutilProbe) Drives(ctx context.Context) ([]DriveInfo, error) {
	partitions, err := gdisk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	drives := make([]DriveInfo, 0, len(partitions))
	for _, part := range partitions {
		drives = append(drives, DriveInfo{
			Mountpoint: part.Mountpoint,
			Device:     part.Device,
			Fstype:     part.Fstype,
		})
	}
	return drives, nil
}

func (p *GopsutilProbe) DiskSpaceUsedPercent(ctx context.Context, drive string) (float64, error) {
	usage, err := gdisk.UsageWithContext(ctx, drive)
	if err != nil {
		return 0, err
	}
	return usage.UsedPercent, nil
}

func (p *GopsutilProbe) DiskSpaceUsageMb(ctx context.Context, drive string) (usedMb, availableMb, totalMb float64, err error) {
	usage, err := gdisk.UsageWithContext(ctx, drive)
	if err != nil {
		return 0, 0, 0, err
	}
	const mb = 1024 * 1024
	return float64(usage.Used) / mb, float64(usage.Free) / mb, float64(usage.Total) / mb, nil
}
