package observer

import (
	"context"
	"strings"
	"time"

	"github.com/latticeco/resobserver/pkg/agent"
	"github.com/latticeco/resobserver/pkg/eval"
	"github.com/latticeco/resobserver/pkg/probe"
	"github.com/latticeco/resobserver/pkg/series"
	"github.com/latticeco/resobserver/pkg/types"
)

// excludedFstypes lists filesystem kinds ShouldCheckDrive treats as
// CD-ROM or network mounts, per spec.md §4.4.
var excludedFstypes = map[string]bool{
	"iso9660": true, "udf": true, // CD-ROM/optical
	"nfs": true, "nfs4": true, "cifs": true, "smbfs": true, "smb3": true, // network
}

// excludedMountpoints are pseudo-filesystems gopsutil reports that are
// neither a real drive nor classified as CD-ROM/network, but still fall
// under "unknown" in spec.md §4.4's exclusion list.
var excludedMountpoints = []string{"/proc", "/sys", "/dev", "/run"}

// ShouldCheckDrive reports whether DiskObserver should sample drive,
// excluding CD-ROM, network, unknown, and not-ready mounts.
func ShouldCheckDrive(drive probe.DriveInfo) bool {
	if drive.Mountpoint == "" || drive.Fstype == "" {
		return false
	}
	if excludedFstypes[strings.ToLower(drive.Fstype)] {
		return false
	}
	for _, p := range excludedMountpoints {
		if drive.Mountpoint == p || strings.HasPrefix(drive.Mountpoint, p+"/") {
			return false
		}
	}
	return true
}

type driveSeries struct {
	spacePct *series.Series
	usedMb   *series.Series
	availMb  *series.Series
	totalMb  *series.Series
	queueLen *series.Series
}

// DiskObserver samples per-drive space utilization and, on Windows,
// average disk queue length (C9).
type DiskObserver struct {
	Base

	agent *agent.Context
	store *series.Store

	spaceThresholds types.ThresholdPair
	queueThresholds types.ThresholdPair
}

// NewDiskObserver constructs the DiskObserver.
func NewDiskObserver(ag *agent.Context) *DiskObserver {
	section := "DiskObserverConfiguration"
	enabled := ag.Config.Bool(section, "Enabled", true)
	runInterval := ag.Config.Duration(section, "RunInterval", 0)
	monitorDuration := ag.Config.Duration(section, "MonitorDuration", 10*time.Second)

	return &DiskObserver{
		Base:  NewBase("DiskObserver", enabled, runInterval, monitorDuration, defaultSampleInterval),
		agent: ag,
		store: series.NewStore(),
		spaceThresholds: types.ThresholdPair{
			Warn: ag.Config.Float64(section, "DiskSpacePercentWarningThreshold", 0),
			Err:  ag.Config.Float64(section, "DiskSpacePercentErrorThreshold", 0),
		},
		queueThresholds: types.ThresholdPair{
			Warn: ag.Config.Float64(section, "AverageQueueLengthWarning", 0),
			Err:  ag.Config.Float64(section, "AverageQueueLengthError", 0),
		},
	}
}

func (o *DiskObserver) Report(ctx context.Context) error { return nil }

func (o *DiskObserver) Observe(ctx context.Context) error {
	now := time.Now()
	if !o.ShouldRun(now) {
		return nil
	}
	defer o.MarkRan(now)

	drives, err := o.agent.Probe.Drives(ctx)
	if err != nil {
		o.agent.Logger.Warn().Err(err).Msg("failed to enumerate drives")
		return nil
	}

	monitored := make([]probe.DriveInfo, 0, len(drives))
	for _, d := range drives {
		if ShouldCheckDrive(d) {
			monitored = append(monitored, d)
		}
	}

	pipeline := eval.New(o.agent.Reporter, nil)
	seen := make(map[string]bool)

	ticks := SampleTicks(o.MonitorWindow(), o.SampleInterval())
	for _, drive := range monitored {
		ds := o.seriesFor(drive.Mountpoint)
		seen[series.Key(types.MetricDiskSpaceUsagePercentage, drive.Mountpoint)] = true
		seen[series.Key(types.MetricDiskSpaceUsageMb, drive.Mountpoint)] = true
		seen[series.Key(types.MetricDiskSpaceAvailableMb, drive.Mountpoint)] = true
		seen[series.Key(types.MetricDiskSpaceTotalMb, drive.Mountpoint)] = true
		seen[series.Key(types.MetricDiskAverageQueueLength, drive.Mountpoint)] = true

		for tick := 0; tick < ticks; tick++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if pct, err := o.agent.Probe.DiskSpaceUsedPercent(ctx, drive.Mountpoint); err == nil {
				ds.spacePct.Append(pct)
			}
			if used, avail, total, err := o.agent.Probe.DiskSpaceUsageMb(ctx, drive.Mountpoint); err == nil {
				ds.usedMb.Append(used)
				ds.availMb.Append(avail)
				ds.totalMb.Append(total)
			}
			if q, err := o.agent.Probe.AvgDiskQueueLength(ctx, drive.Mountpoint); err == nil {
				ds.queueLen.Append(q)
			}
			// AvgDiskQueueLength is Windows-only; ErrUnsupported elsewhere
			// just means the metric is omitted for this iteration.

			if tick < ticks-1 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(o.SampleInterval()):
				}
			}
		}

		o.evaluate(ctx, pipeline, ds.spacePct, drive.Mountpoint, o.spaceThresholds)
		o.evaluate(ctx, pipeline, ds.queueLen, drive.Mountpoint, o.queueThresholds)
		// usedMb/availMb/totalMb are sampled but have no configured
		// threshold pair; they are cleared without a health evaluation
		// or any report.
		ds.usedMb.Clear()
		ds.availMb.Clear()
		ds.totalMb.Clear()
	}

	o.store.Prune(seen)
	return nil
}

func (o *DiskObserver) seriesFor(drive string) driveSeries {
	return driveSeries{
		spacePct: o.store.GetOrCreate(types.MetricDiskSpaceUsagePercentage, drive, 0, series.ModeList),
		usedMb:   o.store.GetOrCreate(types.MetricDiskSpaceUsageMb, drive, 0, series.ModeList),
		availMb:  o.store.GetOrCreate(types.MetricDiskSpaceAvailableMb, drive, 0, series.ModeList),
		totalMb:  o.store.GetOrCreate(types.MetricDiskSpaceTotalMb, drive, 0, series.ModeList),
		queueLen: o.store.GetOrCreate(types.MetricDiskAverageQueueLength, drive, 0, series.ModeList),
	}
}

func (o *DiskObserver) evaluate(ctx context.Context, pipeline *eval.Pipeline, s *series.Series, drive string, thresholds types.ThresholdPair) {
	in := eval.Input{
		Series:       s,
		Thresholds:   thresholds,
		TTL:          5 * time.Minute,
		Entity:       types.EntityNode,
		ObserverName: o.Name(),
		NodeName:     o.agent.NodeName,
		Prefix:       drive,
	}
	if err := pipeline.Evaluate(ctx, in); err != nil {
		o.agent.Logger.Warn().Err(err).Str("observer", o.Name()).Str("drive", drive).Msg("failed to report health evaluation")
	}
}
