package observer

import (
	"context"
	"time"

	"github.com/latticeco/resobserver/pkg/agent"
	"github.com/latticeco/resobserver/pkg/eval"
	"github.com/latticeco/resobserver/pkg/series"
	"github.com/latticeco/resobserver/pkg/types"
)

// FabricSystemObserver is AppObserver restricted to the cluster's own
// well-known system application (spec.md §4.4: "same as AppObserver but
// restricted to well-known platform service processes"). It embeds an
// AppObserver to reuse replica resolution, filtering, bounded parallel
// sampling, and series dedupe, supplying a single fixed target instead of
// reading the configured target list.
type FabricSystemObserver struct {
	*AppObserver
	target types.ApplicationTarget
}

// NewFabricSystemObserver constructs the FabricSystemObserver, reading its
// thresholds and the system application's name from config.
func NewFabricSystemObserver(ag *agent.Context) *FabricSystemObserver {
	section := "FabricSystemObserverConfiguration"
	enabled := ag.Config.Bool(section, "Enabled", true)
	runInterval := ag.Config.Duration(section, "RunInterval", 0)
	monitorDuration := ag.Config.Duration(section, "MonitorDuration", 10*time.Second)
	appName := ag.Config.String(section, "TargetApplicationName", "fabric:/System")

	inner := &AppObserver{
		Base:           NewBase("FabricSystemObserver", enabled, runInterval, monitorDuration, defaultSampleInterval),
		agent:          ag,
		store:          series.NewStore(),
		parallelDegree: 1,
	}

	target := types.ApplicationTarget{
		TargetApp:     appName,
		CPUWarn:       ag.Config.Float64(section, "CpuWarningLimitPercent", 0),
		CPUErr:        ag.Config.Float64(section, "CpuErrorLimitPercent", 0),
		MemoryMbWarn:  ag.Config.Float64(section, "MemoryWarningLimitMb", 0),
		MemoryMbErr:   ag.Config.Float64(section, "MemoryErrorLimitMb", 0),
		MemoryPctWarn: ag.Config.Float64(section, "MemoryWarningLimitPercent", 0),
		MemoryPctErr:  ag.Config.Float64(section, "MemoryErrorLimitPercent", 0),
		PortsWarn:     ag.Config.Float64(section, "NetworkWarningActivePorts", 0),
		PortsErr:      ag.Config.Float64(section, "NetworkErrorActivePorts", 0),
		EphemeralWarn: ag.Config.Float64(section, "NetworkWarningEphemeralPorts", 0),
		EphemeralErr:  ag.Config.Float64(section, "NetworkErrorEphemeralPorts", 0),
		DumpOnError:   ag.Config.Bool(section, "DumpProcessOnError", false),
	}

	return &FabricSystemObserver{AppObserver: inner, target: target}
}

// Observe resolves the configured system application's replicas on this
// node and samples them exactly like AppObserver's explicit-target path,
// skipping the wildcard/target-list machinery entirely: there is exactly
// one target, and it is never excluded as "system" the way AppObserver's
// own wildcard expansion excludes it.
func (o *FabricSystemObserver) Observe(ctx context.Context) error {
	now := time.Now()
	if !o.ShouldRun(now) {
		return nil
	}
	defer o.MarkRan(now)

	apps, err := o.resolveApps(ctx, o.target)
	if err != nil {
		o.agent.Logger.Warn().Err(err).Str("application", o.target.TargetApp).Msg("failed to resolve system application")
		return nil
	}

	pipeline := eval.New(o.agent.Reporter, o.agent.Dumper)
	seenIDs := make(map[string]bool)
	if err := o.observeApps(ctx, pipeline, o.target, apps, seenIDs); err != nil {
		return err
	}
	o.store.Prune(seenIDs)
	return nil
}
