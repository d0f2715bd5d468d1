package observer

import (
	"context"
	"time"

	"github.com/latticeco/resobserver/pkg/agent"
	"github.com/latticeco/resobserver/pkg/eval"
	"github.com/latticeco/resobserver/pkg/series"
	"github.com/latticeco/resobserver/pkg/types"
)

// NodeObserver samples host-level series (C9): CPU %, memory in-use MB
// and %, active and ephemeral TCP ports, and active firewall rules.
// Unlike AppObserver it has exactly one identity per node, so its series
// are allocated once at construction and never pruned.
type NodeObserver struct {
	Base

	agent *agent.Context

	cpu       *series.Series
	memMb     *series.Series
	memPct    *series.Series
	ports     *series.Series
	ephemeral *series.Series
	firewall  *series.Series

	cpuThresholds       types.ThresholdPair
	memMbThresholds     types.ThresholdPair
	memPctThresholds    types.ThresholdPair
	portsThresholds     types.ThresholdPair
	ephemeralThresholds types.ThresholdPair
	firewallThresholds  types.ThresholdPair
}

// NewNodeObserver constructs the NodeObserver, reading its thresholds and
// run-interval settings from the agent's config accessor.
func NewNodeObserver(ag *agent.Context) *NodeObserver {
	section := "NodeObserverConfiguration"
	enabled := ag.Config.Bool(section, "Enabled", true)
	runInterval := ag.Config.Duration(section, "RunInterval", 0)
	monitorDuration := ag.Config.Duration(section, "MonitorDuration", 10*time.Second)

	thresholds := func(warnKey, errKey string) types.ThresholdPair {
		return types.ThresholdPair{
			Warn: ag.Config.Float64(section, warnKey, 0),
			Err:  ag.Config.Float64(section, errKey, 0),
		}
	}

	return &NodeObserver{
		Base:                NewBase("NodeObserver", enabled, runInterval, monitorDuration, defaultSampleInterval),
		agent:               ag,
		cpu:                 series.NewWithCapacity(types.MetricTotalCpuTime, "node", 0, series.ModeList),
		memMb:               series.NewWithCapacity(types.MetricTotalMemoryConsumptionMb, "node", 0, series.ModeList),
		memPct:              series.NewWithCapacity(types.MetricTotalMemoryConsumptionPct, "node", 0, series.ModeList),
		ports:               series.NewWithCapacity(types.MetricTotalActivePorts, "node", 0, series.ModeList),
		ephemeral:           series.NewWithCapacity(types.MetricTotalEphemeralPorts, "node", 0, series.ModeList),
		firewall:            series.NewWithCapacity(types.MetricTotalActiveFirewallRules, "node", 0, series.ModeList),
		cpuThresholds:       thresholds("CpuWarningLimitPercent", "CpuErrorLimitPercent"),
		memMbThresholds:     thresholds("MemoryWarningLimitMb", "MemoryErrorLimitMb"),
		memPctThresholds:    thresholds("MemoryWarningLimitPercent", "MemoryErrorLimitPercent"),
		portsThresholds:     thresholds("NetworkWarningActivePorts", "NetworkErrorActivePorts"),
		ephemeralThresholds: thresholds("NetworkWarningEphemeralPorts", "NetworkErrorEphemeralPorts"),
		firewallThresholds:  thresholds("FirewallWarningRuleCount", "FirewallErrorRuleCount"),
	}
}

// Report is a no-op; Observe evaluates and reports inline at the end of
// its sample window, same as AppObserver.
func (o *NodeObserver) Report(ctx context.Context) error { return nil }

func (o *NodeObserver) Observe(ctx context.Context) error {
	now := time.Now()
	if !o.ShouldRun(now) {
		return nil
	}
	defer o.MarkRan(now)

	ticks := SampleTicks(o.MonitorWindow(), o.SampleInterval())
	for tick := 0; tick < ticks; tick++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if pct, err := o.agent.Probe.CpuPercent(ctx); err == nil {
			o.cpu.Append(pct)
		} else {
			o.agent.Logger.Warn().Err(err).Msg("failed to sample host cpu percent")
		}

		if mem, err := o.agent.Probe.MemoryInfo(ctx); err == nil {
			o.memMb.Append(mem.UsedMb)
			o.memPct.Append(mem.UsedPct)
		} else {
			o.agent.Logger.Warn().Err(err).Msg("failed to sample host memory info")
		}

		if ports, err := o.agent.Probe.ActiveTcpPortCount(ctx, nil); err == nil {
			o.ports.Append(float64(ports))
		} else {
			o.agent.Logger.Warn().Err(err).Msg("failed to sample active tcp ports")
		}

		if ephemeral, err := o.agent.Probe.ActiveEphemeralTcpPortCount(ctx, nil); err == nil {
			o.ephemeral.Append(float64(ephemeral))
		} else {
			o.agent.Logger.Warn().Err(err).Msg("failed to sample active ephemeral tcp ports")
		}

		if rules, err := o.agent.Probe.FirewallRulesCount(ctx); err == nil {
			o.firewall.Append(float64(rules))
		}
		// FirewallRulesCount returns ErrUnsupported off Windows; the
		// metric is simply omitted for the iteration (spec.md §4.4/§7).

		if tick < ticks-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.SampleInterval()):
			}
		}
	}

	pipeline := eval.New(o.agent.Reporter, nil)
	o.evaluate(ctx, pipeline, o.cpu, o.cpuThresholds)
	o.evaluate(ctx, pipeline, o.memMb, o.memMbThresholds)
	o.evaluate(ctx, pipeline, o.memPct, o.memPctThresholds)
	o.evaluate(ctx, pipeline, o.ports, o.portsThresholds)
	o.evaluate(ctx, pipeline, o.ephemeral, o.ephemeralThresholds)
	o.evaluate(ctx, pipeline, o.firewall, o.firewallThresholds)
	return nil
}

func (o *NodeObserver) evaluate(ctx context.Context, pipeline *eval.Pipeline, s *series.Series, thresholds types.ThresholdPair) {
	in := eval.Input{
		Series:       s,
		Thresholds:   thresholds,
		TTL:          5 * time.Minute,
		Entity:       types.EntityNode,
		ObserverName: o.Name(),
		NodeName:     o.agent.NodeName,
	}
	if err := pipeline.Evaluate(ctx, in); err != nil {
		o.agent.Logger.Warn().Err(err).Str("observer", o.Name()).Msg("failed to report health evaluation")
	}
}
