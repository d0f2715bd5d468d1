package observer

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/latticeco/resobserver/pkg/agent"
	"github.com/latticeco/resobserver/pkg/cluster"
	"github.com/latticeco/resobserver/pkg/dump"
	"github.com/latticeco/resobserver/pkg/eval"
	"github.com/latticeco/resobserver/pkg/probe"
	"github.com/latticeco/resobserver/pkg/series"
	"github.com/latticeco/resobserver/pkg/types"
	"github.com/latticeco/resobserver/pkg/metrics"
)

const defaultSampleInterval = 250 * time.Millisecond

// AppObserver is the process-centric observer (C8): it enumerates target
// applications, resolves their replicas/instances on this node, and
// samples five per-process series (CPU %, working set MB, working set %,
// active ports, ephemeral ports) before evaluating each against the
// target's thresholds.
type AppObserver struct {
	Base

	agent *agent.Context
	store *series.Store

	enableChildProcessMonitoring bool
	parallelDegree               int
}

// NewAppObserver constructs the AppObserver, reading its run-interval and
// sampling settings from the agent's config accessor.
func NewAppObserver(ag *agent.Context) *AppObserver {
	section := "AppObserverConfiguration"
	enabled := ag.Config.Bool(section, "Enabled", true)
	runInterval := ag.Config.Duration(section, "RunInterval", 0)
	monitorDuration := ag.Config.Duration(section, "MonitorDuration", 10*time.Second)
	enableChildren := ag.Config.Bool(section, "EnableChildProcessMonitoring", false)

	degree := runtime.NumCPU() / 4
	if degree < 1 {
		degree = 1
	}

	return &AppObserver{
		Base:                         NewBase("AppObserver", enabled, runInterval, monitorDuration, defaultSampleInterval),
		agent:                        ag,
		store:                        series.NewStore(),
		enableChildProcessMonitoring: enableChildren,
		parallelDegree:               degree,
	}
}

// Report is a no-op: Observe calls the evaluation pipeline (which reports)
// inline for every sampled replica, satisfying spec.md §4.1's
// "implementations MUST call Report at the end" by doing so per-series
// instead of batching it behind a separate call.
func (o *AppObserver) Report(ctx context.Context) error { return nil }

func (o *AppObserver) Observe(ctx context.Context) error {
	now := time.Now()
	if !o.ShouldRun(now) {
		return nil
	}
	defer o.MarkRan(now)

	var targets []types.ApplicationTarget
	if o.agent.Targets != nil {
		targets = o.agent.Targets.Targets()
	}
	if len(targets) == 0 {
		o.agent.Logger.Info().Str("observer", o.Name()).Msg("target list empty, skipping iteration")
		return nil
	}

	pipeline := eval.New(o.agent.Reporter, o.agent.Dumper)
	seenIDs := make(map[string]bool)
	explicit := make(map[string]bool)

	for _, target := range targets {
		if target.IsWildcard() {
			continue
		}
		explicit[appOrType(target)] = true
		if err := ctx.Err(); err != nil {
			return err
		}

		apps, err := o.resolveApps(ctx, target)
		if err != nil {
			metrics.ClusterQueryErrorsTotal.WithLabelValues("GetDeployedApplicationsOnNode").Inc()
			o.agent.Logger.Warn().Err(err).Str("target", target.TargetApp).Msg("failed to resolve deployed applications")
			continue
		}

		if err := o.observeApps(ctx, pipeline, target, apps, seenIDs); err != nil {
			return err
		}
	}

	if wildcard, ok := targetsWildcard(targets); ok {
		if err := o.observeWildcard(ctx, pipeline, wildcard, explicit, seenIDs); err != nil {
			return err
		}
	}

	o.store.Prune(seenIDs)
	return nil
}

func targetsWildcard(targets []types.ApplicationTarget) (types.ApplicationTarget, bool) {
	for _, t := range targets {
		if t.IsWildcard() {
			return t, true
		}
	}
	return types.ApplicationTarget{}, false
}

// observeWildcard expands the wildcard target into every non-system
// deployed application not already covered by an explicit target,
// per spec.md §4.3 step 2.
func (o *AppObserver) observeWildcard(ctx context.Context, pipeline *eval.Pipeline, wildcard types.ApplicationTarget, explicit map[string]bool, seenIDs map[string]bool) error {
	apps, err := o.agent.Cluster.GetDeployedApplicationsOnNode(ctx, o.agent.NodeName, "")
	if err != nil {
		metrics.ClusterQueryErrorsTotal.WithLabelValues("GetDeployedApplicationsOnNode").Inc()
		o.agent.Logger.Warn().Err(err).Msg("failed to resolve deployed applications for wildcard target")
		return nil
	}

	nonSystem := make([]cluster.DeployedApplication, 0, len(apps))
	for _, app := range apps {
		if isSystemApp(app) || explicit[app.ApplicationName] || explicit[app.TypeName] {
			continue
		}
		nonSystem = append(nonSystem, app)
	}

	return o.observeApps(ctx, pipeline, wildcard, nonSystem, seenIDs)
}

func isSystemApp(app cluster.DeployedApplication) bool {
	return strings.Contains(strings.ToLower(app.ApplicationName), "/system")
}

func (o *AppObserver) observeApps(ctx context.Context, pipeline *eval.Pipeline, target types.ApplicationTarget, apps []cluster.DeployedApplication, seenIDs map[string]bool) error {
	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.observeApp(ctx, pipeline, target, app, seenIDs); err != nil {
			if err == context.Canceled || err == context.DeadlineExceeded {
				return err
			}
			o.agent.Logger.Warn().Err(err).Str("application", app.ApplicationName).Msg("failed to observe application replicas")
		}
	}
	return nil
}

// resolveApps expands a target into the deployed applications it matches:
// a direct URI/type lookup, or (for the wildcard record, handled by the
// caller separately) every non-system app.
func (o *AppObserver) resolveApps(ctx context.Context, target types.ApplicationTarget) ([]cluster.DeployedApplication, error) {
	filter := target.TargetApp
	if filter == "" {
		filter = target.TargetAppType
	}
	return o.agent.Cluster.GetDeployedApplicationsOnNode(ctx, o.agent.NodeName, filter)
}

func (o *AppObserver) observeApp(ctx context.Context, pipeline *eval.Pipeline, target types.ApplicationTarget, app cluster.DeployedApplication, seenIDs map[string]bool) error {
	replicas, err := o.agent.Cluster.GetDeployedReplicasOnNode(ctx, o.agent.NodeName, app.ApplicationName)
	if err != nil {
		metrics.ClusterQueryErrorsTotal.WithLabelValues("GetDeployedReplicasOnNode").Inc()
		return fmt.Errorf("list replicas for %s: %w", app.ApplicationName, err)
	}

	monitored := filterReplicas(replicas, target)
	if len(monitored) == 0 {
		return nil
	}

	sem := make(chan struct{}, o.parallelDegree)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, replica := range monitored {
		replica := replica
		id := fmt.Sprintf("%s:%s", appOrType(target), replica.ServiceName)

		mu.Lock()
		seenIDs[series.Key(types.MetricTotalCpuTime, id)] = true
		seenIDs[series.Key(types.MetricTotalMemoryConsumptionMb, id)] = true
		seenIDs[series.Key(types.MetricTotalMemoryConsumptionPct, id)] = true
		seenIDs[series.Key(types.MetricTotalActivePorts, id)] = true
		seenIDs[series.Key(types.MetricTotalEphemeralPorts, id)] = true
		mu.Unlock()

		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			o.sampleReplica(ctx, pipeline, target, app, replica, id, &mu)
		}()
	}

	wg.Wait()
	return ctx.Err()
}

// filterReplicas keeps Primary stateful replicas and stateless instances,
// then applies the include/exclude service filter with include taking
// precedence over exclude when both are set (spec.md §9 Open Questions:
// "implementations MUST document one rule and keep it" — this repo's
// rule is include-list, otherwise exclude-list, otherwise no filter).
func filterReplicas(replicas []cluster.DeployedReplica, target types.ApplicationTarget) []cluster.DeployedReplica {
	include := splitCSV(target.ServiceIncludeList)
	exclude := splitCSV(target.ServiceExcludeList)

	out := make([]cluster.DeployedReplica, 0, len(replicas))
	for _, r := range replicas {
		role := parseRole(r.Role)
		if role != types.RolePrimary && role != types.RoleStateless {
			continue
		}

		switch {
		case len(include) > 0:
			if !containsSubstringFold(include, r.ServiceName) {
				continue
			}
		case len(exclude) > 0:
			if containsSubstringFold(exclude, r.ServiceName) {
				continue
			}
		}

		out = append(out, r)
	}
	return out
}

func parseRole(role string) types.ReplicaRole {
	switch strings.ToLower(role) {
	case "primary":
		return types.RolePrimary
	case "stateless":
		return types.RoleStateless
	default:
		return types.RoleOther
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsSubstringFold(needles []string, haystack string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(h, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func appOrType(target types.ApplicationTarget) string {
	if target.TargetApp != "" {
		return target.TargetApp
	}
	return target.TargetAppType
}

// sampleReplica runs the fixed-interval sample window for one replica,
// then hands each of the five per-process series to the evaluation
// pipeline. mu guards series-store access for the duration of the
// parallel per-replica fan-out (spec.md §5: "guarded by a mutex only
// when parallel sub-sampling is enabled").
func (o *AppObserver) sampleReplica(ctx context.Context, pipeline *eval.Pipeline, target types.ApplicationTarget, app cluster.DeployedApplication, replica cluster.DeployedReplica, id string, mu *sync.Mutex) {
	ticks := SampleTicks(o.MonitorWindow(), o.SampleInterval())
	pid := replica.HostProcessID

	mu.Lock()
	cpuSeries := o.store.GetOrCreate(types.MetricTotalCpuTime, id, 0, series.ModeList)
	memMbSeries := o.store.GetOrCreate(types.MetricTotalMemoryConsumptionMb, id, 0, series.ModeList)
	memPctSeries := o.store.GetOrCreate(types.MetricTotalMemoryConsumptionPct, id, 0, series.ModeList)
	portsSeries := o.store.GetOrCreate(types.MetricTotalActivePorts, id, 0, series.ModeList)
	ephemeralSeries := o.store.GetOrCreate(types.MetricTotalEphemeralPorts, id, 0, series.ModeList)
	mu.Unlock()

	var prevCPU *probe.ProcessCPUSample
	totalMb, err := o.agent.Probe.MemoryInfo(ctx)
	if err != nil {
		o.agent.Logger.Warn().Err(err).Str("id", id).Msg("failed to read host memory info, skipping replica")
		return
	}

	for tick := 0; tick < ticks; tick++ {
		if ctx.Err() != nil {
			return
		}

		pct, sample, err := o.agent.Probe.ProcessCpuPercent(ctx, pid, prevCPU)
		if err != nil {
			o.agent.Logger.Info().Err(err).Int32("pid", pid).Str("id", id).Msg("process vanished or inaccessible, skipping replica")
			return
		}
		prevCPU = sample

		mu.Lock()
		cpuSeries.Append(pct)
		mu.Unlock()

		if ws, err := o.agent.Probe.PrivateWorkingSetMb(ctx, pid); err == nil {
			mu.Lock()
			memMbSeries.Append(ws)
			if totalMb.TotalGB > 0 {
				memPctSeries.Append((ws / (totalMb.TotalGB * 1024)) * 100)
			}
			mu.Unlock()
		}

		if ports, err := o.agent.Probe.ActiveTcpPortCount(ctx, &pid); err == nil {
			mu.Lock()
			portsSeries.Append(float64(ports))
			mu.Unlock()
		}

		if ephemeral, err := o.agent.Probe.ActiveEphemeralTcpPortCount(ctx, &pid); err == nil {
			mu.Lock()
			ephemeralSeries.Append(float64(ephemeral))
			mu.Unlock()
		}

		if tick < ticks-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.SampleInterval()):
			}
		}
	}

	replicaInfo := &types.ReplicaInfo{
		ApplicationName: app.ApplicationName,
		ServiceName:     replica.ServiceName,
		HostProcessID:   pid,
		Role:            parseRole(replica.Role),
	}

	dumpKind := dump.KindMiniPlus

	mu.Lock()
	defer mu.Unlock()
	o.evaluate(ctx, pipeline, cpuSeries, target.CPUThresholds(), replicaInfo, target.DumpOnError, dumpKind)
	o.evaluate(ctx, pipeline, memMbSeries, target.MemoryMbThresholds(), replicaInfo, target.DumpOnError, dumpKind)
	o.evaluate(ctx, pipeline, memPctSeries, target.MemoryPctThresholds(), replicaInfo, target.DumpOnError, dumpKind)
	o.evaluate(ctx, pipeline, portsSeries, target.PortsThresholds(), replicaInfo, false, dumpKind)
	o.evaluate(ctx, pipeline, ephemeralSeries, target.EphemeralThresholds(), replicaInfo, false, dumpKind)
}

func (o *AppObserver) evaluate(ctx context.Context, pipeline *eval.Pipeline, s *series.Series, thresholds types.ThresholdPair, replica *types.ReplicaInfo, dumpOnError bool, dumpKind dump.Kind) {
	in := eval.Input{
		Series:       s,
		Thresholds:   thresholds,
		TTL:          5 * time.Minute,
		Entity:       types.EntityApplication,
		ObserverName: o.Name(),
		NodeName:     o.agent.NodeName,
		Replica:      replica,
		DumpOnError:  dumpOnError,
		DumpKind:     dumpKind,
		DumpOutDir:   o.agent.Config.String("AppObserverConfiguration", "DataLogPath", "."),
	}
	if err := pipeline.Evaluate(ctx, in); err != nil {
		o.agent.Logger.Warn().Err(err).Str("observer", o.Name()).Msg("failed to report health evaluation")
	}
}
