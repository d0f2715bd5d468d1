package observer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/latticeco/resobserver/pkg/agent"
	"github.com/latticeco/resobserver/pkg/cluster"
	"github.com/latticeco/resobserver/pkg/config"
	"github.com/latticeco/resobserver/pkg/health"
	"github.com/latticeco/resobserver/pkg/probe"
	"github.com/latticeco/resobserver/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeProbe is a stub probe.Prober with fixed return values, for observer
// tests that don't care about actual host state.
type fakeProbe struct {
	cpuPct      float64
	mem         probe.MemoryInfo
	ports       int
	ephemeral   int
	firewallErr error
	drives      []probe.DriveInfo
	drivesErr   error
	spacePct    float64
	queueLen    float64
	processCPU  float64
	processWS   float64
	processErr  error
}

func (f *fakeProbe) CpuPercent(ctx context.Context) (float64, error) { return f.cpuPct, nil }
func (f *fakeProbe) MemoryInfo(ctx context.Context) (probe.MemoryInfo, error) { return f.mem, nil }
func (f *fakeProbe) ActiveTcpPortCount(ctx context.Context, pid *int32) (int, error) {
	return f.ports, nil
}
func (f *fakeProbe) ActiveEphemeralTcpPortCount(ctx context.Context, pid *int32) (int, error) {
	return f.ephemeral, nil
}
func (f *fakeProbe) FabricAppPortRangeForNodeType(nodeType, manifestXML string) (int, int, error) {
	return 0, 0, nil
}
func (f *fakeProbe) FirewallRulesCount(ctx context.Context) (int, error) {
	if f.firewallErr != nil {
		return 0, f.firewallErr
	}
	return 0, nil
}
func (f *fakeProbe) ProcessCpuPercent(ctx context.Context, pid int32, prev *probe.ProcessCPUSample) (float64, *probe.ProcessCPUSample, error) {
	if f.processErr != nil {
		return 0, nil, f.processErr
	}
	return f.processCPU, &probe.ProcessCPUSample{}, nil
}
func (f *fakeProbe) PrivateWorkingSetMb(ctx context.Context, pid int32) (float64, error) {
	return f.processWS, nil
}
func (f *fakeProbe) Drives(ctx context.Context) ([]probe.DriveInfo, error) {
	return f.drives, f.drivesErr
}
func (f *fakeProbe) DiskSpaceUsedPercent(ctx context.Context, drive string) (float64, error) {
	return f.spacePct, nil
}
func (f *fakeProbe) DiskSpaceUsageMb(ctx context.Context, drive string) (float64, float64, float64, error) {
	return 0, 0, 0, nil
}
func (f *fakeProbe) AvgDiskQueueLength(ctx context.Context, drive string) (float64, error) {
	return f.queueLen, nil
}

// fakeCluster is a stub cluster.Client for AppObserver/FabricSystemObserver
// tests, returning fixed applications/replicas.
type fakeCluster struct {
	apps        []cluster.DeployedApplication
	replicas    map[string][]cluster.DeployedReplica
	appsErr     error
	replicasErr error
}

func (f *fakeCluster) GetDeployedApplicationsOnNode(ctx context.Context, nodeName, nameFilter string) ([]cluster.DeployedApplication, error) {
	if f.appsErr != nil {
		return nil, f.appsErr
	}
	return f.apps, nil
}

func (f *fakeCluster) GetDeployedReplicasOnNode(ctx context.Context, nodeName, applicationURI string) ([]cluster.DeployedReplica, error) {
	if f.replicasErr != nil {
		return nil, f.replicasErr
	}
	return f.replicas[applicationURI], nil
}

func (f *fakeCluster) GetDeployedCodePackagesOnNode(ctx context.Context, nodeName, applicationURI string) ([]cluster.DeployedCodePackage, error) {
	return nil, nil
}

func (f *fakeCluster) GetClusterManifestXml(ctx context.Context) (string, error) { return "", nil }

func (f *fakeCluster) ReportHealth(ctx context.Context, report types.Report) error {
	return nil
}

func (f *fakeCluster) Close() error { return nil }

var errFake = errors.New("replicas unavailable")

// testAgentContext builds a minimal *agent.Context backed by a temp config
// file, with the given yaml body merged under the standard sections every
// observer reads from.
func testAgentContext(t *testing.T, yamlBody string, cl cluster.Client, pr probe.Prober, targetsJSON string) *agent.Context {
	t.Helper()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlBody), 0o644))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	var targets *config.TargetListAccessor
	if targetsJSON != "" {
		targetsPath := filepath.Join(dir, "targets.json")
		require.NoError(t, os.WriteFile(targetsPath, []byte(targetsJSON), 0o644))
		targets, err = config.NewTargetListAccessor(targetsPath)
		require.NoError(t, err)
	}

	reporter := health.NewReporter(nil)
	return agent.New(context.Background(), "test-node", cl, pr, nil, reporter, cfg, targets, zerolog.Nop())
}
