package observer

import (
	"context"
	"testing"

	"github.com/latticeco/resobserver/pkg/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeObserver_ObserveSamplesAndEvaluates(t *testing.T) {
	pr := &fakeProbe{
		cpuPct: 95,
		mem:    probe.MemoryInfo{TotalGB: 16, UsedMb: 1024, UsedPct: 10},
		ports:  5,
	}
	ag := testAgentContext(t, `
NodeObserverConfiguration:
  MonitorDuration: "1ms"
  CpuWarningLimitPercent: "50"
  CpuErrorLimitPercent: "90"
`, nil, pr, "")

	ob := NewNodeObserver(ag)
	require.NoError(t, ob.Observe(context.Background()))

	assert.True(t, ob.cpu.ActiveErrorOrWarning, "cpu sample above the error threshold should mark the series active")
	assert.Equal(t, 0, ob.cpu.Len(), "the evaluation pipeline clears the series after evaluating it")
}

func TestNodeObserver_RunIntervalGatesRepeatedObserve(t *testing.T) {
	pr := &fakeProbe{cpuPct: 1}
	ag := testAgentContext(t, `
NodeObserverConfiguration:
  RunInterval: "1h"
  MonitorDuration: "1ms"
`, nil, pr, "")

	ob := NewNodeObserver(ag)
	require.NoError(t, ob.Observe(context.Background()))
	first := ob.cpu.Len()
	require.NoError(t, ob.Observe(context.Background()))
	assert.Equal(t, first, ob.cpu.Len(), "a second Observe inside the run interval must be a no-op")
}

func TestNodeObserver_FirewallUnsupportedIsOmittedNotFatal(t *testing.T) {
	pr := &fakeProbe{firewallErr: probe.ErrUnsupported}
	ag := testAgentContext(t, `
NodeObserverConfiguration:
  MonitorDuration: "1ms"
`, nil, pr, "")

	ob := NewNodeObserver(ag)
	err := ob.Observe(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, ob.firewall.Len(), "an unsupported probe capability must be omitted, not treated as an error")
}

func TestNodeObserver_Disabled(t *testing.T) {
	ag := testAgentContext(t, `
NodeObserverConfiguration:
  Enabled: "false"
`, nil, &fakeProbe{}, "")

	ob := NewNodeObserver(ag)
	assert.False(t, ob.Enabled())
}

func TestNodeObserver_ContextCancellationStopsSampling(t *testing.T) {
	ag := testAgentContext(t, `
NodeObserverConfiguration:
  MonitorDuration: "10s"
`, nil, &fakeProbe{}, "")

	ob := NewNodeObserver(ag)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ob.Observe(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
