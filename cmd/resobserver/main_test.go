package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunValidateConfig_ValidConfigNoTargetList(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("AgentConfiguration:\n  SentinelPath: \"sentinel.db\"\n"), 0o644))

	require.NoError(t, agentValidateCmd.Flags().Set("config", cfgPath))
	assert.NoError(t, runValidateConfig(agentValidateCmd, nil))
}

func TestRunValidateConfig_MissingConfigFileFails(t *testing.T) {
	require.NoError(t, agentValidateCmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, runValidateConfig(agentValidateCmd, nil))
}

func TestRunValidateConfig_InvalidTargetListFails(t *testing.T) {
	dir := t.TempDir()
	targetsPath := filepath.Join(dir, "targets.json")
	require.NoError(t, os.WriteFile(targetsPath, []byte(`this is not valid json and long enough to exceed the empty-file threshold`), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"AgentConfiguration:\n  TargetListPath: \""+targetsPath+"\"\n",
	), 0o644))

	require.NoError(t, agentValidateCmd.Flags().Set("config", cfgPath))
	assert.Error(t, runValidateConfig(agentValidateCmd, nil))
}

func TestClusterHealthPusher_NilClientYieldsNilPusher(t *testing.T) {
	pusher := clusterHealthPusher(nil)
	assert.Nil(t, pusher)
}
