package cluster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/latticeco/resobserver/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls   int
	failFor int
	apps    []DeployedApplication
	err     error
}

func (f *fakeClient) GetDeployedApplicationsOnNode(ctx context.Context, nodeName, nameFilter string) ([]DeployedApplication, error) {
	f.calls++
	if f.calls <= f.failFor {
		return nil, f.err
	}
	return f.apps, nil
}

func (f *fakeClient) GetDeployedReplicasOnNode(ctx context.Context, nodeName, applicationURI string) ([]DeployedReplica, error) {
	return nil, nil
}

func (f *fakeClient) GetDeployedCodePackagesOnNode(ctx context.Context, nodeName, applicationURI string) ([]DeployedCodePackage, error) {
	return nil, nil
}

func (f *fakeClient) GetClusterManifestXml(ctx context.Context) (string, error) { return "", nil }

func (f *fakeClient) ReportHealth(ctx context.Context, report types.Report) error { return nil }

func (f *fakeClient) Close() error { return nil }

func TestRetryingClient_SucceedsAfterTransientFailures(t *testing.T) {
	fake := &fakeClient{failFor: 2, err: errors.New("unavailable"), apps: []DeployedApplication{{ApplicationName: "fabric:/App"}}}
	c := WithRetry(fake, RetryConfig{MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})

	apps, err := c.GetDeployedApplicationsOnNode(context.Background(), "node-1", "")
	require.NoError(t, err)
	assert.Equal(t, fake.apps, apps)
	assert.Equal(t, 3, fake.calls)
}

func TestRetryingClient_GivesUpAfterMaxAttempts(t *testing.T) {
	fake := &fakeClient{failFor: 100, err: errors.New("unavailable")}
	c := WithRetry(fake, RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})

	_, err := c.GetDeployedApplicationsOnNode(context.Background(), "node-1", "")
	assert.Error(t, err)
	assert.Equal(t, 3, fake.calls)
}

func TestJsonCodec_RoundTrips(t *testing.T) {
	codec := jsonCodec{}
	in := DeployedApplication{ApplicationName: "fabric:/App", TypeName: "AppType", TypeVersion: "1.0.0"}

	b, err := codec.Marshal(in)
	require.NoError(t, err)

	var out DeployedApplication
	require.NoError(t, codec.Unmarshal(b, &out))
	assert.Equal(t, in, out)
	assert.Equal(t, "json", codec.Name())
}
