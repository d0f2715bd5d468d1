package cluster

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/latticeco/resobserver/pkg/metrics"
	"github.com/latticeco/resobserver/pkg/types"
)

// RetryConfig caps how aggressively cluster queries are retried. Cluster
// query calls are transient-failure prone (control plane restart, leader
// election) and spec.md §7 asks that they go through an external retry
// helper with capped attempts rather than being retried ad hoc at each
// call site.
type RetryConfig struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig matches the teacher's worker-reconnect backoff shape:
// a handful of attempts, short initial interval, capped ceiling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryingClient wraps a Client, retrying every query method through
// backoff/v5. ReportHealth passes straight through: the reporter already
// fans out to multiple sinks and must not be held up behind a capped
// backoff loop for one pusher.
type retryingClient struct {
	inner Client
	cfg   RetryConfig
}

// WithRetry wraps inner so its query methods retry on error with the given
// config, recording attempts and failures via pkg/metrics.
func WithRetry(inner Client, cfg RetryConfig) Client {
	return &retryingClient{inner: inner, cfg: cfg}
}

func (c *retryingClient) backOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.InitialInterval
	eb.MaxInterval = c.cfg.MaxInterval
	return eb
}

func retryQuery[T any](ctx context.Context, c *retryingClient, method string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempts++
		if attempts > 1 {
			metrics.ClusterQueryRetriesTotal.WithLabelValues(method).Inc()
		}
		v, err := fn(ctx)
		if err != nil {
			metrics.ClusterQueryErrorsTotal.WithLabelValues(method).Inc()
			return v, err
		}
		return v, nil
	}, backoff.WithBackOff(c.backOff()), backoff.WithMaxTries(c.cfg.MaxAttempts))
}

func (c *retryingClient) GetDeployedApplicationsOnNode(ctx context.Context, nodeName, nameFilter string) ([]DeployedApplication, error) {
	return retryQuery(ctx, c, "GetDeployedApplicationsOnNode", func(ctx context.Context) ([]DeployedApplication, error) {
		return c.inner.GetDeployedApplicationsOnNode(ctx, nodeName, nameFilter)
	})
}

func (c *retryingClient) GetDeployedReplicasOnNode(ctx context.Context, nodeName, applicationURI string) ([]DeployedReplica, error) {
	return retryQuery(ctx, c, "GetDeployedReplicasOnNode", func(ctx context.Context) ([]DeployedReplica, error) {
		return c.inner.GetDeployedReplicasOnNode(ctx, nodeName, applicationURI)
	})
}

func (c *retryingClient) GetDeployedCodePackagesOnNode(ctx context.Context, nodeName, applicationURI string) ([]DeployedCodePackage, error) {
	return retryQuery(ctx, c, "GetDeployedCodePackagesOnNode", func(ctx context.Context) ([]DeployedCodePackage, error) {
		return c.inner.GetDeployedCodePackagesOnNode(ctx, nodeName, applicationURI)
	})
}

func (c *retryingClient) GetClusterManifestXml(ctx context.Context) (string, error) {
	return retryQuery(ctx, c, "GetClusterManifestXml", func(ctx context.Context) (string, error) {
		return c.inner.GetClusterManifestXml(ctx)
	})
}

func (c *retryingClient) ReportHealth(ctx context.Context, report types.Report) error {
	return c.inner.ReportHealth(ctx, report)
}

func (c *retryingClient) Close() error { return c.inner.Close() }
