// Package cluster implements the cluster query client (C3): the one
// concrete implementation of the §6 contract this repository ships,
// dialing the cluster control plane over google.golang.org/grpc with
// mTLS client certificates (adapted from the teacher's certificate
// loading code) and a generic JSON codec in place of hand-generated
// protobuf stubs.
package cluster

import (
	"context"
	"time"

	"github.com/latticeco/resobserver/pkg/types"
)

// DeployedApplication is one row of GetDeployedApplicationsOnNode.
type DeployedApplication struct {
	ApplicationName string `json:"applicationName"`
	TypeName        string `json:"typeName"`
	TypeVersion     string `json:"typeVersion"`
}

// DeployedReplica is one row of GetDeployedReplicasOnNode.
type DeployedReplica struct {
	ServiceName                string `json:"serviceName"`
	PartitionID                string `json:"partitionId"`
	ReplicaOrInstanceID        string `json:"replicaOrInstanceId"`
	HostProcessID              int32  `json:"hostProcessId"`
	Role                       string `json:"role"`
	ServicePackageActivationID string `json:"servicePackageActivationId"`
}

// DeployedCodePackage is one row of GetDeployedCodePackagesOnNode.
type DeployedCodePackage struct {
	CodePackageName string `json:"codePackageName"`
	Version         string `json:"version"`
	EntryPointPID   int32  `json:"entryPointPid"`
}

// Client is the cluster query client contract from spec.md §6. All calls
// are async (context-cancelable) with an async-timeout override baked
// into the ctx the caller supplies.
type Client interface {
	GetDeployedApplicationsOnNode(ctx context.Context, nodeName string, nameFilter string) ([]DeployedApplication, error)
	GetDeployedReplicasOnNode(ctx context.Context, nodeName, applicationURI string) ([]DeployedReplica, error)
	GetDeployedCodePackagesOnNode(ctx context.Context, nodeName, applicationURI string) ([]DeployedCodePackage, error)
	GetClusterManifestXml(ctx context.Context) (string, error)

	// ReportHealth pushes a health report, satisfying pkg/health.Pusher.
	ReportHealth(ctx context.Context, report types.Report) error

	Close() error
}

// DefaultQueryTimeout is the per-RPC timeout applied when a caller's
// context carries no earlier deadline (spec.md §5 "per-RPC (default 60s)
// is supplied to cluster-query calls").
const DefaultQueryTimeout = 60 * time.Second
