package cluster

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/latticeco/resobserver/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const serviceName = "resobserver.cluster.v1.ClusterQuery"

// grpcClient is the real cluster.Client, dialing over mTLS with the
// generic JSON codec in place of generated protobuf stubs.
type grpcClient struct {
	conn         *grpc.ClientConn
	queryTimeout time.Duration
}

// TLSConfig bundles the client cert/key and CA pool the cluster control
// plane requires, adapted from the teacher's certificate-loading code
// (pkg/security in the teacher repo) so this client dials with real mTLS.
type TLSConfig struct {
	Cert   tls.Certificate
	CAPool *x509.CertPool
}

// Dial opens an mTLS connection to addr and returns a cluster.Client.
func Dial(ctx context.Context, addr string, tlsCfg TLSConfig, queryTimeout time.Duration) (Client, error) {
	creds := credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{tlsCfg.Cert},
		RootCAs:      tlsCfg.CAPool,
		MinVersion:   tls.VersionTLS13,
	})

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("cluster: dial %s: %w", addr, err)
	}

	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}

	return &grpcClient{conn: conn, queryTimeout: queryTimeout}, nil
}

// New dials addr with the certificates found under certDir and wraps the
// resulting Client with the default retry policy; cmd/resobserver uses
// this constructor.
func New(ctx context.Context, addr, certDir string, queryTimeout time.Duration) (Client, error) {
	tlsCfg, err := LoadTLSConfig(certDir)
	if err != nil {
		return nil, err
	}

	inner, err := Dial(ctx, addr, tlsCfg, queryTimeout)
	if err != nil {
		return nil, err
	}

	return WithRetry(inner, DefaultRetryConfig()), nil
}

func (c *grpcClient) Close() error { return c.conn.Close() }

func (c *grpcClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.queryTimeout)
}

type getDeployedApplicationsRequest struct {
	NodeName   string `json:"nodeName"`
	NameFilter string `json:"nameFilter,omitempty"`
}

type getDeployedApplicationsResponse struct {
	Applications []DeployedApplication `json:"applications"`
}

func (c *grpcClient) GetDeployedApplicationsOnNode(ctx context.Context, nodeName, nameFilter string) ([]DeployedApplication, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := &getDeployedApplicationsRequest{NodeName: nodeName, NameFilter: nameFilter}
	resp := &getDeployedApplicationsResponse{}

	if err := c.conn.Invoke(ctx, "/"+serviceName+"/GetDeployedApplicationsOnNode", req, resp); err != nil {
		return nil, err
	}
	return resp.Applications, nil
}

type getDeployedReplicasRequest struct {
	NodeName       string `json:"nodeName"`
	ApplicationURI string `json:"applicationUri"`
}

type getDeployedReplicasResponse struct {
	Replicas []DeployedReplica `json:"replicas"`
}

func (c *grpcClient) GetDeployedReplicasOnNode(ctx context.Context, nodeName, applicationURI string) ([]DeployedReplica, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := &getDeployedReplicasRequest{NodeName: nodeName, ApplicationURI: applicationURI}
	resp := &getDeployedReplicasResponse{}

	if err := c.conn.Invoke(ctx, "/"+serviceName+"/GetDeployedReplicasOnNode", req, resp); err != nil {
		return nil, err
	}
	return resp.Replicas, nil
}

type getDeployedCodePackagesRequest struct {
	NodeName       string `json:"nodeName"`
	ApplicationURI string `json:"applicationUri"`
}

type getDeployedCodePackagesResponse struct {
	CodePackages []DeployedCodePackage `json:"codePackages"`
}

func (c *grpcClient) GetDeployedCodePackagesOnNode(ctx context.Context, nodeName, applicationURI string) ([]DeployedCodePackage, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := &getDeployedCodePackagesRequest{NodeName: nodeName, ApplicationURI: applicationURI}
	resp := &getDeployedCodePackagesResponse{}

	if err := c.conn.Invoke(ctx, "/"+serviceName+"/GetDeployedCodePackagesOnNode", req, resp); err != nil {
		return nil, err
	}
	return resp.CodePackages, nil
}

type getClusterManifestResponse struct {
	ManifestXml string `json:"manifestXml"`
}

func (c *grpcClient) GetClusterManifestXml(ctx context.Context) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp := &getClusterManifestResponse{}
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/GetClusterManifestXml", &struct{}{}, resp); err != nil {
		return "", err
	}
	return resp.ManifestXml, nil
}

type reportHealthRequest struct {
	Entity          string               `json:"entity"`
	ObserverName    string               `json:"observerName"`
	NodeName        string               `json:"nodeName"`
	ApplicationName string               `json:"applicationName,omitempty"`
	ServiceName     string               `json:"serviceName,omitempty"`
	Property        string               `json:"property"`
	Code            string               `json:"code"`
	State           string               `json:"state"`
	Message         string               `json:"message"`
	TTL             *durationpb.Duration `json:"ttl"`
	EmittedAt       *timestamppb.Timestamp `json:"emittedAt"`
}

func (c *grpcClient) ReportHealth(ctx context.Context, report types.Report) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := &reportHealthRequest{
		Entity:          report.Entity.String(),
		ObserverName:    report.ObserverName,
		NodeName:        report.NodeName,
		ApplicationName: report.ApplicationName,
		ServiceName:     report.ServiceName,
		Property:        report.Property,
		Code:            report.Code,
		State:           string(report.State),
		Message:         report.Message,
		TTL:             durationpb.New(report.TTL),
		EmittedAt:       timestamppb.Now(),
	}

	return c.conn.Invoke(ctx, "/"+serviceName+"/ReportHealth", req, &struct{}{})
}
