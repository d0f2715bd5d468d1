/*
Package cluster is the node agent's view of the cluster control plane: a
single gRPC client used to enumerate what is deployed on the local node,
fetch the cluster manifest, and push health reports back upstream.

There is no generated protobuf stub for the control-plane API this agent
talks to, so the client registers a generic JSON codec (codec.go) and
dials with google.golang.org/grpc directly, using bare Go structs as
request/response payloads. Duration and timestamp fields still use
protobuf's well-known types so they interoperate byte-for-byte with a
protobuf-speaking server.

Connections are mTLS, using the same certificate layout (node.crt,
node.key, ca.crt under a cert directory) the teacher repo's pkg/security
introduced.

Query methods (everything but ReportHealth) are wrapped with a capped
exponential backoff retry via github.com/cenkalti/backoff/v5;
ReportHealth is not retried since the caller already fans a report out to
multiple sinks and must not block behind a retry loop for one pusher.
*/
package cluster
