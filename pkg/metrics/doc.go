// Package metrics provides Prometheus instrumentation and health/readiness
// endpoints for the agent's own runtime (C14), as distinct from the
// resource measurements the observers collect about the cluster.
//
// It registers agent operational metrics (scheduler loop duration, observer
// run outcomes, evaluation and state-transition counts, sink and dump
// errors, cluster query RPC latency) at init time against the default
// Prometheus registry, and exposes them through Handler for an HTTP
// /metrics endpoint. HealthHandler, ReadyHandler, and LivenessHandler serve
// /healthz, /ready, and /live respectively. RegisterCriticalComponent lets
// the scheduler and cluster client report their own up/down state into
// readiness without a direct dependency on this package's internals;
// components registered with RegisterComponent appear only in /healthz.
package metrics
