// Package types defines the data model shared by the observer pipeline:
// sampled series identity and thresholds, replica/instance and
// application-target records, the health report shape, and the stable
// correlation-code table downstream tooling parses on.
//
// Nothing here owns behavior beyond small, obviously-correct helpers
// (threshold-tier checks, wildcard inheritance, code lookup); the
// pipeline itself lives in pkg/series, pkg/eval and pkg/observer.
package types
