// Package health implements the health reporter (C4): idempotent
// emission of Ok/Warning/Error reports to the cluster health API and to
// the telemetry sinks (C5). Re-reports of an unchanged
// (entity, source, property, code, state) are passed through to the
// pusher and sinks; the cluster coalesces them (spec.md §4.5).
package health

import (
	"context"
	"strings"
	"sync"

	"github.com/latticeco/resobserver/pkg/log"
	"github.com/latticeco/resobserver/pkg/metrics"
	"github.com/latticeco/resobserver/pkg/telemetry"
	"github.com/latticeco/resobserver/pkg/types"
)

// Pusher sends a health report to the cluster health API. The cluster
// query client (C3) implements this against the real cluster; it is kept
// as a narrow interface here so the reporter never depends on grpc.
type Pusher interface {
	ReportHealth(ctx context.Context, report types.Report) error
}

// Reporter is the process-wide, thread-safe health reporter every
// observer's evaluation pipeline (C6) emits through.
type Reporter struct {
	pusher Pusher
	sinks  []telemetry.Sink

	mu     sync.Mutex
	active map[string]types.HealthState
}

// NewReporter creates a reporter pushing to pusher and fanning out to the
// given sinks. Sinks are optional; a nil pusher is valid for dry runs
// (e.g. `agent validate-config`), where only sinks receive reports.
func NewReporter(pusher Pusher, sinks ...telemetry.Sink) *Reporter {
	return &Reporter{
		pusher: pusher,
		sinks:  sinks,
		active: make(map[string]types.HealthState),
	}
}

// Report emits a health report. Re-reporting an identical
// (entity, source, property, code) with the same state is coalesced: the
// sinks and pusher are still invoked (the cluster performs the actual
// coalescing per spec.md §4.5), but the reporter tracks the active state
// per source so callers can query it via IsActive without re-deriving it
// from series state.
func (r *Reporter) Report(ctx context.Context, report types.Report) error {
	key := report.SourceID()

	r.mu.Lock()
	if report.State == types.HealthOk {
		// An Ok report carries OkCode, not the code it clears, so every
		// active code under the same (entity, source, property) is cleared.
		prefix := strings.TrimSuffix(key, report.Code)
		for k := range r.active {
			if strings.HasPrefix(k, prefix) {
				delete(r.active, k)
			}
		}
	} else {
		r.active[key] = report.State
	}
	r.mu.Unlock()

	var firstErr error
	if r.pusher != nil {
		if err := r.pusher.ReportHealth(ctx, report); err != nil {
			log.Logger.Warn().Err(err).Str("source_id", key).Msg("health report push failed")
			firstErr = err
		}
	}

	for _, sink := range r.sinks {
		if err := sink.Emit(ctx, report); err != nil {
			metrics.SinkErrorsTotal.WithLabelValues(sink.Name()).Inc()
			log.Logger.Warn().Err(err).Str("sink", sink.Name()).Str("source_id", key).Msg("telemetry sink failed")
			continue
		}
		metrics.ReportsEmittedTotal.WithLabelValues(sink.Name()).Inc()
	}

	return firstErr
}

// IsActive reports whether the given source currently has an active
// Warning or Error report outstanding.
func (r *Reporter) IsActive(sourceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[sourceID]
	return ok
}
