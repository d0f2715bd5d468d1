// Package eval implements the evaluation pipeline (C6): the avg → classify
// → report → dump → clear algorithm every observer runs against its
// sampled series, per spec.md §4.2.
package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/latticeco/resobserver/pkg/dump"
	"github.com/latticeco/resobserver/pkg/metrics"
	"github.com/latticeco/resobserver/pkg/series"
	"github.com/latticeco/resobserver/pkg/types"
)

// Reporter is the subset of the health reporter (C4) the pipeline needs.
type Reporter interface {
	Report(ctx context.Context, report types.Report) error
}

// Dumper is the subset of the dump writer (C11) the pipeline needs.
type Dumper interface {
	DumpProcess(ctx context.Context, pid int32, processName string, kind dump.Kind, outPath string) error
}

// Input bundles one evaluation's parameters, per spec.md §4.2: "a series
// s, a threshold pair (warn, err), a TTL, an entity kind, optionally a
// replica-info, and a dump_on_error flag."
type Input struct {
	Series      *series.Series
	Thresholds  types.ThresholdPair
	TTL         time.Duration
	Entity      types.EntityKind
	ObserverName string
	NodeName    string

	// Prefix disambiguates the property when one observer owns several
	// identities for the same metric (e.g. a drive letter for
	// DiskObserver); empty for metrics with one identity per node.
	Prefix string

	// Replica is set only for Application-entity evaluations; it carries
	// the application/service identity and the host process id a dump
	// would target.
	Replica *types.ReplicaInfo

	// DumpOnError requests a live dump on an Error verdict, subject to
	// the dump writer's own budget and disk guard.
	DumpOnError bool
	DumpKind    dump.Kind
	DumpOutDir  string
}

// Pipeline runs the evaluation algorithm against a reporter and an
// optional dumper. A nil Dumper is valid for host-level observers (C9)
// that never request dumps.
type Pipeline struct {
	Reporter Reporter
	Dumper   Dumper
}

// New creates an evaluation pipeline.
func New(reporter Reporter, dumper Dumper) *Pipeline {
	return &Pipeline{Reporter: reporter, Dumper: dumper}
}

// Evaluate runs the six-step algorithm from spec.md §4.2 against in.Series,
// always clearing the series before returning regardless of outcome.
func (p *Pipeline) Evaluate(ctx context.Context, in Input) error {
	defer in.Series.Clear()

	avg, ok := in.Series.Avg()
	if !ok {
		return nil
	}

	state, threshold := classify(avg, in.Thresholds)

	if state != types.HealthOk {
		return p.reportBreach(ctx, in, avg, threshold, state)
	}

	if in.Series.ActiveErrorOrWarning {
		return p.reportClear(ctx, in)
	}

	metrics.EvaluationsTotal.WithLabelValues(string(in.Series.Metric), "ok").Inc()
	return nil
}

// classify implements step 2: exactly-at-threshold evaluates to the
// higher tier (>=), and every metric in this system is "higher is worse"
// so only the Maximum-limit message form is ever produced.
func classify(avg float64, t types.ThresholdPair) (types.HealthState, float64) {
	if t.ErrEnabled() && avg >= t.Err {
		return types.HealthError, t.Err
	}
	if t.WarnEnabled() && avg >= t.Warn {
		return types.HealthWarning, t.Warn
	}
	return types.HealthOk, 0
}

func (p *Pipeline) reportBreach(ctx context.Context, in Input, avg, threshold float64, state types.HealthState) error {
	code, _ := types.CorrelationCode(in.Entity, in.Series.Metric, state)

	in.Series.ActiveErrorOrWarning = true
	in.Series.ActiveCode = code

	property := propertyString(in.Prefix, in.Series.Metric)
	// Rounded to one decimal per the threshold/avg contract; whole-number
	// thresholds render with a trailing ".0" (e.g. "90.0%") rather than "90%".
	message := fmt.Sprintf(
		"%s is at or above the Maximum limit (%.1f%s) — %s: %.1f%s",
		property, threshold, in.Series.Units, in.Series.Metric, avg, in.Series.Units,
	)

	report := buildReport(in, property, code, state, message)

	metrics.EvaluationsTotal.WithLabelValues(string(in.Series.Metric), string(state)).Inc()
	metrics.StateTransitionsTotal.WithLabelValues(code).Inc()

	err := p.Reporter.Report(ctx, report)

	if state == types.HealthError && in.DumpOnError && in.Replica != nil && p.Dumper != nil {
		outPath := fmt.Sprintf("%s/%s-%d.dmp", in.DumpOutDir, in.Replica.ServiceName, in.Replica.HostProcessID)
		if derr := p.Dumper.DumpProcess(ctx, in.Replica.HostProcessID, in.Replica.ServiceName, in.DumpKind, outPath); derr != nil {
			// Dump failure has no health impact (spec.md §7); the dump
			// writer itself already counted the suppression reason.
			return err
		}
	}

	return err
}

func (p *Pipeline) reportClear(ctx context.Context, in Input) error {
	property := propertyString(in.Prefix, in.Series.Metric)
	message := fmt.Sprintf("%s has returned to normal range", property)

	report := buildReport(in, property, types.OkCode, types.HealthOk, message)
	report.TTL = 0

	in.Series.ActiveErrorOrWarning = false
	in.Series.ActiveCode = ""

	metrics.EvaluationsTotal.WithLabelValues(string(in.Series.Metric), "ok-clear").Inc()
	metrics.StateTransitionsTotal.WithLabelValues(types.OkCode).Inc()

	return p.Reporter.Report(ctx, report)
}

func propertyString(prefix string, metric types.MetricProperty) string {
	if prefix == "" {
		return string(metric)
	}
	return prefix + ": " + string(metric)
}

func buildReport(in Input, property, code string, state types.HealthState, message string) types.Report {
	report := types.Report{
		Entity:       in.Entity,
		ObserverName: in.ObserverName,
		NodeName:     in.NodeName,
		Property:     property,
		Code:         code,
		State:        state,
		Message:      message,
		TTL:          in.TTL,
		EmitLogEvent: true,
	}
	if in.Replica != nil {
		report.ApplicationName = in.Replica.ApplicationName
		report.ServiceName = in.Replica.ServiceName
	}
	return report
}
