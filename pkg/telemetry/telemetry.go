// Package telemetry implements the fire-and-forget sinks (C5) the
// evaluation pipeline emits health reports to alongside C4. The actual
// CSV and ETW sink implementations are out of scope (spec.md §1
// Non-goals); this package specifies and implements the sinks that are
// in scope: a structured log-file sink and an in-process event stream.
package telemetry

import (
	"context"

	"github.com/latticeco/resobserver/pkg/types"
)

// Sink receives a health report after C6 has classified it. Sinks MUST be
// safe for concurrent use and MUST NOT block the evaluation pipeline on
// slow downstream consumers; callers are expected to apply their own
// timeout if a sink's Emit can stall.
type Sink interface {
	Emit(ctx context.Context, report types.Report) error
	Name() string
}
