package telemetry

import (
	"context"

	"github.com/latticeco/resobserver/pkg/types"
	"github.com/rs/zerolog"
)

// LogSink writes every report as a structured log line, the "structured
// event stream" spec.md §4.2 step 3 requires alongside the health report
// itself. It is the default, always-on sink. No configuration setting
// gates it or the broker: cmd/resobserver always wires both, and
// EnableTelemetry is not read.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a log sink writing through the given logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Name identifies this sink for metrics and logging.
func (s *LogSink) Name() string { return "log" }

// Emit writes the report as one structured log event.
func (s *LogSink) Emit(ctx context.Context, report types.Report) error {
	evt := s.logger.Info()
	if report.State == types.HealthError {
		evt = s.logger.Error()
	} else if report.State == types.HealthWarning {
		evt = s.logger.Warn()
	}

	evt.
		Str("entity", report.Entity.String()).
		Str("observer", report.ObserverName).
		Str("node", report.NodeName).
		Str("application", report.ApplicationName).
		Str("service", report.ServiceName).
		Str("property", report.Property).
		Str("code", report.Code).
		Dur("ttl", report.TTL).
		Str("source_id", report.SourceID()).
		Msg(report.Message)

	return nil
}
