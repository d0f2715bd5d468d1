// Package log provides structured logging for resobserver using zerolog.
//
// It wraps zerolog to give every observer and the scheduler a
// component-tagged child logger, a single global level, and a choice
// between JSON output (the "structured log files" sink the evaluation
// pipeline writes to, spec.md §4.2) and a console writer for interactive
// use. All logs carry timestamps.
package log
