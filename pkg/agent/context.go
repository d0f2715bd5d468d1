// Package agent holds AgentContext, the small dependency bundle observers
// are constructed with (spec.md §9 Design Notes: "observers receive an
// AgentContext... at construction; they do not hold the scheduler").
// This breaks the observer/manager cyclic reference the legacy design
// has, and centralizes the dependency-injected sinks/config/cluster
// client the Non-goals call "no global mutable state".
package agent

import (
	"context"

	"github.com/latticeco/resobserver/pkg/cluster"
	"github.com/latticeco/resobserver/pkg/config"
	"github.com/latticeco/resobserver/pkg/dump"
	"github.com/latticeco/resobserver/pkg/health"
	"github.com/latticeco/resobserver/pkg/probe"
	"github.com/rs/zerolog"
)

// Context bundles everything an observer needs that isn't its own
// per-iteration state: node identity, the cluster query client, the OS
// probe layer, the dump writer, the health reporter (which already fans
// out to telemetry sinks), and the live configuration accessors.
//
// Construction order, per spec.md §9: load config, construct sinks (and
// the Reporter that wraps them), construct observers against this
// Context, construct the scheduler over the observers.
type Context struct {
	NodeName string

	Cluster  cluster.Client
	Probe    probe.Prober
	Dumper   *dump.Writer
	Reporter *health.Reporter

	Config  *config.Accessor
	Targets *config.TargetListAccessor

	Logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Context with its own cancellation source, derived from
// parent. Canceling parent or calling Shutdown both cancel observers.
func New(parent context.Context, nodeName string, cl cluster.Client, pr probe.Prober, dumper *dump.Writer, reporter *health.Reporter, cfg *config.Accessor, targets *config.TargetListAccessor, logger zerolog.Logger) *Context {
	ctx, cancel := context.WithCancel(parent)
	return &Context{
		NodeName: nodeName,
		Cluster:  cl,
		Probe:    pr,
		Dumper:   dumper,
		Reporter: reporter,
		Config:   cfg,
		Targets:  targets,
		Logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ctx is the single cancellation source shared by the scheduler and every
// observer it runs (spec.md §5: "the scheduler owns one cancellation
// source").
func (c *Context) Ctx() context.Context { return c.ctx }

// Shutdown requests cooperative cancellation of the running scheduler and
// its observers.
func (c *Context) Shutdown() { c.cancel() }
