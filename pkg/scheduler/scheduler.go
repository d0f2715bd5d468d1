// Package scheduler implements the scheduler (C10): the single loop that
// drives every enabled observer sequentially, once per iteration, with a
// per-observer execution timeout and a cooperative shutdown path
// (spec.md §4.6).
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/latticeco/resobserver/pkg/agent"
	"github.com/latticeco/resobserver/pkg/metrics"
	"github.com/latticeco/resobserver/pkg/observer"
	"github.com/latticeco/resobserver/pkg/types"
	"github.com/rs/zerolog"
)

// unhealthyMarker is the subset of observer.Base's promoted methods the
// scheduler needs to implement the IsUnhealthy/MarkUnhealthy state
// machine transition from spec.md §4.6. Every concrete observer embeds
// observer.Base (by value, directly or through *AppObserver) and is used
// through a pointer, so this assertion always succeeds in practice; it is kept narrow rather than widening observer.Observer
// itself, which stays the single capability concrete observers implement.
type unhealthyMarker interface {
	IsUnhealthy() bool
	MarkUnhealthy()
}

// Scheduler runs an ordered sequence of observers, once per loop
// iteration, on a single goroutine. There is no cross-observer
// parallelism (spec.md §5).
type Scheduler struct {
	observers []observer.Observer
	agent     *agent.Context
	logger    zerolog.Logger

	execTimeout   time.Duration
	loopSleep     time.Duration
	shutdownGrace time.Duration
}

// New constructs the scheduler over an ordered observer list, reading its
// timing settings from ObserverManagerConfiguration.
func New(ag *agent.Context, observers []observer.Observer) *Scheduler {
	section := "ObserverManagerConfiguration"
	return &Scheduler{
		observers:     observers,
		agent:         ag,
		logger:        ag.Logger,
		execTimeout:   ag.Config.Duration(section, "ObserverExecutionTimeout", 5*time.Minute),
		loopSleep:     time.Duration(ag.Config.Int(section, "ObserverLoopSleepSeconds", 15)) * time.Second,
		shutdownGrace: time.Duration(ag.Config.Int(section, "ObserverShutdownGracePeriodInSeconds", 2)) * time.Second,
	}
}

// UnhealthyObserverCount satisfies metrics.Source: the live count of
// observers currently marked unhealthy and skipped.
func (s *Scheduler) UnhealthyObserverCount() int {
	count := 0
	for _, ob := range s.observers {
		if marker, ok := ob.(unhealthyMarker); ok && marker.IsUnhealthy() {
			count++
		}
	}
	return count
}

// Run drives the Idle -> Running(observer_i) -> ... -> Sleeping -> Idle
// loop until ctx is canceled. A fatal (non-cancellation) error from any
// observer is returned to the caller, which re-raises so the host process
// restarts (spec.md §4.6: "deliberate — buggy observers must be
// surfaced, not swallowed").
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return s.shutdown(ctx)
		}

		timer := metrics.NewTimer()
		for _, ob := range s.observers {
			if ctx.Err() != nil {
				return s.shutdown(ctx)
			}
			if !ob.Enabled() {
				continue
			}
			if marker, ok := ob.(unhealthyMarker); ok && marker.IsUnhealthy() {
				continue
			}

			if err := s.runObserver(ctx, ob); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return s.shutdown(ctx)
				}
				return s.reportFatal(ctx, ob, err)
			}
		}
		timer.ObserveDuration(metrics.SchedulerLoopDuration)
		metrics.SchedulerLoopsTotal.Inc()

		select {
		case <-ctx.Done():
			return s.shutdown(ctx)
		case <-time.After(s.loopSleep):
		}
	}
}

// runObserver runs one observer's Observe+Report within execTimeout,
// marking it IsUnhealthy and emitting a Warning report on timeout.
func (s *Scheduler) runObserver(ctx context.Context, ob observer.Observer) error {
	// runCtx carries no deadline of its own: it is canceled when the parent
	// ctx is, or explicitly below once the timer decides the observer has
	// timed out. A deadline baked into runCtx via context.WithTimeout would
	// race the observer's own ctx.Done()-triggered return against the
	// timeout case here, making "did it time out or finish just in time"
	// nondeterministic from the select below.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("observer %s panicked: %v", ob.Name(), r)
			}
		}()
		if err := ob.Observe(runCtx); err != nil {
			done <- err
			return
		}
		done <- ob.Report(runCtx)
	}()

	timer := time.NewTimer(s.execTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		metrics.ObserverRunDuration.WithLabelValues(ob.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				metrics.ObserverRunsTotal.WithLabelValues(ob.Name(), "canceled").Inc()
				return err
			}
			metrics.ObserverRunsTotal.WithLabelValues(ob.Name(), "error").Inc()
			return err
		}
		metrics.ObserverRunsTotal.WithLabelValues(ob.Name(), "ok").Inc()
		return nil

	case <-ctx.Done():
		// Parent cancellation: request cooperative cancel and let the
		// goroutine finish on its own rather than forcibly terminating it
		// (spec.md §4.6: "MUST NOT forcibly terminate an observer").
		cancel()
		<-done
		return ctx.Err()

	case <-timer.C:
		cancel()
		<-done

		metrics.ObserverTimeoutsTotal.WithLabelValues(ob.Name()).Inc()
		metrics.ObserverRunsTotal.WithLabelValues(ob.Name(), "timeout").Inc()
		if marker, ok := ob.(unhealthyMarker); ok {
			marker.MarkUnhealthy()
		}
		s.logger.Warn().Str("observer", ob.Name()).Dur("timeout", s.execTimeout).Msg("observer exceeded execution timeout, marking unhealthy")
		s.reportObserverHealth(ctx, ob, types.HealthWarning, types.ObserverTimeoutCode, "observer exceeded execution timeout and has been disabled for the remainder of this process")
		return nil
	}
}

// reportFatal logs, reports, and telemetries a fatal observer error, then
// returns it so the caller re-raises (spec.md §4.6, §7).
func (s *Scheduler) reportFatal(ctx context.Context, ob observer.Observer, err error) error {
	s.logger.Error().Err(err).Str("observer", ob.Name()).Msg("observer returned a fatal error, re-raising")
	s.reportObserverHealth(ctx, ob, types.HealthError, types.ObserverFatalCode, fmt.Sprintf("observer %s failed fatally: %v", ob.Name(), err))
	return err
}

func (s *Scheduler) reportObserverHealth(ctx context.Context, ob observer.Observer, state types.HealthState, code, message string) {
	report := types.Report{
		Entity:       types.EntityNode,
		ObserverName: "scheduler",
		NodeName:     s.agent.NodeName,
		Property:     ob.Name(),
		Code:         code,
		State:        state,
		Message:      message,
		TTL:          5 * time.Minute,
		EmitLogEvent: true,
	}
	if err := s.agent.Reporter.Report(ctx, report); err != nil {
		s.logger.Warn().Err(err).Str("observer", ob.Name()).Msg("failed to report observer health")
	}
}

// shutdown is spec.md §4.6's "ShuttingDown" transition. No observer is in
// flight when it runs. If ctx is already canceled it returns at once;
// otherwise (an observer returned a cancellation or deadline error while
// ctx was live) it waits shutdownGrace or until ctx is canceled.
func (s *Scheduler) shutdown(ctx context.Context) error {
	s.logger.Info().Dur("grace_period", s.shutdownGrace).Msg("shutdown requested, scheduler exiting cooperatively")
	select {
	case <-time.After(s.shutdownGrace):
	case <-ctx.Done():
	}
	return nil
}
