/*
Package scheduler drives the agent's observer loop (C10): one goroutine
runs every enabled, healthy observer sequentially, once per iteration,
then sleeps for ObserverLoopSleepSeconds before the next pass.

# State machine

	Idle -> Running(observer_i) -> Running(observer_i+1) -> ... -> Sleeping -> Idle
	any  -> ShuttingDown -> Stopped

Each observer gets ObserverExecutionTimeout (default 5 min) to complete
its Observe+Report cycle. A timeout marks the observer IsUnhealthy and it
is skipped for the rest of the process; every other observer keeps
running normally. Any other error from an observer is fatal: it is
logged, reported as an agent-level Error health report, and returned so
the caller (cmd/resobserver) re-raises it and the process exits
non-zero, expecting the host to restart the agent.

# Concurrency

Observers never run concurrently with each other. Within AppObserver the
per-replica sampling loop may fan out with a bounded degree, but that
parallelism is internal to the observer; the scheduler only ever has one
observer in flight at a time.

# Shutdown

Canceling the context passed to Run begins a cooperative shutdown: the
in-flight observer's context is canceled at once, and Run returns after
that observer has returned (the scheduler never forcibly terminates a
goroutine). No grace period precedes that cancellation, and the wait for
the observer is not bounded by ObserverShutdownGracePeriodInSeconds.
*/
package scheduler
