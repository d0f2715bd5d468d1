package metrics

import "time"

// Source is the subset of scheduler state the collector polls. The
// scheduler (C10) satisfies this without metrics importing it back.
type Source interface {
	UnhealthyObserverCount() int
}

// Collector periodically snapshots scheduler-level gauges that aren't
// naturally updated at the point of the event (ObserversUnhealthyTotal is
// a live count, not a counter the scheduler increments).
type Collector struct {
	source Source
	stopCh chan struct{}
}

// NewCollector creates a metrics collector over the given source.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.source == nil {
		return
	}
	ObserversUnhealthyTotal.Set(float64(c.source.UnhealthyObserverCount()))
}
