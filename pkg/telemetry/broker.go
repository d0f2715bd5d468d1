package telemetry

import (
	"context"
	"sync"

	"github.com/latticeco/resobserver/pkg/types"
)

// Subscriber is a channel that receives emitted health reports.
type Subscriber chan types.Report

// Broker is an in-process publish/subscribe Sink, used to feed the
// structured event stream mentioned in spec.md §4.2 step 3 to any number
// of in-process consumers (e.g. a debug UI or an outbound forwarder)
// without coupling the evaluation pipeline to a transport.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	eventCh     chan types.Report
	stopCh      chan struct{}
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan types.Report, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Name identifies this sink for metrics and logging.
func (b *Broker) Name() string { return "event-broker" }

// Subscribe creates a new subscription and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Emit publishes a report to all subscribers. It never blocks the caller
// for longer than it takes to hand the report to the internal queue.
func (b *Broker) Emit(ctx context.Context, report types.Report) error {
	select {
	case b.eventCh <- report:
		return nil
	case <-b.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broker) run() {
	for {
		select {
		case report := <-b.eventCh:
			b.broadcast(report)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(report types.Report) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- report:
		default:
			// Subscriber buffer full, skip rather than block the stream.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
