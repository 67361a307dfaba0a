// Package transport provides the default injected Sink+Source capability
// (an in-process pub/sub bus) plus a concrete websocket deployment
// transport on top of it. Per Design Notes §9, the process-wide instance
// here is a deployment detail: worker, trackmgr, track, filter, and
// motion never import this package.
package transport

import (
	"github.com/ethereum/go-ethereum/event"

	"github.com/rotblauer/trackd/measurement"
	"github.com/rotblauer/trackd/worker"
)

// Bus is an in-process pub/sub capability satisfying both worker.Source
// (for inbound measurements) and worker.Sink (for published reports).
type Bus struct {
	measurements event.FeedOf[measurement.Measurement]
	reports      event.FeedOf[worker.Report]
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe satisfies worker.Source: the worker's ingest actor reads
// measurements pushed here by any transport.
func (b *Bus) Subscribe(channel chan<- measurement.Measurement) event.Subscription {
	return b.measurements.Subscribe(channel)
}

// Ingest pushes a decoded measurement onto the bus, to be picked up by
// whatever is subscribed (normally the worker).
func (b *Bus) Ingest(m measurement.Measurement) {
	b.measurements.Send(m)
}

// Publish satisfies worker.Sink: the worker calls this once per tick when
// it has at least one confirmed track to report.
func (b *Bus) Publish(r worker.Report) error {
	b.reports.Send(r)
	return nil
}

// SubscribeReports lets a transport (e.g. the websocket bridge) receive
// every report the worker publishes, to broadcast to connected clients.
func (b *Bus) SubscribeReports(channel chan<- worker.Report) event.Subscription {
	return b.reports.Subscribe(channel)
}
