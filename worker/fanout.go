package worker

import "log/slog"

// FanOutSink publishes to every inner Sink, logging but not propagating
// individual failures so one broken exporter (e.g. a downed InfluxDB)
// never blocks the others or the tick itself.
type FanOutSink struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanOutSink wires multiple sinks (e.g. the transport bus and an
// optional metrics exporter) behind a single Sink.
func NewFanOutSink(sinks ...Sink) *FanOutSink {
	return &FanOutSink{sinks: sinks, logger: slog.With("component", "worker.fanout")}
}

// Publish calls Publish on every inner sink, returning the first error
// encountered (if any) after attempting all of them.
func (f *FanOutSink) Publish(r Report) error {
	var firstErr error
	for _, s := range f.sinks {
		if s == nil {
			continue
		}
		if err := s.Publish(r); err != nil {
			f.logger.Warn("sink publish failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
