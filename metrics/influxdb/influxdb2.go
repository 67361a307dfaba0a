// Package influxdb exports confirmed-track reports to InfluxDB, one point
// per track per tick, for optional observability deployments.
package influxdb

import (
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/rotblauer/trackd/worker"
)

// Options configures the InfluxDB write path.
type Options struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Exporter posts Reports to an InfluxDB Write API. The Write API buffers
// and flushes internally; Export blocks until the batch is flushed and
// returns the last error encountered, if any.
type Exporter struct {
	opts   Options
	client influxdb2.Client
}

// New creates an Exporter against the given InfluxDB instance.
func New(opts Options) *Exporter {
	writeOpts := influxdb2.DefaultOptions()
	writeOpts.SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(opts.URL, opts.Token, writeOpts)
	return &Exporter{opts: opts, client: client}
}

// Export writes one point per track in r, tagged by track id, with
// hits and per-axis position/velocity as fields.
func (e *Exporter) Export(r worker.Report) error {
	writeAPI := e.client.WriteAPI(e.opts.Org, e.opts.Bucket)
	errorsCh := writeAPI.Errors()

	var lastErr error
	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		for err := range errorsCh {
			if err != nil {
				lastErr = err
			}
		}
	}()

	for _, tr := range r.Tracks {
		p := influxdb2.NewPointWithMeasurement("track").
			SetTime(r.Timestamp).
			AddTag("track_id", strconv.FormatInt(tr.ID, 10)).
			AddField("hits", tr.Hits).
			AddField("position_x", tr.Position.X).
			AddField("position_y", tr.Position.Y).
			AddField("position_z", tr.Position.Z).
			AddField("velocity_x", tr.Velocity.X).
			AddField("velocity_y", tr.Velocity.Y).
			AddField("velocity_z", tr.Velocity.Z)
		writeAPI.WritePoint(p)
	}
	writeAPI.Flush()
	wait.Wait()
	return lastErr
}

// Publish satisfies worker.Sink, so an Exporter can be wired directly
// alongside the transport bus behind worker.NewFanOutSink.
func (e *Exporter) Publish(r worker.Report) error {
	return e.Export(r)
}

// Close releases the underlying InfluxDB client.
func (e *Exporter) Close() {
	e.client.Close()
}
