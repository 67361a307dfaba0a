// Package worker drives the tracking pipeline on a fixed-period tick: it
// owns the measurement ingest buffer, the TrackManager, and the publish
// path, coordinating an ingest actor, a tick actor, and a heartbeat
// observed by the health probe.
package worker

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"github.com/rotblauer/trackd/ingest"
	"github.com/rotblauer/trackd/measurement"
	"github.com/rotblauer/trackd/trackmgr"
)

// Source delivers decoded inbound measurements to the worker's ingest
// actor. event.FeedOf[measurement.Measurement] satisfies this directly.
type Source interface {
	Subscribe(channel chan<- measurement.Measurement) event.Subscription
}

// Sink accepts a published report. Publish failures are logged and never
// block or retry; the tick proceeds regardless (§7).
type Sink interface {
	Publish(r Report) error
}

// Config configures a Worker's tick behavior. The TrackManager itself is
// configured separately via trackmgr.Config.
type Config struct {
	TickInterval      time.Duration
	TrajectoryHorizon float64
	TrajectoryStep    float64
	DedupeCacheSize   int
	MeterLogInterval  time.Duration
}

// Worker owns a TrackManager exclusively and drives it on a periodic
// timer. The measurement buffer is the only state shared between the
// ingest actor and the tick actor, guarded by mu.
type Worker struct {
	cfg     Config
	manager *trackmgr.Manager
	source  Source
	sink    Sink
	dedupe  *ingest.Dedupe
	meter   *ingestMeter

	mu     sync.Mutex
	buffer []measurement.Measurement

	heartbeatMu sync.Mutex
	heartbeat   time.Time
	onHeartbeat func(time.Time)

	logger *slog.Logger
}

// New creates a Worker. sink may be nil if the caller only cares about
// the TrackManager's side effects (e.g. in tests); a nil sink simply
// skips publishing.
func New(cfg Config, manager *trackmgr.Manager, source Source, sink Sink) *Worker {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.TrajectoryHorizon <= 0 {
		cfg.TrajectoryHorizon = 2.0
	}
	if cfg.TrajectoryStep <= 0 {
		cfg.TrajectoryStep = 0.5
	}
	if cfg.DedupeCacheSize <= 0 {
		cfg.DedupeCacheSize = ingest.DefaultCacheSize
	}
	if cfg.MeterLogInterval <= 0 {
		cfg.MeterLogInterval = 30 * time.Second
	}

	dd, err := ingest.New(cfg.DedupeCacheSize)
	if err != nil {
		dd = nil
	}

	return &Worker{
		cfg:     cfg,
		manager: manager,
		source:  source,
		sink:    sink,
		dedupe:  dd,
		meter:   newIngestMeter(cfg.MeterLogInterval),
		logger:  slog.With("component", "worker"),
	}
}

// OnHeartbeat registers a callback invoked with the heartbeat timestamp
// after every tick. The health probe wires in its TTL-cache touch here.
func (w *Worker) OnHeartbeat(fn func(time.Time)) {
	w.heartbeatMu.Lock()
	w.onHeartbeat = fn
	w.heartbeatMu.Unlock()
}

// LastHeartbeat returns the timestamp of the most recently completed
// tick, or the zero Time if none has run yet.
func (w *Worker) LastHeartbeat() time.Time {
	w.heartbeatMu.Lock()
	defer w.heartbeatMu.Unlock()
	return w.heartbeat
}

// Run subscribes to the source and drives the ingest/tick actors until
// ctx is cancelled. Shutdown drains one final tick and must complete
// within 10s; exceeding that is logged as a warning but never treated as
// an error.
func (w *Worker) Run(ctx context.Context) error {
	inbound := make(chan measurement.Measurement, 256)
	sub := w.source.Subscribe(inbound)
	defer sub.Unsubscribe()
	defer w.meter.stop()

	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			start := time.Now()
			w.tick()
			if elapsed := time.Since(start); elapsed > 10*time.Second {
				w.logger.Warn("shutdown drain exceeded bound", "elapsed", elapsed)
			}
			return nil
		case m := <-inbound:
			w.ingestOne(m)
		case err := <-sub.Err():
			if err != nil {
				w.logger.Warn("source subscription error", "error", err)
			}
		case <-ticker.C:
			w.tick()
		}
	}
}

// ingestOne appends a decoded measurement to the shared buffer, after an
// optional dedupe pass against exact-duplicate redelivery.
func (w *Worker) ingestOne(m measurement.Measurement) {
	if w.dedupe != nil && w.dedupe.Seen(m) {
		return
	}
	w.mu.Lock()
	w.buffer = append(w.buffer, m)
	w.mu.Unlock()
	w.meter.mark(m.Timestamp, approxMeasurementSize)
}

// approxMeasurementSize approximates the wire size of one measurement for
// throughput logging; exactness does not matter here.
const approxMeasurementSize = 64

// tick runs one full pipeline pass: swap buffer, stable-sort by
// timestamp, predictTo+processMeasurements if non-empty, snapshot and
// publish confirmed tracks, then record the heartbeat.
func (w *Worker) tick() {
	w.mu.Lock()
	batch := w.buffer
	w.buffer = nil
	w.mu.Unlock()

	if len(batch) > 0 {
		sort.SliceStable(batch, func(i, j int) bool {
			return batch[i].Timestamp < batch[j].Timestamp
		})
		latest := batch[len(batch)-1].Timestamp
		w.manager.PredictTo(latest)
		w.manager.ProcessMeasurements(batch)
	}

	views := w.manager.Snapshot(w.cfg.TrajectoryHorizon, w.cfg.TrajectoryStep)
	if len(views) > 0 && w.sink != nil {
		report := buildReport(views)
		if err := w.sink.Publish(report); err != nil {
			w.logger.Warn("publish failed", "error", err)
		}
	}

	now := time.Now().UTC()
	w.heartbeatMu.Lock()
	w.heartbeat = now
	cb := w.onHeartbeat
	w.heartbeatMu.Unlock()
	if cb != nil {
		cb(now)
	}
}

func buildReport(views []trackmgr.TrackView) Report {
	tracks := make([]TrackReport, len(views))
	for i, v := range views {
		traj := make([]Vec3, len(v.Trajectory))
		for j, p := range v.Trajectory {
			traj[j] = Vec3{X: p[0], Y: p[1], Z: p[2]}
		}
		tracks[i] = TrackReport{
			ID:               int64(v.ID),
			Hits:             v.Hits,
			Position:         Vec3{X: v.Position[0], Y: v.Position[1], Z: v.Position[2]},
			Velocity:         Vec3{X: v.Velocity[0], Y: v.Velocity[1], Z: v.Velocity[2]},
			FutureTrajectory: traj,
		}
	}
	return Report{Timestamp: time.Now().UTC(), Tracks: tracks}
}
