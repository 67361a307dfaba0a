package worker

import (
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/rotblauer/trackd/common"
)

// ingestMeter logs ingest throughput (measurements/sec, bytes/sec) on a
// slow independent ticker. Purely observational: nothing it does gates or
// delays the tick actor.
type ingestMeter struct {
	interval time.Duration
	started  time.Time
	ticker   *time.Ticker

	lastTimestamp atomic.Value // float64, boxed

	reg        metrics.Registry
	count      metrics.Counter
	size       metrics.Counter
	countMeter metrics.Meter
	sizeMeter  metrics.Meter

	stopCh chan struct{}
}

func newIngestMeter(interval time.Duration) *ingestMeter {
	metrics.Enabled = true

	reg := metrics.NewRegistry()
	im := &ingestMeter{
		reg:        reg,
		interval:   interval,
		started:    time.Now(),
		count:      metrics.NewCounter(),
		size:       metrics.NewCounter(),
		countMeter: metrics.NewMeter(),
		sizeMeter:  metrics.NewMeter(),
		stopCh:     make(chan struct{}),
	}
	_ = reg.Register("ingest.count", im.count)
	_ = reg.Register("ingest.bytes", im.size)
	_ = reg.Register("ingest.rate", im.countMeter)
	_ = reg.Register("ingest.byterate", im.sizeMeter)

	im.ticker = time.NewTicker(interval)
	go im.run()
	return im
}

func (im *ingestMeter) mark(timestamp float64, approxSize int) {
	im.lastTimestamp.Store(timestamp)
	im.count.Inc(1)
	im.size.Inc(int64(approxSize))
	im.countMeter.Mark(1)
	im.sizeMeter.Mark(int64(approxSize))
}

func (im *ingestMeter) run() {
	for {
		select {
		case <-im.ticker.C:
			im.log()
		case <-im.stopCh:
			return
		}
	}
}

func (im *ingestMeter) log() {
	countSnap := im.countMeter.Snapshot()
	sizeSnap := im.sizeMeter.Snapshot()

	last := "n/a"
	if v, ok := im.lastTimestamp.Load().(float64); ok {
		last = strconv.FormatFloat(v, 'f', 3, 64)
	}

	slog.Info("ingest throughput",
		"n", humanize.Comma(countSnap.Count()),
		"ingest.last_ts", last,
		"mps", common.DecimalToFixed(countSnap.Rate1(), 1),
		"bps", humanize.Bytes(uint64(sizeSnap.Rate1())),
		"total.bytes", humanize.Bytes(uint64(sizeSnap.Count())),
		"running", time.Since(im.started).Round(time.Second))
}

func (im *ingestMeter) stop() {
	if im == nil || im.ticker == nil {
		return
	}
	im.ticker.Stop()
	close(im.stopCh)
	im.countMeter.Stop()
	im.sizeMeter.Stop()
}
