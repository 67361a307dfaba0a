package worker

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"github.com/rotblauer/trackd/common"
	"github.com/rotblauer/trackd/measurement"
	"github.com/rotblauer/trackd/motion"
	"github.com/rotblauer/trackd/trackmgr"
)

// fakeSource wraps an event.FeedOf so tests can push measurements
// directly without a real transport. subscribed is closed once the worker
// has subscribed; the feed drops sends made before that.
type fakeSource struct {
	feed       *event.FeedOf[measurement.Measurement]
	subscribed chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{feed: &event.FeedOf[measurement.Measurement]{}, subscribed: make(chan struct{})}
}

func (s *fakeSource) Subscribe(ch chan<- measurement.Measurement) event.Subscription {
	sub := s.feed.Subscribe(ch)
	close(s.subscribed)
	return sub
}

func (s *fakeSource) push(m measurement.Measurement) {
	s.feed.Send(m)
}

// fakeSink records every published report.
type fakeSink struct {
	mu      sync.Mutex
	reports []Report
}

func (s *fakeSink) Publish(r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func testManagerConfig() trackmgr.Config {
	return trackmgr.Config{
		AssociationGateDistance: 10.0,
		NewTrackGateDistance:    5.0,
		MeasurementNoiseStd:     2.0,
		ConfirmationHits:        1,
		MaxMissesToDelete:       5,
		NewTrackModel: func() motion.Model {
			return motion.NewConstantAccelerationModel(motion.Config{
				ProcessNoiseStd:                1.0,
				InitialPositionUncertainty:     10.0,
				InitialVelocityUncertainty:     100.0,
				InitialAccelerationUncertainty: 10.0,
			})
		},
	}
}

func TestWorker_TickProducesReportAfterConfirmation(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelWarn + 1)()

	mgr := trackmgr.New(testManagerConfig())
	source := newFakeSource()
	sink := &fakeSink{}

	w := New(Config{TickInterval: 10 * time.Millisecond}, mgr, source, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	<-source.subscribed
	source.push(measurement.New(measurement.Position{X: 1, Y: 1, Z: 1}, 1.0, 1))

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if sink.count() == 0 {
		t.Fatal("expected at least one published report after confirmation threshold of 1")
	}
}

func TestWorker_HeartbeatAdvancesEachTick(t *testing.T) {
	mgr := trackmgr.New(testManagerConfig())
	source := newFakeSource()
	sink := &fakeSink{}
	w := New(Config{TickInterval: 10 * time.Millisecond}, mgr, source, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done

	if w.LastHeartbeat().IsZero() {
		t.Fatal("expected heartbeat to have advanced")
	}
}
