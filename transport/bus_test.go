package transport

import (
	"testing"
	"time"

	"github.com/rotblauer/trackd/measurement"
	"github.com/rotblauer/trackd/worker"
)

func TestBus_IngestDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	ch := make(chan measurement.Measurement, 1)
	sub := bus.Subscribe(ch)
	defer sub.Unsubscribe()

	want := measurement.New(measurement.Position{X: 1, Y: 2, Z: 3}, 5, 1)
	bus.Ingest(want)

	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ingested measurement")
	}
}

func TestBus_PublishDeliversToReportSubscriber(t *testing.T) {
	bus := NewBus()
	ch := make(chan worker.Report, 1)
	sub := bus.SubscribeReports(ch)
	defer sub.Unsubscribe()

	want := worker.Report{Tracks: []worker.TrackReport{{ID: 1, Hits: 3}}}
	if err := bus.Publish(want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-ch:
		if len(got.Tracks) != 1 || got.Tracks[0].ID != 1 {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published report")
	}
}
