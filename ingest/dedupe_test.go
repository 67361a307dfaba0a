package ingest

import (
	"testing"

	"github.com/rotblauer/trackd/measurement"
)

func TestSeen_FirstTimeFalseSecondTimeTrue(t *testing.T) {
	d, err := New(100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := measurement.New(measurement.Position{X: 1, Y: 2, Z: 3}, 10, 1)

	if d.Seen(m) {
		t.Fatal("first observation reported as seen")
	}
	if !d.Seen(m) {
		t.Fatal("second observation of identical measurement not reported as seen")
	}
}

func TestSeen_DistinctMeasurementsDoNotCollide(t *testing.T) {
	d, err := New(100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a := measurement.New(measurement.Position{X: 1, Y: 2, Z: 3}, 10, 1)
	b := measurement.New(measurement.Position{X: 1, Y: 2, Z: 3}, 10, 2)

	if d.Seen(a) {
		t.Fatal("a reported as seen on first observation")
	}
	if d.Seen(b) {
		t.Fatal("b (distinct observer) reported as seen on first observation")
	}
}
