package track

import (
	"math"
	"testing"

	"github.com/rotblauer/trackd/conceptual"
	"github.com/rotblauer/trackd/measurement"
	"github.com/rotblauer/trackd/motion"
)

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func testModel() motion.Model {
	return motion.NewConstantVelocityModel(motion.Config{
		ProcessNoiseStd:            0.1,
		InitialPositionUncertainty: 10,
		InitialVelocityUncertainty: 100,
	})
}

func testLifecycle() LifecycleConfig {
	return LifecycleConfig{ConfirmationHits: 3, MaxMissesToDelete: 5}
}

func TestNew_SeedsStateAndHits(t *testing.T) {
	seed := measurement.New(measurement.Position{X: 1, Y: 2, Z: 3}, 100, 42)
	tr := New(conceptual.TrackID(1), testModel(), seed, 2.0, testLifecycle())

	pos := tr.Position()
	if pos != [3]float64{1, 2, 3} {
		t.Fatalf("seed position = %v, want [1 2 3]", pos)
	}
	if tr.Hits != 1 || tr.Misses != 0 {
		t.Fatalf("hits=%d misses=%d, want 1,0", tr.Hits, tr.Misses)
	}
	if tr.LastUpdateTime != 100 {
		t.Fatalf("lastUpdateTime = %v, want 100", tr.LastUpdateTime)
	}
	if tr.IsConfirmed() {
		t.Fatal("fresh track should not be confirmed")
	}
}

func TestPredict_NonPositiveDtNoOp(t *testing.T) {
	seed := measurement.New(measurement.Position{}, 0, 1)
	tr := New(conceptual.TrackID(1), testModel(), seed, 2.0, testLifecycle())
	before := tr.Position()
	tr.Predict(0)
	tr.Predict(-1)
	after := tr.Position()
	if before != after {
		t.Fatalf("non-positive dt mutated state: %v -> %v", before, after)
	}
	if tr.Age != 0 {
		t.Fatalf("age = %d, want 0", tr.Age)
	}
}

func TestPredict_AdvancesAge(t *testing.T) {
	seed := measurement.New(measurement.Position{}, 0, 1)
	tr := New(conceptual.TrackID(1), testModel(), seed, 2.0, testLifecycle())
	tr.Predict(1)
	if tr.Age != 1 {
		t.Fatalf("age = %d, want 1", tr.Age)
	}
}

func TestUpdate_IncrementsHitsResetsMisses(t *testing.T) {
	seed := measurement.New(measurement.Position{}, 0, 1)
	tr := New(conceptual.TrackID(1), testModel(), seed, 2.0, testLifecycle())
	tr.Misses = 3
	tr.Update(measurement.New(measurement.Position{X: 1}, 5, 1))
	if tr.Hits != 2 {
		t.Fatalf("hits = %d, want 2", tr.Hits)
	}
	if tr.Misses != 0 {
		t.Fatalf("misses = %d, want 0", tr.Misses)
	}
	if tr.LastUpdateTime != 5 {
		t.Fatalf("lastUpdateTime = %v, want 5", tr.LastUpdateTime)
	}
}

func TestIsConfirmed_ThresholdsOnHits(t *testing.T) {
	seed := measurement.New(measurement.Position{}, 0, 1)
	tr := New(conceptual.TrackID(1), testModel(), seed, 2.0, testLifecycle())
	for tr.Hits < 3 {
		tr.Update(measurement.New(measurement.Position{}, 0, 1))
	}
	if !tr.IsConfirmed() {
		t.Fatal("expected track confirmed at hits == confirmationHits")
	}
}

func TestIsLost_ThresholdsOnMisses(t *testing.T) {
	seed := measurement.New(measurement.Position{}, 0, 1)
	tr := New(conceptual.TrackID(1), testModel(), seed, 2.0, testLifecycle())
	for i := 0; i < 5; i++ {
		tr.IncrementMisses()
	}
	if tr.IsLost() {
		t.Fatal("misses == maxMissesToDelete should not yet be lost")
	}
	tr.IncrementMisses()
	if !tr.IsLost() {
		t.Fatal("misses > maxMissesToDelete should be lost")
	}
}

func TestPredictFutureTrajectory_EmptyOnNonPositiveArgs(t *testing.T) {
	seed := measurement.New(measurement.Position{}, 0, 1)
	tr := New(conceptual.TrackID(1), testModel(), seed, 2.0, testLifecycle())
	if traj := tr.PredictFutureTrajectory(0, 1); traj != nil {
		t.Fatalf("expected nil trajectory for horizon<=0, got %v", traj)
	}
	if traj := tr.PredictFutureTrajectory(1, 0); traj != nil {
		t.Fatalf("expected nil trajectory for step<=0, got %v", traj)
	}
}

func TestPredictFutureTrajectory_DoesNotMutateTrack(t *testing.T) {
	seed := measurement.New(measurement.Position{}, 0, 1)
	tr := New(conceptual.TrackID(1), testModel(), seed, 2.0, testLifecycle())
	tr.x.SetVec(3, 1) // vx = 1
	before := tr.Position()

	traj := tr.PredictFutureTrajectory(3, 1)
	if len(traj) != 3 {
		t.Fatalf("trajectory length = %d, want 3", len(traj))
	}
	for i, pt := range traj {
		wantX := float64(i + 1)
		if !almostEqual(pt[0], wantX, 1e-9) {
			t.Fatalf("trajectory[%d].x = %v, want %v", i, pt[0], wantX)
		}
	}

	after := tr.Position()
	if before != after {
		t.Fatalf("trajectory mutated track state: %v -> %v", before, after)
	}
}
