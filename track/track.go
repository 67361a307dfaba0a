// Package track implements the per-target state estimate: a Track owns a
// motion model, a state vector, a covariance, and the lifecycle counters
// that decide confirmation and deletion. Tracks are mutated exclusively by
// a TrackManager.
package track

import (
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/rotblauer/trackd/conceptual"
	"github.com/rotblauer/trackd/filter"
	"github.com/rotblauer/trackd/measurement"
	"github.com/rotblauer/trackd/motion"
)

// LifecycleConfig captures the confirmation/deletion thresholds a track is
// created with (§6). Captured at creation time so later config changes
// don't retroactively alter a live track.
type LifecycleConfig struct {
	ConfirmationHits  int
	MaxMissesToDelete int
}

// Track is a mutable per-target state estimate. x[0..3] always carries the
// currently-estimated position, for any model variant.
type Track struct {
	ID    conceptual.TrackID
	Model motion.Model

	x *mat.VecDense
	P *mat.SymDense
	R *mat.SymDense

	LastUpdateTime float64
	Age            int
	Hits           int
	Misses         int

	lifecycle LifecycleConfig
	lost      bool

	logger *slog.Logger
}

// New creates a track from a residual measurement. hits starts at 1 (per
// spec); misses at 0. R is derived from measurementNoiseStd: R = sigma^2 * I3.
func New(id conceptual.TrackID, m motion.Model, seed measurement.Measurement, measurementNoiseStd float64, lifecycle LifecycleConfig) *Track {
	n := m.StateDim()
	x := mat.NewVecDense(n, nil)
	x.SetVec(0, seed.Position.X)
	x.SetVec(1, seed.Position.Y)
	x.SetVec(2, seed.Position.Z)

	r := mat.NewSymDense(3, nil)
	sigma2 := measurementNoiseStd * measurementNoiseStd
	for i := 0; i < 3; i++ {
		r.SetSym(i, i, sigma2)
	}

	return &Track{
		ID:             id,
		Model:          m,
		x:              x,
		P:              m.InitialCovariance(),
		R:              r,
		LastUpdateTime: seed.Timestamp,
		Age:            0,
		Hits:           1,
		Misses:         0,
		lifecycle:      lifecycle,
		logger:         slog.With("track", id),
	}
}

// Position returns the currently-estimated position (state[0..3]).
func (t *Track) Position() [3]float64 {
	return [3]float64{t.x.AtVec(0), t.x.AtVec(1), t.x.AtVec(2)}
}

// Velocity returns state components [3..6), valid for every current
// model variant since both CV and CA place velocity there.
func (t *Track) Velocity() [3]float64 {
	return [3]float64{t.x.AtVec(3), t.x.AtVec(4), t.x.AtVec(5)}
}

// State returns the raw state vector. Callers must not mutate it.
func (t *Track) State() *mat.VecDense { return t.x }

// Covariance returns the raw covariance. Callers must not mutate it.
func (t *Track) Covariance() *mat.SymDense { return t.P }

// Predict advances the track's state by dt via the cubature filter. A
// non-positive dt is a no-op. If the covariance has lost
// positive-definiteness even after the retry, the track is marked lost
// and left for the TrackManager to remove.
func (t *Track) Predict(dt float64) {
	if dt <= 0 {
		return
	}
	if err := filter.Predict(t.x, t.P, t.Model, dt); err != nil {
		t.logger.Warn("predict failed, marking track lost", "error", err)
		t.lost = true
		return
	}
	t.Age++
}

// Update incorporates a measurement: hits increments, misses resets, and
// lastUpdateTime advances to the measurement's timestamp.
func (t *Track) Update(m measurement.Measurement) {
	z := mat.NewVecDense(3, []float64{m.Position.X, m.Position.Y, m.Position.Z})
	if err := filter.Update(t.x, t.P, t.Model, z, t.R); err != nil {
		t.logger.Warn("update failed, marking track lost", "error", err)
		t.lost = true
		return
	}
	t.Hits++
	t.Misses = 0
	t.LastUpdateTime = m.Timestamp
}

// IncrementMisses records one unmatched association cycle.
func (t *Track) IncrementMisses() {
	t.Misses++
}

// IsConfirmed reports hits >= confirmationHits.
func (t *Track) IsConfirmed() bool {
	return t.Hits >= t.lifecycle.ConfirmationHits
}

// IsLost reports misses > maxMissesToDelete, or that a numeric failure
// occurred during predict/update.
func (t *Track) IsLost() bool {
	return t.lost || t.Misses > t.lifecycle.MaxMissesToDelete
}

// PredictFutureTrajectory returns observed positions sampled every step
// out to horizon, starting from a copy of the current state; the track's
// own state is never mutated. Returns nil if horizon or step is
// non-positive.
func (t *Track) PredictFutureTrajectory(horizon, step float64) [][3]float64 {
	if horizon <= 0 || step <= 0 {
		return nil
	}

	n := t.Model.StateDim()
	state := mat.NewVecDense(n, nil)
	state.CopyVec(t.x)

	var trajectory [][3]float64
	next := mat.NewVecDense(n, nil)
	obs := mat.NewVecDense(3, nil)
	for elapsed := step; elapsed <= horizon+1e-9; elapsed += step {
		t.Model.Predict(next, state, step)
		state.CopyVec(next)
		t.Model.Observe(obs, state)
		trajectory = append(trajectory, [3]float64{obs.AtVec(0), obs.AtVec(1), obs.AtVec(2)})
	}
	return trajectory
}
