// Package trackmgr implements gated nearest-neighbor data association,
// track lifecycle bookkeeping, and new-track spawning with duplicate
// suppression. A Manager owns every Track it creates; callers only ever
// see read-only snapshots.
package trackmgr

import (
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"

	"github.com/rotblauer/trackd/conceptual"
	"github.com/rotblauer/trackd/measurement"
	"github.com/rotblauer/trackd/motion"
	"github.com/rotblauer/trackd/track"
)

// Config carries every knob the manager's algorithms read (§6).
type Config struct {
	AssociationGateDistance float64
	NewTrackGateDistance    float64
	MeasurementNoiseStd     float64
	ConfirmationHits        int
	MaxMissesToDelete       int

	// NewTrackModel builds the motion model for a freshly-spawned track.
	// Defaults to ConstantAccelerationModel per the source (Design Notes
	// §9): it is the one actually instantiated for new tracks there, even
	// though ConstantVelocityModel remains available for configuration.
	NewTrackModel func() motion.Model
}

// TrackView is a read-only snapshot of one track, safe to hold after the
// manager has moved on to the next tick.
type TrackView struct {
	ID             conceptual.TrackID
	Position       [3]float64
	Velocity       [3]float64
	Hits           int
	Misses         int
	Age            int
	LastUpdateTime float64
	Trajectory     [][3]float64
}

// Manager owns the live track population and the shared processing
// timeline. Mutation (predictTo, processMeasurements) is write-priority;
// Snapshot is read-priority, per the source's second-revision discipline.
type Manager struct {
	mu sync.RWMutex

	cfg Config

	tracks          map[conceptual.TrackID]*track.Track
	nextID          conceptual.TrackID
	lastProcessTime float64
	hasProcessed    bool

	lastStats Stats

	logger *slog.Logger
}

// New creates an empty Manager.
func New(cfg Config) *Manager {
	if cfg.NewTrackModel == nil {
		cfg.NewTrackModel = func() motion.Model {
			return motion.NewConstantAccelerationModel(motion.Config{
				ProcessNoiseStd:                1.0,
				InitialPositionUncertainty:     10.0,
				InitialVelocityUncertainty:     100.0,
				InitialAccelerationUncertainty: 10.0,
			})
		}
	}
	return &Manager{
		cfg:    cfg,
		tracks: make(map[conceptual.TrackID]*track.Track),
		logger: slog.With("component", "trackmgr"),
	}
}

// PredictTo advances every track's shared timeline to ts. The first call
// merely records ts. Later calls are a no-op unless dt = ts - lastProcessTime
// is strictly positive; the timeline never runs backward.
func (m *Manager) PredictTo(ts float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasProcessed {
		m.lastProcessTime = ts
		m.hasProcessed = true
		return
	}
	dt := ts - m.lastProcessTime
	if dt <= 0 {
		return
	}
	for _, t := range m.tracks {
		t.Predict(dt)
	}
	m.lastProcessTime = ts
}

// matchedPair is one committed association.
type matchedPair struct {
	id       conceptual.TrackID
	measIdx  int
	distance float64
}

// ProcessMeasurements runs one full association+lifecycle cycle over a
// timestamp-sorted batch: gated nearest-neighbor association, update of
// matched tracks, new-track creation with duplicate suppression and
// clustering over residual measurements, and miss management with
// lost-track removal.
func (m *Manager) ProcessMeasurements(batch []measurement.Measurement) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched, unmatchedTrackIDs, consumed := m.associate(batch)

	for _, pair := range matched {
		m.tracks[pair.id].Update(batch[pair.measIdx])
	}

	residual := make([]int, 0, len(batch))
	for i := range batch {
		if !consumed[i] {
			residual = append(residual, i)
		}
	}

	residual = m.suppressDuplicates(batch, residual, matched)
	m.spawnFromClusters(batch, residual)

	for _, id := range unmatchedTrackIDs {
		m.tracks[id].IncrementMisses()
	}
	// Any track can be lost here: unmatched ones by misses, and matched
	// ones too if predict or update hit a numeric failure.
	var lost []conceptual.TrackID
	for id, t := range m.tracks {
		if t.IsLost() {
			lost = append(lost, id)
		}
	}
	for _, id := range lost {
		delete(m.tracks, id)
	}

	m.lastStats = computeStats(batch, matched, lost, len(m.tracks))
}

// Stats is a point-in-time snapshot of manager-internal counters, exposed
// for the health server's status report; it never gates or alters
// association/lifecycle behavior.
type Stats struct {
	BatchSize           int
	MatchedCount        int
	LostCount           int
	LiveTrackCount      int
	MeanMatchDistance   float64
	StdDevMatchDistance float64
}

// computeStats summarizes one ProcessMeasurements cycle. Distance mean
// and standard deviation use montanaflynn/stats rather than a hand-rolled
// reduction.
func computeStats(batch []measurement.Measurement, matched []matchedPair, lost []conceptual.TrackID, liveCount int) Stats {
	distances := make([]float64, len(matched))
	for i, pair := range matched {
		distances[i] = pair.distance
	}

	s := Stats{
		BatchSize:      len(batch),
		MatchedCount:   len(matched),
		LostCount:      len(lost),
		LiveTrackCount: liveCount,
	}
	if len(distances) > 0 {
		if mean, err := stats.Mean(distances); err == nil {
			s.MeanMatchDistance = mean
		}
		if sd, err := stats.StandardDeviation(distances); err == nil {
			s.StdDevMatchDistance = sd
		}
	}
	return s
}

// Stats returns a snapshot of the most recently completed
// ProcessMeasurements cycle's summary counters.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastStats
}

// associate performs gated nearest-neighbor association in ascending
// track-id order. Returns committed pairs, the ids of tracks left
// unmatched, and a consumed[] mask over the batch.
func (m *Manager) associate(batch []measurement.Measurement) ([]matchedPair, []conceptual.TrackID, []bool) {
	ids := make([]conceptual.TrackID, 0, len(m.tracks))
	for id := range m.tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	consumed := make([]bool, len(batch))
	var matched []matchedPair
	var unmatched []conceptual.TrackID

	for _, id := range ids {
		t := m.tracks[id]
		pos := t.Position()

		bestIdx := -1
		bestDist := math.Inf(1)
		for i, meas := range batch {
			if consumed[i] {
				continue
			}
			d := euclidean(pos, meas.Position.Vec3())
			if d < bestDist {
				bestDist = d
				bestIdx = i
			}
		}

		if bestIdx >= 0 && bestDist < m.cfg.AssociationGateDistance {
			consumed[bestIdx] = true
			matched = append(matched, matchedPair{id: id, measIdx: bestIdx, distance: bestDist})
		} else {
			unmatched = append(unmatched, id)
		}
	}
	return matched, unmatched, consumed
}

// suppressDuplicates drops any residual measurement lying within the
// new-track gate of a just-updated track, treating it as a repeat
// detection of an existing target rather than a new one.
func (m *Manager) suppressDuplicates(batch []measurement.Measurement, residual []int, matched []matchedPair) []int {
	if len(matched) == 0 {
		return residual
	}
	updatedPositions := make([][3]float64, len(matched))
	for i, pair := range matched {
		updatedPositions[i] = m.tracks[pair.id].Position()
	}

	kept := make([]int, 0, len(residual))
	for _, idx := range residual {
		pos := batch[idx].Position.Vec3()
		duplicate := false
		for _, up := range updatedPositions {
			if euclidean(pos, up) < m.cfg.NewTrackGateDistance {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, idx)
		}
	}
	return kept
}

// spawnFromClusters clusters the residual measurement indices (already in
// batch order) by the new-track gate and creates exactly one new track per
// cluster, seeded from the cluster's first (seed) measurement.
func (m *Manager) spawnFromClusters(batch []measurement.Measurement, residual []int) {
	type cluster struct {
		seedIdx int
	}
	var clusters []cluster

	for _, idx := range residual {
		pos := batch[idx].Position.Vec3()
		absorbed := false
		for _, c := range clusters {
			if euclidean(pos, batch[c.seedIdx].Position.Vec3()) < m.cfg.NewTrackGateDistance {
				absorbed = true
				break
			}
		}
		if !absorbed {
			clusters = append(clusters, cluster{seedIdx: idx})
		}
	}

	for _, c := range clusters {
		id := m.nextID
		m.nextID++
		model := m.cfg.NewTrackModel()
		lifecycle := track.LifecycleConfig{
			ConfirmationHits:  m.cfg.ConfirmationHits,
			MaxMissesToDelete: m.cfg.MaxMissesToDelete,
		}
		m.tracks[id] = track.New(id, model, batch[c.seedIdx], m.cfg.MeasurementNoiseStd, lifecycle)
	}
}

// Snapshot returns a view of every confirmed track, each carrying a
// future-trajectory sample out to horizon at step intervals.
func (m *Manager) Snapshot(horizon, step float64) []TrackView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]conceptual.TrackID, 0, len(m.tracks))
	for id := range m.tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var views []TrackView
	for _, id := range ids {
		t := m.tracks[id]
		if !t.IsConfirmed() {
			continue
		}
		views = append(views, TrackView{
			ID:             id,
			Position:       t.Position(),
			Velocity:       t.Velocity(),
			Hits:           t.Hits,
			Misses:         t.Misses,
			Age:            t.Age,
			LastUpdateTime: t.LastUpdateTime,
			Trajectory:     t.PredictFutureTrajectory(horizon, step),
		})
	}
	return views
}

// TrackCount returns the total number of live tracks (confirmed or not).
func (m *Manager) TrackCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tracks)
}

func euclidean(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
