// Package measurement defines the inbound observation type the tracker
// consumes: a 3D position tagged with an observation time and the
// observer that produced it.
package measurement

import (
	"encoding/json"
	"errors"

	"github.com/rotblauer/trackd/conceptual"
)

// ErrMissingObserverID is returned when a decoded measurement payload has
// no ObserverId field. The worker drops such messages silently at the
// ingest boundary; this error exists so callers can tell the difference
// between a malformed payload and a transport failure.
var ErrMissingObserverID = errors.New("measurement: missing ObserverId")

// Position is a 3-component Cartesian position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec3 returns the position as [x, y, z].
func (p Position) Vec3() [3]float64 {
	return [3]float64{p.X, p.Y, p.Z}
}

// Measurement is an immutable observation: a position, the time it was
// observed (seconds, as in the wire format), and the observer that
// produced it. Once constructed it is never mutated; the TrackManager
// discards it after the tick in which it arrived.
type Measurement struct {
	Position   Position
	Timestamp  float64
	ObserverID conceptual.ObserverID
}

// New constructs a Measurement directly, bypassing JSON decoding. Useful
// for tests and for in-process producers.
func New(pos Position, timestamp float64, observerID conceptual.ObserverID) Measurement {
	return Measurement{Position: pos, Timestamp: timestamp, ObserverID: observerID}
}

// wireMeasurement mirrors the inbound JSON shape from the wire:
//
//	{"ObserverId": 1, "Timestamp": 12.5, "Position": {"x":..,"y":..,"z":..}}
//
// Additional fields are ignored. ObserverId is required; its absence is
// the one condition that must surface as an error so the ingest path can
// drop the message, per spec.
type wireMeasurement struct {
	ObserverID *conceptual.ObserverID `json:"ObserverId"`
	Timestamp  float64                `json:"Timestamp"`
	Position   Position               `json:"Position"`
}

// UnmarshalJSON decodes the wire format, rejecting a payload with no
// ObserverId field. Malformed JSON or a wrong field type is surfaced as
// the underlying json error; the caller (the worker's ingest path) is
// responsible for dropping on any error rather than propagating it into
// the pipeline.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	var w wireMeasurement
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ObserverID == nil {
		return ErrMissingObserverID
	}
	m.ObserverID = *w.ObserverID
	m.Timestamp = w.Timestamp
	m.Position = w.Position
	return nil
}

// MarshalJSON round-trips the wire format (used by tests and by any
// producer that re-serializes measurements, e.g. a websocket replay).
func (m Measurement) MarshalJSON() ([]byte, error) {
	observerID := m.ObserverID
	return json.Marshal(wireMeasurement{
		ObserverID: &observerID,
		Timestamp:  m.Timestamp,
		Position:   m.Position,
	})
}
