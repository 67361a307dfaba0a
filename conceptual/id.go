// Package conceptual holds small identifier types shared across the
// tracker so that track and observer identities are never confused with
// plain integers at call sites.
package conceptual

import "strconv"

// TrackID uniquely identifies a Track for its lifetime. Assigned by the
// TrackManager from a monotonically increasing counter; never reused.
type TrackID int64

func (id TrackID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ObserverID identifies the sensor or process that produced a Measurement.
type ObserverID int64

func (id ObserverID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
