// Package ingest guards the wire boundary against exact-duplicate
// redelivery from a flaky transport, distinct from the TrackManager's
// position-proximity duplicate suppression.
package ingest

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/rotblauer/trackd/measurement"
)

// DefaultCacheSize bounds the dedupe cache; an LRU over this many recent
// message hashes is enough to absorb retransmission bursts without
// growing unbounded.
const DefaultCacheSize = 10_000

// Dedupe reports whether a decoded measurement has been seen before,
// hashing its full value. Not safe for concurrent use from multiple
// goroutines without external synchronization; the worker's ingest actor
// is the sole writer.
type Dedupe struct {
	cache *lru.Cache[uint64, struct{}]
}

// New creates a Dedupe backed by an LRU of size.
func New(size int) (*Dedupe, error) {
	c, err := lru.New[uint64, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("ingest: creating dedupe cache: %w", err)
	}
	return &Dedupe{cache: c}, nil
}

// Seen hashes m and returns true if that hash has already been recorded,
// in which case m should be dropped. A hashing failure is treated as
// "not seen" so a transient hash error never blocks ingestion.
func (d *Dedupe) Seen(m measurement.Measurement) bool {
	hash, err := hashstructure.Hash(m, hashstructure.FormatV2, nil)
	if err != nil {
		return false
	}
	if _, ok := d.cache.Get(hash); ok {
		return true
	}
	d.cache.Add(hash, struct{}{})
	return false
}
