package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rotblauer/trackd/measurement"
	"github.com/rotblauer/trackd/stream"
)

// BulkIngest serves a POST endpoint accepting newline-delimited JSON
// measurements, for batch backfill or non-websocket producers. Each
// decoded measurement is pushed onto the Bus exactly as a websocket frame
// would be; the response reports how many were accepted.
type BulkIngest struct {
	bus    *Bus
	logger *slog.Logger
}

// NewBulkIngest wires an NDJSON ingest handler on top of bus.
func NewBulkIngest(bus *Bus) *BulkIngest {
	return &BulkIngest{bus: bus, logger: slog.With("component", "transport.bulkingest")}
}

// Handler returns the HTTP handler to mount for NDJSON POSTs.
func (b *BulkIngest) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		decoded := stream.NDJSON[measurement.Measurement](ctx, r.Body)
		valid := stream.Filter(ctx, func(m measurement.Measurement) bool {
			return m.Timestamp > 0
		}, decoded)
		accepted := stream.Transform(ctx, func(m measurement.Measurement) measurement.Measurement {
			b.bus.Ingest(m)
			return m
		}, valid)

		count := len(stream.Collect(ctx, accepted))

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]int{"accepted": count}); err != nil {
			b.logger.Error("failed to write bulk ingest response", "error", err)
		}
	}
}
