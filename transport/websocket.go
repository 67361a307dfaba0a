package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/olahol/melody"

	"github.com/rotblauer/trackd/measurement"
	"github.com/rotblauer/trackd/worker"
)

// Socket is a websocket bridge: inbound client frames decode into
// measurement.Measurement and are forwarded to the Bus; every report the
// Bus publishes is broadcast to all connected clients as JSON.
type Socket struct {
	bus    *Bus
	melody *melody.Melody
	logger *slog.Logger
	stopCh chan struct{}
}

// NewSocket wires a websocket bridge on top of bus. Call Handler to get
// the http.HandlerFunc to mount, and Close to stop the broadcast relay.
func NewSocket(bus *Bus) *Socket {
	s := &Socket{
		bus:    bus,
		melody: melody.New(),
		logger: slog.With("component", "transport.socket"),
		stopCh: make(chan struct{}),
	}

	s.melody.HandleConnect(func(sess *melody.Session) {
		s.logger.Info("client connected", "remote", sess.Request.RemoteAddr)
	})

	s.melody.HandleDisconnect(func(sess *melody.Session) {
		s.logger.Info("client disconnected", "remote", sess.Request.RemoteAddr)
	})

	s.melody.HandleError(func(sess *melody.Session, err error) {
		s.logger.Warn("session error", "remote", sess.Request.RemoteAddr, "error", err)
	})

	// Clients push raw measurement JSON frames; malformed frames are
	// dropped silently per the ingest error-handling policy (§7).
	s.melody.HandleMessage(func(sess *melody.Session, msg []byte) {
		var m measurement.Measurement
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		bus.Ingest(m)
	})

	reports := make(chan worker.Report, 16)
	sub := bus.SubscribeReports(reports)
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case r := <-reports:
				b, err := json.Marshal(r)
				if err != nil {
					s.logger.Warn("failed to marshal report for broadcast", "error", err)
					continue
				}
				if err := s.melody.Broadcast(b); err != nil {
					s.logger.Warn("failed to broadcast report", "error", err)
				}
			case err := <-sub.Err():
				if err != nil {
					s.logger.Warn("report subscription error", "error", err)
				}
				return
			case <-s.stopCh:
				return
			}
		}
	}()

	return s
}

// Handler returns the HTTP handler to mount for websocket upgrades.
func (s *Socket) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = s.melody.HandleRequest(w, r)
	}
}

// Close stops the broadcast relay and closes every open session.
func (s *Socket) Close() error {
	close(s.stopCh)
	return s.melody.Close()
}
