/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rotblauer/trackd/common"
	"github.com/rotblauer/trackd/config"
	"github.com/rotblauer/trackd/health"
	"github.com/rotblauer/trackd/metrics/influxdb"
	"github.com/rotblauer/trackd/motion"
	"github.com/rotblauer/trackd/trackmgr"
	"github.com/rotblauer/trackd/transport"
	"github.com/rotblauer/trackd/worker"
)

var optConfigPath string

// optListenPort overrides config.Config.HealthCheckPort when > 0. It lives
// in its own pflag.FlagSet so other commands can share it without
// depending on runCmd's flag registration order.
var optListenPort int

var runListenFlags = pflag.NewFlagSet("run.listen", pflag.ContinueOnError)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the tracker worker, health probe, and websocket transport",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		runTracker(optConfigPath)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&optConfigPath, "config", "", "path to a config file (YAML/JSON/INI/TOML)")

	runListenFlags.IntVar(&optListenPort, "listen.port", 0, "override the configured health/transport listen port")
	runCmd.Flags().AddFlagSet(runListenFlags)
}

func runTracker(configPath string) {
	cfg := config.Load(configPath)
	if optListenPort > 0 {
		cfg.HealthCheckPort = optListenPort
	}

	mgr := trackmgr.New(trackmgr.Config{
		AssociationGateDistance: cfg.AssociationGateDistance,
		NewTrackGateDistance:    cfg.NewTrackGateDistance,
		MeasurementNoiseStd:     cfg.MeasurementNoiseStd,
		ConfirmationHits:        cfg.ConfirmationHits,
		MaxMissesToDelete:       cfg.MaxMissesToDelete,
		NewTrackModel: func() motion.Model {
			return motion.NewConstantAccelerationModel(motion.Config{
				ProcessNoiseStd:                cfg.ProcessNoiseStdCA,
				InitialPositionUncertainty:     cfg.InitialPositionUncertainty,
				InitialVelocityUncertainty:     cfg.InitialVelocityUncertainty,
				InitialAccelerationUncertainty: cfg.InitialAccelerationUncertainty,
			})
		},
	})

	bus := transport.NewBus()
	socket := transport.NewSocket(bus)
	defer socket.Close()
	bulkIngest := transport.NewBulkIngest(bus)

	var sink worker.Sink = bus
	if cfg.InfluxDBEnabled {
		exporter := influxdb.New(influxdb.Options{
			URL:    cfg.InfluxDBURL,
			Token:  cfg.InfluxDBToken,
			Org:    cfg.InfluxDBOrg,
			Bucket: cfg.InfluxDBBucket,
		})
		defer exporter.Close()
		sink = worker.NewFanOutSink(bus, exporter)
	}

	w := worker.New(worker.Config{TickInterval: cfg.WorkerInterval}, mgr, bus, sink)

	var workerAlive atomic.Bool
	workerAlive.Store(true)

	probe := health.New(cfg.HealthCheckPort, workerAlive.Load)
	probe.OnStats(func() map[string]any {
		st := mgr.Stats()
		return map[string]any{
			"batchSize":           st.BatchSize,
			"matchedCount":        st.MatchedCount,
			"lostCount":           st.LostCount,
			"liveTrackCount":      st.LiveTrackCount,
			"meanMatchDistance":   st.MeanMatchDistance,
			"stdDevMatchDistance": st.StdDevMatchDistance,
		}
	})
	w.OnHeartbeat(func(t time.Time) {
		probe.Touch(t)
		st := mgr.Stats()
		probe.RecordStats(map[string]any{
			"batchSize":      st.BatchSize,
			"matchedCount":   st.MatchedCount,
			"lostCount":      st.LostCount,
			"liveTrackCount": st.LiveTrackCount,
		})
	})
	defer probe.Close()

	router := probe.NewRouterWithRoutes(func(r *mux.Router) {
		r.PathPrefix("/socket").HandlerFunc(socket.Handler())
		r.Path("/ingest").HandlerFunc(bulkIngest.Handler())
	})

	httpServer := &http.Server{Addr: probe.Addr(), Handler: router}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("health/transport server failed: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-common.Interrupted()
		slog.Info("shutdown signal received")
		workerAlive.Store(false)
		cancel()
	}()

	if err := w.Run(ctx); err != nil {
		slog.Error("worker stopped with error", "error", err)
	}
	_ = httpServer.Close()
}
