// Package config loads the tracker's runtime configuration via viper,
// applying the documented defaults whenever a key, section, or the whole
// file is missing or unreadable.
package config

import (
	"log/slog"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config mirrors every configuration key in the external-interfaces table.
type Config struct {
	WorkerInterval time.Duration

	HealthCheckPort int

	ProcessNoiseStdCV               float64
	ProcessNoiseStdCA               float64
	MeasurementNoiseStd             float64
	InitialPositionUncertainty      float64
	InitialVelocityUncertainty      float64
	InitialAccelerationUncertainty  float64
	AssociationGateDistance         float64
	NewTrackGateDistance             float64
	ConfirmationHits                int
	MaxMissesToDelete                int

	InfluxDBEnabled bool
	InfluxDBURL     string
	InfluxDBToken   string
	InfluxDBOrg     string
	InfluxDBBucket  string
}

// Defaults returns the documented default configuration.
func Defaults() Config {
	return Config{
		WorkerInterval:                  100 * time.Millisecond,
		HealthCheckPort:                 8899,
		ProcessNoiseStdCV:               0.1,
		ProcessNoiseStdCA:               1.0,
		MeasurementNoiseStd:             2.0,
		InitialPositionUncertainty:      10.0,
		InitialVelocityUncertainty:      100.0,
		InitialAccelerationUncertainty:  10.0,
		AssociationGateDistance:         10.0,
		NewTrackGateDistance:            5.0,
		ConfirmationHits:                3,
		MaxMissesToDelete:               5,

		InfluxDBEnabled: false,
		InfluxDBURL:     "http://localhost:8086",
		InfluxDBOrg:     "trackd",
		InfluxDBBucket:  "tracks",
	}
}

// Load reads path (any viper-supported format: YAML, JSON, INI, TOML) plus
// environment variables, falling back to Defaults with a logged warning if
// the file is missing or unreadable. An empty path skips the file read and
// only applies env vars over the defaults.
func Load(path string) Config {
	cfg := Defaults()

	v := viper.New()
	v.SetEnvPrefix("TRACKD")
	v.AutomaticEnv()

	v.SetDefault("general.workerinterval", int(cfg.WorkerInterval / time.Millisecond))
	v.SetDefault("healthcheck.port", cfg.HealthCheckPort)
	v.SetDefault("kalmanfilter.processnoisestdcv", cfg.ProcessNoiseStdCV)
	v.SetDefault("kalmanfilter.processnoisestdca", cfg.ProcessNoiseStdCA)
	v.SetDefault("kalmanfilter.measurementnoisestd", cfg.MeasurementNoiseStd)
	v.SetDefault("kalmanfilter.initialpositionuncertainty", cfg.InitialPositionUncertainty)
	v.SetDefault("kalmanfilter.initialvelocityuncertainty", cfg.InitialVelocityUncertainty)
	v.SetDefault("kalmanfilter.initialaccelerationuncertainty", cfg.InitialAccelerationUncertainty)
	v.SetDefault("kalmanfilter.associationgatedistance", cfg.AssociationGateDistance)
	v.SetDefault("kalmanfilter.newtrackgatedistance", cfg.NewTrackGateDistance)
	v.SetDefault("kalmanfilter.confirmationhits", cfg.ConfirmationHits)
	v.SetDefault("kalmanfilter.maxmissestodelete", cfg.MaxMissesToDelete)
	v.SetDefault("influxdb.enabled", cfg.InfluxDBEnabled)
	v.SetDefault("influxdb.url", cfg.InfluxDBURL)
	v.SetDefault("influxdb.token", cfg.InfluxDBToken)
	v.SetDefault("influxdb.org", cfg.InfluxDBOrg)
	v.SetDefault("influxdb.bucket", cfg.InfluxDBBucket)

	if path != "" {
		resolved, err := homedir.Expand(path)
		if err != nil {
			slog.Warn("config: could not expand path, using defaults", "path", path, "error", err)
			resolved = path
		}
		v.SetConfigFile(resolved)
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("config: file missing or unreadable, falling back to defaults", "path", resolved, "error", err)
		}
	}

	cfg.WorkerInterval = time.Duration(v.GetInt("general.workerinterval")) * time.Millisecond
	cfg.HealthCheckPort = v.GetInt("healthcheck.port")
	cfg.ProcessNoiseStdCV = v.GetFloat64("kalmanfilter.processnoisestdcv")
	cfg.ProcessNoiseStdCA = v.GetFloat64("kalmanfilter.processnoisestdca")
	cfg.MeasurementNoiseStd = v.GetFloat64("kalmanfilter.measurementnoisestd")
	cfg.InitialPositionUncertainty = v.GetFloat64("kalmanfilter.initialpositionuncertainty")
	cfg.InitialVelocityUncertainty = v.GetFloat64("kalmanfilter.initialvelocityuncertainty")
	cfg.InitialAccelerationUncertainty = v.GetFloat64("kalmanfilter.initialaccelerationuncertainty")
	cfg.AssociationGateDistance = v.GetFloat64("kalmanfilter.associationgatedistance")
	cfg.NewTrackGateDistance = v.GetFloat64("kalmanfilter.newtrackgatedistance")
	cfg.ConfirmationHits = v.GetInt("kalmanfilter.confirmationhits")
	cfg.MaxMissesToDelete = v.GetInt("kalmanfilter.maxmissestodelete")
	cfg.InfluxDBEnabled = v.GetBool("influxdb.enabled")
	cfg.InfluxDBURL = v.GetString("influxdb.url")
	cfg.InfluxDBToken = v.GetString("influxdb.token")
	cfg.InfluxDBOrg = v.GetString("influxdb.org")
	cfg.InfluxDBBucket = v.GetString("influxdb.bucket")

	return cfg
}
