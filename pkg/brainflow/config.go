package brainflow

import (
	"github.com/david0154/David-BCI/internal/adapters/model"
	"github.com/david0154/David-BCI/internal/adapters/sink"
	"github.com/david0154/David-BCI/internal/adapters/source"
	"github.com/david0154/David-BCI/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// SessionConfig is the session geometry (channels, rate, window, step, buffer).
	SessionConfig = config.SessionConfig
	// StageConfig names one hook-chain stage plus its parameters.
	StageConfig = config.StageConfig
	// SourceConfig selects and configures the acquisition source.
	SourceConfig = source.Config
	// SynthSourceConfig configures the built-in synthetic signal generator.
	SynthSourceConfig = source.SynthConfig
	// ReplaySourceConfig configures recorded-session replay.
	ReplaySourceConfig = source.ReplayConfig
	// ModelConfig selects and configures the built-in decoder models.
	ModelConfig = model.Config
	// SinkConfig selects the decision sink.
	SinkConfig = config.SinkConfig
	// TimescaleConfig configures the Timescale/Postgres decision sink.
	TimescaleConfig = config.TimescaleConfig
	// MQTTSinkConfig configures the MQTT decision sink.
	MQTTSinkConfig = sink.MQTTConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// RecorderConfig configures on-disk session recording.
	RecorderConfig = config.RecorderConfig
)

// LoadConfig loads YAML from disk, applies defaults, and validates.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
