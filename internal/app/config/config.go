package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/david0154/David-BCI/internal/adapters/model"
	"github.com/david0154/David-BCI/internal/adapters/sink"
	"github.com/david0154/David-BCI/internal/adapters/source"
	"github.com/david0154/David-BCI/internal/ports"
)

type Config struct {
	Session  SessionConfig  `yaml:"session"`
	Policy   ports.Policy   `yaml:"policy"`
	Source   source.Config  `yaml:"source"`
	Stages   []StageConfig  `yaml:"stages"`
	Model    model.Config   `yaml:"model"`
	Sink     SinkConfig     `yaml:"sink"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Recorder RecorderConfig `yaml:"recorder"`
}

// SessionConfig is the session geometry: everything the windower and the
// decoder shape contract depend on.
type SessionConfig struct {
	Channels       int     `yaml:"channels"`
	SampleRate     float64 `yaml:"sample_rate"`
	WindowLength   int     `yaml:"window_length"`
	Step           int     `yaml:"step"`
	BufferCapacity int     `yaml:"buffer_capacity"`
}

// StageConfig names one hook-chain stage plus its parameters, applied in
// list order.
type StageConfig struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params"`
}

type SinkConfig struct {
	Type      string          `yaml:"type"` // timescale | mqtt
	Timescale TimescaleConfig `yaml:"timescale"`
	MQTT      sink.MQTTConfig `yaml:"mqtt"`
}

type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Session.Step == 0 {
		c.Session.Step = c.Session.WindowLength
	}
	if c.Session.BufferCapacity == 0 {
		c.Session.BufferCapacity = 4 * c.Session.WindowLength
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 2 * time.Millisecond
	}
	if c.Policy.StageRecovery == "" {
		c.Policy.StageRecovery = "reset"
	}
	if c.Sink.Type == "" {
		c.Sink.Type = "timescale"
	}
	if c.Sink.Timescale.Table == "" {
		c.Sink.Timescale.Table = "decisions"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9300"
	}
	if c.Recorder.Dir == "" {
		c.Recorder.Dir = "./data/recordings"
	}

	c.Source.ApplyDefaults(c.Session.Channels, c.Session.SampleRate)
	c.Sink.MQTT.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ValidateCore(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config: %w", err)
	}
	return c.ValidateSink()
}

// ValidateCore checks the session geometry, policy, stage list, metrics, and
// recorder sections. The source and sink sections are validated separately so
// embedding callers that inject those adapters directly can skip them.
func (c *Config) ValidateCore() error {
	if c.Session.Channels <= 0 {
		return fmt.Errorf("session.channels must be > 0")
	}
	if c.Session.SampleRate <= 0 {
		return fmt.Errorf("session.sample_rate must be > 0")
	}
	if c.Session.WindowLength <= 0 {
		return fmt.Errorf("session.window_length must be > 0")
	}
	if c.Session.Step <= 0 {
		return fmt.Errorf("session.step must be > 0")
	}
	if c.Session.BufferCapacity < c.Session.WindowLength {
		return fmt.Errorf("session.buffer_capacity %d is smaller than window_length %d",
			c.Session.BufferCapacity, c.Session.WindowLength)
	}
	switch c.Policy.StageRecovery {
	case "reset", "keep":
	default:
		return fmt.Errorf("policy.stage_recovery must be \"reset\" or \"keep\", got %q", c.Policy.StageRecovery)
	}
	for i, st := range c.Stages {
		if st.Name == "" {
			return fmt.Errorf("stages[%d].name is required", i)
		}
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.Recorder.Enabled && c.Recorder.Dir == "" {
		return fmt.Errorf("recorder.dir is required when recording is enabled")
	}
	return nil
}

// ValidateSink checks whichever sink section the configured type selects.
func (c *Config) ValidateSink() error {
	switch c.Sink.Type {
	case "timescale":
		if c.Sink.Timescale.ConnString == "" {
			return fmt.Errorf("sink.timescale.conn_string is required")
		}
	case "mqtt":
		if err := c.Sink.MQTT.Validate(); err != nil {
			return fmt.Errorf("sink config: %w", err)
		}
	default:
		return fmt.Errorf("unknown sink type %q", c.Sink.Type)
	}
	return nil
}
