package source

import (
	"fmt"

	"github.com/david0154/David-BCI/internal/ports"
)

// Config selects and configures one acquisition backend.
type Config struct {
	Type   string       `yaml:"type"` // synth | mqtt | opcua | replay
	Synth  SynthConfig  `yaml:"synth"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	OPCUA  OPCUAConfig  `yaml:"opcua"`
	Replay ReplayConfig `yaml:"replay"`
}

// ApplyDefaults propagates the session geometry into the selected backend so
// per-source blocks only need to override what differs.
func (c *Config) ApplyDefaults(channels int, sampleRate float64) {
	if c.Type == "" {
		c.Type = "synth"
	}
	c.Synth.applyDefaults(channels, sampleRate)
	c.MQTT.applyDefaults(channels, sampleRate)
	c.OPCUA.applyDefaults(sampleRate)
	c.Replay.applyDefaults(channels, sampleRate)
}

func (c *Config) Validate() error {
	switch c.Type {
	case "synth":
		return c.Synth.validate()
	case "mqtt":
		return c.MQTT.validate()
	case "opcua":
		return c.OPCUA.validate()
	case "replay":
		return c.Replay.validate()
	default:
		return fmt.Errorf("unknown source type %q", c.Type)
	}
}

// New builds the configured sample source.
func New(cfg Config) (ports.SampleSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "synth":
		return NewSynth(cfg.Synth), nil
	case "mqtt":
		return NewMQTT(cfg.MQTT), nil
	case "opcua":
		return NewOPCUA(cfg.OPCUA)
	case "replay":
		return NewReplay(cfg.Replay), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}
