package sink

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// MQTTConfig publishes decisions to a broker topic, the usual transport into
// a paradigm UI or an external control loop.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	Topic          string        `yaml:"topic"`
	ClientID       string        `yaml:"client_id"`
	QoS            byte          `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

func (c *MQTTConfig) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "brainflow-decisions"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}

func (c *MQTTConfig) Validate() error {
	if c.Broker == "" {
		return errors.New("mqtt sink: broker is required")
	}
	if c.Topic == "" {
		return errors.New("mqtt sink: topic is required")
	}
	return nil
}

type MQTTSink struct {
	cfg    MQTTConfig
	client mqtt.Client
}

func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt sink connect timeout after %s", cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt sink connect: %w", err)
	}

	return &MQTTSink{cfg: cfg, client: client}, nil
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) OnDecision(d *domain.Decision) error {
	payload, err := msgpack.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	token := s.client.Publish(s.cfg.Topic, s.cfg.QoS, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish decision: %w", token.Error())
	}
	return nil
}

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}

var _ ports.DecisionSink = (*MQTTSink)(nil)
