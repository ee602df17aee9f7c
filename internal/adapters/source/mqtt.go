package source

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// MQTTConfig subscribes to an amplifier gateway that publishes framed sample
// blocks over MQTT.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	Topic          string        `yaml:"topic"`
	ClientID       string        `yaml:"client_id"`
	QoS            byte          `yaml:"qos"`
	Channels       int           `yaml:"channels"`
	SampleRate     float64       `yaml:"sample_rate"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

func (c *MQTTConfig) applyDefaults(channels int, sampleRate float64) {
	if c.Channels == 0 {
		c.Channels = channels
	}
	if c.SampleRate == 0 {
		c.SampleRate = sampleRate
	}
	if c.ClientID == "" {
		c.ClientID = "brainflow-acquire"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}

func (c *MQTTConfig) validate() error {
	if c.Broker == "" {
		return errors.New("mqtt: broker is required")
	}
	if c.Topic == "" {
		return errors.New("mqtt: topic is required")
	}
	if c.Channels <= 0 {
		return errors.New("mqtt: channels must be > 0")
	}
	if c.SampleRate <= 0 {
		return errors.New("mqtt: sample_rate must be > 0")
	}
	return nil
}

// SampleFrame is the wire format one MQTT message carries: a block of
// consecutive samples, msgpack-encoded. TimesUS holds one microsecond unix
// timestamp per row of Values.
type SampleFrame struct {
	Seq     uint64      `msgpack:"seq"`
	TimesUS []int64     `msgpack:"t"`
	Values  [][]float64 `msgpack:"v"`
}

// MQTT bridges a broker topic into the pipeline's sample channel. Frames
// with the wrong channel count are dropped and logged rather than poisoning
// the ring.
type MQTT struct {
	cfg MQTTConfig

	mu      sync.Mutex
	client  mqtt.Client
	started bool
	stopCh  chan struct{}
}

func NewMQTT(cfg MQTTConfig) *MQTT {
	return &MQTT{cfg: cfg}
}

func (m *MQTT) Describe() ports.Capabilities {
	return ports.Capabilities{Channels: m.cfg.Channels, SampleRate: m.cfg.SampleRate}
}

func (m *MQTT) Start(out chan<- *domain.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("mqtt source already started")
	}

	stopCh := make(chan struct{})

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", m.cfg.Broker))
	opts.SetClientID(m.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("mqtt source: connection lost, awaiting reconnect: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(m.cfg.ConnectTimeout) {
		return fmt.Errorf("mqtt connect timeout after %s", m.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		m.handleFrame(msg.Payload(), out, stopCh)
	}
	if token := client.Subscribe(m.cfg.Topic, m.cfg.QoS, handler); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return fmt.Errorf("mqtt subscribe %q: %w", m.cfg.Topic, token.Error())
	}

	m.client = client
	m.stopCh = stopCh
	m.started = true
	return nil
}

func (m *MQTT) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false
	close(m.stopCh)

	if token := m.client.Unsubscribe(m.cfg.Topic); token.Wait() && token.Error() != nil {
		m.client.Disconnect(250)
		return token.Error()
	}
	m.client.Disconnect(250)
	m.client = nil
	return nil
}

func (m *MQTT) handleFrame(payload []byte, out chan<- *domain.Sample, stopCh <-chan struct{}) {
	var frame SampleFrame
	if err := msgpack.Unmarshal(payload, &frame); err != nil {
		log.Printf("mqtt source: bad frame: %v", err)
		return
	}
	if len(frame.Values) != len(frame.TimesUS) {
		log.Printf("mqtt source: frame rows/timestamps mismatch (%d vs %d)", len(frame.Values), len(frame.TimesUS))
		return
	}

	for i, row := range frame.Values {
		if len(row) != m.cfg.Channels {
			log.Printf("mqtt source: dropping row with %d channels, expected %d", len(row), m.cfg.Channels)
			continue
		}
		sample := &domain.Sample{
			Timestamp: time.UnixMicro(frame.TimesUS[i]),
			Seq:       frame.Seq + uint64(i),
			Values:    row,
		}
		select {
		case <-stopCh:
			return
		case out <- sample:
		}
	}
}

var _ ports.SampleSource = (*MQTT)(nil)
