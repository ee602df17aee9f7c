package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// OPCUAConfig bridges low-rate auxiliary channels (impedance, temperature,
// trigger lines) published by lab equipment as OPC UA monitored nodes. Each
// configured node maps to one channel of the emitted sample vector, in
// declaration order. This is not suitable for raw EEG rates; it exists for
// slow side-channel sessions.
type OPCUAConfig struct {
	Endpoint         string            `yaml:"endpoint"`
	Username         string            `yaml:"username"`
	Password         string            `yaml:"password"`
	SecurityMode     string            `yaml:"security_mode"`
	SecurityPolicy   string            `yaml:"security_policy"`
	ApplicationName  string            `yaml:"application_name"`
	PublishInterval  time.Duration     `yaml:"publish_interval"`
	SamplingInterval time.Duration     `yaml:"sampling_interval"`
	SampleRate       float64           `yaml:"sample_rate"`
	Nodes            []OPCUANodeConfig `yaml:"nodes"`
}

// OPCUANodeConfig binds one monitored node to one channel.
type OPCUANodeConfig struct {
	NodeID string `yaml:"node_id"`
	Label  string `yaml:"label"`
}

func (c *OPCUAConfig) applyDefaults(sampleRate float64) {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "David-BCI Aux Acquisition"
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = 250 * time.Millisecond
	}
	if c.SamplingInterval < 0 {
		c.SamplingInterval = 0
	}
	if c.SampleRate == 0 {
		if sampleRate != 0 {
			c.SampleRate = sampleRate
		} else if c.PublishInterval > 0 {
			c.SampleRate = float64(time.Second) / float64(c.PublishInterval)
		}
	}
	for i := range c.Nodes {
		if c.Nodes[i].Label == "" {
			c.Nodes[i].Label = c.Nodes[i].NodeID
		}
	}
}

func (c *OPCUAConfig) validate() error {
	if c.Endpoint == "" {
		return errors.New("opcua: endpoint is required")
	}
	if len(c.Nodes) == 0 {
		return errors.New("opcua: at least one node must be configured")
	}
	return nil
}

// OPCUA assembles per-node value updates into aligned multichannel samples:
// every publish notification refreshes the affected channels and emits one
// sample holding the latest value of every channel. Emission starts once all
// channels have reported at least once.
type OPCUA struct {
	cfg OPCUAConfig

	mu      sync.Mutex
	client  *opcua.Client
	sub     *opcua.Subscription
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	handleToChannel map[uint32]int
	latest          []float64
	seen            []bool
	pending         int
	seq             uint64
}

func NewOPCUA(cfg OPCUAConfig) (*OPCUA, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &OPCUA{cfg: cfg}, nil
}

func (o *OPCUA) Describe() ports.Capabilities {
	return ports.Capabilities{Channels: len(o.cfg.Nodes), SampleRate: o.cfg.SampleRate}
}

func (o *OPCUA) Start(out chan<- *domain.Sample) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("opcua source already started")
	}
	o.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())

	client, err := opcua.NewClient(o.cfg.Endpoint, o.buildClientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("opcua connect: %w", err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, len(o.cfg.Nodes)*4)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: o.cfg.PublishInterval,
	}, notifyCh)
	if err != nil {
		cancel()
		_ = client.Close(ctx)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	handleToChannel := make(map[uint32]int, len(o.cfg.Nodes))
	for ch, node := range o.cfg.Nodes {
		nodeID, err := ua.ParseNodeID(node.NodeID)
		if err != nil {
			o.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("parse node id %q: %w", node.NodeID, err)
		}
		handle := uint32(ch + 1)
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, handle)
		if o.cfg.SamplingInterval > 0 {
			req.RequestedParameters.SamplingInterval = float64(o.cfg.SamplingInterval / time.Millisecond)
		}
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
		if err != nil {
			o.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q: %w", node.NodeID, err)
		}
		if len(res.Results) == 0 || res.Results[0].StatusCode != ua.StatusOK {
			o.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q rejected", node.NodeID)
		}
		handleToChannel[handle] = ch
	}

	o.mu.Lock()
	o.client = client
	o.sub = sub
	o.cancel = cancel
	o.handleToChannel = handleToChannel
	o.latest = make([]float64, len(o.cfg.Nodes))
	o.seen = make([]bool, len(o.cfg.Nodes))
	o.pending = len(o.cfg.Nodes)
	o.seq = 0
	o.started = true
	o.mu.Unlock()

	o.wg.Add(1)
	go o.consume(ctx, notifyCh, out)
	return nil
}

func (o *OPCUA) Stop() error {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return nil
	}
	cancel := o.cancel
	sub := o.sub
	client := o.client
	o.started = false
	o.cancel = nil
	o.sub = nil
	o.client = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if sub != nil {
		if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}
	if client != nil {
		if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}

	o.wg.Wait()
	return err
}

func (o *OPCUA) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData, out chan<- *domain.Sample) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				log.Printf("opcua source: notification error: %v", notif.Error)
				continue
			}
			o.processNotification(ctx, notif.Value, out)
		}
	}
}

func (o *OPCUA) processNotification(ctx context.Context, val interface{}, out chan<- *domain.Sample) {
	data, ok := val.(*ua.DataChangeNotification)
	if !ok {
		return
	}

	o.mu.Lock()
	var newest time.Time
	for _, item := range data.MonitoredItems {
		ch, ok := o.handleToChannel[item.ClientHandle]
		if !ok {
			continue
		}
		fv, ok := variantToFloat(item.Value.Value)
		if !ok {
			log.Printf("opcua source: skipping channel %d: unsupported type %T", ch, item.Value.Value)
			continue
		}
		o.latest[ch] = fv
		if !o.seen[ch] {
			o.seen[ch] = true
			o.pending--
		}

		ts := item.Value.ServerTimestamp
		if ts.IsZero() {
			ts = item.Value.SourceTimestamp
		}
		if ts.After(newest) {
			newest = ts
		}
	}

	if o.pending > 0 {
		o.mu.Unlock()
		return
	}
	if newest.IsZero() {
		newest = time.Now()
	}
	sample := &domain.Sample{
		Timestamp: newest,
		Seq:       o.seq,
		Values:    append([]float64(nil), o.latest...),
	}
	o.seq++
	o.mu.Unlock()

	select {
	case <-ctx.Done():
	case out <- sample:
	}
}

func (o *OPCUA) buildClientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(o.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(o.cfg.SecurityPolicy)),
		opcua.ApplicationName(o.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if o.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(o.cfg.Username, o.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func (o *OPCUA) cleanupOnError(ctx context.Context, cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	if sub != nil {
		_ = sub.Cancel(ctx)
	}
	if client != nil {
		_ = client.Close(ctx)
	}
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.SampleSource = (*OPCUA)(nil)
