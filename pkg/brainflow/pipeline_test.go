package brainflow

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func baseConfig() *Config {
	return &Config{
		Session: SessionConfig{
			Channels:       2,
			SampleRate:     100,
			WindowLength:   100,
			Step:           50,
			BufferCapacity: 1000,
		},
		Policy:  Policy{IdleSleep: time.Millisecond, StageRecovery: "reset"},
		Metrics: MetricsConfig{Addr: ":0"},
	}
}

// pushGrid feeds count samples on the nominal sampling grid.
func pushGrid(t *testing.T, feed *FeedSource, count int, rate float64) {
	t.Helper()
	period := time.Duration(float64(time.Second) / rate)
	base := time.Unix(1000, 0)
	for i := 0; i < count; i++ {
		err := feed.Push(&Sample{
			Timestamp: base.Add(time.Duration(i) * period),
			Seq:       uint64(i),
			Values:    []float64{float64(i), -float64(i)},
		})
		if err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type collectSink struct {
	mu   sync.Mutex
	decs []*Decision
}

func (s *collectSink) OnDecision(d *Decision) error {
	s.mu.Lock()
	s.decs = append(s.decs, d)
	s.mu.Unlock()
	return nil
}

func (s *collectSink) Name() string { return "collect" }

func (s *collectSink) snapshot() []*Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Decision, len(s.decs))
	copy(out, s.decs)
	return out
}

type fixedModel struct {
	channels   int
	timePoints int
	failFirst  bool

	mu    sync.Mutex
	calls int
}

func (m *fixedModel) Channels() int   { return m.channels }
func (m *fixedModel) TimePoints() int { return m.timePoints }

func (m *fixedModel) Predict(w *Window) (*Decision, error) {
	m.mu.Lock()
	m.calls++
	first := m.calls == 1
	m.mu.Unlock()
	if m.failFirst && first {
		return nil, errors.New("weights rejected input")
	}
	return &Decision{Label: 1, Confidence: 0.9}, nil
}

type togglingStage struct {
	name string
	mu   sync.Mutex

	vetoAll   bool
	failFirst bool
	calls     int
	resets    int
}

func (s *togglingStage) Name() string { return s.name }

func (s *togglingStage) Reset() {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

func (s *togglingStage) Apply(w *Window) (*Window, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if s.failFirst && first {
		return nil, errors.New("uninitialized filter state")
	}
	if s.vetoAll {
		return nil, nil
	}
	return w, nil
}

type nopObs struct{}

func (nopObs) LogInfo(string, ...Field)            {}
func (nopObs) LogError(string, error, ...Field)    {}
func (nopObs) LogCritical(string, error, ...Field) {}
func (nopObs) IncCounter(string, float64)          {}
func (nopObs) ObserveLatency(string, float64)      {}
func (nopObs) SetGauge(string, float64)            {}
func (nopObs) RecordDrop(uint64, string, error)    {}

func newTestPipeline(t *testing.T, cfg *Config, extra ...PipelineOption) *Pipeline {
	t.Helper()
	opts := append([]PipelineOption{
		WithObservability(nopObs{}),
		WithoutMetricsServer(),
	}, extra...)
	p, err := NewPipeline(cfg, opts...)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestPipelineDecodesWindowsInOrder(t *testing.T) {
	feed := NewFeedSource(2, 100, 64)
	sink := &collectSink{}
	p := newTestPipeline(t, baseConfig(),
		WithSource(feed),
		WithModel(&fixedModel{channels: 2, timePoints: 100}),
		WithSink(sink),
	)

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	// 500 samples at W=100, S=50 complete windows 0..8.
	pushGrid(t, feed, 500, 100)

	waitFor(t, 3*time.Second, "9 decisions", func() bool {
		return len(sink.snapshot()) == 9
	})

	decs := sink.snapshot()
	for i, d := range decs {
		if d.WindowSeq != uint64(i) {
			t.Fatalf("decision %d has window seq %d", i, d.WindowSeq)
		}
		if d.SessionID == "" {
			t.Fatalf("decision %d missing session id", i)
		}
		if i > 0 && !decs[i].At.After(decs[i-1].At) {
			t.Fatalf("decision timestamps not increasing: %v then %v", decs[i-1].At, decs[i].At)
		}
	}

	st := p.Status()
	if st.State != StateRunning {
		t.Fatalf("state = %s", st.State)
	}
	if st.WindowsProcessed != 9 || st.Decisions != 9 || st.WindowsDropped != 0 {
		t.Fatalf("unexpected counters: %+v", st)
	}
	if st.DecodeLatency.Count != 9 || st.DecodeLatency.Max < st.DecodeLatency.Min {
		t.Fatalf("unexpected latency stats: %+v", st.DecodeLatency)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := p.Status().State; got != StateIdle {
		t.Fatalf("state after Stop = %s", got)
	}
}

func TestPipelineCountsVetoedWindows(t *testing.T) {
	feed := NewFeedSource(2, 100, 64)
	sink := &collectSink{}
	gate := &togglingStage{name: "gate", vetoAll: true}
	p := newTestPipeline(t, baseConfig(),
		WithSource(feed),
		WithModel(&fixedModel{channels: 2}),
		WithStages(gate),
		WithSink(sink),
	)

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	pushGrid(t, feed, 500, 100)

	waitFor(t, 3*time.Second, "9 dropped windows", func() bool {
		return p.Status().WindowsDropped == 9
	})

	st := p.Status()
	if st.State != StateRunning {
		t.Fatalf("veto must not fault the session, state = %s", st.State)
	}
	if st.Decisions != 0 || len(sink.snapshot()) != 0 {
		t.Fatalf("vetoed windows must not reach the sink: %+v", st)
	}
}

func TestPipelineSurvivesStageFailure(t *testing.T) {
	feed := NewFeedSource(2, 100, 64)
	sink := &collectSink{}
	flaky := &togglingStage{name: "flaky", failFirst: true}
	p := newTestPipeline(t, baseConfig(),
		WithSource(feed),
		WithModel(&fixedModel{channels: 2}),
		WithStages(flaky),
		WithSink(sink),
	)

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	pushGrid(t, feed, 500, 100)

	// Window 0 is lost to the failure; 1..8 decode normally.
	waitFor(t, 3*time.Second, "8 decisions", func() bool {
		return len(sink.snapshot()) == 8
	})

	st := p.Status()
	if st.State != StateRunning {
		t.Fatalf("stage failure must be recoverable, state = %s", st.State)
	}
	if st.StageFailures != 1 {
		t.Fatalf("stage failures = %d", st.StageFailures)
	}
	if first := sink.snapshot()[0]; first.WindowSeq != 1 {
		t.Fatalf("expected window 0 to be skipped, first decision has seq %d", first.WindowSeq)
	}

	flaky.mu.Lock()
	resets := flaky.resets
	flaky.mu.Unlock()
	if resets < 1 {
		t.Fatal("failing stage was not reset")
	}
}

func TestPipelineFaultsOnDecodeError(t *testing.T) {
	feed := NewFeedSource(2, 100, 64)
	sink := &collectSink{}
	p := newTestPipeline(t, baseConfig(),
		WithSource(feed),
		WithModel(&fixedModel{channels: 4}), // session has 2 channels, every decode is a shape break
		WithSink(sink),
	)

	if err := p.Start(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig from shape validation at start, got %v", err)
	}
	if got := p.Status().State; got != StateIdle {
		t.Fatalf("failed start must stay idle, state = %s", got)
	}

	// Shape breaks that only surface at decode time fault the session.
	p = newTestPipeline(t, baseConfig(),
		WithSource(feed),
		WithModel(&fixedModel{channels: 2, failFirst: true}),
		WithSink(sink),
	)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	pushGrid(t, feed, 200, 100)

	waitFor(t, 3*time.Second, "faulted state", func() bool {
		return p.Status().State == StateFaulted
	})

	st := p.Status()
	if !errors.Is(st.LastError, ErrDecode) {
		t.Fatalf("expected ErrDecode as last error, got %v", st.LastError)
	}
	if len(sink.snapshot()) != 0 {
		t.Fatal("no decision may be emitted after a decode fault")
	}

	if err := p.Start(); err == nil {
		t.Fatal("faulted session must require Stop before restarting")
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop from Faulted: %v", err)
	}
	if got := p.Status().State; got != StateIdle {
		t.Fatalf("state after acknowledging fault = %s", got)
	}
}

func TestPipelineFaultsOnSourceDisconnect(t *testing.T) {
	feed := NewFeedSource(2, 100, 64)
	sink := &collectSink{}
	p := newTestPipeline(t, baseConfig(),
		WithSource(feed),
		WithModel(&fixedModel{channels: 2}),
		WithSink(sink),
	)

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	pushGrid(t, feed, 120, 100)
	feed.Close()

	waitFor(t, 3*time.Second, "faulted state", func() bool {
		return p.Status().State == StateFaulted
	})

	if err := p.Status().LastError; !errors.Is(err, ErrSourceDisconnected) {
		t.Fatalf("expected ErrSourceDisconnected, got %v", err)
	}
}

func TestPipelineRejectsBadGeometry(t *testing.T) {
	cfg := baseConfig()
	cfg.Session.BufferCapacity = 10 // smaller than the window

	p := newTestPipeline(t, cfg,
		WithSource(NewFeedSource(2, 100, 64)),
		WithModel(&fixedModel{channels: 2}),
		WithSink(&collectSink{}),
	)
	if err := p.Start(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if got := p.Status().State; got != StateIdle {
		t.Fatalf("state = %s", got)
	}
}

func TestPipelineRejectsCapabilityMismatch(t *testing.T) {
	feed := NewFeedSource(8, 250, 64) // session wants 2 ch @ 100 Hz
	p := newTestPipeline(t, baseConfig(),
		WithSource(feed),
		WithModel(&fixedModel{channels: 2}),
		WithSink(&collectSink{}),
	)
	if err := p.Start(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestPipelineStopQuiescesMidStream(t *testing.T) {
	feed := NewFeedSource(2, 100, 256)
	sink := &collectSink{}
	p := newTestPipeline(t, baseConfig(),
		WithSource(feed),
		WithModel(&fixedModel{channels: 2, timePoints: 100}),
		WithSink(sink),
	)

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Keep feeding until Stop closes the source underneath us.
	feederDone := make(chan struct{})
	go func() {
		defer close(feederDone)
		period := 10 * time.Millisecond
		base := time.Unix(1000, 0)
		for i := 0; ; i++ {
			err := feed.Push(&Sample{
				Timestamp: base.Add(time.Duration(i) * period),
				Seq:       uint64(i),
				Values:    []float64{float64(i), -float64(i)},
			})
			if err != nil {
				return
			}
		}
	}()

	waitFor(t, 3*time.Second, "3 decisions mid-stream", func() bool {
		return len(sink.snapshot()) >= 3
	})

	stopAt := time.Now()
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if took := time.Since(stopAt); took > 250*time.Millisecond {
		t.Fatalf("Stop took %s, expected well under a cadence", took)
	}

	frozen := len(sink.snapshot())
	<-feederDone
	time.Sleep(50 * time.Millisecond)
	if after := len(sink.snapshot()); after != frozen {
		t.Fatalf("decisions kept flowing after Stop: %d then %d", frozen, after)
	}
	if got := p.Status().State; got != StateIdle {
		t.Fatalf("state after Stop = %s", got)
	}
}

func TestPipelineStopIsSafeFromAnyState(t *testing.T) {
	p := newTestPipeline(t, baseConfig(),
		WithSource(NewFeedSource(2, 100, 64)),
		WithModel(&fixedModel{channels: 2}),
		WithSink(&collectSink{}),
	)

	// Idle stop is a no-op.
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop from Idle: %v", err)
	}

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop from Running: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("repeated Stop: %v", err)
	}
	if got := p.Status().State; got != StateIdle {
		t.Fatalf("state = %s", got)
	}
}
