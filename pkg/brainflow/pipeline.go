package brainflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/david0154/David-BCI/internal/adapters/model"
	"github.com/david0154/David-BCI/internal/adapters/observability"
	"github.com/david0154/David-BCI/internal/adapters/recorder"
	"github.com/david0154/David-BCI/internal/adapters/ring"
	"github.com/david0154/David-BCI/internal/adapters/sink"
	"github.com/david0154/David-BCI/internal/adapters/source"
	"github.com/david0154/David-BCI/internal/adapters/stage"
	"github.com/david0154/David-BCI/internal/app/pipeline"
	"github.com/david0154/David-BCI/internal/ports"
)

// State is the session lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// LatencyStats summarizes decode latency over the current session.
type LatencyStats struct {
	Count uint64
	Min   time.Duration
	Avg   time.Duration
	Max   time.Duration
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	State            State
	SessionID        string
	SamplesWritten   uint64
	WindowsProcessed uint64
	WindowsDropped   uint64
	StageFailures    uint64
	Overruns         uint64
	Decisions        uint64
	DecodeLatency    LatencyStats
	LastError        error
}

// session holds everything allocated for one Start/Stop cycle so a restart
// begins from a clean slate.
type session struct {
	id       string
	ring     ports.SampleRing
	source   ports.SampleSource
	chain    *pipeline.HookChain
	windower *pipeline.Windower
	decoder  *pipeline.Decoder
	sink     ports.DecisionSink
	recorder ports.Recorder
	closers  []func() error

	db         *sql.DB
	metricsSrv *http.Server

	stopCh   chan struct{}
	stopOnce sync.Once
	fatalCh  chan struct{}
	fatalOne sync.Once
	acqDone  chan struct{}
	procDone chan struct{}

	teardownOnce sync.Once
	teardownErr  error
}

func (s *session) requestStop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Pipeline wires source → ring → windower → hook chain → decoder → sink and
// supervises the session lifecycle. A Pipeline is reusable: after Stop it can
// be started again with the same configuration and overrides.
type Pipeline struct {
	cfg       *Config
	overrides pipelineOverrides
	obs       ports.Observability

	mu      sync.Mutex
	state   State
	lastErr error
	sess    *session

	samplesWritten   atomic.Uint64
	windowsProcessed atomic.Uint64
	windowsDropped   atomic.Uint64
	stageFailures    atomic.Uint64
	overruns         atomic.Uint64
	decisions        atomic.Uint64

	latMu                  sync.Mutex
	latCount               uint64
	latSum, latMin, latMax time.Duration
}

// NewPipeline prepares a pipeline from configuration plus optional dependency
// overrides. Nothing is opened or connected until Start.
func NewPipeline(cfg *Config, opts ...PipelineOption) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides pipelineOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	return &Pipeline{
		cfg:       cfg,
		overrides: overrides,
		obs:       obs,
		state:     StateIdle,
	}, nil
}

// Start validates the configuration against the source's declared
// capabilities and the model's shape contract, allocates the ring buffer, and
// launches the acquisition and processing contexts. Any rejection leaves the
// pipeline Idle with no session created.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateIdle:
	case StateFaulted:
		return fmt.Errorf("brainflow: session faulted (%v), call Stop before restarting", p.lastErr)
	default:
		return fmt.Errorf("brainflow: cannot start from %s state", p.state)
	}
	p.setStateLocked(StateStarting)

	sess, err := p.buildSession()
	if err != nil {
		p.setStateLocked(StateIdle)
		return err
	}

	out := make(chan *Sample, 256)
	if err := sess.source.Start(out); err != nil {
		_ = teardown(sess)
		p.setStateLocked(StateIdle)
		return fmt.Errorf("%w: source start: %v", ErrConfig, err)
	}

	p.resetCounters()
	p.sess = sess
	p.lastErr = nil

	go func() {
		defer close(sess.acqDone)
		if err := pipeline.RunAcquisition(sess.ring, sess.recorder, out, sess.stopCh, p.obs); err != nil {
			p.fault(sess, err)
		}
	}()
	go p.runProcessing(sess)
	go p.recordResourceGauges(sess, time.Second)

	p.setStateLocked(StateRunning)
	p.obs.LogInfo("session_started",
		Field{Key: "session_id", Value: sess.id},
		Field{Key: "channels", Value: p.cfg.Session.Channels},
		Field{Key: "sample_rate", Value: p.cfg.Session.SampleRate})
	return nil
}

// Stop detaches the source, drains the processing context, releases the
// session's resources, and returns the pipeline to Idle. Safe to call from
// any state, including Faulted and repeatedly.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	sess := p.sess
	if sess == nil {
		p.setStateLocked(StateIdle)
		p.lastErr = nil
		p.mu.Unlock()
		return nil
	}
	p.setStateLocked(StateStopping)
	p.mu.Unlock()

	sess.requestStop()
	var errs []error
	if err := sess.source.Stop(); err != nil {
		errs = append(errs, err)
	}
	<-sess.acqDone
	<-sess.procDone

	p.samplesWritten.Store(sess.ring.Written())
	if err := teardown(sess); err != nil {
		errs = append(errs, err)
	}

	p.mu.Lock()
	p.sess = nil
	p.lastErr = nil
	p.setStateLocked(StateIdle)
	p.mu.Unlock()

	p.obs.LogInfo("session_stopped", Field{Key: "session_id", Value: sess.id})
	return errors.Join(errs...)
}

// Run starts the session and blocks until the context is cancelled or the
// session faults; either way the session is shut down before returning. A
// fault is returned as the fatal error that caused it.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}

	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return p.Stop()
	case <-sess.fatalCh:
		p.mu.Lock()
		fatal := p.lastErr
		p.mu.Unlock()
		if err := p.Stop(); err != nil {
			return errors.Join(fatal, err)
		}
		return fatal
	}
}

// Status reports the current state and session counters. The counters survive
// until the next Start so a stopped session can still be inspected.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	st := Status{
		State:     p.state,
		LastError: p.lastErr,
	}
	if p.sess != nil {
		st.SessionID = p.sess.id
		st.SamplesWritten = p.sess.ring.Written()
	} else {
		st.SamplesWritten = p.samplesWritten.Load()
	}
	p.mu.Unlock()

	st.WindowsProcessed = p.windowsProcessed.Load()
	st.WindowsDropped = p.windowsDropped.Load()
	st.StageFailures = p.stageFailures.Load()
	st.Overruns = p.overruns.Load()
	st.Decisions = p.decisions.Load()
	st.DecodeLatency = p.latencyStats()
	return st
}

// buildSession resolves every dependency: overrides win, otherwise the
// configured adapter is constructed. Called with p.mu held.
func (p *Pipeline) buildSession() (*session, error) {
	cfg := p.cfg
	cfg.ApplyDefaults()
	if err := cfg.ValidateCore(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	sess := &session{
		id:       uuid.NewString(),
		stopCh:   make(chan struct{}),
		fatalCh:  make(chan struct{}),
		acqDone:  make(chan struct{}),
		procDone: make(chan struct{}),
	}

	src := p.overrides.source
	if src == nil {
		if err := cfg.Source.Validate(); err != nil {
			return nil, fmt.Errorf("%w: source config: %v", ErrConfig, err)
		}
		built, err := source.New(cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		src = built
	}
	caps := src.Describe()
	if caps.Channels != 0 && caps.Channels != cfg.Session.Channels {
		return nil, fmt.Errorf("%w: source provides %d channels, session wants %d",
			ErrConfig, caps.Channels, cfg.Session.Channels)
	}
	if caps.SampleRate != 0 && caps.SampleRate != cfg.Session.SampleRate {
		return nil, fmt.Errorf("%w: source runs at %g Hz, session wants %g Hz",
			ErrConfig, caps.SampleRate, cfg.Session.SampleRate)
	}
	sess.source = src

	stages := p.overrides.stages
	if stages == nil {
		for _, sc := range cfg.Stages {
			st, err := stage.Build(sc.Name, sc.Params)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrConfig, err)
			}
			stages = append(stages, st)
		}
	}
	sess.chain = pipeline.NewHookChain(stages, cfg.Policy)
	sess.chain.Reset()

	m := p.overrides.model
	if m == nil {
		built, err := model.New(cfg.Model, cfg.Session.Channels, cfg.Session.WindowLength)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		m = built
	}
	sess.decoder = pipeline.NewDecoder(m)
	if err := sess.decoder.ValidateSession(cfg.Session.Channels); err != nil {
		return nil, err
	}

	if err := p.buildSink(sess); err != nil {
		_ = teardown(sess)
		return nil, err
	}
	if err := p.buildRecorder(sess); err != nil {
		_ = teardown(sess)
		return nil, err
	}

	sess.ring = ring.New(cfg.Session.BufferCapacity)
	sess.windower = pipeline.NewWindower(sess.ring, cfg.Session.WindowLength, cfg.Session.Step, cfg.Session.SampleRate)

	if !p.overrides.noMetricsSrv {
		p.startMetrics(sess)
	}
	return sess, nil
}

func (p *Pipeline) buildSink(sess *session) error {
	if p.overrides.sink != nil {
		sess.sink = p.overrides.sink
		return nil
	}
	cfg := p.cfg
	if err := cfg.ValidateSink(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	switch cfg.Sink.Type {
	case "timescale":
		db, err := sql.Open("postgres", cfg.Sink.Timescale.ConnString)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
		sess.db = db
		sess.closers = append(sess.closers, db.Close)
		sess.sink = sink.NewTimescaleSink(db, cfg.Sink.Timescale.Table)
	case "mqtt":
		ms, err := sink.NewMQTTSink(cfg.Sink.MQTT)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
		sess.closers = append(sess.closers, func() error { ms.Close(); return nil })
		sess.sink = ms
	}
	return nil
}

func (p *Pipeline) buildRecorder(sess *session) error {
	if p.overrides.recorder != nil {
		sess.recorder = p.overrides.recorder
		return nil
	}
	if !p.cfg.Recorder.Enabled {
		return nil
	}
	rec, err := recorder.NewFileRecorder(p.cfg.Recorder.Dir)
	if err != nil {
		return fmt.Errorf("%w: recorder: %v", ErrConfig, err)
	}
	sess.recorder = rec
	sess.closers = append(sess.closers, rec.Close)
	return nil
}

// runProcessing is the single processing context: it owns the windower, the
// hook chain, and the decoder, so decisions leave in sequence-id order.
func (p *Pipeline) runProcessing(sess *session) {
	defer close(sess.procDone)

	idle := p.cfg.Policy.IdleSleep
	if idle <= 0 {
		idle = 2 * time.Millisecond
	}

	for {
		select {
		case <-sess.stopCh:
			return
		default:
		}

		win, err := sess.windower.Next()
		if err != nil {
			switch {
			case errors.Is(err, ErrInsufficientData):
				select {
				case <-sess.stopCh:
					return
				case <-time.After(idle):
				}
			case errors.Is(err, ErrOverrun):
				p.overruns.Add(1)
				p.obs.IncCounter("bci_ring_overruns_total", 1)
			default:
				p.fault(sess, err)
				return
			}
			continue
		}

		p.windowsProcessed.Add(1)
		p.obs.IncCounter("bci_windows_total", 1)

		out, vetoedBy, err := sess.chain.Run(win)
		if err != nil {
			p.stageFailures.Add(1)
			p.obs.IncCounter("bci_stage_failures_total", 1)
			p.obs.LogError("stage_failed", err, Field{Key: "window_seq", Value: win.Seq})
			continue
		}
		if out == nil {
			p.windowsDropped.Add(1)
			p.obs.IncCounter("bci_windows_dropped_total", 1)
			p.obs.RecordDrop(win.Seq, vetoedBy, nil)
			continue
		}

		started := time.Now()
		dec, err := sess.decoder.Decide(out)
		if err != nil {
			p.fault(sess, err)
			return
		}
		lat := time.Since(started)
		p.recordLatency(lat)
		p.obs.ObserveLatency("bci_decode_latency_seconds", lat.Seconds())

		dec.SessionID = sess.id
		if err := sess.sink.OnDecision(dec); err != nil {
			p.obs.IncCounter("bci_sink_errors_total", 1)
			p.obs.LogError("sink_write_failed", err,
				Field{Key: "sink", Value: sess.sink.Name()},
				Field{Key: "window_seq", Value: dec.WindowSeq})
			continue
		}
		p.decisions.Add(1)
		p.obs.IncCounter("bci_decisions_total", 1)
	}
}

// fault transitions Running → Faulted on a fatal error. The session halts but
// its resources stay allocated until the caller acknowledges via Stop.
func (p *Pipeline) fault(sess *session, err error) {
	p.mu.Lock()
	if p.sess == sess && (p.state == StateRunning || p.state == StateStarting) {
		p.setStateLocked(StateFaulted)
		p.lastErr = err
		p.obs.LogCritical("session_faulted", err, Field{Key: "session_id", Value: sess.id})
	}
	p.mu.Unlock()

	sess.requestStop()
	sess.fatalOne.Do(func() { close(sess.fatalCh) })
	go func() { _ = sess.source.Stop() }()
}

func (p *Pipeline) setStateLocked(s State) {
	p.state = s
	p.obs.SetGauge("bci_session_state", float64(s))
}

func (p *Pipeline) startMetrics(sess *session) {
	mux := http.NewServeMux()
	handler := promhttp.Handler()
	if po, ok := p.obs.(*observability.PromObs); ok {
		handler = promhttp.HandlerFor(po.Registry(), promhttp.HandlerOpts{})
	}
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	sess.metricsSrv = &http.Server{
		Addr:    p.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := sess.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}

func (p *Pipeline) recordResourceGauges(sess *session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.stopCh:
			return
		case <-ticker.C:
			written := float64(sess.ring.Written())
			capacity := float64(sess.ring.Cap())
			if written > capacity {
				written = capacity
			}
			p.obs.SetGauge("bci_ring_fill", written/capacity)
			if sess.recorder != nil {
				p.obs.SetGauge("bci_recorder_size_bytes", float64(sess.recorder.Stats().SizeBytes))
			}
		}
	}
}

func (p *Pipeline) resetCounters() {
	p.samplesWritten.Store(0)
	p.windowsProcessed.Store(0)
	p.windowsDropped.Store(0)
	p.stageFailures.Store(0)
	p.overruns.Store(0)
	p.decisions.Store(0)

	p.latMu.Lock()
	p.latCount, p.latSum, p.latMin, p.latMax = 0, 0, 0, 0
	p.latMu.Unlock()
}

func (p *Pipeline) recordLatency(d time.Duration) {
	p.latMu.Lock()
	if p.latCount == 0 || d < p.latMin {
		p.latMin = d
	}
	if d > p.latMax {
		p.latMax = d
	}
	p.latCount++
	p.latSum += d
	p.latMu.Unlock()
}

func (p *Pipeline) latencyStats() LatencyStats {
	p.latMu.Lock()
	defer p.latMu.Unlock()
	stats := LatencyStats{
		Count: p.latCount,
		Min:   p.latMin,
		Max:   p.latMax,
	}
	if p.latCount > 0 {
		stats.Avg = p.latSum / time.Duration(p.latCount)
	}
	return stats
}

// teardown releases everything a session allocated, exactly once.
func teardown(sess *session) error {
	sess.teardownOnce.Do(func() {
		var errs []error
		if sess.metricsSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := sess.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, err)
			}
			cancel()
		}
		for _, closeFn := range sess.closers {
			if err := closeFn(); err != nil {
				errs = append(errs, err)
			}
		}
		sess.teardownErr = errors.Join(errs...)
	})
	return sess.teardownErr
}
