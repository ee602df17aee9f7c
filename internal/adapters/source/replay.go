package source

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/david0154/David-BCI/internal/adapters/recorder"
	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// ReplayConfig points a session at a recorded sample log instead of live
// hardware. With Realtime set, inter-sample gaps are reproduced from the
// recorded timestamps; otherwise the recording is replayed as fast as the
// pipeline consumes it.
type ReplayConfig struct {
	Dir        string  `yaml:"dir"`
	Channels   int     `yaml:"channels"`
	SampleRate float64 `yaml:"sample_rate"`
	Realtime   bool    `yaml:"realtime"`
	From       uint64  `yaml:"from"`
}

func (c *ReplayConfig) applyDefaults(channels int, sampleRate float64) {
	if c.Channels == 0 {
		c.Channels = channels
	}
	if c.SampleRate == 0 {
		c.SampleRate = sampleRate
	}
}

func (c *ReplayConfig) validate() error {
	if c.Dir == "" {
		return errors.New("replay: dir is required")
	}
	if c.Channels <= 0 {
		return errors.New("replay: channels must be > 0")
	}
	if c.SampleRate <= 0 {
		return errors.New("replay: sample_rate must be > 0")
	}
	return nil
}

// Replay streams a recorded session back through the online pipeline. The
// out channel is closed at end of recording, which the orchestrator treats
// as a source disconnection unless a stop was requested first.
type Replay struct {
	cfg ReplayConfig

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReplay(cfg ReplayConfig) *Replay {
	return &Replay{cfg: cfg}
}

func (r *Replay) Describe() ports.Capabilities {
	return ports.Capabilities{Channels: r.cfg.Channels, SampleRate: r.cfg.SampleRate}
}

func (r *Replay) Start(out chan<- *domain.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("replay source already started")
	}

	rec, err := recorder.NewFileRecorder(r.cfg.Dir)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	if rec.Stats().Samples == 0 {
		_ = rec.Close()
		return fmt.Errorf("recording in %s is empty", r.cfg.Dir)
	}

	r.started = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	go r.run(rec, out, r.stopCh, r.doneCh)
	return nil
}

func (r *Replay) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)
	<-doneCh
	return nil
}

var errReplayStopped = errors.New("replay stopped")

func (r *Replay) run(rec *recorder.FileRecorder, out chan<- *domain.Sample, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer close(out)
	defer rec.Close()

	var prev time.Time
	err := rec.Iterate(r.cfg.From, func(s *domain.Sample) error {
		if r.cfg.Realtime && !prev.IsZero() {
			if gap := s.Timestamp.Sub(prev); gap > 0 {
				select {
				case <-stopCh:
					return errReplayStopped
				case <-time.After(gap):
				}
			}
		}
		prev = s.Timestamp

		select {
		case <-stopCh:
			return errReplayStopped
		case out <- s:
			return nil
		}
	})
	if err != nil && !errors.Is(err, errReplayStopped) {
		// End of usable data; channel close below signals disconnection.
		return
	}
}

var _ ports.SampleSource = (*Replay)(nil)
