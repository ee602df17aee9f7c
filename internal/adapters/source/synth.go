package source

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// SynthConfig describes a simulated multichannel signal: per-channel
// phase-shifted sinusoids plus gaussian noise at a fixed nominal rate.
type SynthConfig struct {
	Channels   int     `yaml:"channels"`
	SampleRate float64 `yaml:"sample_rate"`
	Frequency  float64 `yaml:"frequency"`
	Amplitude  float64 `yaml:"amplitude"`
	Noise      float64 `yaml:"noise"`
	Seed       int64   `yaml:"seed"`
}

func (c *SynthConfig) applyDefaults(channels int, sampleRate float64) {
	if c.Channels == 0 {
		c.Channels = channels
	}
	if c.SampleRate == 0 {
		c.SampleRate = sampleRate
	}
	if c.Frequency == 0 {
		c.Frequency = 10 // alpha band
	}
	if c.Amplitude == 0 {
		c.Amplitude = 1
	}
}

func (c *SynthConfig) validate() error {
	if c.Channels <= 0 {
		return errors.New("synth: channels must be > 0")
	}
	if c.SampleRate <= 0 {
		return errors.New("synth: sample_rate must be > 0")
	}
	return nil
}

// Synth generates samples on a coarse wall-clock tick, back-filling however
// many sample periods elapsed so the emitted count tracks the nominal rate
// while timestamps stay exactly on the sample grid.
type Synth struct {
	cfg SynthConfig

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSynth(cfg SynthConfig) *Synth {
	return &Synth{cfg: cfg}
}

func (s *Synth) Describe() ports.Capabilities {
	return ports.Capabilities{Channels: s.cfg.Channels, SampleRate: s.cfg.SampleRate}
}

func (s *Synth) Start(out chan<- *domain.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("synth source already started")
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(out, s.stopCh, s.doneCh)
	return nil
}

func (s *Synth) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	return nil
}

func (s *Synth) run(out chan<- *domain.Sample, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	period := time.Duration(float64(time.Second) / s.cfg.SampleRate)
	start := time.Now()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	var emitted uint64
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		target := uint64(time.Since(start) / period)
		for emitted < target {
			sample := s.synthesize(rng, start, emitted, period)
			select {
			case <-stopCh:
				return
			case out <- sample:
			}
			emitted++
		}
	}
}

func (s *Synth) synthesize(rng *rand.Rand, start time.Time, seq uint64, period time.Duration) *domain.Sample {
	t := float64(seq) / s.cfg.SampleRate
	values := make([]float64, s.cfg.Channels)
	for ch := range values {
		phase := 2 * math.Pi * float64(ch) / float64(s.cfg.Channels)
		values[ch] = s.cfg.Amplitude*math.Sin(2*math.Pi*s.cfg.Frequency*t+phase) +
			s.cfg.Noise*rng.NormFloat64()
	}
	return &domain.Sample{
		Timestamp: start.Add(time.Duration(seq) * period),
		Seq:       seq,
		Values:    values,
	}
}

var _ ports.SampleSource = (*Synth)(nil)
