package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/david0154/David-BCI/internal/adapters/ring"
	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

type countingObs struct {
	mu       sync.Mutex
	counters map[string]float64
	errs     int
}

func newCountingObs() *countingObs {
	return &countingObs{counters: map[string]float64{}}
}

func (o *countingObs) LogInfo(msg string, fields ...ports.Field) {}

func (o *countingObs) LogError(msg string, err error, fields ...ports.Field) {
	o.mu.Lock()
	o.errs++
	o.mu.Unlock()
}

func (o *countingObs) LogCritical(msg string, err error, fields ...ports.Field) {}

func (o *countingObs) IncCounter(name string, v float64) {
	o.mu.Lock()
	o.counters[name] += v
	o.mu.Unlock()
}

func (o *countingObs) ObserveLatency(name string, seconds float64)        {}
func (o *countingObs) SetGauge(name string, v float64)                    {}
func (o *countingObs) RecordDrop(windowSeq uint64, stage string, e error) {}

func (o *countingObs) counter(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counters[name]
}

func TestRunAcquisitionStopsCleanly(t *testing.T) {
	r := ring.New(16)
	in := make(chan *domain.Sample)
	stop := make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- RunAcquisition(r, nil, in, stop, newCountingObs()) }()

	in <- &domain.Sample{Timestamp: time.Unix(1, 0), Values: []float64{1}}
	close(stop)

	if err := <-done; err != nil {
		t.Fatalf("stop must be a clean exit, got %v", err)
	}
	if r.Written() != 1 {
		t.Fatalf("written = %d", r.Written())
	}
}

func TestRunAcquisitionReportsDisconnect(t *testing.T) {
	r := ring.New(16)
	in := make(chan *domain.Sample)
	stop := make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- RunAcquisition(r, nil, in, stop, newCountingObs()) }()

	close(in)

	if err := <-done; !errors.Is(err, ports.ErrSourceDisconnected) {
		t.Fatalf("expected ErrSourceDisconnected, got %v", err)
	}
}

func TestRunAcquisitionDropsNonMonotonicSamples(t *testing.T) {
	r := ring.New(16)
	obs := newCountingObs()
	in := make(chan *domain.Sample, 4)
	stop := make(chan struct{})

	in <- &domain.Sample{Timestamp: time.Unix(10, 0), Values: []float64{1}}
	in <- &domain.Sample{Timestamp: time.Unix(9, 0), Values: []float64{2}}  // goes backwards
	in <- &domain.Sample{Timestamp: time.Unix(10, 0), Values: []float64{3}} // repeats
	in <- &domain.Sample{Timestamp: time.Unix(11, 0), Values: []float64{4}}
	close(in)

	err := RunAcquisition(r, nil, in, stop, obs)
	if !errors.Is(err, ports.ErrSourceDisconnected) {
		t.Fatalf("unexpected exit: %v", err)
	}
	if r.Written() != 2 {
		t.Fatalf("expected 2 accepted samples, got %d", r.Written())
	}
	if got := obs.counter("bci_nonmonotonic_samples_total"); got != 2 {
		t.Fatalf("nonmonotonic counter = %f", got)
	}
}

type failingRecorder struct {
	appends int
}

func (f *failingRecorder) Append(s *domain.Sample) error {
	f.appends++
	return errors.New("disk full")
}

func (f *failingRecorder) Iterate(from uint64, fn func(*domain.Sample) error) error { return nil }
func (f *failingRecorder) Stats() ports.RecorderStats                               { return ports.RecorderStats{} }
func (f *failingRecorder) Close() error                                             { return nil }

func TestRunAcquisitionDisablesBrokenRecorder(t *testing.T) {
	r := ring.New(16)
	obs := newCountingObs()
	rec := &failingRecorder{}
	in := make(chan *domain.Sample, 3)
	stop := make(chan struct{})

	for i := 0; i < 3; i++ {
		in <- &domain.Sample{Timestamp: time.Unix(int64(i+1), 0), Values: []float64{1}}
	}
	close(in)

	_ = RunAcquisition(r, rec, in, stop, obs)

	if rec.appends != 1 {
		t.Fatalf("recorder must be disabled after the first failure, got %d appends", rec.appends)
	}
	if obs.errs != 1 {
		t.Fatalf("expected one logged error, got %d", obs.errs)
	}
	if r.Written() != 3 {
		t.Fatal("recorder failure must not interrupt acquisition")
	}
}
