package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/david0154/David-BCI/internal/adapters/ring"
	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

func feed(r ports.SampleRing, from, count uint64, rate float64) {
	period := time.Duration(float64(time.Second) / rate)
	base := time.Unix(1000, 0)
	for seq := from; seq < from+count; seq++ {
		r.Push(&domain.Sample{
			Timestamp: base.Add(time.Duration(seq) * period),
			Seq:       seq,
			Values:    []float64{float64(seq), -float64(seq)},
		})
	}
}

func TestWindowerCadenceAndSequenceIDs(t *testing.T) {
	const (
		rate   = 100.0
		length = 100
		step   = 50
	)
	r := ring.New(1000)
	w := NewWindower(r, length, step, rate)

	if _, err := w.Next(); !errors.Is(err, ports.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData before first window, got %v", err)
	}

	// 5 seconds of feed at 100 Hz: windows end at 100, 150, ..., 500.
	feed(r, 0, 500, rate)

	var wins []*domain.Window
	for {
		win, err := w.Next()
		if errors.Is(err, ports.ErrInsufficientData) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected windower error: %v", err)
		}
		wins = append(wins, win)
	}

	if len(wins) != 9 {
		t.Fatalf("expected 9 windows from 500 samples, got %d", len(wins))
	}
	stepDur := time.Duration(float64(step) / rate * float64(time.Second))
	for i, win := range wins {
		if win.Seq != uint64(i) {
			t.Fatalf("window %d has seq %d", i, win.Seq)
		}
		if win.TimePoints() != length || win.Channels() != 2 {
			t.Fatalf("window %d has shape %dx%d", i, win.Channels(), win.TimePoints())
		}
		if i > 0 {
			gap := win.StartAt.Sub(wins[i-1].StartAt)
			if gap != stepDur {
				t.Fatalf("window %d starts %s after previous, expected %s", i, gap, stepDur)
			}
		}
	}

	// First window starts at sample 0, second at sample step.
	if wins[0].Data[0][0] != 0 || wins[1].Data[0][0] != float64(step) {
		t.Fatalf("windows not aligned to the sample grid: %f, %f",
			wins[0].Data[0][0], wins[1].Data[0][0])
	}
}

// burstRing injects a batch of pushes between the cadence check and the
// read, the interleaving an acquisition burst produces when frames arrive
// faster than the processor drains them.
type burstRing struct {
	*ring.Ring
	burst uint64
	rate  float64
	next  uint64
}

func (b *burstRing) ReadAt(end uint64, length int) ([]*domain.Sample, error) {
	feed(b.Ring, b.next, b.burst, b.rate)
	b.next += b.burst
	return b.Ring.ReadAt(end, length)
}

func TestWindowerCutStaysPinnedUnderBursts(t *testing.T) {
	const (
		rate   = 100.0
		length = 10
		step   = 5
	)
	br := &burstRing{Ring: ring.New(128), burst: 30, rate: rate}
	w := NewWindower(br, length, step, rate)

	feed(br.Ring, 0, length, rate)
	br.next = length

	first, err := w.Next()
	if err != nil {
		t.Fatalf("first window: %v", err)
	}
	second, err := w.Next()
	if err != nil {
		t.Fatalf("second window: %v", err)
	}

	// Bursts landing mid-read must not slide the cut forward.
	if first.Data[0][0] != 0 || second.Data[0][0] != float64(step) {
		t.Fatalf("cut slid under burst: windows start at samples %f and %f",
			first.Data[0][0], second.Data[0][0])
	}
	stepDur := time.Duration(float64(step) / rate * float64(time.Second))
	if gap := second.StartAt.Sub(first.StartAt); gap != stepDur {
		t.Fatalf("expected windows %s apart, got %s", stepDur, gap)
	}
}

func TestWindowerRealignsAfterOverrun(t *testing.T) {
	const (
		rate   = 100.0
		length = 10
		step   = 5
	)
	r := ring.New(16)
	w := NewWindower(r, length, step, rate)

	feed(r, 0, 10, rate)
	if _, err := w.Next(); err != nil {
		t.Fatalf("first window: %v", err)
	}

	// Lap the reader: the pending cut at 15 is long overwritten.
	feed(r, 10, 100, rate)

	if _, err := w.Next(); !errors.Is(err, ports.ErrOverrun) {
		t.Fatalf("expected ErrOverrun, got %v", err)
	}

	// After realignment the freshest complete window is readable.
	win, err := w.Next()
	if err != nil {
		t.Fatalf("expected realigned window, got %v", err)
	}
	if win.Seq != 1 {
		t.Fatalf("sequence ids must keep increasing, got %d", win.Seq)
	}
	if first := win.Data[0][0]; first != float64(110-length) {
		t.Fatalf("expected realigned window to end at the head, starts at %f", first)
	}
}
