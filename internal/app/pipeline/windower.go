package pipeline

import (
	"errors"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// Windower cuts fixed-length, possibly overlapping windows out of the ring
// on a sample-count cadence: the first window completes when length samples
// have been written, each following one step samples later. Cutting by
// sample count rather than wall clock keeps decoding aligned with the signal
// even when the acquisition rate drifts from nominal.
type Windower struct {
	ring       ports.SampleRing
	length     int
	step       int
	sampleRate float64

	nextCut uint64 // stream position at which the next window completes
	seq     uint64
}

func NewWindower(ring ports.SampleRing, length, step int, sampleRate float64) *Windower {
	return &Windower{
		ring:       ring,
		length:     length,
		step:       step,
		sampleRate: sampleRate,
		nextCut:    uint64(length),
	}
}

// Next returns the next due window. ErrInsufficientData means the cadence
// point has not been reached yet; the caller skips the tick and retries.
// ErrOverrun means acquisition lapped the processor past the pending cut;
// the windower realigns to the freshest complete window and the caller
// counts the overrun.
func (w *Windower) Next() (*domain.Window, error) {
	written := w.ring.Written()
	if written < w.nextCut {
		return nil, ports.ErrInsufficientData
	}

	// Reading at the absolute cut position pins the window even while the
	// acquisition side keeps pushing: a burst between the Written check and
	// the read either leaves the range intact or surfaces as ErrOverrun,
	// never as a silently slid cut.
	samples, err := w.ring.ReadAt(w.nextCut, w.length)
	if err != nil {
		if errors.Is(err, ports.ErrOverrun) {
			w.nextCut = w.ring.Written()
		}
		return nil, err
	}

	win := buildWindow(samples, w.seq, w.sampleRate)
	w.seq++
	w.nextCut += uint64(w.step)
	return win, nil
}

// buildWindow transposes time-major samples into the channels × time-points
// layout the stages and models consume.
func buildWindow(samples []*domain.Sample, seq uint64, sampleRate float64) *domain.Window {
	channels := len(samples[0].Values)
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, len(samples))
	}
	for i, s := range samples {
		for ch := 0; ch < channels && ch < len(s.Values); ch++ {
			data[ch][i] = s.Values[ch]
		}
	}
	return &domain.Window{
		Seq:        seq,
		StartAt:    samples[0].Timestamp,
		SampleRate: sampleRate,
		Data:       data,
	}
}
