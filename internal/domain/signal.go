package domain

import "time"

// Sample is one timestamped multichannel reading from an acquisition source.
// Values holds exactly one reading per channel; the channel count is fixed
// for the lifetime of a session. Samples are immutable once pushed into the
// ring buffer.
type Sample struct {
	Timestamp time.Time `json:"ts"`
	Seq       uint64    `json:"seq"`
	Values    []float64 `json:"values"`
}

// Window is a fixed-size slice of consecutive samples, laid out channels ×
// time-points, plus the metadata needed to correlate downstream decisions.
// A Window is immutable once built; stages that reshape or rewrite data must
// return a new Window.
type Window struct {
	Seq        uint64
	StartAt    time.Time
	SampleRate float64
	Data       [][]float64
}

// Channels reports the channel count of the window.
func (w *Window) Channels() int { return len(w.Data) }

// TimePoints reports the number of samples per channel.
func (w *Window) TimePoints() int {
	if len(w.Data) == 0 {
		return 0
	}
	return len(w.Data[0])
}

// Clone deep-copies the window so a stage can rewrite values without
// violating the read-only contract on its input.
func (w *Window) Clone() *Window {
	data := make([][]float64, len(w.Data))
	for ch, row := range w.Data {
		data[ch] = append([]float64(nil), row...)
	}
	return &Window{
		Seq:        w.Seq,
		StartAt:    w.StartAt,
		SampleRate: w.SampleRate,
		Data:       data,
	}
}

// Decision is the output of decoding one window. WindowSeq and At identify
// the originating window so the paradigm/UI side can correlate control
// outputs with stimuli.
type Decision struct {
	SessionID  string    `json:"session_id"`
	WindowSeq  uint64    `json:"window_seq"`
	At         time.Time `json:"at"`
	Label      int       `json:"label"`
	Confidence float64   `json:"confidence"`
	Value      float64   `json:"value,omitempty"`
}
