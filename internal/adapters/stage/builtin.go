package stage

import (
	"fmt"
	"math"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

func init() {
	Register("identity", func(map[string]float64) (ports.Stage, error) {
		return Identity{}, nil
	})
	Register("zscore", func(map[string]float64) (ports.Stage, error) {
		return &ZScore{}, nil
	})
	Register("artifact_gate", func(params map[string]float64) (ports.Stage, error) {
		maxAmp := params["max_amp"]
		if maxAmp <= 0 {
			return nil, fmt.Errorf("artifact_gate: max_amp must be > 0")
		}
		return &ArtifactGate{MaxAmp: maxAmp}, nil
	})
	Register("decimate", func(params map[string]float64) (ports.Stage, error) {
		factor := int(params["factor"])
		if factor < 2 {
			return nil, fmt.Errorf("decimate: factor must be >= 2")
		}
		return &Decimate{Factor: factor}, nil
	})
}

// Identity passes windows through untouched. Useful as a placeholder and in
// pipeline tests.
type Identity struct{}

func (Identity) Name() string                                   { return "identity" }
func (Identity) Apply(w *domain.Window) (*domain.Window, error) { return w, nil }
func (Identity) Reset()                                         {}

// ZScore normalizes each channel against running per-channel mean/variance
// accumulated across windows. State updates once per emitted window, also
// when windows overlap.
type ZScore struct {
	count float64
	mean  []float64
	m2    []float64
}

func (z *ZScore) Name() string { return "zscore" }

func (z *ZScore) Apply(w *domain.Window) (*domain.Window, error) {
	if len(z.mean) != w.Channels() {
		z.Reset()
		z.mean = make([]float64, w.Channels())
		z.m2 = make([]float64, w.Channels())
	}

	// Welford update with the window's per-channel mean as one observation.
	z.count++
	for ch, row := range w.Data {
		var sum float64
		for _, v := range row {
			sum += v
		}
		obs := sum / float64(len(row))
		delta := obs - z.mean[ch]
		z.mean[ch] += delta / z.count
		z.m2[ch] += delta * (obs - z.mean[ch])
	}

	out := w.Clone()
	for ch, row := range out.Data {
		std := 1.0
		if z.count > 1 {
			if v := z.m2[ch] / (z.count - 1); v > 0 {
				std = math.Sqrt(v)
			}
		}
		for i, v := range row {
			row[i] = (v - z.mean[ch]) / std
		}
	}
	return out, nil
}

func (z *ZScore) Reset() {
	z.count = 0
	z.mean = nil
	z.m2 = nil
}

// ArtifactGate vetoes windows containing amplitudes beyond MaxAmp, the usual
// blink/motion rejection cutoff.
type ArtifactGate struct {
	MaxAmp float64
}

func (g *ArtifactGate) Name() string { return "artifact_gate" }

func (g *ArtifactGate) Apply(w *domain.Window) (*domain.Window, error) {
	for _, row := range w.Data {
		for _, v := range row {
			if math.Abs(v) > g.MaxAmp || math.IsNaN(v) {
				return nil, nil // veto
			}
		}
	}
	return w, nil
}

func (g *ArtifactGate) Reset() {}

// Decimate keeps every Factor-th time point, shrinking the window's
// time-point count. No anti-alias filtering; pair with an upstream low-pass
// stage when that matters.
type Decimate struct {
	Factor int
}

func (d *Decimate) Name() string { return "decimate" }

func (d *Decimate) Apply(w *domain.Window) (*domain.Window, error) {
	if d.Factor < 2 {
		return nil, fmt.Errorf("decimate: factor must be >= 2, got %d", d.Factor)
	}
	points := (w.TimePoints() + d.Factor - 1) / d.Factor
	data := make([][]float64, w.Channels())
	for ch, row := range w.Data {
		out := make([]float64, 0, points)
		for i := 0; i < len(row); i += d.Factor {
			out = append(out, row[i])
		}
		data[ch] = out
	}
	return &domain.Window{
		Seq:        w.Seq,
		StartAt:    w.StartAt,
		SampleRate: w.SampleRate / float64(d.Factor),
		Data:       data,
	}, nil
}

func (d *Decimate) Reset() {}
