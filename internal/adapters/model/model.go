package model

import (
	"fmt"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// Config selects one of the built-in model bindings. Real decoders are fit
// offline and injected programmatically; these exist for demos, replay
// sessions, and tests.
type Config struct {
	Type string `yaml:"type"` // constant | bandpower

	// constant
	Label      int     `yaml:"label"`
	Confidence float64 `yaml:"confidence"`

	// bandpower
	Channel   int     `yaml:"channel"`
	Threshold float64 `yaml:"threshold"`
}

func New(cfg Config, channels, timePoints int) (ports.Model, error) {
	switch cfg.Type {
	case "constant":
		conf := cfg.Confidence
		if conf == 0 {
			conf = 1
		}
		return &Constant{Lbl: cfg.Label, Conf: conf, Ch: channels, TP: timePoints}, nil
	case "bandpower":
		if cfg.Threshold <= 0 {
			return nil, fmt.Errorf("bandpower: threshold must be > 0")
		}
		return &BandPower{Channel: cfg.Channel, Threshold: cfg.Threshold, Ch: channels}, nil
	case "":
		return nil, fmt.Errorf("model type is required")
	default:
		return nil, fmt.Errorf("unknown model type %q", cfg.Type)
	}
}

// Constant always returns the same decision. TP of zero accepts any window
// length.
type Constant struct {
	Lbl  int
	Conf float64
	Ch   int
	TP   int
}

func (m *Constant) Channels() int   { return m.Ch }
func (m *Constant) TimePoints() int { return m.TP }

func (m *Constant) Predict(w *domain.Window) (*domain.Decision, error) {
	return &domain.Decision{
		WindowSeq:  w.Seq,
		At:         w.StartAt,
		Label:      m.Lbl,
		Confidence: m.Conf,
	}, nil
}

// BandPower is a toy binary readout: mean squared amplitude of one channel
// against a threshold. It stands in for a fitted decoder in demos; anything
// real comes from the offline algorithm library.
type BandPower struct {
	Channel   int
	Threshold float64
	Ch        int
}

func (m *BandPower) Channels() int   { return m.Ch }
func (m *BandPower) TimePoints() int { return 0 }

func (m *BandPower) Predict(w *domain.Window) (*domain.Decision, error) {
	if m.Channel < 0 || m.Channel >= w.Channels() {
		return nil, fmt.Errorf("bandpower: channel %d out of range", m.Channel)
	}
	row := w.Data[m.Channel]
	if len(row) == 0 {
		return nil, fmt.Errorf("bandpower: empty window")
	}

	var power float64
	for _, v := range row {
		power += v * v
	}
	power /= float64(len(row))

	label := 0
	if power > m.Threshold {
		label = 1
	}
	// Confidence grows with distance from the threshold, clamped to [0.5, 1).
	conf := 0.5 + 0.5*(1-m.Threshold/(m.Threshold+absDiff(power, m.Threshold)))
	return &domain.Decision{
		WindowSeq:  w.Seq,
		At:         w.StartAt,
		Label:      label,
		Confidence: conf,
		Value:      power,
	}, nil
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

var (
	_ ports.Model = (*Constant)(nil)
	_ ports.Model = (*BandPower)(nil)
)
