package pipeline

import (
	"fmt"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// Decoder binds exactly one pretrained model to the session. It performs no
// numeric work itself: it validates the shape contract and marshals windows
// in and decisions out, so model implementations can be swapped without
// touching the pipeline.
type Decoder struct {
	model ports.Model
}

func NewDecoder(m ports.Model) *Decoder {
	return &Decoder{model: m}
}

// ValidateSession checks the statically-knowable part of the shape contract
// before the session starts, so a mis-bound model is a ConfigError at Start
// rather than a fault mid-run.
func (d *Decoder) ValidateSession(channels int) error {
	if d.model == nil {
		return fmt.Errorf("%w: no model bound", ports.ErrConfig)
	}
	if mc := d.model.Channels(); mc != 0 && mc != channels {
		return fmt.Errorf("%w: model expects %d channels, session has %d",
			ports.ErrConfig, mc, channels)
	}
	return nil
}

// Decide runs one processed window through the model. Any shape rejection or
// model error is wrapped as ErrDecode: the session's configured shape
// contract is broken and continuing would risk plausible-looking but wrong
// decisions.
func (d *Decoder) Decide(w *domain.Window) (*domain.Decision, error) {
	if mc := d.model.Channels(); mc != 0 && mc != w.Channels() {
		return nil, fmt.Errorf("%w: window has %d channels, model expects %d",
			ports.ErrDecode, w.Channels(), mc)
	}
	if tp := d.model.TimePoints(); tp != 0 && tp != w.TimePoints() {
		return nil, fmt.Errorf("%w: window has %d time points, model expects %d",
			ports.ErrDecode, w.TimePoints(), tp)
	}

	dec, err := d.model.Predict(w)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrDecode, err)
	}
	if dec == nil {
		return nil, fmt.Errorf("%w: model returned no decision", ports.ErrDecode)
	}

	// The adapter owns correlation metadata; models only produce the output.
	dec.WindowSeq = w.Seq
	dec.At = w.StartAt
	return dec, nil
}
