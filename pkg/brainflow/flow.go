package brainflow

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → SignalIN →
// DecodeOUT without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []PipelineOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// SignalInOption configures the acquisition side of the pipeline.
type SignalInOption func(*Flow)

// DecodeOutOption configures the stage/model/sink side of the pipeline.
type DecodeOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before
// building a pipeline.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw PipelineOption values to the builder for advanced scenarios.
func (f *Flow) Options(opts ...PipelineOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// SignalIN records acquisition-side overrides (source, recorder, observability).
func (f *Flow) SignalIN(opts ...SignalInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// DecodeOUT records decode-side overrides and builds a Pipeline ready to run.
func (f *Flow) DecodeOUT(opts ...DecodeOutOption) (*Pipeline, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewPipeline(f.cfg, f.opts...)
}

// Run is a shortcut for DecodeOUT + pipeline.Run.
func (f *Flow) Run(ctx context.Context, opts ...DecodeOutOption) error {
	p, err := f.DecodeOUT(opts...)
	if err != nil {
		return err
	}
	return p.Run(ctx)
}

// WithFlowOptions appends PipelineOption values during Conf.
func WithFlowOptions(opts ...PipelineOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// SignalInSource injects a custom acquisition source (amplifier drivers,
// simulators, push feeds).
func SignalInSource(src SampleSource) SignalInOption {
	return func(f *Flow) {
		if f != nil && src != nil {
			f.appendOptions(WithSource(src))
		}
	}
}

// SignalInRecorder lets callers bring their own recorder implementation.
func SignalInRecorder(r Recorder) SignalInOption {
	return func(f *Flow) {
		if f != nil && r != nil {
			f.appendOptions(WithRecorder(r))
		}
	}
}

// SignalInObservability overrides the default Prometheus-based observability stack.
func SignalInObservability(obs Observability) SignalInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// DecodeOutStages replaces the configured hook chain with caller-built stages.
func DecodeOutStages(stages ...Stage) DecodeOutOption {
	return func(f *Flow) {
		if f != nil && len(stages) > 0 {
			f.appendOptions(WithStages(stages...))
		}
	}
}

// DecodeOutModel binds a caller-provided decoder model.
func DecodeOutModel(m Model) DecodeOutOption {
	return func(f *Flow) {
		if f != nil && m != nil {
			f.appendOptions(WithModel(m))
		}
	}
}

// DecodeOutSink injects a custom DecisionSink implementation.
func DecodeOutSink(s DecisionSink) DecodeOutOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSink(s))
		}
	}
}

// DecodeOutCallback installs a sink built from a simple callback function.
func DecodeOutCallback(name string, fn DecisionFunc) DecodeOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithSink(NewCallbackSink(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...PipelineOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
