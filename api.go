package davidbci

import (
	base "github.com/david0154/David-BCI/pkg/brainflow"
)

// Re-exported errors for convenience.
var (
	ErrConfig             = base.ErrConfig
	ErrInsufficientData   = base.ErrInsufficientData
	ErrOverrun            = base.ErrOverrun
	ErrDecode             = base.ErrDecode
	ErrSourceDisconnected = base.ErrSourceDisconnected
	ErrFeedClosed         = base.ErrFeedClosed
	ErrChannelSinkClosed  = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/david0154/David-BCI directly.
type (
	Config             = base.Config
	SessionConfig      = base.SessionConfig
	StageConfig        = base.StageConfig
	SourceConfig       = base.SourceConfig
	SynthSourceConfig  = base.SynthSourceConfig
	ReplaySourceConfig = base.ReplaySourceConfig
	ModelConfig        = base.ModelConfig
	SinkConfig         = base.SinkConfig
	TimescaleConfig    = base.TimescaleConfig
	MQTTSinkConfig     = base.MQTTSinkConfig
	MetricsConfig      = base.MetricsConfig
	RecorderConfig     = base.RecorderConfig
	Policy             = base.Policy
	Flow               = base.Flow
	FlowOption         = base.FlowOption
	SignalInOption     = base.SignalInOption
	DecodeOutOption    = base.DecodeOutOption
	Pipeline           = base.Pipeline
	PipelineOption     = base.PipelineOption
	State              = base.State
	Status             = base.Status
	LatencyStats       = base.LatencyStats
	Sample             = base.Sample
	Window             = base.Window
	Decision           = base.Decision
	DecisionFunc       = base.DecisionFunc
	SampleSource       = base.SampleSource
	Capabilities       = base.Capabilities
	FeedSource         = base.FeedSource
	Stage              = base.Stage
	Model              = base.Model
	DecisionSink       = base.DecisionSink
	Recorder           = base.Recorder
	RecorderStats      = base.RecorderStats
	Observability      = base.Observability
	Field              = base.Field
)

// Session lifecycle states.
const (
	StateIdle     = base.StateIdle
	StateStarting = base.StateStarting
	StateRunning  = base.StateRunning
	StateStopping = base.StateStopping
	StateFaulted  = base.StateFaulted
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...PipelineOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func SignalInSource(src SampleSource) SignalInOption {
	return base.SignalInSource(src)
}

func SignalInRecorder(r Recorder) SignalInOption {
	return base.SignalInRecorder(r)
}

func SignalInObservability(obs Observability) SignalInOption {
	return base.SignalInObservability(obs)
}

func DecodeOutStages(stages ...Stage) DecodeOutOption {
	return base.DecodeOutStages(stages...)
}

func DecodeOutModel(m Model) DecodeOutOption {
	return base.DecodeOutModel(m)
}

func DecodeOutSink(s DecisionSink) DecodeOutOption {
	return base.DecodeOutSink(s)
}

func DecodeOutCallback(name string, fn DecisionFunc) DecodeOutOption {
	return base.DecodeOutCallback(name, fn)
}

// Pipeline and options.
func NewPipeline(cfg *Config, opts ...PipelineOption) (*Pipeline, error) {
	return base.NewPipeline(cfg, opts...)
}

func WithSource(src SampleSource) PipelineOption {
	return base.WithSource(src)
}

func WithModel(m Model) PipelineOption {
	return base.WithModel(m)
}

func WithStages(stages ...Stage) PipelineOption {
	return base.WithStages(stages...)
}

func WithSink(s DecisionSink) PipelineOption {
	return base.WithSink(s)
}

func WithRecorder(r Recorder) PipelineOption {
	return base.WithRecorder(r)
}

func WithObservability(obs Observability) PipelineOption {
	return base.WithObservability(obs)
}

func WithoutMetricsServer() PipelineOption {
	return base.WithoutMetricsServer()
}

// Push-based acquisition for hosts that own the sampling loop.
func NewFeedSource(channels int, sampleRate float64, buffer int) *FeedSource {
	return base.NewFeedSource(channels, sampleRate, buffer)
}

// Sink adapters.
func NewCallbackSink(name string, fn DecisionFunc) DecisionSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (DecisionSink, <-chan *Decision, func()) {
	return base.NewChannelSink(name, buffer)
}
