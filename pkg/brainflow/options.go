package brainflow

// PipelineOption customizes the dependencies used by Pipeline.
type PipelineOption func(*pipelineOverrides)

type pipelineOverrides struct {
	source        SampleSource
	model         Model
	stages        []Stage
	sink          DecisionSink
	recorder      Recorder
	observability Observability
	noMetricsSrv  bool
}

// WithSource injects a custom acquisition source (device drivers, simulators,
// push-based feeds) in place of the configured one.
func WithSource(src SampleSource) PipelineOption {
	return func(o *pipelineOverrides) {
		o.source = src
	}
}

// WithModel binds a caller-provided decoder model instead of a built-in one.
func WithModel(m Model) PipelineOption {
	return func(o *pipelineOverrides) {
		o.model = m
	}
}

// WithStages replaces the configured hook chain with caller-constructed stages,
// applied in the given order.
func WithStages(stages ...Stage) PipelineOption {
	return func(o *pipelineOverrides) {
		o.stages = stages
	}
}

// WithSink injects a custom decision sink so decisions can be delivered to any
// downstream system (UI loops, message brokers, databases).
func WithSink(s DecisionSink) PipelineOption {
	return func(o *pipelineOverrides) {
		o.sink = s
	}
}

// WithRecorder lets callers bring their own recorder or reuse an existing instance.
func WithRecorder(r Recorder) PipelineOption {
	return func(o *pipelineOverrides) {
		o.recorder = r
	}
}

// WithObservability plugs in a custom observability backend (OpenTelemetry,
// structured logs, etc.).
func WithObservability(obs Observability) PipelineOption {
	return func(o *pipelineOverrides) {
		o.observability = obs
	}
}

// WithoutMetricsServer disables the embedded /metrics HTTP listener, for hosts
// that already expose a Prometheus registry of their own.
func WithoutMetricsServer() PipelineOption {
	return func(o *pipelineOverrides) {
		o.noMetricsSrv = true
	}
}
