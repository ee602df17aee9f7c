package observability

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/david0154/David-BCI/internal/ports"
)

type PromObs struct {
	reg      *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	decisions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bci_decisions_total",
		Help: "Decisions emitted to the sink.",
	})
	windows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bci_windows_total",
		Help: "Windows cut from the ring buffer.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bci_windows_dropped_total",
		Help: "Windows vetoed by a stage before decoding.",
	})
	stageFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bci_stage_failures_total",
		Help: "Windows lost to a stage error.",
	})
	overruns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bci_ring_overruns_total",
		Help: "Windows overwritten by acquisition before the processor read them.",
	})
	sinkErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bci_sink_errors_total",
		Help: "Decision sink write failures.",
	})
	nonMonotonic := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bci_nonmonotonic_samples_total",
		Help: "Samples discarded for non-increasing timestamps.",
	})
	ringFill := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bci_ring_fill",
		Help: "Fraction of the ring buffer currently holding live samples.",
	})
	state := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bci_session_state",
		Help: "Session lifecycle state (0 idle, 1 starting, 2 running, 3 stopping, 4 faulted).",
	})
	recorderSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bci_recorder_size_bytes",
		Help: "On-disk size of the active session recording.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bci_decode_latency_seconds",
		Help:    "Latency from processed window to decision.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	// Each PromObs owns its registry so two pipelines in one process never
	// collide on metric names.
	reg := prometheus.NewRegistry()
	reg.MustRegister(decisions, windows, dropped, stageFailures, overruns, sinkErrors, nonMonotonic, ringFill, state, recorderSize, latency)

	return &PromObs{
		reg: reg,
		counters: map[string]prometheus.Counter{
			"bci_decisions_total":            decisions,
			"bci_windows_total":              windows,
			"bci_windows_dropped_total":      dropped,
			"bci_stage_failures_total":       stageFailures,
			"bci_ring_overruns_total":        overruns,
			"bci_sink_errors_total":          sinkErrors,
			"bci_nonmonotonic_samples_total": nonMonotonic,
		},
		gauges: map[string]prometheus.Gauge{
			"bci_ring_fill":           ringFill,
			"bci_session_state":       state,
			"bci_recorder_size_bytes": recorderSize,
		},
		histos: map[string]prometheus.Observer{
			"bci_decode_latency_seconds": latency,
		},
	}
}

// Registry exposes the instance registry for HTTP scraping.
func (p *PromObs) Registry() *prometheus.Registry { return p.reg }

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v", msg, err)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v", msg, err)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDrop(windowSeq uint64, stage string, err error) {
	if err != nil {
		log.Printf("window %d dropped at stage %s: %v", windowSeq, stage, err)
	}
}
