package brainflow

import (
	"context"
	"testing"
	"time"
)

func TestConfFromConfigAndFlowBuilder(t *testing.T) {
	cfg := baseConfig()

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	feed := NewFeedSource(2, 100, 64)
	sink := &collectSink{}
	m := &fixedModel{channels: 2}

	p, err := flow.
		Options(WithoutMetricsServer()).
		SignalIN(
			SignalInSource(feed),
			SignalInObservability(nopObs{}),
		).
		DecodeOUT(
			DecodeOutModel(m),
			DecodeOutSink(sink),
		)
	if err != nil {
		t.Fatalf("DecodeOUT returned error: %v", err)
	}
	if p.overrides.source != SampleSource(feed) {
		t.Fatalf("expected custom source to be wired")
	}
	if p.overrides.sink != DecisionSink(sink) {
		t.Fatalf("expected custom sink to be wired")
	}
	if p.overrides.model != Model(m) {
		t.Fatalf("expected custom model to be wired")
	}
}

func TestFlowRunStopsOnCancel(t *testing.T) {
	flow, err := ConfFromConfig(baseConfig())
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	feed := NewFeedSource(2, 100, 64)
	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		done <- flow.
			Options(WithoutMetricsServer()).
			SignalIN(
				SignalInSource(feed),
				SignalInObservability(nopObs{}),
			).
			Run(ctx,
				DecodeOutModel(&fixedModel{channels: 2}),
				DecodeOutCallback("noop", func(*Decision) error { return nil }),
			)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
