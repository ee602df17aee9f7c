package brainflow

import (
	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// Sample is one multi-channel signal reading as produced by an acquisition source.
type Sample = domain.Sample

// Window is a fixed-length, channels × time-points cut of the signal stream.
type Window = domain.Window

// Decision is the classifier output for one window.
type Decision = domain.Decision

// SampleSource streams samples from any acquisition device (amplifier drivers,
// MQTT bridges, OPC UA aux channels, recorded-session replay) into the pipeline.
type SampleSource = ports.SampleSource

// Capabilities is what a source declares about itself before a session starts.
type Capabilities = ports.Capabilities

// SampleRing is the bounded, lossy-overwrite buffer between acquisition and processing.
type SampleRing = ports.SampleRing

// Stage is one hook-chain processing step: transform, pass through, or veto.
type Stage = ports.Stage

// Model is a pretrained decoder bound to the session by the decoder adapter.
type Model = ports.Model

// DecisionSink consumes decisions in sequence-id order.
type DecisionSink = ports.DecisionSink

// Recorder persists the raw sample stream for offline reuse.
type Recorder = ports.Recorder

// RecorderStats exposes recorder metadata for observability.
type RecorderStats = ports.RecorderStats

// Observability emits metrics and logs about throughput, drops, and faults.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Policy controls the processing cadence and stage failure recovery.
type Policy = ports.Policy

// Sentinel errors re-exported so embedding callers can classify failures with
// errors.Is without importing internal packages.
var (
	ErrConfig             = ports.ErrConfig
	ErrInsufficientData   = ports.ErrInsufficientData
	ErrOverrun            = ports.ErrOverrun
	ErrDecode             = ports.ErrDecode
	ErrSourceDisconnected = ports.ErrSourceDisconnected
)
