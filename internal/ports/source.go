package ports

import "github.com/david0154/David-BCI/internal/domain"

// Capabilities declares what an acquisition source produces. Start validates
// the session configuration against these before any buffer is allocated.
type Capabilities struct {
	Channels   int
	SampleRate float64
}

// SampleSource streams timestamped multichannel samples from any acquisition
// backend (amplifier gateway, simulator, recorded-session replay). Timestamps
// must be strictly monotonic within one source. A source signals permanent
// disconnection by closing the out channel; the pipeline treats that as fatal
// unless a stop was requested first.
type SampleSource interface {
	Describe() Capabilities
	Start(out chan<- *domain.Sample) error
	Stop() error
}
