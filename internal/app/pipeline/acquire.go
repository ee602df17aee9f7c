package pipeline

import (
	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// RunAcquisition drains the source channel into the ring buffer until stop is
// signalled or the channel closes. A close without a stop request means the
// source went away and is reported as ErrSourceDisconnected.
//
// Pushing never waits on the processing side; the ring's overwrite semantics
// bound acquisition latency by construction. Recording is best-effort: the
// first recorder error is logged and recording is disabled for the session.
func RunAcquisition(ring ports.SampleRing, rec ports.Recorder, in <-chan *domain.Sample, stop <-chan struct{}, obs ports.Observability) error {
	var (
		lastTS    int64
		haveTS    bool
		recBroken bool
	)

	for {
		select {
		case <-stop:
			return nil
		case s, ok := <-in:
			if !ok {
				select {
				case <-stop:
					return nil
				default:
					return ports.ErrSourceDisconnected
				}
			}
			if s == nil || len(s.Values) == 0 {
				continue
			}

			ns := s.Timestamp.UnixNano()
			if haveTS && ns <= lastTS {
				obs.IncCounter("bci_nonmonotonic_samples_total", 1)
				continue
			}
			lastTS, haveTS = ns, true

			ring.Push(s)

			if rec != nil && !recBroken {
				if err := rec.Append(s); err != nil {
					obs.LogError("recorder_append_failed", err,
						ports.Field{Key: "seq", Value: s.Seq})
					recBroken = true
				}
			}
		}
	}
}
