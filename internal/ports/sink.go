package ports

import "github.com/david0154/David-BCI/internal/domain"

// DecisionSink receives decisions in non-decreasing window-sequence order,
// once per non-vetoed window. Sink errors are counted and logged but do not
// fault the session.
type DecisionSink interface {
	OnDecision(d *domain.Decision) error
	Name() string
}
