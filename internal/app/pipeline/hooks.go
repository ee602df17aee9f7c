package pipeline

import (
	"fmt"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// HookChain applies the configured stages in order. Each stage may transform
// the window, veto it, or fail; a failure aborts only that window and the
// failing stage is recovered according to policy before the next one.
type HookChain struct {
	stages       []ports.Stage
	resetOnError bool
}

func NewHookChain(stages []ports.Stage, pol ports.Policy) *HookChain {
	return &HookChain{
		stages:       stages,
		resetOnError: pol.StageRecovery != "keep",
	}
}

// Run pushes one window through the chain. It returns the transformed window,
// or nil with vetoedBy set when a stage dropped the window, or nil with a
// non-nil error on stage failure.
func (c *HookChain) Run(w *domain.Window) (out *domain.Window, vetoedBy string, err error) {
	out = w
	for _, st := range c.stages {
		next, stageErr := applyStage(st, out)
		if stageErr != nil {
			if c.resetOnError {
				st.Reset()
			}
			return nil, "", fmt.Errorf("stage %s: %w", st.Name(), stageErr)
		}
		if next == nil {
			return nil, st.Name(), nil
		}
		out = next
	}
	return out, "", nil
}

// Reset reinitializes every stage, called between sessions.
func (c *HookChain) Reset() {
	for _, st := range c.stages {
		st.Reset()
	}
}

// applyStage isolates a panicking stage: third-party transforms must not be
// able to take the session down.
func applyStage(st ports.Stage, w *domain.Window) (out *domain.Window, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return st.Apply(w)
}
