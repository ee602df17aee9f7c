package ports

import "github.com/david0154/David-BCI/internal/domain"

// Stage is one named preprocessing transform in the hook chain. Apply may
// return a transformed window (possibly with a different time-point count),
// veto the window by returning (nil, nil), or fail with an error. A failure
// aborts only that window's processing; the chain recovers the stage
// according to policy and continues with the next window.
//
// A stage may carry state across windows (e.g. a running normalizer) but must
// not share state with other stages except through the window itself.
type Stage interface {
	Name() string
	Apply(w *domain.Window) (*domain.Window, error)
	Reset()
}
