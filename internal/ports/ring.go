package ports

import "github.com/david0154/David-BCI/internal/domain"

// SampleRing is the single hand-off point between the acquisition and
// processing contexts: a fixed-capacity circular store with lossy overwrite
// semantics. Push must complete in bounded time regardless of reader
// progress, and a read must never observe a half-written slot.
//
// Exactly one goroutine calls Push; any number may call ReadAt.
type SampleRing interface {
	// Push appends a sample, overwriting the oldest when full.
	Push(s *domain.Sample)

	// ReadAt returns the length samples ending at absolute stream position
	// end (exclusive), in push order. The position is pinned: samples
	// pushed concurrently never slide the returned range. It fails with
	// ErrInsufficientData if end has not been reached yet, and with
	// ErrOverrun if any of the requested range has been overwritten.
	ReadAt(end uint64, length int) ([]*domain.Sample, error)

	// Written reports the total number of samples pushed since creation.
	Written() uint64

	// Cap reports the fixed capacity.
	Cap() int
}
