package ring

import (
	"sync"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// Ring is a mutex-guarded circular sample store with overwrite semantics.
// Push is O(1) and never blocks on reader progress; the lock is held only for
// the slot assignment on the write side and for the copy on the read side, so
// acquisition latency stays bounded.
type Ring struct {
	mu      sync.Mutex
	slots   []*domain.Sample
	written uint64
}

func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{slots: make([]*domain.Sample, capacity)}
}

func (r *Ring) Push(s *domain.Sample) {
	r.mu.Lock()
	r.slots[r.written%uint64(len(r.slots))] = s
	r.written++
	r.mu.Unlock()
}

func (r *Ring) ReadAt(end uint64, length int) ([]*domain.Sample, error) {
	if length <= 0 || end < uint64(length) {
		return nil, ports.ErrInsufficientData
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.written < end {
		return nil, ports.ErrInsufficientData
	}
	start := end - uint64(length)
	if r.written-start > uint64(len(r.slots)) {
		return nil, ports.ErrOverrun
	}

	out := make([]*domain.Sample, length)
	for i := uint64(0); i < uint64(length); i++ {
		out[i] = r.slots[(start+i)%uint64(len(r.slots))]
	}
	return out, nil
}

func (r *Ring) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

func (r *Ring) Cap() int { return len(r.slots) }

var _ ports.SampleRing = (*Ring)(nil)
