package ring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

func sample(seq uint64) *domain.Sample {
	return &domain.Sample{
		Timestamp: time.Unix(0, int64(seq)*int64(time.Millisecond)),
		Seq:       seq,
		Values:    []float64{float64(seq)},
	}
}

func TestReadAtReturnsRangeInPushOrder(t *testing.T) {
	r := New(8)
	for seq := uint64(0); seq < 6; seq++ {
		r.Push(sample(seq))
	}

	got, err := r.ReadAt(6, 4)
	if err != nil {
		t.Fatalf("ReadAt returned error: %v", err)
	}
	for i, s := range got {
		if want := uint64(2 + i); s.Seq != want {
			t.Fatalf("slot %d: expected seq %d, got %d", i, want, s.Seq)
		}
	}
}

func TestReadAtInsufficientData(t *testing.T) {
	r := New(8)
	r.Push(sample(0))

	if _, err := r.ReadAt(2, 2); !errors.Is(err, ports.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData past the write head, got %v", err)
	}
	if _, err := r.ReadAt(1, 2); !errors.Is(err, ports.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData before position zero, got %v", err)
	}
	if _, err := r.ReadAt(1, 0); !errors.Is(err, ports.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for empty range, got %v", err)
	}
}

func TestOverwriteDropsOldestSample(t *testing.T) {
	const capacity = 4
	r := New(capacity)
	for seq := uint64(1); seq <= capacity+1; seq++ {
		r.Push(sample(seq))
	}

	got, err := r.ReadAt(r.Written(), capacity)
	if err != nil {
		t.Fatalf("ReadAt returned error: %v", err)
	}
	if got[0].Seq != 2 {
		t.Fatalf("expected oldest surviving sample to be seq 2, got %d", got[0].Seq)
	}
	for _, s := range got {
		if s.Seq == 1 {
			t.Fatalf("sample 1 should have been overwritten")
		}
	}
}

func TestReadAtOverrun(t *testing.T) {
	r := New(4)
	for seq := uint64(0); seq < 10; seq++ {
		r.Push(sample(seq))
	}

	// Positions 4..7 have been overwritten by the second lap.
	if _, err := r.ReadAt(8, 4); !errors.Is(err, ports.ErrOverrun) {
		t.Fatalf("expected ErrOverrun, got %v", err)
	}
}

func TestReadAtRangeIsPinnedAcrossPushes(t *testing.T) {
	r := New(16)
	for seq := uint64(0); seq < 8; seq++ {
		r.Push(sample(seq))
	}

	// Pushing after the position was chosen must not slide the range.
	for seq := uint64(8); seq < 12; seq++ {
		r.Push(sample(seq))
	}
	got, err := r.ReadAt(6, 3)
	if err != nil {
		t.Fatalf("ReadAt returned error: %v", err)
	}
	for i, s := range got {
		if want := uint64(3 + i); s.Seq != want {
			t.Fatalf("slot %d: expected seq %d, got %d", i, want, s.Seq)
		}
	}
}

func TestConcurrentWriterAndReader(t *testing.T) {
	r := New(128)
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for seq := uint64(0); ; seq++ {
			select {
			case <-done:
				return
			default:
			}
			r.Push(sample(seq))
		}
	}()

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		win, err := r.ReadAt(r.Written(), 32)
		if errors.Is(err, ports.ErrInsufficientData) || errors.Is(err, ports.ErrOverrun) {
			continue
		}
		if err != nil {
			t.Fatalf("unexpected read error: %v", err)
		}
		for i := 1; i < len(win); i++ {
			if win[i].Seq != win[i-1].Seq+1 {
				t.Fatalf("torn read: seq %d followed by %d", win[i-1].Seq, win[i].Seq)
			}
		}
	}
	close(done)
	wg.Wait()
}
