package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/david0154/David-BCI/internal/domain"
)

func TestAppendIterateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewFileRecorder(dir)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}

	base := time.Unix(100, 0)
	for seq := uint64(0); seq < 5; seq++ {
		s := &domain.Sample{
			Timestamp: base.Add(time.Duration(seq) * 10 * time.Millisecond),
			Seq:       seq,
			Values:    []float64{float64(seq), -float64(seq)},
		}
		if err := rec.Append(s); err != nil {
			t.Fatalf("append seq %d: %v", seq, err)
		}
	}

	var got []uint64
	err = rec.Iterate(2, func(s *domain.Sample) error {
		got = append(got, s.Seq)
		if len(s.Values) != 2 {
			t.Fatalf("expected 2 channels, got %d", len(s.Values))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("unexpected replayed seqs: %v", got)
	}

	stats := rec.Stats()
	if stats.Samples != 5 {
		t.Fatalf("expected 5 recorded samples, got %d", stats.Samples)
	}
	if stats.SizeBytes == 0 {
		t.Fatalf("expected non-zero recording size")
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rec.Append(&domain.Sample{}); err == nil {
		t.Fatalf("expected append after close to fail")
	}
}

func TestOpenRecoversTruncatedTail(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewFileRecorder(dir)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	for seq := uint64(0); seq < 3; seq++ {
		if err := rec.Append(&domain.Sample{Seq: seq, Values: []float64{1}}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Simulate a crash mid-write by chopping bytes off the last record.
	path := filepath.Join(dir, "session.log")
	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := os.Truncate(path, stat.Size()-5); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	reopened, err := NewFileRecorder(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	var count int
	if err := reopened.Iterate(0, func(*domain.Sample) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("iterate after recovery: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 intact samples after recovery, got %d", count)
	}
	if reopened.Stats().Samples != 2 {
		t.Fatalf("expected stats to count 2 samples, got %d", reopened.Stats().Samples)
	}
}
