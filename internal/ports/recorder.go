package ports

import "github.com/david0154/David-BCI/internal/domain"

// Recorder persists the raw sample stream of a session so it can be analyzed
// or replayed by the offline side of the platform. Recording is best-effort:
// a recorder error never blocks or faults acquisition.
type Recorder interface {
	Append(s *domain.Sample) error
	Iterate(from uint64, fn func(s *domain.Sample) error) error
	Stats() RecorderStats
	Close() error
}

// RecorderStats exposes recorder metadata for observability.
type RecorderStats struct {
	Samples   uint64
	SizeBytes int64
}
