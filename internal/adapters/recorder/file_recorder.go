package recorder

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

const recordHeaderLen = 12

// FileRecorder appends the raw sample stream of a session to an on-disk log
// so the offline side can load or replay it. Records are framed as
// [8 bytes seq][4 bytes len][len bytes json]; a truncated tail left by a
// crash is discarded on open.
type FileRecorder struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	writer    *bufio.Writer
	samples   uint64
	sizeBytes int64
	closed    bool
}

func NewFileRecorder(dir string) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "session.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	rec := &FileRecorder{
		path:   path,
		file:   f,
		writer: bufio.NewWriterSize(f, 1<<20),
	}
	if err := rec.scanExisting(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return rec, nil
}

func (r *FileRecorder) scanExisting() error {
	stat, err := os.Stat(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err != nil || stat.Size() == 0 {
		return nil
	}

	rf, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var offset int64

	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("recorder scan header: %w", err)
		}
		length := binary.BigEndian.Uint32(hdr[8:12])

		if length > 0 {
			if _, err := io.CopyN(io.Discard, reader, int64(length)); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					break
				}
				return fmt.Errorf("recorder scan body: %w", err)
			}
		}
		offset += recordHeaderLen + int64(length)
		r.samples++
	}

	if err := r.file.Truncate(offset); err != nil {
		return err
	}
	r.sizeBytes = offset
	_, err = r.file.Seek(0, io.SeekEnd)
	return err
}

func (r *FileRecorder) Append(s *domain.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder is closed")
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], s.Seq)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))

	if _, err := r.writer.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := r.writer.Write(b); err != nil {
		return err
	}

	r.samples++
	r.sizeBytes += int64(len(b) + len(hdr))
	return nil
}

// Iterate replays recorded samples with seq >= from in append order. Safe to
// call while recording; buffered writes are flushed first.
func (r *FileRecorder) Iterate(from uint64, fn func(s *domain.Sample) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writer.Flush(); err != nil {
		return err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := bufio.NewReader(f)

	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("recorder iterate truncated header: %w", err)
			}
			return err
		}
		seq := binary.BigEndian.Uint64(hdr[0:8])
		length := binary.BigEndian.Uint32(hdr[8:12])

		b := make([]byte, length)
		if _, err := io.ReadFull(reader, b); err != nil {
			return fmt.Errorf("corrupt recording: %w", err)
		}
		if seq < from {
			continue
		}

		var s domain.Sample
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("corrupt recording entry: %w", err)
		}
		if err := fn(&s); err != nil {
			return err
		}
	}
}

func (r *FileRecorder) Stats() ports.RecorderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ports.RecorderStats{
		Samples:   r.samples,
		SizeBytes: r.sizeBytes,
	}
}

func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.writer.Flush(); err != nil {
		_ = r.file.Close()
		return err
	}
	return r.file.Close()
}

var _ ports.Recorder = (*FileRecorder)(nil)
