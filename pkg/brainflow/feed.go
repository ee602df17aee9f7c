package brainflow

import (
	"errors"
	"fmt"
	"sync"
)

// ErrFeedClosed is returned when a sample is pushed after the feed ended.
var ErrFeedClosed = errors.New("brainflow: feed closed")

// FeedSource is a push-based SampleSource for hosts that already own the
// acquisition loop (device SDK callbacks, test harnesses). The caller pushes
// samples in; the pipeline drains them at the acquisition context's pace.
// Closing the feed signals end-of-stream, which the pipeline treats as a
// source disconnection.
type FeedSource struct {
	channels   int
	sampleRate float64
	buf        chan *Sample

	mu      sync.Mutex
	started bool

	doneCh   chan struct{}
	doneOnce sync.Once
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewFeedSource creates a feed declaring the given geometry. The buffer
// absorbs push bursts; pushes block once it is full.
func NewFeedSource(channels int, sampleRate float64, buffer int) *FeedSource {
	if buffer <= 0 {
		buffer = 64
	}
	return &FeedSource{
		channels:   channels,
		sampleRate: sampleRate,
		buf:        make(chan *Sample, buffer),
		doneCh:     make(chan struct{}),
		stopCh:     make(chan struct{}),
	}
}

func (f *FeedSource) Describe() Capabilities {
	return Capabilities{Channels: f.channels, SampleRate: f.sampleRate}
}

func (f *FeedSource) Start(out chan<- *Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return fmt.Errorf("brainflow: feed source already started")
	}
	f.started = true

	go f.forward(out)
	return nil
}

// Push hands one sample to the pipeline. It blocks while the feed buffer is
// full and fails with ErrFeedClosed once Close has been called.
func (f *FeedSource) Push(s *Sample) error {
	select {
	case <-f.doneCh:
		return ErrFeedClosed
	case <-f.stopCh:
		return ErrFeedClosed
	default:
	}

	select {
	case f.buf <- s:
		return nil
	case <-f.doneCh:
		return ErrFeedClosed
	case <-f.stopCh:
		return ErrFeedClosed
	}
}

// Close ends the stream: buffered samples still drain, then the pipeline sees
// a disconnection.
func (f *FeedSource) Close() {
	f.doneOnce.Do(func() { close(f.doneCh) })
}

func (f *FeedSource) Stop() error {
	f.stopOnce.Do(func() { close(f.stopCh) })
	return nil
}

func (f *FeedSource) forward(out chan<- *Sample) {
	for {
		select {
		case <-f.stopCh:
			return
		case s := <-f.buf:
			select {
			case out <- s:
			case <-f.stopCh:
				return
			}
		case <-f.doneCh:
			// Drain what was pushed before the close, then signal
			// end-of-stream.
			for {
				select {
				case s := <-f.buf:
					select {
					case out <- s:
					case <-f.stopCh:
						return
					}
				case <-f.stopCh:
					return
				default:
					close(out)
					return
				}
			}
		}
	}
}
