package brainflow

import (
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink receives a decision
// after being closed.
var ErrChannelSinkClosed = errors.New("brainflow: channel sink closed")

// DecisionFunc handles one decision; decisions arrive in sequence-id order.
type DecisionFunc func(*Decision) error

// NewCallbackSink adapts a DecisionFunc into a full DecisionSink so callers
// can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn DecisionFunc) DecisionSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes decisions via a channel; it returns the sink, the
// read-only channel, and a close function the caller should invoke during
// shutdown.
func NewChannelSink(name string, buffer int) (DecisionSink, <-chan *Decision, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan *Decision, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   DecisionFunc
}

func (s *callbackSink) OnDecision(d *Decision) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if d == nil {
		return nil
	}
	return s.fn(d)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan *Decision
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) OnDecision(d *Decision) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if d == nil {
		return nil
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- d:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
