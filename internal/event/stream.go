package event

import (
	"context"
	"sync"
)

// Stream is an unbounded multi-producer, single-consumer event queue.
//
// Producers never block. Once the consumer drops the stream, sends are
// discarded and the scan keeps running to completion in the background.
type Stream struct {
	mu      sync.Mutex
	queue   []Event
	head    int
	closed  bool // no more sends
	dropped bool // consumer gone
	notify  chan struct{}
}

// NewStream creates an empty stream
func NewStream() *Stream {
	return &Stream{notify: make(chan struct{}, 1)}
}

// Send enqueues ev. It returns false if the consumer has dropped the stream
// or the producer side is already closed.
func (s *Stream) Send(ev Event) bool {
	s.mu.Lock()
	if s.dropped || s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	s.wake()
	return true
}

// CloseSend marks the end of the stream. The consumer still receives every
// event queued before the call.
func (s *Stream) CloseSend() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

// Drop detaches the consumer and releases queued events.
func (s *Stream) Drop() {
	s.mu.Lock()
	s.dropped = true
	s.queue = nil
	s.head = 0
	s.mu.Unlock()
	s.wake()
}

// TryRecv returns the next queued event without waiting
func (s *Stream) TryRecv() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popLocked()
}

// Recv waits for the next event. It returns false at end of stream or when
// ctx is done.
func (s *Stream) Recv(ctx context.Context) (Event, bool) {
	for {
		s.mu.Lock()
		if ev, ok := s.popLocked(); ok {
			s.mu.Unlock()
			return ev, true
		}
		finished := s.closed || s.dropped
		s.mu.Unlock()

		if finished {
			return Event{}, false
		}

		select {
		case <-s.notify:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

// RecvBatch waits for at least one event, then drains up to max queued
// events into buf. It returns buf unchanged at end of stream.
func (s *Stream) RecvBatch(ctx context.Context, buf []Event, max int) ([]Event, bool) {
	ev, ok := s.Recv(ctx)
	if !ok {
		return buf, false
	}
	buf = append(buf, ev)

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(buf) < max {
		ev, ok := s.popLocked()
		if !ok {
			break
		}
		buf = append(buf, ev)
	}
	return buf, true
}

// Len returns the number of queued events
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) - s.head
}

func (s *Stream) popLocked() (Event, bool) {
	if s.head >= len(s.queue) {
		return Event{}, false
	}
	ev := s.queue[s.head]
	s.head++

	// Reclaim the consumed prefix once it dominates the slice
	if s.head > 1024 && s.head*2 >= len(s.queue) {
		n := copy(s.queue, s.queue[s.head:])
		s.queue = s.queue[:n]
		s.head = 0
	}
	return ev, true
}

func (s *Stream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
