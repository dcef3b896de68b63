// Package feedback provides the sink abstraction for user-facing coaching
// feedback and its plugin-backed implementations.
package feedback

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// Sink delivers one piece of feedback text to the user. The evaluation
// core decides when and what to announce; implementations decide how
// (speech synthesis, desktop notification, log line).
type Sink interface {
	Announce(text string) error
}

// LogSink writes feedback to the process log. It is the default sink when
// no plugins are configured.
type LogSink struct{}

// Announce logs the feedback text.
func (LogSink) Announce(text string) error {
	log.Printf("feedback: %s", text)
	return nil
}

// MultiSink fans feedback out to several sinks. A failing sink does not
// prevent delivery to the others.
type MultiSink []Sink

// Announce delivers the text to every sink, returning the first error
// encountered after all sinks have been attempted.
func (m MultiSink) Announce(text string) error {
	var firstErr error
	for _, s := range m {
		if err := s.Announce(text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FuncSink adapts a function to the Sink interface. Useful in tests and
// for wiring broadcast channels.
type FuncSink func(text string) error

// Announce invokes the wrapped function.
func (f FuncSink) Announce(text string) error {
	return f(text)
}

// ExerciseTagger is implemented by sinks that label announcements with
// the active exercise.
type ExerciseTagger interface {
	SetExercise(id string)
}

// TagExercise sets the active exercise id on every sink that supports it,
// descending into fan-out sinks. Sinks without a tag notion are skipped.
func TagExercise(s Sink, id string) {
	switch v := s.(type) {
	case MultiSink:
		for _, child := range v {
			TagExercise(child, id)
		}
	case ExerciseTagger:
		v.SetExercise(id)
	}
}

// AsyncSink decouples delivery from the caller: Announce enqueues and
// returns immediately while a background goroutine drives the wrapped
// sink. A slow speech synthesizer must never stall the frame loop.
type AsyncSink struct {
	next Sink
	done chan struct{}

	mu     sync.Mutex
	queue  chan string
	closed bool
}

// NewAsyncSink wraps next with a delivery queue of the given size.
func NewAsyncSink(next Sink, queueSize int) *AsyncSink {
	if queueSize <= 0 {
		queueSize = 16
	}
	s := &AsyncSink{
		next:  next,
		queue: make(chan string, queueSize),
		done:  make(chan struct{}),
	}
	go s.deliver()
	return s
}

func (s *AsyncSink) deliver() {
	defer close(s.done)
	for text := range s.queue {
		if err := s.next.Announce(text); err != nil {
			log.Printf("feedback sink: %v", err)
		}
	}
}

// Announce enqueues the text for delivery and never blocks. A full queue
// drops the announcement; the session throttle makes that rare, and stale
// coaching feedback is worse than none.
func (s *AsyncSink) Announce(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("feedback sink closed")
	}
	select {
	case s.queue <- text:
		return nil
	default:
		return fmt.Errorf("feedback queue full, dropped %q", text)
	}
}

// SetExercise forwards the active exercise tag to the wrapped sink.
func (s *AsyncSink) SetExercise(id string) {
	TagExercise(s.next, id)
}

// Close stops accepting announcements and waits for queued deliveries to
// drain.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}
