package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jonathan/fitness-coach/internal/types"
)

// ErrClosed is returned for writes after a complete or error event
var ErrClosed = errors.New("stream closed after terminal event")

// Sink writes one encoded event to a transport
type Sink interface {
	WriteEvent(event string, data []byte) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(event string, data []byte) error

// WriteEvent calls f
func (f SinkFunc) WriteEvent(event string, data []byte) error {
	return f(event, data)
}

// OrderError is returned when a phase event would not increase the phase number
type OrderError struct {
	Last int
	Got  int
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("phase %d emitted after phase %d", e.Got, e.Last)
}

// Stream is the typed emitter of one run. It refuses to write after a
// terminal event and only emits phases in strictly increasing order.
type Stream struct {
	mu        sync.Mutex
	sink      Sink
	closed    bool
	lastPhase int
}

// New creates a Stream writing to sink
func New(sink Sink) *Stream {
	return &Stream{sink: sink}
}

// Progress emits a progress event
func (s *Stream) Progress(p types.GenerationProgress) error {
	return s.emit(EventProgress, p, false)
}

// ProgramMeta emits the program summary
func (s *Stream) ProgramMeta(meta types.ProgramMeta) error {
	return s.emit(EventProgramMeta, meta, false)
}

// Phase emits a hydrated phase
func (s *Stream) Phase(phase types.ValidatedPhase, totalPhases int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if phase.PhaseNumber <= s.lastPhase {
		return &OrderError{Last: s.lastPhase, Got: phase.PhaseNumber}
	}
	if err := s.write(EventPhase, PhasePayload{Phase: phase, PhaseNumber: phase.PhaseNumber, TotalPhases: totalPhases}); err != nil {
		return err
	}
	s.lastPhase = phase.PhaseNumber
	return nil
}

// Complete emits the final event of a successful run
func (s *Stream) Complete(program types.Program, saved *types.SavedProgram) error {
	return s.emit(EventComplete, CompletePayload{Program: program, SavedProgram: saved}, true)
}

// Fail emits the error event that ends a failed run
func (s *Stream) Fail(message string) error {
	return s.emit(EventError, ErrorPayload{Error: message}, true)
}

// Closed reports whether a terminal event was written
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) emit(event string, data any, terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if terminal {
		// A terminal event closes the stream even if the transport write fails
		s.closed = true
	}
	return s.write(event, data)
}

func (s *Stream) write(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	return s.sink.WriteEvent(event, payload)
}
