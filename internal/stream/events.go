// Package stream implements the progress event protocol of a generation run:
// server-side emitters for SSE and WebSocket, and the client-side parser and
// consumer that turn a byte stream back into typed updates.
package stream

import (
	"encoding/json"

	"github.com/jonathan/fitness-coach/internal/types"
)

// Event names on the wire
const (
	EventProgress    = "progress"
	EventPhase       = "phase"
	EventProgramMeta = "program_meta"
	EventComplete    = "complete"
	EventError       = "error"
)

// Event is one framed event before payload decoding
type Event struct {
	Name string
	Data []byte
}

// PhasePayload is the data of a phase event
type PhasePayload struct {
	Phase       types.ValidatedPhase `json:"phase"`
	PhaseNumber int                  `json:"phaseNumber"`
	TotalPhases int                  `json:"totalPhases"`
}

// CompletePayload is the data of a complete event
type CompletePayload struct {
	Program      types.Program       `json:"program"`
	SavedProgram *types.SavedProgram `json:"savedProgram"`
}

// ErrorPayload is the data of an error event
type ErrorPayload struct {
	Error string `json:"error"`
}

// Envelope frames an event on message-oriented transports such as WebSocket
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
