package stream

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/jonathan/fitness-coach/internal/types"
)

// Update is one decoded event. Exactly one payload field is set, matching Kind.
type Update struct {
	Kind     string
	Progress *types.GenerationProgress
	Phase    *PhasePayload
	Meta     *types.ProgramMeta
	Complete *CompletePayload
	Error    string
}

// RemoteError is a run failure reported by the server through an error event
type RemoteError struct {
	Message      string
	LastProgress types.GenerationProgress
}

func (e *RemoteError) Error() string {
	if e.LastProgress.Message != "" {
		return fmt.Sprintf("%s (last progress: %s)", e.Message, e.LastProgress.Message)
	}
	return e.Message
}

// Consumer decodes a stream of events into the state of one run. Malformed
// and unknown events, error events included, are logged and skipped; duplicate
// phase events are dropped; anything after a terminal event is ignored.
type Consumer struct {
	// Logf receives notices about skipped events. Defaults to log.Printf.
	Logf func(format string, args ...any)

	parser   Parser
	progress types.GenerationProgress
	meta     *types.ProgramMeta
	phases   map[int]types.ValidatedPhase
	total    int
	result   *CompletePayload
	errMsg   string
	done     bool
}

// NewConsumer creates a Consumer logging through logf (nil for log.Printf)
func NewConsumer(logf func(format string, args ...any)) *Consumer {
	c := &Consumer{Logf: logf, phases: make(map[int]types.ValidatedPhase)}
	c.parser.Logf = logf
	return c
}

// Feed parses a chunk of an SSE stream and applies every completed event
func (c *Consumer) Feed(chunk []byte) []Update {
	var updates []Update
	for _, ev := range c.parser.Feed(chunk) {
		if u, ok := c.Apply(ev); ok {
			updates = append(updates, u)
		}
	}
	return updates
}

// Apply decodes one framed event. ok is false when the event was skipped.
func (c *Consumer) Apply(ev Event) (Update, bool) {
	if c.done {
		c.logf("[stream] ignoring %s event after end of run", ev.Name)
		return Update{}, false
	}

	u := Update{Kind: ev.Name}
	switch ev.Name {
	case EventProgress:
		var p types.GenerationProgress
		if !c.decode(ev, &p) {
			return Update{}, false
		}
		// The error stage repeats the failure text, which RemoteError already
		// carries, so it never replaces the last real stage
		if p.Stage != types.StageError {
			c.progress = p
		}
		u.Progress = &p

	case EventPhase:
		var p PhasePayload
		if !c.decode(ev, &p) {
			return Update{}, false
		}
		if p.PhaseNumber == 0 {
			p.PhaseNumber = p.Phase.PhaseNumber
		}
		if _, seen := c.phases[p.PhaseNumber]; seen {
			return Update{}, false
		}
		c.phases[p.PhaseNumber] = p.Phase
		if p.TotalPhases > 0 {
			c.total = p.TotalPhases
		}
		u.Phase = &p

	case EventProgramMeta:
		var m types.ProgramMeta
		if !c.decode(ev, &m) {
			return Update{}, false
		}
		c.meta = &m
		u.Meta = &m

	case EventComplete:
		var p CompletePayload
		if !c.decode(ev, &p) {
			return Update{}, false
		}
		c.result = &p
		c.done = true
		u.Complete = &p

	case EventError:
		var p ErrorPayload
		if !c.decode(ev, &p) {
			return Update{}, false
		}
		if p.Error == "" {
			p.Error = "generation failed"
		}
		c.errMsg = p.Error
		c.done = true
		u.Error = p.Error

	default:
		c.logf("[stream] skipping unknown event %q", ev.Name)
		return Update{}, false
	}
	return u, true
}

// Done reports whether a complete or error event was received
func (c *Consumer) Done() bool {
	return c.done
}

// LastProgress returns the most recent progress update of a stage other
// than error
func (c *Consumer) LastProgress() types.GenerationProgress {
	return c.progress
}

// Meta returns the program summary, if it was received
func (c *Consumer) Meta() *types.ProgramMeta {
	return c.meta
}

// Phases returns the received phases ordered by phase number
func (c *Consumer) Phases() []types.ValidatedPhase {
	numbers := make([]int, 0, len(c.phases))
	for n := range c.phases {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	phases := make([]types.ValidatedPhase, 0, len(numbers))
	for _, n := range numbers {
		phases = append(phases, c.phases[n])
	}
	return phases
}

// TotalPhases returns the phase count announced by the server
func (c *Consumer) TotalPhases() int {
	return c.total
}

// Result returns the completion payload of a successful run
func (c *Consumer) Result() *CompletePayload {
	return c.result
}

// Err returns the run failure, or nil if the run has not failed
func (c *Consumer) Err() error {
	if c.errMsg == "" {
		return nil
	}
	return &RemoteError{Message: c.errMsg, LastProgress: c.progress}
}

func (c *Consumer) decode(ev Event, v any) bool {
	if err := json.Unmarshal(ev.Data, v); err != nil {
		c.logf("[stream] skipping malformed %s event: %v", ev.Name, err)
		return false
	}
	return true
}

func (c *Consumer) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
