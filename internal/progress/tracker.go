// Package progress tracks the stage of a generation run and reports each
// transition to a listener.
package progress

import (
	"fmt"
	"sync"

	"github.com/jonathan/fitness-coach/internal/types"
)

// Callback receives every accepted progress update
type Callback func(types.GenerationProgress)

// TransitionError is returned for updates that would move the run backwards
// or out of a terminal stage
type TransitionError struct {
	From types.Stage
	To   types.Stage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition from %s to %s", e.From, e.To)
}

// Tracker enforces the stage machine of one run:
// idle -> analyzing -> generating -> processing -> validating -> saving -> complete,
// with error reachable from any non-terminal stage. The percentage never
// decreases except when entering error, where it resets to zero.
type Tracker struct {
	mu       sync.Mutex
	current  types.GenerationProgress
	callback Callback
}

// NewTracker creates a Tracker in the idle stage
func NewTracker(callback Callback) *Tracker {
	return &Tracker{
		current:  types.GenerationProgress{Stage: types.StageIdle},
		callback: callback,
	}
}

// Current returns the last accepted progress
func (t *Tracker) Current() types.GenerationProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Update moves the run to stage with the given message and percentage.
// Repeating the current stage is allowed and refreshes the message.
func (t *Tracker) Update(stage types.Stage, message string, percent int) error {
	t.mu.Lock()
	from := t.current.Stage
	if err := checkTransition(from, stage); err != nil {
		t.mu.Unlock()
		return err
	}

	percent = clamp(percent)
	if stage == types.StageError {
		percent = 0
	} else if percent < t.current.Progress {
		percent = t.current.Progress
	}
	if stage == types.StageComplete {
		percent = 100
	}

	t.current = types.GenerationProgress{Stage: stage, Message: message, Progress: percent}
	update := t.current
	callback := t.callback
	t.mu.Unlock()

	if callback != nil {
		callback(update)
	}
	return nil
}

// Fail moves the run to the error stage. Terminal runs reject it like any other update.
func (t *Tracker) Fail(message string) error {
	return t.Update(types.StageError, message, 0)
}

// IsTerminal reports whether the run has finished
func (t *Tracker) IsTerminal() bool {
	return t.Current().Stage.IsTerminal()
}

func checkTransition(from, to types.Stage) error {
	if from.IsTerminal() {
		return &TransitionError{From: from, To: to}
	}
	if to == types.StageError {
		return nil
	}
	if to.Rank() < 0 || to.Rank() < from.Rank() {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

func clamp(percent int) int {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}

// PhaseSpan maps progress through phase generation onto the generating
// stage's percentage band [start, end].
func PhaseSpan(start, end, completed, total int) int {
	if total <= 0 {
		return start
	}
	if completed > total {
		completed = total
	}
	return start + (end-start)*completed/total
}
