package persistence

import (
	"errors"
	"fmt"
)

// Operations reported in PersistenceFailed
const (
	OpBegin     = "begin"
	OpProgram   = "program"
	OpPlan      = "workout_plan"
	OpWorkout   = "workout"
	OpExercise  = "exercise"
	OpNutrition = "nutrition"
	OpCommit    = "commit"
)

// ErrNotOwner is returned when a modification targets another user's program
var ErrNotOwner = errors.New("program belongs to another user")

// PersistenceFailed indicates the program transaction failed and was rolled back
type PersistenceFailed struct {
	Op          string
	PhaseNumber int
	Cause       error
}

func (e *PersistenceFailed) Error() string {
	if e.PhaseNumber > 0 {
		return fmt.Sprintf("failed to save program (%s, phase %d): %v", e.Op, e.PhaseNumber, e.Cause)
	}
	return fmt.Sprintf("failed to save program (%s): %v", e.Op, e.Cause)
}

func (e *PersistenceFailed) Unwrap() error {
	return e.Cause
}
