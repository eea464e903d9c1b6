package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an update targets a missing row
var ErrNotFound = errors.New("record not found")

// ErrTxDone is returned for operations on a committed or rolled back transaction
var ErrTxDone = errors.New("transaction already closed")

// ProgramTx is a unit of work over the program tables. Nothing written through
// it is visible to readers until Commit succeeds.
type ProgramTx interface {
	// GetProgram returns the program row or nil if it does not exist
	GetProgram(ctx context.Context, id uuid.UUID) (*ProgramRecord, error)
	// CreateProgram inserts a program, assigning ID and timestamps when unset
	CreateProgram(ctx context.Context, p *ProgramRecord) error
	// UpdateProgram overwrites a program's summary fields
	UpdateProgram(ctx context.Context, p *ProgramRecord) error
	ListWorkoutPlans(ctx context.Context, programID uuid.UUID) ([]WorkoutPlanRecord, error)
	// UpsertWorkoutPlan inserts the plan, or updates it when ID names an existing row
	UpsertWorkoutPlan(ctx context.Context, plan *WorkoutPlanRecord) error
	// DeleteWorkoutPlan removes a plan and everything below it
	DeleteWorkoutPlan(ctx context.Context, id uuid.UUID) error
	// DeleteWorkouts removes every workout of a plan and their exercises
	DeleteWorkouts(ctx context.Context, planID uuid.UUID) error
	CreateWorkout(ctx context.Context, w *WorkoutRecord) error
	CreateExercise(ctx context.Context, e *ExerciseRecord) error
	// FindOrCreateLibraryExercise returns the library entry matching the
	// normalized name, creating it with default category and equipment
	FindOrCreateLibraryExercise(ctx context.Context, name string) (*LibraryExercise, error)
	// EndActiveNutritionPlans closes the open nutrition version of a phase
	EndActiveNutritionPlans(ctx context.Context, programID uuid.UUID, phaseNumber int, at time.Time) error
	CreateNutritionPlan(ctx context.Context, n *NutritionPlanRecord) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ProgramStore opens program transactions and reads committed program graphs
type ProgramStore interface {
	BeginTx(ctx context.Context) (ProgramTx, error)
	GetProgramGraph(ctx context.Context, id uuid.UUID) (*ProgramGraph, error)
}

var (
	_ ProgramStore = (*DB)(nil)
	_ ProgramStore = (*MemoryStore)(nil)
)
