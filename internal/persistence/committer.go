// Package persistence writes assembled programs to the program store in a
// single transaction and maps stored graphs back to programs.
package persistence

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/fitness-coach/internal/db"
	"github.com/jonathan/fitness-coach/internal/types"
)

// Committer persists validated and hydrated programs
type Committer struct {
	store db.ProgramStore
	now   func() time.Time
}

// NewCommitter creates a committer over the given store
func NewCommitter(store db.ProgramStore) *Committer {
	return &Committer{store: store, now: time.Now}
}

// Commit writes the program graph. When program.ID names an existing program
// of the same user it is updated in place, keeping program and plan ids.
// On any failure nothing is written and a *PersistenceFailed is returned.
func (c *Committer) Commit(ctx context.Context, program *types.Program) (*types.SavedProgram, error) {
	tx, err := c.store.BeginTx(ctx)
	if err != nil {
		return nil, &PersistenceFailed{Op: OpBegin, Cause: err}
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, db.ErrTxDone) {
			log.Printf("[persistence] rollback failed: %v", rbErr)
		}
	}()

	now := c.now()
	record, updated, err := c.writeProgram(ctx, tx, program)
	if err != nil {
		return nil, err
	}

	existingPlans := map[int]db.WorkoutPlanRecord{}
	if updated {
		plans, err := tx.ListWorkoutPlans(ctx, record.ID)
		if err != nil {
			return nil, &PersistenceFailed{Op: OpPlan, Cause: err}
		}
		for _, p := range plans {
			existingPlans[p.PhaseNumber] = p
		}
	}

	library := map[string]*uuid.UUID{}
	for i := range program.Phases {
		phase := &program.Phases[i]
		if err := c.writePhase(ctx, tx, record.ID, phase, existingPlans, library, now); err != nil {
			return nil, err
		}
		delete(existingPlans, phase.PhaseNumber)
	}

	// Phases the new program no longer has
	for phaseNumber, plan := range existingPlans {
		if err := tx.DeleteWorkoutPlan(ctx, plan.ID); err != nil {
			return nil, &PersistenceFailed{Op: OpPlan, PhaseNumber: phaseNumber, Cause: err}
		}
		if err := tx.EndActiveNutritionPlans(ctx, record.ID, phaseNumber, now); err != nil {
			return nil, &PersistenceFailed{Op: OpNutrition, PhaseNumber: phaseNumber, Cause: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &PersistenceFailed{Op: OpCommit, Cause: err}
	}
	committed = true

	log.Printf("[persistence] saved program %s (%d phases, updated=%t)", record.ID, record.TotalPhases, updated)
	return &types.SavedProgram{
		ID:          record.ID,
		Name:        record.Name,
		TotalPhases: record.TotalPhases,
		TotalWeeks:  record.TotalWeeks,
		Updated:     updated,
	}, nil
}

// writeProgram creates the program row, or updates it when the program
// already exists for the same user
func (c *Committer) writeProgram(ctx context.Context, tx db.ProgramTx, program *types.Program) (*db.ProgramRecord, bool, error) {
	record := &db.ProgramRecord{
		UserID:      program.UserID,
		Name:        program.Meta.Name,
		Description: program.Meta.Description,
		TotalWeeks:  program.TotalWeeks(),
		TotalPhases: len(program.Phases),
	}

	if program.ID != nil {
		existing, err := tx.GetProgram(ctx, *program.ID)
		if err != nil {
			return nil, false, &PersistenceFailed{Op: OpProgram, Cause: err}
		}
		if existing != nil {
			if existing.UserID != program.UserID {
				return nil, false, &PersistenceFailed{Op: OpProgram, Cause: ErrNotOwner}
			}
			record.ID = existing.ID
			if err := tx.UpdateProgram(ctx, record); err != nil {
				return nil, false, &PersistenceFailed{Op: OpProgram, Cause: err}
			}
			return record, true, nil
		}
		log.Printf("[persistence] program %s not found, saving as a new program", *program.ID)
	}

	if err := tx.CreateProgram(ctx, record); err != nil {
		return nil, false, &PersistenceFailed{Op: OpProgram, Cause: err}
	}
	return record, false, nil
}

func (c *Committer) writePhase(
	ctx context.Context,
	tx db.ProgramTx,
	programID uuid.UUID,
	phase *types.ValidatedPhase,
	existingPlans map[int]db.WorkoutPlanRecord,
	library map[string]*uuid.UUID,
	now time.Time,
) error {
	plan := &db.WorkoutPlanRecord{
		ProgramID:           programID,
		PhaseNumber:         phase.PhaseNumber,
		Name:                phase.Name,
		DurationWeeks:       phase.DurationWeeks,
		ProgressionProtocol: phase.ProgressionProtocol,
	}
	if existing, ok := existingPlans[phase.PhaseNumber]; ok {
		plan.ID = existing.ID
		if err := tx.DeleteWorkouts(ctx, existing.ID); err != nil {
			return &PersistenceFailed{Op: OpWorkout, PhaseNumber: phase.PhaseNumber, Cause: err}
		}
	}
	if err := tx.UpsertWorkoutPlan(ctx, plan); err != nil {
		return &PersistenceFailed{Op: OpPlan, PhaseNumber: phase.PhaseNumber, Cause: err}
	}

	for _, w := range phase.Workouts {
		workout := &db.WorkoutRecord{
			WorkoutPlanID: plan.ID,
			DayNumber:     w.DayNumber,
			Name:          w.Name,
			Focus:         w.Focus,
			Warmup:        w.Warmup,
			Cooldown:      w.Cooldown,
		}
		if err := tx.CreateWorkout(ctx, workout); err != nil {
			return &PersistenceFailed{Op: OpWorkout, PhaseNumber: phase.PhaseNumber, Cause: err}
		}

		for _, e := range w.Exercises {
			exercise := &db.ExerciseRecord{
				WorkoutID:         workout.ID,
				LibraryExerciseID: linkLibrary(ctx, tx, library, e.Name),
				Name:              e.Name,
				Sets:              e.Sets,
				Reps:              string(e.Reps),
				RestPeriod:        e.RestPeriod,
				Intensity:         e.Intensity,
				Notes:             e.Notes,
				SortOrder:         e.SortOrder,
			}
			if err := tx.CreateExercise(ctx, exercise); err != nil {
				return &PersistenceFailed{Op: OpExercise, PhaseNumber: phase.PhaseNumber, Cause: err}
			}
		}
	}

	if err := tx.EndActiveNutritionPlans(ctx, programID, phase.PhaseNumber, now); err != nil {
		return &PersistenceFailed{Op: OpNutrition, PhaseNumber: phase.PhaseNumber, Cause: err}
	}
	nutrition := &db.NutritionPlanRecord{
		ProgramID:     programID,
		PhaseNumber:   phase.PhaseNumber,
		DailyCalories: phase.Nutrition.DailyCalories,
		ProteinGrams:  phase.Nutrition.ProteinGrams,
		CarbGrams:     phase.Nutrition.CarbGrams,
		FatGrams:      phase.Nutrition.FatGrams,
		MealTiming:    phase.Nutrition.MealTiming,
		StartDate:     now,
	}
	if err := tx.CreateNutritionPlan(ctx, nutrition); err != nil {
		return &PersistenceFailed{Op: OpNutrition, PhaseNumber: phase.PhaseNumber, Cause: err}
	}
	return nil
}

// linkLibrary resolves the library entry for an exercise name. A failed lookup
// leaves the exercise unlinked instead of failing the commit.
func linkLibrary(ctx context.Context, tx db.ProgramTx, cache map[string]*uuid.UUID, name string) *uuid.UUID {
	key := db.NormalizeExerciseName(name)
	if id, ok := cache[key]; ok {
		return id
	}
	entry, err := tx.FindOrCreateLibraryExercise(ctx, name)
	if err != nil {
		log.Printf("[persistence] exercise library lookup failed for %q: %v", strings.TrimSpace(name), err)
		return nil
	}
	cache[key] = &entry.ID
	return &entry.ID
}
