package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProgram(t *testing.T, ctx context.Context, tx ProgramTx) (*ProgramRecord, *WorkoutPlanRecord) {
	t.Helper()

	program := &ProgramRecord{UserID: uuid.New(), Name: "Strength Builder", TotalWeeks: 4, TotalPhases: 1}
	require.NoError(t, tx.CreateProgram(ctx, program))

	plan := &WorkoutPlanRecord{ProgramID: program.ID, PhaseNumber: 1, Name: "Base", DurationWeeks: 4}
	require.NoError(t, tx.UpsertWorkoutPlan(ctx, plan))

	workout := &WorkoutRecord{WorkoutPlanID: plan.ID, DayNumber: 1, Name: "Day 1", Warmup: []string{"march"}, Cooldown: []string{"stretch"}}
	require.NoError(t, tx.CreateWorkout(ctx, workout))

	lib, err := tx.FindOrCreateLibraryExercise(ctx, "Goblet Squat")
	require.NoError(t, err)
	require.NoError(t, tx.CreateExercise(ctx, &ExerciseRecord{
		WorkoutID: workout.ID, LibraryExerciseID: &lib.ID, Name: "Goblet Squat", Sets: 3, Reps: "10", SortOrder: 1,
	}))
	require.NoError(t, tx.CreateNutritionPlan(ctx, &NutritionPlanRecord{
		ProgramID: program.ID, PhaseNumber: 1, DailyCalories: 2500, ProteinGrams: 170, CarbGrams: 260, FatGrams: 80, StartDate: time.Now(),
	}))
	return program, plan
}

func TestMemoryStore_CommitMakesGraphVisible(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	program, _ := seedProgram(t, ctx, tx)

	// Uncommitted writes stay private to the transaction
	graph, err := store.GetProgramGraph(ctx, program.ID)
	require.NoError(t, err)
	assert.Nil(t, graph)
	assert.Equal(t, Counts{}, store.Counts())

	require.NoError(t, tx.Commit(ctx))

	graph, err = store.GetProgramGraph(ctx, program.ID)
	require.NoError(t, err)
	require.NotNil(t, graph)
	assert.Equal(t, "Strength Builder", graph.Program.Name)
	require.Len(t, graph.Plans, 1)
	require.Len(t, graph.Plans[0].Workouts, 1)
	require.Len(t, graph.Plans[0].Workouts[0].Exercises, 1)
	assert.NotNil(t, graph.Plans[0].Workouts[0].Exercises[0].LibraryExerciseID)
	require.Len(t, graph.Nutrition, 1)
	assert.Equal(t, Counts{Programs: 1, WorkoutPlans: 1, Workouts: 1, Exercises: 1, Library: 1, NutritionPlans: 1}, store.Counts())
}

func TestMemoryStore_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	program, _ := seedProgram(t, ctx, tx)
	require.NoError(t, tx.Rollback(ctx))

	graph, err := store.GetProgramGraph(ctx, program.ID)
	require.NoError(t, err)
	assert.Nil(t, graph)
	assert.Equal(t, Counts{}, store.Counts())
}

func TestMemoryStore_ClosedTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
	assert.ErrorIs(t, tx.Rollback(ctx), ErrTxDone)
	assert.ErrorIs(t, tx.CreateProgram(ctx, &ProgramRecord{}), ErrTxDone)

	// The store accepts a new transaction once the previous one ended
	tx2, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback(ctx))
}

func TestMemoryStore_FaultInjection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	boom := errors.New("disk full")
	store.InjectFault(Fault{Op: OpUpsertWorkoutPlan, After: 1, Err: boom})

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	program := &ProgramRecord{UserID: uuid.New(), Name: "P", TotalPhases: 2}
	require.NoError(t, tx.CreateProgram(ctx, program))
	require.NoError(t, tx.UpsertWorkoutPlan(ctx, &WorkoutPlanRecord{ProgramID: program.ID, PhaseNumber: 1, Name: "A"}))

	err = tx.UpsertWorkoutPlan(ctx, &WorkoutPlanRecord{ProgramID: program.ID, PhaseNumber: 2, Name: "B"})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, tx.Rollback(ctx))

	store.ClearFaults()
	assert.Equal(t, Counts{}, store.Counts())
}

func TestMemoryStore_LibraryNormalization(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	first, err := tx.FindOrCreateLibraryExercise(ctx, "Goblet Squat")
	require.NoError(t, err)
	second, err := tx.FindOrCreateLibraryExercise(ctx, "  goblet   SQUAT ")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "goblet squat", first.NameNormalized)
	assert.Equal(t, DefaultExerciseCategory, first.Category)
	assert.Equal(t, DefaultExerciseEquipment, first.Equipment)

	_, err = tx.FindOrCreateLibraryExercise(ctx, "   ")
	assert.Error(t, err)
}

func TestMemoryStore_NutritionVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	program, _ := seedProgram(t, ctx, tx)

	// A second active version for the same phase is rejected
	err = tx.CreateNutritionPlan(ctx, &NutritionPlanRecord{ProgramID: program.ID, PhaseNumber: 1, DailyCalories: 2000, StartDate: time.Now()})
	assert.Error(t, err)

	ended := time.Now()
	require.NoError(t, tx.EndActiveNutritionPlans(ctx, program.ID, 1, ended))
	require.NoError(t, tx.CreateNutritionPlan(ctx, &NutritionPlanRecord{
		ProgramID: program.ID, PhaseNumber: 1, DailyCalories: 2200, StartDate: ended.Add(time.Millisecond),
	}))
	require.NoError(t, tx.Commit(ctx))

	history := store.NutritionHistory(program.ID, 1)
	require.Len(t, history, 2)
	assert.NotNil(t, history[0].EndDate)
	assert.Nil(t, history[1].EndDate)
	assert.Equal(t, 2200, history[1].DailyCalories)

	graph, err := store.GetProgramGraph(ctx, program.ID)
	require.NoError(t, err)
	require.Len(t, graph.Nutrition, 1)
	assert.Equal(t, 2200, graph.Nutrition[0].DailyCalories)
}

func TestMemoryStore_UpdateInPlace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	program, plan := seedProgram(t, ctx, tx)
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)

	existing, err := tx.GetProgram(ctx, program.ID)
	require.NoError(t, err)
	require.NotNil(t, existing)
	existing.Name = "Strength Builder v2"
	require.NoError(t, tx.UpdateProgram(ctx, existing))

	require.NoError(t, tx.DeleteWorkouts(ctx, plan.ID))
	plan.Name = "Base v2"
	require.NoError(t, tx.UpsertWorkoutPlan(ctx, plan))

	// Another plan cannot take an occupied phase number
	err = tx.UpsertWorkoutPlan(ctx, &WorkoutPlanRecord{ProgramID: program.ID, PhaseNumber: 1, Name: "dup"})
	assert.Error(t, err)
	require.NoError(t, tx.Commit(ctx))

	graph, err := store.GetProgramGraph(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, "Strength Builder v2", graph.Program.Name)
	assert.Equal(t, program.UserID, graph.Program.UserID)
	require.Len(t, graph.Plans, 1)
	assert.Equal(t, plan.ID, graph.Plans[0].Plan.ID)
	assert.Equal(t, "Base v2", graph.Plans[0].Plan.Name)
	assert.Empty(t, graph.Plans[0].Workouts)
	assert.Equal(t, 0, store.Counts().Exercises)
	assert.Equal(t, 1, store.Counts().Library)
}

func TestMemoryStore_UpdateMissingProgram(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.UpdateProgram(ctx, &ProgramRecord{ID: uuid.New(), Name: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := tx.GetProgram(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemoryStore_BeginTxCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().BeginTx(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_BeginTxCanceledWhileWaiting(t *testing.T) {
	store := NewMemoryStore()
	holder, err := store.BeginTx(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := store.BeginTx(ctx)
		result <- err
	}()
	cancel()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("BeginTx did not return after its context was canceled")
	}

	// The open transaction still owns the store until it ends
	require.NoError(t, holder.Rollback(context.Background()))
	next, err := store.BeginTx(context.Background())
	require.NoError(t, err)
	require.NoError(t, next.Rollback(context.Background()))
}

func TestMemoryStore_TiedPositionsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	program := &ProgramRecord{UserID: uuid.New(), Name: "Tied", TotalWeeks: 4, TotalPhases: 1}
	require.NoError(t, tx.CreateProgram(ctx, program))
	plan := &WorkoutPlanRecord{ProgramID: program.ID, PhaseNumber: 1, Name: "Base", DurationWeeks: 4}
	require.NoError(t, tx.UpsertWorkoutPlan(ctx, plan))

	days := []string{"Upper", "Lower", "Conditioning"}
	for _, name := range days {
		require.NoError(t, tx.CreateWorkout(ctx, &WorkoutRecord{WorkoutPlanID: plan.ID, DayNumber: 1, Name: name}))
	}
	workout := &WorkoutRecord{WorkoutPlanID: plan.ID, DayNumber: 2, Name: "Accessories"}
	require.NoError(t, tx.CreateWorkout(ctx, workout))
	names := []string{"Face Pull", "Curl", "Dip", "Calf Raise", "Plank", "Shrug"}
	for _, name := range names {
		require.NoError(t, tx.CreateExercise(ctx, &ExerciseRecord{WorkoutID: workout.ID, Name: name, Sets: 3, Reps: "12", SortOrder: 1}))
	}
	require.NoError(t, tx.Commit(ctx))

	// Map iteration order varies, so a single read could pass by chance
	for i := 0; i < 50; i++ {
		graph, err := store.GetProgramGraph(ctx, program.ID)
		require.NoError(t, err)
		workouts := graph.Plans[0].Workouts
		require.Len(t, workouts, 4)

		var gotDays []string
		for _, w := range workouts[:3] {
			gotDays = append(gotDays, w.Workout.Name)
		}
		require.Equal(t, days, gotDays)

		var gotExercises []string
		for _, e := range workouts[3].Exercises {
			gotExercises = append(gotExercises, e.Name)
		}
		require.Equal(t, names, gotExercises)
	}
}

func TestNormalizeExerciseName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Goblet Squat", "goblet squat"},
		{"  Romanian   Deadlift\t", "romanian deadlift"},
		{"PUSH-UP", "push-up"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeExerciseName(tt.input))
		})
	}
}
