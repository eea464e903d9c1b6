package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BeginTx starts a program transaction
func (db *DB) BeginTx(ctx context.Context) (ProgramTx, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgProgramTx{tx: tx}, nil
}

// pgProgramTx implements ProgramTx over a pgx transaction
type pgProgramTx struct {
	tx pgx.Tx
}

func (t *pgProgramTx) GetProgram(ctx context.Context, id uuid.UUID) (*ProgramRecord, error) {
	var p ProgramRecord
	err := t.tx.QueryRow(ctx,
		`SELECT id, user_id, name, description, total_weeks, total_phases, created_at, updated_at
		 FROM programs WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.TotalWeeks, &p.TotalPhases, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get program: %w", err)
	}
	return &p, nil
}

func (t *pgProgramTx) CreateProgram(ctx context.Context, p *ProgramRecord) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO programs (id, user_id, name, description, total_weeks, total_phases)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.Name, p.Description, p.TotalWeeks, p.TotalPhases,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create program: %w", err)
	}
	return nil
}

func (t *pgProgramTx) UpdateProgram(ctx context.Context, p *ProgramRecord) error {
	err := t.tx.QueryRow(ctx,
		`UPDATE programs SET name = $2, description = $3, total_weeks = $4, total_phases = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.TotalWeeks, p.TotalPhases,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update program: %w", err)
	}
	return nil
}

func (t *pgProgramTx) ListWorkoutPlans(ctx context.Context, programID uuid.UUID) ([]WorkoutPlanRecord, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, program_id, phase_number, name, duration_weeks, progression_protocol, created_at, updated_at
		 FROM workout_plans WHERE program_id = $1 ORDER BY phase_number`,
		programID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workout plans: %w", err)
	}
	defer rows.Close()

	var plans []WorkoutPlanRecord
	for rows.Next() {
		var p WorkoutPlanRecord
		if err := rows.Scan(&p.ID, &p.ProgramID, &p.PhaseNumber, &p.Name, &p.DurationWeeks,
			&p.ProgressionProtocol, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workout plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (t *pgProgramTx) UpsertWorkoutPlan(ctx context.Context, plan *WorkoutPlanRecord) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO workout_plans (id, program_id, phase_number, name, duration_weeks, progression_protocol)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		     phase_number = $3,
		     name = $4,
		     duration_weeks = $5,
		     progression_protocol = $6,
		     updated_at = NOW()
		 RETURNING created_at, updated_at`,
		plan.ID, plan.ProgramID, plan.PhaseNumber, plan.Name, plan.DurationWeeks, nonNil(plan.ProgressionProtocol),
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert workout plan %d: %w", plan.PhaseNumber, err)
	}
	return nil
}

func (t *pgProgramTx) DeleteWorkoutPlan(ctx context.Context, id uuid.UUID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM workout_plans WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete workout plan: %w", err)
	}
	return nil
}

func (t *pgProgramTx) DeleteWorkouts(ctx context.Context, planID uuid.UUID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM workouts WHERE workout_plan_id = $1`, planID); err != nil {
		return fmt.Errorf("failed to delete workouts: %w", err)
	}
	return nil
}

func (t *pgProgramTx) CreateWorkout(ctx context.Context, w *WorkoutRecord) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO workouts (id, workout_plan_id, day_number, name, focus, warmup, cooldown)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.WorkoutPlanID, w.DayNumber, w.Name, w.Focus, nonNil(w.Warmup), nonNil(w.Cooldown),
	)
	if err != nil {
		return fmt.Errorf("failed to create workout: %w", err)
	}
	return nil
}

func (t *pgProgramTx) CreateExercise(ctx context.Context, e *ExerciseRecord) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO exercises (id, workout_id, library_exercise_id, name, sets, reps, rest_period, intensity, notes, sort_order)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.WorkoutID, e.LibraryExerciseID, e.Name, e.Sets, e.Reps, e.RestPeriod, e.Intensity, e.Notes, e.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to create exercise: %w", err)
	}
	return nil
}

// FindOrCreateLibraryExercise runs inside a savepoint so a failure does not
// abort the surrounding transaction
func (t *pgProgramTx) FindOrCreateLibraryExercise(ctx context.Context, name string) (*LibraryExercise, error) {
	normalized := NormalizeExerciseName(name)
	if normalized == "" {
		return nil, fmt.Errorf("exercise name cannot be empty")
	}

	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open savepoint: %w", err)
	}
	// Rolling back a released savepoint is a no-op
	defer func() { _ = sp.Rollback(ctx) }()

	var ex LibraryExercise
	err = sp.QueryRow(ctx,
		`INSERT INTO exercise_library (id, name, name_normalized, category, equipment)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name_normalized) DO UPDATE SET name = exercise_library.name
		 RETURNING id, name, name_normalized, category, equipment, created_at`,
		uuid.New(), name, normalized, DefaultExerciseCategory, DefaultExerciseEquipment,
	).Scan(&ex.ID, &ex.Name, &ex.NameNormalized, &ex.Category, &ex.Equipment, &ex.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create library exercise: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to release savepoint: %w", err)
	}
	return &ex, nil
}

func (t *pgProgramTx) EndActiveNutritionPlans(ctx context.Context, programID uuid.UUID, phaseNumber int, at time.Time) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE nutrition_plans SET end_date = $3
		 WHERE program_id = $1 AND phase_number = $2 AND end_date IS NULL`,
		programID, phaseNumber, at,
	)
	if err != nil {
		return fmt.Errorf("failed to end nutrition plans: %w", err)
	}
	return nil
}

func (t *pgProgramTx) CreateNutritionPlan(ctx context.Context, n *NutritionPlanRecord) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO nutrition_plans (id, program_id, phase_number, daily_calories, protein_grams, carb_grams,
		                              fat_grams, meal_timing, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, n.ProgramID, n.PhaseNumber, n.DailyCalories, n.ProteinGrams, n.CarbGrams,
		n.FatGrams, n.MealTiming, n.StartDate, n.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to create nutrition plan: %w", err)
	}
	return nil
}

func (t *pgProgramTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return ErrTxDone
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *pgProgramTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return ErrTxDone
		}
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// GetProgramGraph reads a committed program with its plans, workouts,
// exercises and active nutrition plans. Returns nil if the program does not exist.
func (db *DB) GetProgramGraph(ctx context.Context, id uuid.UUID) (*ProgramGraph, error) {
	var graph ProgramGraph
	p := &graph.Program
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, name, description, total_weeks, total_phases, created_at, updated_at
		 FROM programs WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.TotalWeeks, &p.TotalPhases, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get program: %w", err)
	}

	planRows, err := db.pool.Query(ctx,
		`SELECT id, program_id, phase_number, name, duration_weeks, progression_protocol, created_at, updated_at
		 FROM workout_plans WHERE program_id = $1 ORDER BY phase_number`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workout plans: %w", err)
	}
	planIndex := make(map[uuid.UUID]int)
	for planRows.Next() {
		var plan WorkoutPlanRecord
		if err := planRows.Scan(&plan.ID, &plan.ProgramID, &plan.PhaseNumber, &plan.Name, &plan.DurationWeeks,
			&plan.ProgressionProtocol, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
			planRows.Close()
			return nil, fmt.Errorf("failed to scan workout plan: %w", err)
		}
		planIndex[plan.ID] = len(graph.Plans)
		graph.Plans = append(graph.Plans, PlanGraph{Plan: plan})
	}
	planRows.Close()
	if err := planRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list workout plans: %w", err)
	}

	workoutRows, err := db.pool.Query(ctx,
		`SELECT w.id, w.workout_plan_id, w.day_number, w.name, w.focus, w.warmup, w.cooldown
		 FROM workouts w JOIN workout_plans wp ON wp.id = w.workout_plan_id
		 WHERE wp.program_id = $1 ORDER BY wp.phase_number, w.day_number, w.seq`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}
	type workoutPos struct{ plan, workout int }
	workoutIndex := make(map[uuid.UUID]workoutPos)
	for workoutRows.Next() {
		var w WorkoutRecord
		if err := workoutRows.Scan(&w.ID, &w.WorkoutPlanID, &w.DayNumber, &w.Name, &w.Focus, &w.Warmup, &w.Cooldown); err != nil {
			workoutRows.Close()
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}
		pi := planIndex[w.WorkoutPlanID]
		workoutIndex[w.ID] = workoutPos{plan: pi, workout: len(graph.Plans[pi].Workouts)}
		graph.Plans[pi].Workouts = append(graph.Plans[pi].Workouts, WorkoutGraph{Workout: w})
	}
	workoutRows.Close()
	if err := workoutRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}

	exerciseRows, err := db.pool.Query(ctx,
		`SELECT e.id, e.workout_id, e.library_exercise_id, e.name, e.sets, e.reps, e.rest_period,
		        e.intensity, e.notes, e.sort_order
		 FROM exercises e
		 JOIN workouts w ON w.id = e.workout_id
		 JOIN workout_plans wp ON wp.id = w.workout_plan_id
		 WHERE wp.program_id = $1 ORDER BY e.sort_order, e.seq`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	for exerciseRows.Next() {
		var e ExerciseRecord
		if err := exerciseRows.Scan(&e.ID, &e.WorkoutID, &e.LibraryExerciseID, &e.Name, &e.Sets, &e.Reps,
			&e.RestPeriod, &e.Intensity, &e.Notes, &e.SortOrder); err != nil {
			exerciseRows.Close()
			return nil, fmt.Errorf("failed to scan exercise: %w", err)
		}
		pos := workoutIndex[e.WorkoutID]
		wg := &graph.Plans[pos.plan].Workouts[pos.workout]
		wg.Exercises = append(wg.Exercises, e)
	}
	exerciseRows.Close()
	if err := exerciseRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}

	nutritionRows, err := db.pool.Query(ctx,
		`SELECT id, program_id, phase_number, daily_calories, protein_grams, carb_grams, fat_grams,
		        meal_timing, start_date, end_date
		 FROM nutrition_plans WHERE program_id = $1 AND end_date IS NULL ORDER BY phase_number`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list nutrition plans: %w", err)
	}
	defer nutritionRows.Close()
	for nutritionRows.Next() {
		var n NutritionPlanRecord
		if err := nutritionRows.Scan(&n.ID, &n.ProgramID, &n.PhaseNumber, &n.DailyCalories, &n.ProteinGrams,
			&n.CarbGrams, &n.FatGrams, &n.MealTiming, &n.StartDate, &n.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan nutrition plan: %w", err)
		}
		graph.Nutrition = append(graph.Nutrition, n)
	}
	if err := nutritionRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list nutrition plans: %w", err)
	}
	return &graph, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
