package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Exercise library defaults for entries created from generated programs
const (
	DefaultExerciseCategory  = "general"
	DefaultExerciseEquipment = "unspecified"
)

// ProgramRecord represents a row of the programs table
type ProgramRecord struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TotalWeeks  int       `json:"total_weeks"`
	TotalPhases int       `json:"total_phases"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WorkoutPlanRecord is one phase of a program
type WorkoutPlanRecord struct {
	ID                  uuid.UUID `json:"id"`
	ProgramID           uuid.UUID `json:"program_id"`
	PhaseNumber         int       `json:"phase_number"`
	Name                string    `json:"name"`
	DurationWeeks       int       `json:"duration_weeks"`
	ProgressionProtocol []string  `json:"progression_protocol"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// WorkoutRecord is one training day of a workout plan
type WorkoutRecord struct {
	ID            uuid.UUID `json:"id"`
	WorkoutPlanID uuid.UUID `json:"workout_plan_id"`
	DayNumber     int       `json:"day_number"`
	Name          string    `json:"name"`
	Focus         string    `json:"focus"`
	Warmup        []string  `json:"warmup"`
	Cooldown      []string  `json:"cooldown"`
}

// ExerciseRecord is one prescribed exercise of a workout. LibraryExerciseID
// is nil when the library link could not be established.
type ExerciseRecord struct {
	ID                uuid.UUID  `json:"id"`
	WorkoutID         uuid.UUID  `json:"workout_id"`
	LibraryExerciseID *uuid.UUID `json:"library_exercise_id,omitempty"`
	Name              string     `json:"name"`
	Sets              int        `json:"sets"`
	Reps              string     `json:"reps"`
	RestPeriod        string     `json:"rest_period,omitempty"`
	Intensity         string     `json:"intensity,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	SortOrder         int        `json:"sort_order"`
}

// LibraryExercise is a shared exercise definition referenced by name
type LibraryExercise struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	NameNormalized string    `json:"name_normalized"`
	Category       string    `json:"category"`
	Equipment      string    `json:"equipment"`
	CreatedAt      time.Time `json:"created_at"`
}

// NutritionPlanRecord is a versioned nutrition target for one phase.
// The active version has a nil EndDate.
type NutritionPlanRecord struct {
	ID            uuid.UUID  `json:"id"`
	ProgramID     uuid.UUID  `json:"program_id"`
	PhaseNumber   int        `json:"phase_number"`
	DailyCalories int        `json:"daily_calories"`
	ProteinGrams  int        `json:"protein_grams"`
	CarbGrams     int        `json:"carb_grams"`
	FatGrams      int        `json:"fat_grams"`
	MealTiming    string     `json:"meal_timing,omitempty"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
}

// ProgramGraph is a program with its plans, workouts, exercises and active nutrition plans
type ProgramGraph struct {
	Program   ProgramRecord         `json:"program"`
	Plans     []PlanGraph           `json:"plans"`
	Nutrition []NutritionPlanRecord `json:"nutrition"`
}

// PlanGraph is a workout plan with its workouts
type PlanGraph struct {
	Plan     WorkoutPlanRecord `json:"plan"`
	Workouts []WorkoutGraph    `json:"workouts"`
}

// WorkoutGraph is a workout with its exercises
type WorkoutGraph struct {
	Workout   WorkoutRecord    `json:"workout"`
	Exercises []ExerciseRecord `json:"exercises"`
}

// NormalizeExerciseName lowercases a name and collapses whitespace so that
// "Goblet  Squat" and "goblet squat" share one library entry
func NormalizeExerciseName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
