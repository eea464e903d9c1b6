package persistence

import (
	"github.com/jonathan/fitness-coach/internal/db"
	"github.com/jonathan/fitness-coach/internal/types"
)

// ToProgram maps a stored program graph back to the pipeline's program shape.
// Nutrition comes from the active version of each phase.
func ToProgram(graph *db.ProgramGraph) *types.Program {
	if graph == nil {
		return nil
	}

	nutrition := make(map[int]db.NutritionPlanRecord, len(graph.Nutrition))
	for _, n := range graph.Nutrition {
		nutrition[n.PhaseNumber] = n
	}

	id := graph.Program.ID
	program := &types.Program{
		ID:     &id,
		UserID: graph.Program.UserID,
		Meta: types.ProgramMeta{
			Name:        graph.Program.Name,
			Description: graph.Program.Description,
			TotalWeeks:  graph.Program.TotalWeeks,
		},
		TotalPhases: graph.Program.TotalPhases,
		Phases:      make([]types.ValidatedPhase, 0, len(graph.Plans)),
	}

	for _, pg := range graph.Plans {
		phase := types.ValidatedPhase{
			PhaseNumber:         pg.Plan.PhaseNumber,
			Name:                pg.Plan.Name,
			DurationWeeks:       pg.Plan.DurationWeeks,
			ProgressionProtocol: pg.Plan.ProgressionProtocol,
			Workouts:            make([]types.Workout, 0, len(pg.Workouts)),
		}
		if n, ok := nutrition[pg.Plan.PhaseNumber]; ok {
			phase.Nutrition = types.Nutrition{
				DailyCalories: n.DailyCalories,
				ProteinGrams:  n.ProteinGrams,
				CarbGrams:     n.CarbGrams,
				FatGrams:      n.FatGrams,
				MealTiming:    n.MealTiming,
			}
		}
		for _, wg := range pg.Workouts {
			workout := types.Workout{
				DayNumber: wg.Workout.DayNumber,
				Name:      wg.Workout.Name,
				Focus:     wg.Workout.Focus,
				Warmup:    wg.Workout.Warmup,
				Cooldown:  wg.Workout.Cooldown,
				Exercises: make([]types.Exercise, 0, len(wg.Exercises)),
			}
			for _, e := range wg.Exercises {
				workout.Exercises = append(workout.Exercises, types.Exercise{
					Name:       e.Name,
					Sets:       e.Sets,
					Reps:       types.Measure(e.Reps),
					RestPeriod: e.RestPeriod,
					Intensity:  e.Intensity,
					Notes:      e.Notes,
					SortOrder:  e.SortOrder,
				})
			}
			phase.Workouts = append(phase.Workouts, workout)
		}
		program.Phases = append(program.Phases, phase)
	}
	return program
}
