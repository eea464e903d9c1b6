// Package hydration fills template content the generator was not asked to produce
// into validated phases.
package hydration

import (
	"github.com/jonathan/fitness-coach/internal/templates"
	"github.com/jonathan/fitness-coach/internal/types"
)

// Hydrate returns a copy of phase with missing warmup, cooldown and progression
// content filled from the template store. Content already present is never overwritten,
// so Hydrate(Hydrate(p)) == Hydrate(p).
func Hydrate(phase types.ValidatedPhase, experience string) types.ValidatedPhase {
	out := phase
	out.ProgressionProtocol = cloneStrings(phase.ProgressionProtocol)
	if len(out.ProgressionProtocol) == 0 {
		out.ProgressionProtocol = templates.Progression(experience)
	}

	out.Workouts = make([]types.Workout, len(phase.Workouts))
	for i, w := range phase.Workouts {
		out.Workouts[i] = hydrateWorkout(w)
	}
	return out
}

func hydrateWorkout(w types.Workout) types.Workout {
	out := w
	out.Warmup = cloneStrings(w.Warmup)
	out.Cooldown = cloneStrings(w.Cooldown)
	out.Exercises = append([]types.Exercise(nil), w.Exercises...)

	if len(out.Warmup) == 0 || len(out.Cooldown) == 0 {
		tmpl := templates.Session(w.Focus)
		if len(out.Warmup) == 0 {
			out.Warmup = tmpl.Warmup
		}
		if len(out.Cooldown) == 0 {
			out.Cooldown = tmpl.Cooldown
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}
