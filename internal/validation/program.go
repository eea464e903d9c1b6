package validation

import (
	"fmt"

	"github.com/jonathan/fitness-coach/internal/types"
)

// ValidateStructure checks the planner output before any phase is generated.
// cause is attached to the error, typically the structure parse failure.
func ValidateStructure(structure *types.ProgramStructure, maxPhases int, cause error) error {
	total := 0
	if structure != nil {
		total = structure.TotalPhases
	}

	var msg string
	switch {
	case total < 1:
		msg = fmt.Sprintf("must be at least 1, got %d", total)
	case maxPhases > 0 && total > maxPhases:
		msg = fmt.Sprintf("must be at most %d, got %d", maxPhases, total)
	default:
		return nil
	}

	return &ValidationFailed{
		Errors: []FieldError{{Field: "totalPhases", Message: msg}},
		Cause:  cause,
	}
}

// ValidateProgram checks the assembled, hydrated program: one phase per number
// in 1..totalPhases, in order, each with at least one workout, and every
// workout carrying a warmup and a cooldown.
func ValidateProgram(program *types.Program) error {
	if program == nil {
		return &ValidationFailed{Errors: []FieldError{{Field: rootField, Message: "program is required"}}}
	}

	var errs []FieldError
	if program.TotalPhases < 1 {
		errs = append(errs, FieldError{Field: "totalPhases", Message: "must be at least 1"})
	}
	if len(program.Phases) != program.TotalPhases {
		errs = append(errs, FieldError{
			Field:   "phases",
			Message: fmt.Sprintf("expected %d phases, got %d", program.TotalPhases, len(program.Phases)),
		})
	}
	if program.Meta.Name == "" {
		errs = append(errs, FieldError{Field: "meta.name", Message: "name is required"})
	}

	for i, phase := range program.Phases {
		if phase.PhaseNumber != i+1 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("phases[%d].phaseNumber", i),
				Message: fmt.Sprintf("expected %d, got %d", i+1, phase.PhaseNumber),
			})
		}
		if len(phase.Workouts) == 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("phases[%d].workouts", i),
				Message: "at least one workout is required",
			})
		}
		for j, w := range phase.Workouts {
			if len(w.Warmup) == 0 {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("phases[%d].workouts[%d].warmup", i, j),
					Message: "warmup is required",
				})
			}
			if len(w.Cooldown) == 0 {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("phases[%d].workouts[%d].cooldown", i, j),
					Message: "cooldown is required",
				})
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationFailed{Errors: errs}
	}
	return nil
}
