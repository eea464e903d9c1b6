package validation

import (
	"sync"

	"github.com/jonathan/fitness-coach/internal/types"
	"github.com/xeipuuv/gojsonschema"
)

var (
	phaseSchemaOnce     sync.Once
	compiledPhaseSchema *gojsonschema.Schema
	phaseSchemaErr      error
)

// PhaseSchema returns the JSON Schema document a generated phase must satisfy
func PhaseSchema() map[string]any {
	exercise := map[string]any{
		"type":     "object",
		"required": []string{"name", "sets", "reps"},
		"properties": map[string]any{
			"name":       map[string]any{"type": "string", "minLength": 1},
			"sets":       map[string]any{"type": "integer", "minimum": 1},
			"reps":       map[string]any{"type": []string{"integer", "string"}, "minimum": 1, "minLength": 1},
			"restPeriod": map[string]any{"type": "string"},
			"intensity":  map[string]any{"type": "string"},
			"notes":      map[string]any{"type": "string"},
			"sortOrder":  map[string]any{"type": "integer", "minimum": 0},
		},
	}

	workout := map[string]any{
		"type":     "object",
		"required": []string{"name", "exercises"},
		"properties": map[string]any{
			"dayNumber": map[string]any{"type": "integer", "minimum": 1, "maximum": 7},
			"name":      map[string]any{"type": "string", "minLength": 1},
			"focus":     map[string]any{"type": "string"},
			"warmup":    stringList(),
			"cooldown":  stringList(),
			"exercises": map[string]any{"type": "array", "minItems": 1, "items": exercise},
		},
	}

	nutrition := map[string]any{
		"type":     "object",
		"required": []string{"dailyCalories", "proteinGrams", "carbGrams", "fatGrams"},
		"properties": map[string]any{
			"dailyCalories": boundedInt(types.MinDailyCalories, types.MaxDailyCalories),
			"proteinGrams":  boundedInt(types.MinProteinGrams, types.MaxProteinGrams),
			"carbGrams":     boundedInt(types.MinCarbGrams, types.MaxCarbGrams),
			"fatGrams":      boundedInt(types.MinFatGrams, types.MaxFatGrams),
			"mealTiming":    map[string]any{"type": "string"},
		},
	}

	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []string{"name", "durationWeeks", "nutrition", "workouts"},
		"properties": map[string]any{
			"phaseNumber":         map[string]any{"type": "integer", "minimum": 1},
			"name":                map[string]any{"type": "string", "minLength": 1},
			"durationWeeks":       map[string]any{"type": "integer", "minimum": 1, "maximum": 52},
			"nutrition":           nutrition,
			"progressionProtocol": stringList(),
			"workouts":            map[string]any{"type": "array", "minItems": 1, "maxItems": 7, "items": workout},
		},
	}
}

func boundedInt(minimum, maximum int) map[string]any {
	return map[string]any{"type": "integer", "minimum": minimum, "maximum": maximum}
}

func stringList() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

// phaseSchema compiles PhaseSchema once
func phaseSchema() (*gojsonschema.Schema, error) {
	phaseSchemaOnce.Do(func() {
		compiledPhaseSchema, phaseSchemaErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(PhaseSchema()))
		if phaseSchemaErr != nil {
			phaseSchemaErr = &SchemaLoadError{Message: "phase schema is invalid", Cause: phaseSchemaErr}
		}
	})
	return compiledPhaseSchema, phaseSchemaErr
}
