package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/fitness-coach/internal/types"
	"github.com/xeipuuv/gojsonschema"
)

// rootField names errors on the document itself
const rootField = "(root)"

// ValidatePhase checks a generated phase body and returns the typed phase.
// All violations are collected into a single *ValidationFailed; nothing is
// returned until the whole body is clean.
func ValidatePhase(body json.RawMessage, phaseNumber int) (*types.ValidatedPhase, error) {
	schema, err := phaseSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, &ValidationFailed{
			PhaseNumber: phaseNumber,
			Errors:      []FieldError{{Field: rootField, Message: "body is not valid JSON"}},
			Cause:       err,
		}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &ValidationFailed{
			PhaseNumber: phaseNumber,
			Errors:      []FieldError{{Field: rootField, Message: "body could not be validated"}},
			Cause:       err,
		}
	}

	var fieldErrors []FieldError
	for _, desc := range result.Errors() {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldPath(desc),
			Message: desc.Description(),
		})
	}
	fieldErrors = append(fieldErrors, checkPhaseSemantics(doc, phaseNumber)...)

	if len(fieldErrors) > 0 {
		sortFieldErrors(fieldErrors)
		return nil, &ValidationFailed{PhaseNumber: phaseNumber, Errors: fieldErrors}
	}

	var phase types.ValidatedPhase
	if err := json.Unmarshal(body, &phase); err != nil {
		return nil, &ValidationFailed{
			PhaseNumber: phaseNumber,
			Errors:      []FieldError{{Field: rootField, Message: "body does not match the phase shape"}},
			Cause:       err,
		}
	}

	normalizePhase(&phase, phaseNumber)
	return &phase, nil
}

// checkPhaseSemantics covers the rules JSON Schema cannot express
func checkPhaseSemantics(doc any, phaseNumber int) []FieldError {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil
	}

	var errs []FieldError
	if raw, ok := obj["phaseNumber"].(json.Number); ok {
		if n, err := raw.Int64(); err == nil && int(n) != phaseNumber {
			errs = append(errs, FieldError{
				Field:   "phaseNumber",
				Message: fmt.Sprintf("expected phase %d, got %d", phaseNumber, n),
			})
		}
	}

	workouts, _ := obj["workouts"].([]any)
	for i, w := range workouts {
		workout, ok := w.(map[string]any)
		if !ok {
			continue
		}
		exercises, _ := workout["exercises"].([]any)
		for j, e := range exercises {
			exercise, ok := e.(map[string]any)
			if !ok {
				continue
			}
			// Numeric reps are bounded by the schema; textual ones are checked here
			reps, ok := exercise["reps"].(string)
			if !ok {
				continue
			}
			if n, counted := types.Measure(reps).LeadingCount(); counted && n < 1 {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("workouts[%d].exercises[%d].reps", i, j),
					Message: "reps must be positive",
				})
			}
		}
	}
	return errs
}

// normalizePhase fills positional defaults left out by the generator. Day
// numbers and sort orders are renumbered by position unless every value is
// set and unique, so reads never see two rows with the same position.
func normalizePhase(phase *types.ValidatedPhase, phaseNumber int) {
	phase.PhaseNumber = phaseNumber

	days := make([]int, len(phase.Workouts))
	for i, w := range phase.Workouts {
		days[i] = w.DayNumber
	}
	renumberDays := !distinctPositive(days)

	for i := range phase.Workouts {
		w := &phase.Workouts[i]
		if renumberDays {
			w.DayNumber = i + 1
		}

		orders := make([]int, len(w.Exercises))
		for j, e := range w.Exercises {
			orders[j] = e.SortOrder
		}
		if distinctPositive(orders) {
			continue
		}
		for j := range w.Exercises {
			w.Exercises[j].SortOrder = j + 1
		}
	}
}

func distinctPositive(values []int) bool {
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		if v <= 0 || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// fieldPath renders a schema error location as workouts[0].exercises[1].reps
func fieldPath(desc gojsonschema.ResultError) string {
	var segments []string
	if ctx := desc.Context(); ctx != nil {
		segments = strings.Split(ctx.String(), ".")
		if len(segments) > 0 && segments[0] == rootField {
			segments = segments[1:]
		}
	}
	if desc.Type() == "required" {
		if property, ok := desc.Details()["property"].(string); ok {
			segments = append(segments, property)
		}
	}
	return joinPath(segments)
}

func joinPath(segments []string) string {
	var sb strings.Builder
	for _, seg := range segments {
		if _, err := strconv.Atoi(seg); err == nil {
			sb.WriteString("[" + seg + "]")
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(seg)
	}
	if sb.Len() == 0 {
		return rootField
	}
	return sb.String()
}

func sortFieldErrors(errs []FieldError) {
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Field < errs[j].Field
	})
}
