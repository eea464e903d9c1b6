// Package validation checks generator output against the phase schema and the
// program-level invariants before anything is hydrated or persisted.
package validation

import (
	"fmt"
	"strings"
)

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationFailed lists every field that failed validation. PhaseNumber is
// zero for structure and whole-program checks.
type ValidationFailed struct {
	PhaseNumber int
	Errors      []FieldError
	Cause       error
}

func (e *ValidationFailed) Error() string {
	var sb strings.Builder
	if e.PhaseNumber > 0 {
		sb.WriteString(fmt.Sprintf("phase %d failed validation", e.PhaseNumber))
	} else {
		sb.WriteString("program failed validation")
	}
	for i, fe := range e.Errors {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(fe.Field)
		sb.WriteString(": ")
		sb.WriteString(fe.Message)
	}
	return sb.String()
}

func (e *ValidationFailed) Unwrap() error {
	return e.Cause
}

// HasField reports whether any error was recorded for the field path
func (e *ValidationFailed) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// SchemaLoadError represents errors compiling the phase schema itself
type SchemaLoadError struct {
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema: %s", e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}
