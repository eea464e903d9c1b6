// Package generation issues the structure and per-phase calls to the content
// generation service and turns the raw text into parsed pipeline inputs.
package generation

import "fmt"

// Stage names used in generation errors
const (
	StageStructure = "structure"
	StagePhase     = "phase"
)

// GenerationFailed indicates the content generator call itself failed
type GenerationFailed struct {
	Stage       string
	PhaseNumber int
	Cause       error
}

func (e *GenerationFailed) Error() string {
	if e.Stage == StagePhase {
		return fmt.Sprintf("generation failed for phase %d: %v", e.PhaseNumber, e.Cause)
	}
	return fmt.Sprintf("generation failed at %s stage: %v", e.Stage, e.Cause)
}

func (e *GenerationFailed) Unwrap() error {
	return e.Cause
}

// ParseFailed indicates the generator's raw text could not be parsed as JSON
type ParseFailed struct {
	Stage       string
	PhaseNumber int
	Raw         string
	Cause       error
}

func (e *ParseFailed) Error() string {
	if e.Stage == StagePhase {
		return fmt.Sprintf("failed to parse phase %d response: %v", e.PhaseNumber, e.Cause)
	}
	return fmt.Sprintf("failed to parse %s response: %v", e.Stage, e.Cause)
}

func (e *ParseFailed) Unwrap() error {
	return e.Cause
}
