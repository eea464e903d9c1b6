package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/fitness-coach/internal/llm"
	"github.com/jonathan/fitness-coach/internal/prompts"
	"github.com/jonathan/fitness-coach/internal/types"
)

// StructureRequest is the input to the structure planner
type StructureRequest struct {
	Profile types.IntakeProfile
	Context string
	// ModificationRequest is the user's requested change on modification runs
	ModificationRequest string
	// ExistingPhaseCount pins totalPhases when greater than zero
	ExistingPhaseCount int
}

// IsModification reports whether the request revises an existing program
func (r StructureRequest) IsModification() bool {
	return r.ExistingPhaseCount > 0
}

// StructureResult is the planner output. ParseErr is set when the generator
// text could not be parsed and Structure holds the empty default.
type StructureResult struct {
	Structure *types.ProgramStructure
	ParseErr  *ParseFailed
}

// Planner produces the coarse program structure with one generator call
type Planner struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewPlanner creates a Planner using the given model tier
func NewPlanner(client llm.Client, tier llm.ModelTier) *Planner {
	return &Planner{client: client, tier: tier}
}

// Plan requests the program structure. A generator failure is returned as
// *GenerationFailed. Unparseable output is not an error: the result carries an
// empty structure and the parse failure, leaving the phase count check to the caller.
func (p *Planner) Plan(ctx context.Context, req StructureRequest) (*StructureResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := buildStructurePrompt(req)
	responseText, err := p.client.GenerateJSON(ctx, prompt, p.tier)
	if err != nil {
		return nil, &GenerationFailed{Stage: StageStructure, Cause: err}
	}

	result := &StructureResult{}
	structure, parseErr := parseStructure(responseText)
	if parseErr != nil {
		log.Printf("[pipeline] structure response unparseable, using empty default: %v", parseErr.Cause)
		result.ParseErr = parseErr
		structure = &types.ProgramStructure{}
	}

	if req.IsModification() {
		pinPhaseCount(structure, req.ExistingPhaseCount)
	}

	result.Structure = structure
	return result, nil
}

func buildStructurePrompt(req StructureRequest) string {
	modification := ""
	phaseCountRule := "Choose the number of phases that suits the goal and experience."
	if req.IsModification() {
		modification = fmt.Sprintf("This is a revision of an existing program. Requested change:\n%s\n\n", req.ModificationRequest)
		phaseCountRule = fmt.Sprintf("totalPhases MUST be exactly %d: the existing program has %d phases.", req.ExistingPhaseCount, req.ExistingPhaseCount)
	}

	return prompts.Program(prompts.KeyPlanStructure, map[string]string{
		"Profile":        describeProfile(req.Profile),
		"Context":        orNone(req.Context),
		"Modification":   modification,
		"PhaseCountRule": phaseCountRule,
	})
}

func parseStructure(text string) (*types.ProgramStructure, *ParseFailed) {
	cleaned := llm.CleanJSONBlock(text)
	var structure types.ProgramStructure
	if err := json.Unmarshal([]byte(cleaned), &structure); err != nil {
		return nil, &ParseFailed{Stage: StageStructure, Raw: text, Cause: err}
	}
	structure.ProgramName = strings.TrimSpace(structure.ProgramName)
	structure.Description = strings.TrimSpace(structure.Description)
	return &structure, nil
}

// pinPhaseCount forces totalPhases to the existing count and drops outlines
// for phases that will not be generated
func pinPhaseCount(structure *types.ProgramStructure, count int) {
	if structure.TotalPhases != count {
		log.Printf("[pipeline] structure proposed %d phases on a modification run, pinning to %d", structure.TotalPhases, count)
		structure.TotalPhases = count
	}

	kept := structure.PhaseStructure[:0]
	for _, o := range structure.PhaseStructure {
		if o.Phase >= 1 && o.Phase <= count {
			kept = append(kept, o)
		}
	}
	structure.PhaseStructure = kept
}
