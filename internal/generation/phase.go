package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jonathan/fitness-coach/internal/llm"
	"github.com/jonathan/fitness-coach/internal/prompts"
	"github.com/jonathan/fitness-coach/internal/types"
)

// emptyObject is the body handed to validation when a phase response is unparseable
var emptyObject = []byte("{}")

// PhaseRequest is the input for one phase call
type PhaseRequest struct {
	Profile     types.IntakeProfile
	Structure   *types.ProgramStructure
	PhaseNumber int
	// CurrentPhase and ModificationRequest are set on modification runs
	CurrentPhase        *types.ValidatedPhase
	ModificationRequest string
}

// RawPhase is the parsed but unvalidated generator output for one phase
type RawPhase struct {
	PhaseNumber int
	// Body is a JSON object. It is "{}" when the response could not be parsed.
	Body     json.RawMessage
	ParseErr *ParseFailed
}

// PhaseGenerator produces the detailed content of one phase per call
type PhaseGenerator struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewPhaseGenerator creates a PhaseGenerator using the given model tier
func NewPhaseGenerator(client llm.Client, tier llm.ModelTier) *PhaseGenerator {
	return &PhaseGenerator{client: client, tier: tier}
}

// Generate requests the content of a single phase. Generator failures are
// returned as *GenerationFailed. Unparseable output yields an empty body with
// ParseErr set so that validation reports every missing field.
func (g *PhaseGenerator) Generate(ctx context.Context, req PhaseRequest) (*RawPhase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Structure == nil {
		return nil, &GenerationFailed{
			Stage:       StagePhase,
			PhaseNumber: req.PhaseNumber,
			Cause:       fmt.Errorf("program structure is required"),
		}
	}

	prompt := buildPhasePrompt(req)
	responseText, err := g.client.GenerateJSON(ctx, prompt, g.tier)
	if err != nil {
		return nil, &GenerationFailed{Stage: StagePhase, PhaseNumber: req.PhaseNumber, Cause: err}
	}

	raw := &RawPhase{PhaseNumber: req.PhaseNumber}
	body, parseErr := parsePhaseBody(responseText, req.PhaseNumber)
	if parseErr != nil {
		log.Printf("[pipeline] phase %d response unparseable: %v", req.PhaseNumber, parseErr.Cause)
		raw.Body = append(json.RawMessage(nil), emptyObject...)
		raw.ParseErr = parseErr
		return raw, nil
	}
	raw.Body = body
	return raw, nil
}

func buildPhasePrompt(req PhaseRequest) string {
	outline := "No outline available; infer it from the program outline."
	if o, ok := req.Structure.Outline(req.PhaseNumber); ok {
		outline = fmt.Sprintf("%d weeks, focus %q, progression %q, intensity %q",
			o.DurationWeeks, o.Focus, o.ProgressionStrategy, o.TargetIntensity)
	}

	data := map[string]string{
		"Profile":       describeProfile(req.Profile),
		"Structure":     compactJSON(req.Structure),
		"Outline":       outline,
		"PhaseNumber":   fmt.Sprintf("%d", req.PhaseNumber),
		"TotalPhases":   fmt.Sprintf("%d", req.Structure.TotalPhases),
		"DaysAvailable": fmt.Sprintf("%d", req.Profile.DaysAvailable),
	}

	if req.CurrentPhase == nil {
		return prompts.Program(prompts.KeyGeneratePhase, data)
	}
	data["CurrentPhase"] = compactJSON(req.CurrentPhase)
	data["ModificationRequest"] = orNone(req.ModificationRequest)
	return prompts.Program(prompts.KeyModifyPhase, data)
}

// parsePhaseBody checks the response is a JSON object and returns it verbatim
func parsePhaseBody(text string, phaseNumber int) (json.RawMessage, *ParseFailed) {
	cleaned := llm.CleanJSONBlock(text)
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, &ParseFailed{Stage: StagePhase, PhaseNumber: phaseNumber, Raw: text, Cause: err}
	}
	if obj == nil {
		return nil, &ParseFailed{
			Stage:       StagePhase,
			PhaseNumber: phaseNumber,
			Raw:         text,
			Cause:       fmt.Errorf("response is null, expected a JSON object"),
		}
	}
	return json.RawMessage(cleaned), nil
}
