package generation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jonathan/fitness-coach/internal/llm"
	"github.com/jonathan/fitness-coach/internal/llm/llmtest"
	"github.com/jonathan/fitness-coach/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoPhaseStructure() *types.ProgramStructure {
	return &types.ProgramStructure{
		ProgramName: "Strength Builder",
		TotalPhases: 2,
		PhaseStructure: []types.PhaseOutline{
			{Phase: 1, DurationWeeks: 4, Focus: "base", ProgressionStrategy: "linear", TargetIntensity: "moderate"},
			{Phase: 2, DurationWeeks: 4, Focus: "strength", ProgressionStrategy: "wave", TargetIntensity: "high"},
		},
	}
}

func TestPhaseGenerator_Generate(t *testing.T) {
	mock := &llmtest.MockClient{Responses: []llmtest.Response{{Text: llmtest.PhaseJSON(2, 4)}}}
	gen := NewPhaseGenerator(mock, llm.TierAdvanced)

	raw, err := gen.Generate(context.Background(), PhaseRequest{
		Profile:     beginnerProfile(),
		Structure:   twoPhaseStructure(),
		PhaseNumber: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, raw.PhaseNumber)
	assert.Nil(t, raw.ParseErr)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw.Body, &body))
	assert.EqualValues(t, 2, body["phaseNumber"])

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, llm.TierAdvanced, calls[0].Tier)
	assert.Contains(t, calls[0].Prompt, "phase 2 of 2")
	assert.Contains(t, calls[0].Prompt, `focus "strength"`)
	assert.Contains(t, calls[0].Prompt, "Write 4 workouts")
	assert.NotContains(t, calls[0].Prompt, "{{.")
}

func TestPhaseGenerator_Generate_MissingOutline(t *testing.T) {
	structure := twoPhaseStructure()
	structure.PhaseStructure = nil
	mock := &llmtest.MockClient{Responses: []llmtest.Response{{Text: llmtest.PhaseJSON(1, 1)}}}

	_, err := NewPhaseGenerator(mock, llm.TierAdvanced).Generate(context.Background(), PhaseRequest{
		Profile:     beginnerProfile(),
		Structure:   structure,
		PhaseNumber: 1,
	})
	require.NoError(t, err)
	assert.Contains(t, mock.Calls()[0].Prompt, "No outline available")
}

func TestPhaseGenerator_Generate_ModificationPrompt(t *testing.T) {
	mock := &llmtest.MockClient{Responses: []llmtest.Response{{Text: llmtest.PhaseJSON(1, 4)}}}
	current := &types.ValidatedPhase{PhaseNumber: 1, Name: "Foundation", DurationWeeks: 4}

	_, err := NewPhaseGenerator(mock, llm.TierAdvanced).Generate(context.Background(), PhaseRequest{
		Profile:             beginnerProfile(),
		Structure:           twoPhaseStructure(),
		PhaseNumber:         1,
		CurrentPhase:        current,
		ModificationRequest: "more conditioning",
	})
	require.NoError(t, err)

	prompt := mock.Calls()[0].Prompt
	assert.Contains(t, prompt, "revising phase 1 of 2")
	assert.Contains(t, prompt, `"name":"Foundation"`)
	assert.Contains(t, prompt, "more conditioning")
}

func TestPhaseGenerator_Generate_UnparseableYieldsEmptyObject(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "prose", text: "Sorry, I can't do that."},
		{name: "truncated object", text: `{"phaseNumber": 1, "name": "Base"`},
		{name: "array", text: `[1, 2, 3]`},
		{name: "null", text: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &llmtest.MockClient{Responses: []llmtest.Response{{Text: tt.text}}}

			raw, err := NewPhaseGenerator(mock, llm.TierAdvanced).Generate(context.Background(), PhaseRequest{
				Profile:     beginnerProfile(),
				Structure:   twoPhaseStructure(),
				PhaseNumber: 1,
			})
			require.NoError(t, err)
			assert.JSONEq(t, `{}`, string(raw.Body))
			require.NotNil(t, raw.ParseErr)
			assert.Equal(t, StagePhase, raw.ParseErr.Stage)
			assert.Equal(t, 1, raw.ParseErr.PhaseNumber)
		})
	}
}

func TestPhaseGenerator_Generate_GeneratorError(t *testing.T) {
	cause := errors.New("upstream timeout")
	mock := &llmtest.MockClient{Responses: []llmtest.Response{{Err: cause}}}

	raw, err := NewPhaseGenerator(mock, llm.TierAdvanced).Generate(context.Background(), PhaseRequest{
		Profile:     beginnerProfile(),
		Structure:   twoPhaseStructure(),
		PhaseNumber: 2,
	})
	assert.Nil(t, raw)
	var genErr *GenerationFailed
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, StagePhase, genErr.Stage)
	assert.Equal(t, 2, genErr.PhaseNumber)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "phase 2")
}

func TestPhaseGenerator_Generate_RequiresStructure(t *testing.T) {
	mock := &llmtest.MockClient{}

	_, err := NewPhaseGenerator(mock, llm.TierAdvanced).Generate(context.Background(), PhaseRequest{PhaseNumber: 1})
	var genErr *GenerationFailed
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 0, mock.CallCount())
}

func TestPhaseGenerator_Generate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock := &llmtest.MockClient{}

	_, err := NewPhaseGenerator(mock, llm.TierAdvanced).Generate(ctx, PhaseRequest{Structure: twoPhaseStructure(), PhaseNumber: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mock.CallCount())
}
