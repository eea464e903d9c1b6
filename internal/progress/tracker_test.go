package progress

import (
	"testing"

	"github.com/jonathan/fitness-coach/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_HappyPath(t *testing.T) {
	var updates []types.GenerationProgress
	tracker := NewTracker(func(p types.GenerationProgress) { updates = append(updates, p) })

	steps := []struct {
		stage   types.Stage
		percent int
	}{
		{types.StageAnalyzing, 5},
		{types.StageGenerating, 10},
		{types.StageGenerating, 45},
		{types.StageGenerating, 80},
		{types.StageProcessing, 85},
		{types.StageValidating, 90},
		{types.StageSaving, 95},
		{types.StageComplete, 100},
	}
	for _, s := range steps {
		require.NoError(t, tracker.Update(s.stage, string(s.stage), s.percent))
	}

	require.Len(t, updates, len(steps))
	for i := 1; i < len(updates); i++ {
		assert.GreaterOrEqual(t, updates[i].Stage.Rank(), updates[i-1].Stage.Rank())
		assert.GreaterOrEqual(t, updates[i].Progress, updates[i-1].Progress)
	}
	assert.True(t, tracker.IsTerminal())
	assert.Equal(t, 100, tracker.Current().Progress)
}

func TestTracker_RejectsBackwardTransition(t *testing.T) {
	tracker := NewTracker(nil)
	require.NoError(t, tracker.Update(types.StageGenerating, "", 20))

	err := tracker.Update(types.StageAnalyzing, "", 30)
	var transErr *TransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, types.StageGenerating, transErr.From)
	assert.Equal(t, types.StageAnalyzing, transErr.To)
	assert.Equal(t, types.StageGenerating, tracker.Current().Stage)
}

func TestTracker_RejectsUnknownStage(t *testing.T) {
	tracker := NewTracker(nil)
	assert.Error(t, tracker.Update(types.Stage("thinking"), "", 10))
}

func TestTracker_PercentageNeverDecreases(t *testing.T) {
	tracker := NewTracker(nil)
	require.NoError(t, tracker.Update(types.StageGenerating, "", 60))
	require.NoError(t, tracker.Update(types.StageGenerating, "", 40))
	assert.Equal(t, 60, tracker.Current().Progress)

	require.NoError(t, tracker.Update(types.StageProcessing, "", 250))
	assert.Equal(t, 100, tracker.Current().Progress)
}

func TestTracker_ErrorResetsAndIsTerminal(t *testing.T) {
	var last types.GenerationProgress
	tracker := NewTracker(func(p types.GenerationProgress) { last = p })
	require.NoError(t, tracker.Update(types.StageGenerating, "", 50))

	require.NoError(t, tracker.Fail("phase 2 failed validation"))
	assert.Equal(t, types.StageError, last.Stage)
	assert.Equal(t, 0, last.Progress)
	assert.Equal(t, "phase 2 failed validation", last.Message)
	assert.True(t, tracker.IsTerminal())

	assert.Error(t, tracker.Fail("again"))
	assert.Error(t, tracker.Update(types.StageSaving, "", 95))
}

func TestTracker_CompleteIsTerminal(t *testing.T) {
	tracker := NewTracker(nil)
	require.NoError(t, tracker.Update(types.StageComplete, "done", 90))
	assert.Equal(t, 100, tracker.Current().Progress)
	assert.Error(t, tracker.Fail("late failure"))
}

func TestPhaseSpan(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 4, 10},
		{1, 4, 27},
		{2, 4, 45},
		{4, 4, 80},
		{5, 4, 80},
		{1, 0, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhaseSpan(10, 80, tt.completed, tt.total))
	}
}
