package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jonathan/fitness-coach/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeStream renders events the way SSEWriter frames them
func encodeStream(t *testing.T, events ...any) []byte {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < len(events); i += 2 {
		data, err := json.Marshal(events[i+1])
		require.NoError(t, err)
		fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", events[i], data)
	}
	return buf.Bytes()
}

func silentConsumer() (*Consumer, *[]string) {
	var notices []string
	return NewConsumer(func(format string, args ...any) {
		notices = append(notices, fmt.Sprintf(format, args...))
	}), &notices
}

func phase(n int) PhasePayload {
	return PhasePayload{Phase: types.ValidatedPhase{PhaseNumber: n, Name: fmt.Sprintf("Phase %d", n)}, PhaseNumber: n, TotalPhases: 3}
}

func TestConsumer_DeduplicatesPhases(t *testing.T) {
	c, _ := silentConsumer()
	data := encodeStream(t,
		EventPhase, phase(1),
		EventPhase, phase(2),
		EventPhase, phase(2),
		EventPhase, phase(1),
		EventPhase, phase(3),
	)

	updates := c.Feed(data)
	require.Len(t, updates, 3)
	var numbers []int
	for _, p := range c.Phases() {
		numbers = append(numbers, p.PhaseNumber)
	}
	assert.Equal(t, []int{1, 2, 3}, numbers)
	assert.Equal(t, 3, c.TotalPhases())
}

func TestConsumer_SkipsMalformedAndUnknownEvents(t *testing.T) {
	c, notices := silentConsumer()
	data := append(encodeStream(t, EventProgress, types.GenerationProgress{Stage: types.StageAnalyzing, Progress: 5}),
		[]byte("event: phase\ndata: {not json\n\nevent: heartbeat\ndata: {}\n\n")...)
	data = append(data, encodeStream(t, EventPhase, phase(1))...)

	updates := c.Feed(data)
	require.Len(t, updates, 2)
	assert.Equal(t, EventProgress, updates[0].Kind)
	assert.Equal(t, EventPhase, updates[1].Kind)
	assert.Len(t, *notices, 2)
	assert.False(t, c.Done())
}

func TestConsumer_Complete(t *testing.T) {
	c, notices := silentConsumer()
	saved := &types.SavedProgram{Name: "Strength Builder", TotalPhases: 1}
	data := encodeStream(t,
		EventProgramMeta, types.ProgramMeta{Name: "Strength Builder", TotalWeeks: 4},
		EventPhase, phase(1),
		EventComplete, CompletePayload{Program: types.Program{TotalPhases: 1}, SavedProgram: saved},
		EventProgress, types.GenerationProgress{Stage: types.StageSaving},
	)

	updates := c.Feed(data)
	require.Len(t, updates, 3)
	assert.True(t, c.Done())
	require.NotNil(t, c.Result())
	assert.Equal(t, "Strength Builder", c.Result().SavedProgram.Name)
	assert.Equal(t, "Strength Builder", c.Meta().Name)
	assert.NoError(t, c.Err())
	assert.Len(t, *notices, 1, "event after complete should be ignored")
}

func TestConsumer_ErrorKeepsLastProgress(t *testing.T) {
	c, _ := silentConsumer()
	data := encodeStream(t,
		EventProgress, types.GenerationProgress{Stage: types.StageGenerating, Message: "Generating phase 2 of 3", Progress: 40},
		EventProgress, types.GenerationProgress{Stage: types.StageError, Message: "phase 2 failed validation: workouts: too short", Progress: 0},
		EventError, ErrorPayload{Error: "phase 2 failed validation: workouts: too short"},
	)

	updates := c.Feed(data)
	require.Len(t, updates, 3)
	require.NotNil(t, updates[1].Progress, "error stage is still delivered to the caller")
	assert.Equal(t, types.StageError, updates[1].Progress.Stage)

	assert.True(t, c.Done())
	assert.Nil(t, c.Result())
	assert.Equal(t, "Generating phase 2 of 3", c.LastProgress().Message)

	err := c.Err()
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "phase 2 failed validation: workouts: too short", remote.Message)
	assert.Equal(t, types.StageGenerating, remote.LastProgress.Stage)
	assert.Equal(t, 40, remote.LastProgress.Progress)
	assert.EqualError(t, err, "phase 2 failed validation: workouts: too short (last progress: Generating phase 2 of 3)")
}

func TestConsumer_SkipsUndecodableError(t *testing.T) {
	c, notices := silentConsumer()
	updates := c.Feed([]byte("event: error\ndata: upstream exploded\n\n"))
	assert.Empty(t, updates)
	assert.False(t, c.Done())
	assert.NoError(t, c.Err())
	require.Len(t, *notices, 1)
	assert.Contains(t, (*notices)[0], "malformed error event")

	// A well-formed error afterwards still ends the run
	c.Feed(encodeStream(t, EventError, ErrorPayload{Error: "service unavailable"}))
	assert.True(t, c.Done())
	assert.EqualError(t, c.Err(), "service unavailable")
}
