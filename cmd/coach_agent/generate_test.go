package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fitness-coach/internal/db"
	"github.com/jonathan/fitness-coach/internal/llm/llmtest"
	"github.com/jonathan/fitness-coach/internal/persistence"
	"github.com/jonathan/fitness-coach/internal/pipeline"
	"github.com/jonathan/fitness-coach/internal/server"
	"github.com/jonathan/fitness-coach/internal/server/ratelimit"
	"github.com/jonathan/fitness-coach/internal/stream"
	"github.com/jonathan/fitness-coach/internal/types"
)

// resetGenerateFlags restores the generate flag globals after a test
func resetGenerateFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		genProfilePath, genGoal, genExperience, genContext = "", "", "", ""
		genProgramID, genChange, genOutput = "", "", ""
		genDays = 0
		genEquipment = nil
		genVerbose = false
	})
}

func TestRenderUpdate(t *testing.T) {
	id := uuid.New()
	phase := types.ValidatedPhase{
		PhaseNumber:   1,
		Name:          "Foundation",
		DurationWeeks: 4,
		Nutrition:     types.Nutrition{DailyCalories: 2400},
		Workouts: []types.Workout{
			{DayNumber: 1, Name: "Lower", Exercises: []types.Exercise{{Name: "Squat"}, {Name: "Lunge"}}},
		},
	}

	tests := []struct {
		name    string
		update  stream.Update
		verbose bool
		want    []string
	}{
		{
			name:   "progress",
			update: stream.Update{Kind: stream.EventProgress, Progress: &types.GenerationProgress{Stage: types.StageAnalyzing, Message: "Analyzing", Progress: 5}},
			want:   []string{"[  5%] analyzing", "Analyzing"},
		},
		{
			name:   "phase",
			update: stream.Update{Kind: stream.EventPhase, Phase: &stream.PhasePayload{Phase: phase, PhaseNumber: 1, TotalPhases: 2}},
			want:   []string{"phase 1/2: Foundation (4 weeks, 1 workouts, 2400 kcal)"},
		},
		{
			name:    "phase verbose",
			update:  stream.Update{Kind: stream.EventPhase, Phase: &stream.PhasePayload{Phase: phase, PhaseNumber: 1, TotalPhases: 2}},
			verbose: true,
			want:    []string{"PHASE 1/2: FOUNDATION", "Day 1  Lower", "Squat", "Lunge"},
		},
		{
			name:   "meta",
			update: stream.Update{Kind: stream.EventProgramMeta, Meta: &types.ProgramMeta{Name: "Strength Builder", TotalWeeks: 8}},
			want:   []string{"Program: Strength Builder (8 weeks)"},
		},
		{
			name: "complete",
			update: stream.Update{Kind: stream.EventComplete, Complete: &stream.CompletePayload{
				SavedProgram: &types.SavedProgram{ID: id, Name: "Strength Builder", TotalPhases: 2, TotalWeeks: 8},
			}},
			want: []string{"Saved program " + id.String(), "2 phases, 8 weeks"},
		},
		{
			name:   "error",
			update: stream.Update{Kind: stream.EventError, Error: "generation failed"},
			want:   []string{"Error: generation failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderUpdate(&buf, tt.update, tt.verbose)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestLoadProfile_FileWithFlagOverrides(t *testing.T) {
	resetGenerateFlags(t)

	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"goal": "hypertrophy", "daysAvailable": 3, "experience": "intermediate"}`), 0o644))

	genProfilePath = path
	genDays = 5
	profile, err := loadProfile()
	require.NoError(t, err)

	assert.Equal(t, "hypertrophy", profile.Goal)
	assert.Equal(t, 5, profile.DaysAvailable)
	assert.Equal(t, "intermediate", profile.Experience)
}

func TestLoadProfile_Invalid(t *testing.T) {
	resetGenerateFlags(t)

	genGoal = "strength"
	_, err := loadProfile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid profile")

	genProfilePath = filepath.Join(t.TempDir(), "missing.json")
	_, err = loadProfile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read profile")
}

func TestGenerateCommand_EndToEnd(t *testing.T) {
	resetGenerateFlags(t)

	client := &llmtest.MockClient{Responses: []llmtest.Response{
		{Text: llmtest.StructureJSON(2)},
		{Text: llmtest.PhaseJSON(1, 4)},
		{Text: llmtest.PhaseJSON(2, 4)},
	}}
	store := db.NewMemoryStore()
	srv, err := server.New(server.Config{RateLimit: ratelimit.NewConfig(0, 0)}, server.Deps{
		Pipeline: pipeline.New(client, persistence.NewCommitter(store), pipeline.Config{}),
		Store:    store,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	output := filepath.Join(t.TempDir(), "program.json")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"generate",
		"--server", ts.URL,
		"--user-id", uuid.NewString(),
		"--goal", "strength",
		"--days", "4",
		"--experience", "beginner",
		"--output", output,
	})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "phase 1/2")
	assert.Contains(t, out.String(), "phase 2/2")
	assert.Contains(t, out.String(), "Saved program")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var program types.Program
	require.NoError(t, json.Unmarshal(data, &program))
	assert.Len(t, program.Phases, 2)
	assert.Equal(t, 1, store.Counts().Programs)
}
