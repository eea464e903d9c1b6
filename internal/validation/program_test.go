package validation

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/fitness-coach/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStructure(t *testing.T) {
	tests := []struct {
		name      string
		structure *types.ProgramStructure
		max       int
		wantErr   bool
	}{
		{name: "within cap", structure: &types.ProgramStructure{TotalPhases: 3}, max: 8},
		{name: "at cap", structure: &types.ProgramStructure{TotalPhases: 8}, max: 8},
		{name: "no cap", structure: &types.ProgramStructure{TotalPhases: 20}, max: 0},
		{name: "zero phases", structure: &types.ProgramStructure{}, max: 8, wantErr: true},
		{name: "negative phases", structure: &types.ProgramStructure{TotalPhases: -1}, max: 8, wantErr: true},
		{name: "above cap", structure: &types.ProgramStructure{TotalPhases: 9}, max: 8, wantErr: true},
		{name: "nil structure", structure: nil, max: 8, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStructure(tt.structure, tt.max, nil)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			vf := requireValidationFailed(t, err)
			assert.True(t, vf.HasField("totalPhases"))
			assert.Equal(t, 0, vf.PhaseNumber)
		})
	}
}

func TestValidateStructure_KeepsCause(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := ValidateStructure(&types.ProgramStructure{}, 8, cause)
	assert.ErrorIs(t, err, cause)
}

func validProgram(phases int) *types.Program {
	p := &types.Program{
		UserID:      uuid.New(),
		Meta:        types.ProgramMeta{Name: "Strength Builder"},
		TotalPhases: phases,
	}
	for i := 1; i <= phases; i++ {
		p.Phases = append(p.Phases, types.ValidatedPhase{
			PhaseNumber: i,
			Name:        "Phase",
			Workouts: []types.Workout{{
				DayNumber: 1,
				Name:      "Day 1",
				Warmup:    []string{"5 min bike"},
				Cooldown:  []string{"stretch"},
			}},
		})
	}
	return p
}

func TestValidateProgram(t *testing.T) {
	require.NoError(t, ValidateProgram(validProgram(3)))

	short := validProgram(3)
	short.Phases = short.Phases[:2]
	vf := requireValidationFailed(t, ValidateProgram(short))
	assert.True(t, vf.HasField("phases"))

	outOfOrder := validProgram(2)
	outOfOrder.Phases[0], outOfOrder.Phases[1] = outOfOrder.Phases[1], outOfOrder.Phases[0]
	vf = requireValidationFailed(t, ValidateProgram(outOfOrder))
	assert.True(t, vf.HasField("phases[0].phaseNumber"))
	assert.True(t, vf.HasField("phases[1].phaseNumber"))

	noWorkouts := validProgram(1)
	noWorkouts.Phases[0].Workouts = nil
	vf = requireValidationFailed(t, ValidateProgram(noWorkouts))
	assert.True(t, vf.HasField("phases[0].workouts"))

	unhydrated := validProgram(1)
	unhydrated.Phases[0].Workouts[0].Warmup = nil
	unhydrated.Phases[0].Workouts[0].Cooldown = nil
	vf = requireValidationFailed(t, ValidateProgram(unhydrated))
	assert.True(t, vf.HasField("phases[0].workouts[0].warmup"))
	assert.True(t, vf.HasField("phases[0].workouts[0].cooldown"))

	unnamed := validProgram(1)
	unnamed.Meta.Name = ""
	vf = requireValidationFailed(t, ValidateProgram(unnamed))
	assert.True(t, vf.HasField("meta.name"))

	vf = requireValidationFailed(t, ValidateProgram(nil))
	assert.True(t, vf.HasField("(root)"))
}
