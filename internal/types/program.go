package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Nutrition bounds shared by intake checks and phase validation
const (
	MinDailyCalories = 800
	MaxDailyCalories = 6000
	MinProteinGrams  = 30
	MaxProteinGrams  = 400
	MinCarbGrams     = 0
	MaxCarbGrams     = 800
	MinFatGrams      = 20
	MaxFatGrams      = 300
)

// ProgramStructure is the coarse outline produced by the structure planner.
// It drives the phase calls and is never persisted verbatim.
type ProgramStructure struct {
	ProgramName             string         `json:"programName,omitempty"`
	Description             string         `json:"description,omitempty"`
	TotalPhases             int            `json:"totalPhases"`
	PhaseStructure          []PhaseOutline `json:"phaseStructure"`
	OverallProgression      []string       `json:"overallProgression"`
	EstimatedTimePerWorkout int            `json:"estimatedTimePerWorkout"`
}

// PhaseOutline describes one phase inside a ProgramStructure
type PhaseOutline struct {
	Phase               int    `json:"phase"`
	DurationWeeks       int    `json:"durationWeeks"`
	Focus               string `json:"focus"`
	ProgressionStrategy string `json:"progressionStrategy"`
	TargetIntensity     string `json:"targetIntensity"`
}

// Outline returns the outline for a phase number, if the structure has one
func (s *ProgramStructure) Outline(phaseNumber int) (PhaseOutline, bool) {
	for _, o := range s.PhaseStructure {
		if o.Phase == phaseNumber {
			return o, true
		}
	}
	return PhaseOutline{}, false
}

// Nutrition holds the daily nutrition targets of a phase
type Nutrition struct {
	DailyCalories int    `json:"dailyCalories"`
	ProteinGrams  int    `json:"proteinGrams"`
	CarbGrams     int    `json:"carbGrams"`
	FatGrams      int    `json:"fatGrams"`
	MealTiming    string `json:"mealTiming,omitempty"`
}

// ValidatedPhase is a phase that passed schema validation.
// Once hydrated it is never mutated.
type ValidatedPhase struct {
	PhaseNumber         int       `json:"phaseNumber"`
	Name                string    `json:"name"`
	DurationWeeks       int       `json:"durationWeeks"`
	Nutrition           Nutrition `json:"nutrition"`
	ProgressionProtocol []string  `json:"progressionProtocol,omitempty"`
	Workouts            []Workout `json:"workouts"`
}

// Workout is one training day of a phase
type Workout struct {
	DayNumber int        `json:"dayNumber"`
	Name      string     `json:"name"`
	Focus     string     `json:"focus"`
	Warmup    []string   `json:"warmup,omitempty"`
	Cooldown  []string   `json:"cooldown,omitempty"`
	Exercises []Exercise `json:"exercises"`
}

// Exercise is one prescribed movement inside a workout
type Exercise struct {
	Name       string  `json:"name"`
	Sets       int     `json:"sets"`
	Reps       Measure `json:"reps"`
	RestPeriod string  `json:"restPeriod,omitempty"`
	Intensity  string  `json:"intensity,omitempty"`
	Notes      string  `json:"notes,omitempty"`
	SortOrder  int     `json:"sortOrder"`
}

// Measure is a rep prescription. Generators emit either a bare count (10)
// or a textual measure ("8-12", "30s", "AMRAP").
type Measure string

// UnmarshalJSON accepts JSON numbers and strings
func (m *Measure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Measure(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("reps must be a number or string: %w", err)
	}
	*m = Measure(n.String())
	return nil
}

// LeadingCount returns the first integer in the measure ("8-12" -> 8, "30s" -> 30).
// ok is false when the measure does not start with a number.
func (m Measure) LeadingCount() (count int, ok bool) {
	s := strings.TrimSpace(string(m))
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ProgramMeta is summary information about a program, emitted once per run
type ProgramMeta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TotalWeeks  int    `json:"totalWeeks"`
}

// Program is the fully assembled result of a generation run
type Program struct {
	ID          *uuid.UUID       `json:"id,omitempty"`
	UserID      uuid.UUID        `json:"userId"`
	Meta        ProgramMeta      `json:"meta"`
	TotalPhases int              `json:"totalPhases"`
	Phases      []ValidatedPhase `json:"phases"`
}

// TotalWeeks sums the phase durations
func (p *Program) TotalWeeks() int {
	total := 0
	for _, ph := range p.Phases {
		total += ph.DurationWeeks
	}
	return total
}

// SavedProgram identifies the persisted copy of a program
type SavedProgram struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	TotalPhases int       `json:"totalPhases"`
	TotalWeeks  int       `json:"totalWeeks"`
	Updated     bool      `json:"updated"`
}
