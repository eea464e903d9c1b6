// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jonathan/fitness-coach/internal/llm"
)

// Call records one request made to a MockClient
type Call struct {
	Prompt string
	Tier   llm.ModelTier
}

// MockClient implements llm.Client. GenerateJSONFunc, when set, answers every
// GenerateJSON call; otherwise Responses are consumed in order.
type MockClient struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	Responses        []Response

	mu    sync.Mutex
	calls []Call
}

// Response is one scripted answer
type Response struct {
	Text string
	Err  error
}

// GenerateContent behaves like GenerateJSON
func (m *MockClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return m.GenerateJSON(ctx, prompt, tier)
}

// GenerateJSON returns the next scripted response
func (m *MockClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.mu.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, Call{Prompt: prompt, Tier: tier})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	if idx >= len(m.Responses) {
		return "", fmt.Errorf("llmtest: unexpected call %d", idx+1)
	}
	r := m.Responses[idx]
	return r.Text, r.Err
}

// GetModel returns a fixed model name
func (m *MockClient) GetModel(_ llm.ModelTier) string {
	return "mock-model"
}

// Close is a no-op
func (m *MockClient) Close() error {
	return nil
}

// Calls returns a copy of the recorded calls
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns how many calls were made
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// PhaseJSON returns a valid phase payload with the given number of workouts.
// Workouts carry no warmup, cooldown or progression so hydration has work to do.
func PhaseJSON(phaseNumber, workouts int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `{"phaseNumber": %d, "name": "Phase %d", "durationWeeks": 4,`, phaseNumber, phaseNumber)
	sb.WriteString(`"nutrition": {"dailyCalories": 2500, "proteinGrams": 170, "carbGrams": 260, "fatGrams": 80, "mealTiming": "3 meals + 1 snack"},`)
	sb.WriteString(`"workouts": [`)
	for d := 1; d <= workouts; d++ {
		if d > 1 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"dayNumber": %d, "name": "Day %d", "focus": "Full Body", "exercises": [`, d, d)
		sb.WriteString(`{"name": "Goblet Squat", "sets": 3, "reps": 10, "restPeriod": "90s", "intensity": "RPE 7", "sortOrder": 1},`)
		sb.WriteString(`{"name": "Push-Up", "sets": 3, "reps": "8-12", "restPeriod": "60s", "sortOrder": 2}`)
		sb.WriteString(`]}`)
	}
	sb.WriteString(`]}`)
	return sb.String()
}

// StructureJSON returns a structure payload proposing the given phase count
func StructureJSON(totalPhases int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `{"programName": "Strength Builder", "description": "A progressive strength program", "totalPhases": %d, "phaseStructure": [`, totalPhases)
	for p := 1; p <= totalPhases; p++ {
		if p > 1 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"phase": %d, "durationWeeks": 4, "focus": "strength base", "progressionStrategy": "linear", "targetIntensity": "moderate"}`, p)
	}
	sb.WriteString(`], "overallProgression": ["build base", "add load"], "estimatedTimePerWorkout": 60}`)
	return sb.String()
}
