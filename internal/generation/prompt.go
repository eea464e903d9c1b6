package generation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/fitness-coach/internal/types"
)

// describeProfile renders an intake profile as prompt lines
func describeProfile(p types.IntakeProfile) string {
	var sb strings.Builder
	writeLine := func(label, value string) {
		if value != "" {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", label, value))
		}
	}

	writeLine("Goal", p.Goal)
	writeLine("Sex", p.Sex)
	if p.Age > 0 {
		writeLine("Age", strconv.Itoa(p.Age))
	}
	writeLine("Experience", p.Experience)
	writeLine("Training days per week", strconv.Itoa(p.DaysAvailable))
	if p.TimePerSession > 0 {
		writeLine("Minutes per session", strconv.Itoa(p.TimePerSession))
	}
	writeLine("Equipment", strings.Join(p.Equipment, ", "))
	writeLine("Preferences", strings.Join(p.Preferences, ", "))
	writeLine("Injuries or limitations", p.Injuries)

	return strings.TrimRight(sb.String(), "\n")
}

// orNone substitutes a placeholder for empty prompt sections
func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}

// compactJSON renders a value for embedding in a prompt
func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
