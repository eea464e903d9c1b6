// Package templates provides the static warmup, cooldown and progression content
// that hydration merges into generated phases.
package templates

import "strings"

// Focus keys of the warmup/cooldown tables
const (
	FocusLower       = "lower"
	FocusUpper       = "upper"
	FocusPush        = "push"
	FocusPull        = "pull"
	FocusFull        = "full"
	FocusCardio      = "cardio"
	FocusFlexibility = "flexibility"
)

// Level keys of the progression table
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// SessionTemplate is the deterministic bookend content for one workout focus
type SessionTemplate struct {
	Warmup   []string
	Cooldown []string
}

var sessionTemplates = map[string]SessionTemplate{
	FocusLower: {
		Warmup: []string{
			"5 min easy bike or incline walk",
			"Leg swings, 10 per side",
			"Bodyweight squats x 10",
			"Glute bridges x 12",
		},
		Cooldown: []string{
			"Standing quad stretch, 30s per side",
			"Seated hamstring stretch, 45s",
			"Pigeon stretch, 45s per side",
		},
	},
	FocusUpper: {
		Warmup: []string{
			"5 min rowing machine",
			"Arm circles, 10 each direction",
			"Band pull-aparts x 15",
			"Push-ups x 8",
		},
		Cooldown: []string{
			"Doorway chest stretch, 30s",
			"Cross-body shoulder stretch, 30s per side",
			"Overhead triceps stretch, 30s per side",
		},
	},
	FocusPush: {
		Warmup: []string{
			"5 min light cardio",
			"Scapular push-ups x 10",
			"Band shoulder dislocates x 10",
			"Light set of the first pressing movement x 12",
		},
		Cooldown: []string{
			"Doorway chest stretch, 30s per side",
			"Overhead triceps stretch, 30s per side",
			"Child's pose, 45s",
		},
	},
	FocusPull: {
		Warmup: []string{
			"5 min rowing machine",
			"Band pull-aparts x 15",
			"Dead hang, 20s",
			"Light set of the first pulling movement x 12",
		},
		Cooldown: []string{
			"Lat stretch on a rack, 30s per side",
			"Biceps wall stretch, 30s per side",
			"Cat-cow x 8",
		},
	},
	FocusFull: {
		Warmup: []string{
			"5 min light cardio",
			"World's greatest stretch, 5 per side",
			"Bodyweight squats x 10",
			"Inchworms x 5",
		},
		Cooldown: []string{
			"Walk and breathe, 2 min",
			"Hip flexor stretch, 30s per side",
			"Child's pose, 45s",
		},
	},
	FocusCardio: {
		Warmup: []string{
			"5 min easy pace, building gradually",
			"Dynamic leg swings, 10 per side",
			"High knees, 30s",
		},
		Cooldown: []string{
			"5 min easy pace walk-down",
			"Calf stretch, 30s per side",
			"Standing quad stretch, 30s per side",
		},
	},
	FocusFlexibility: {
		Warmup: []string{
			"3 min easy marching or cycling",
			"Cat-cow x 10",
			"Thoracic rotations, 8 per side",
		},
		Cooldown: []string{
			"Supine twist, 45s per side",
			"Box breathing, 2 min",
		},
	},
}

var progressionTemplates = map[string][]string{
	LevelBeginner: {
		"Add 1-2 reps per set each week until the top of the rep range is reached",
		"Once every set reaches the top of the range, increase the load by the smallest increment",
		"Keep 2-3 reps in reserve on every set",
	},
	LevelIntermediate: {
		"Use double progression: build reps across the range, then add 2.5-5% load",
		"Add one set per main lift in the second half of the phase",
		"Take a deload week at 60% volume every fourth week",
	},
	LevelAdvanced: {
		"Undulate intensity across the week between heavy, moderate and light sessions",
		"Increase main-lift intensity 2-3% per week while holding volume",
		"Deload for one week at 50-60% volume after every three loading weeks",
	},
}

// NormalizeFocus maps a free-text workout focus onto a table key.
// Unknown focus strings fall back to FocusFull.
func NormalizeFocus(focus string) string {
	f := strings.ToLower(strings.TrimSpace(focus))
	if _, ok := sessionTemplates[f]; ok {
		return f
	}
	switch {
	case strings.Contains(f, "push"):
		return FocusPush
	case strings.Contains(f, "pull"):
		return FocusPull
	case strings.Contains(f, "lower"), strings.Contains(f, "leg"), strings.Contains(f, "glute"):
		return FocusLower
	case strings.Contains(f, "upper"):
		return FocusUpper
	case strings.Contains(f, "cardio"), strings.Contains(f, "conditioning"), strings.Contains(f, "endurance"):
		return FocusCardio
	case strings.Contains(f, "flex"), strings.Contains(f, "mobility"), strings.Contains(f, "stretch"), strings.Contains(f, "yoga"):
		return FocusFlexibility
	default:
		return FocusFull
	}
}

// NormalizeLevel maps an experience string onto a table key.
// Unknown levels fall back to LevelIntermediate.
func NormalizeLevel(level string) string {
	l := strings.ToLower(strings.TrimSpace(level))
	if _, ok := progressionTemplates[l]; ok {
		return l
	}
	return LevelIntermediate
}

// Session returns the warmup/cooldown template for a focus.
// The returned slices are copies and may be modified by the caller.
func Session(focus string) SessionTemplate {
	t := sessionTemplates[NormalizeFocus(focus)]
	return SessionTemplate{
		Warmup:   append([]string(nil), t.Warmup...),
		Cooldown: append([]string(nil), t.Cooldown...),
	}
}

// Progression returns a copy of the progression protocol for an experience level
func Progression(level string) []string {
	return append([]string(nil), progressionTemplates[NormalizeLevel(level)]...)
}

// FocusKeys returns every focus key of the session table
func FocusKeys() []string {
	return []string{FocusLower, FocusUpper, FocusPush, FocusPull, FocusFull, FocusCardio, FocusFlexibility}
}

// LevelKeys returns every level key of the progression table
func LevelKeys() []string {
	return []string{LevelBeginner, LevelIntermediate, LevelAdvanced}
}
