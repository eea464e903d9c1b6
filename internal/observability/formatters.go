// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/fitness-coach/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintPhase outputs a summary of one hydrated phase: nutrition targets and
// the exercises of each workout.
func (p *Printer) PrintPhase(phase *types.ValidatedPhase, totalPhases int) {
	if phase == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Duration:  %d weeks\n", phase.DurationWeeks))
	n := phase.Nutrition
	sb.WriteString(fmt.Sprintf("Nutrition: %d kcal  P%d / C%d / F%d g\n", n.DailyCalories, n.ProteinGrams, n.CarbGrams, n.FatGrams))
	if n.MealTiming != "" {
		sb.WriteString(fmt.Sprintf("Meals:     %s\n", n.MealTiming))
	}
	sb.WriteString("\n")

	for i, w := range phase.Workouts {
		sb.WriteString(fmt.Sprintf("Day %d  %s", w.DayNumber, w.Name))
		if w.Focus != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", w.Focus))
		}
		sb.WriteString("\n")

		count := min(len(w.Exercises), maxItemsToShow)
		for j := 0; j < count; j++ {
			ex := w.Exercises[j]
			sb.WriteString(fmt.Sprintf("  • %s  %dx%s", ex.Name, ex.Sets, ex.Reps))
			if ex.RestPeriod != "" {
				sb.WriteString(fmt.Sprintf("  rest %s", ex.RestPeriod))
			}
			sb.WriteString("\n")
		}
		if len(w.Exercises) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(w.Exercises)-maxItemsToShow))
		}
		if i < len(phase.Workouts)-1 {
			sb.WriteString("\n")
		}
	}

	if len(phase.ProgressionProtocol) > 0 {
		sb.WriteString("\nProgression:\n")
		for _, step := range phase.ProgressionProtocol {
			sb.WriteString(fmt.Sprintf("  - %s\n", step))
		}
	}

	title := fmt.Sprintf("PHASE %d/%d: %s", phase.PhaseNumber, totalPhases, strings.ToUpper(phase.Name))
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProgram outputs the summary of a finished program and where it was saved.
func (p *Printer) PrintProgram(program *types.Program, saved *types.SavedProgram) {
	if program == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:    %s\n", program.Meta.Name))
	if program.Meta.Description != "" {
		sb.WriteString(fmt.Sprintf("About:   %s\n", program.Meta.Description))
	}
	sb.WriteString(fmt.Sprintf("Length:  %d phases, %d weeks\n", program.TotalPhases, program.Meta.TotalWeeks))
	if saved != nil {
		verb := "Created"
		if saved.Updated {
			verb = "Updated"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", verb, saved.ID))
	}
	sb.WriteString("\n")

	for i, ph := range program.Phases {
		sb.WriteString(fmt.Sprintf("%d. %s (%d wk, %d workouts)", ph.PhaseNumber, ph.Name, ph.DurationWeeks, len(ph.Workouts)))
		if i < len(program.Phases)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("PROGRAM", strings.TrimSuffix(sb.String(), "\n"))
}
