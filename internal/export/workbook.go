// Package export renders programs as spreadsheets a client can print or edit.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/fitness-coach/internal/types"
)

// ContentType is the MIME type of a written workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetOverview is the first sheet: program summary and per-phase nutrition
const SheetOverview = "Overview"

var (
	overviewHeader = []any{"Phase", "Name", "Weeks", "Workouts", "Calories", "Protein (g)", "Carbs (g)", "Fat (g)", "Meal timing"}
	phaseHeader    = []any{"Day", "Workout", "Focus", "#", "Exercise", "Sets", "Reps", "Rest", "Intensity", "Notes"}
)

// PhaseSheetName names the sheet holding one phase's workouts
func PhaseSheetName(phaseNumber int) string {
	return fmt.Sprintf("Phase %d", phaseNumber)
}

// Workbook builds the spreadsheet for a program. The caller closes the file.
func Workbook(program *types.Program) (*excelize.File, error) {
	if program == nil {
		return nil, errors.New("program is required")
	}

	f := excelize.NewFile()
	b := &builder{f: f}
	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name overview sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#2E75B6"}, Pattern: 1},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	b.header = header

	b.overview(program)
	for i := range program.Phases {
		b.phase(&program.Phases[i])
	}
	if b.err != nil {
		_ = f.Close()
		return nil, b.err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the program workbook to w
func Write(w io.Writer, program *types.Program) error {
	f, err := Workbook(program)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Save writes the program workbook to path
func Save(path string, program *types.Program) error {
	f, err := Workbook(program)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// builder keeps the first error so sheet code reads top to bottom
type builder struct {
	f      *excelize.File
	header int
	err    error
}

func (b *builder) row(sheet string, n int, values ...any) {
	if b.err != nil {
		return
	}
	if err := b.f.SetSheetRow(sheet, fmt.Sprintf("A%d", n), &values); err != nil {
		b.err = fmt.Errorf("failed to write %s row %d: %w", sheet, n, err)
	}
}

func (b *builder) headerRow(sheet string, n int, values []any) {
	b.row(sheet, n, values...)
	if b.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), n)
	if err == nil {
		err = b.f.SetCellStyle(sheet, fmt.Sprintf("A%d", n), last, b.header)
	}
	if err != nil {
		b.err = fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
}

func (b *builder) widths(sheet string, widths map[string]float64) {
	for col, w := range widths {
		if b.err != nil {
			return
		}
		if err := b.f.SetColWidth(sheet, col, col, w); err != nil {
			b.err = fmt.Errorf("failed to size %s column %s: %w", sheet, col, err)
		}
	}
}

func (b *builder) overview(program *types.Program) {
	weeks := program.Meta.TotalWeeks
	if weeks == 0 {
		weeks = program.TotalWeeks()
	}

	b.row(SheetOverview, 1, "Program", program.Meta.Name)
	b.row(SheetOverview, 2, "Description", program.Meta.Description)
	b.row(SheetOverview, 3, "Total weeks", weeks)
	b.row(SheetOverview, 4, "Phases", program.TotalPhases)
	b.headerRow(SheetOverview, 6, overviewHeader)

	for i, ph := range program.Phases {
		n := ph.Nutrition
		b.row(SheetOverview, 7+i, ph.PhaseNumber, ph.Name, ph.DurationWeeks, len(ph.Workouts),
			n.DailyCalories, n.ProteinGrams, n.CarbGrams, n.FatGrams, n.MealTiming)
	}
	b.widths(SheetOverview, map[string]float64{"A": 14, "B": 28, "I": 22})
}

func (b *builder) phase(ph *types.ValidatedPhase) {
	if b.err != nil {
		return
	}
	sheet := PhaseSheetName(ph.PhaseNumber)
	if _, err := b.f.NewSheet(sheet); err != nil {
		b.err = fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		return
	}
	b.headerRow(sheet, 1, phaseHeader)

	r := 2
	for _, w := range ph.Workouts {
		if len(w.Warmup) > 0 {
			b.row(sheet, r, w.DayNumber, w.Name, w.Focus, "", "Warm-up", "", "", "", "", strings.Join(w.Warmup, "; "))
			r++
		}
		for i, ex := range w.Exercises {
			b.row(sheet, r, w.DayNumber, w.Name, w.Focus, i+1, ex.Name, ex.Sets, string(ex.Reps),
				ex.RestPeriod, ex.Intensity, ex.Notes)
			r++
		}
		if len(w.Cooldown) > 0 {
			b.row(sheet, r, w.DayNumber, w.Name, w.Focus, "", "Cool-down", "", "", "", "", strings.Join(w.Cooldown, "; "))
			r++
		}
	}

	if len(ph.ProgressionProtocol) > 0 {
		r++
		b.row(sheet, r, "Progression")
		for _, step := range ph.ProgressionProtocol {
			r++
			b.row(sheet, r, "", step)
		}
	}
	b.widths(sheet, map[string]float64{"B": 20, "C": 16, "E": 28, "J": 40})
}
