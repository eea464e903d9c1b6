package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/fitness-coach/internal/observability"
	"github.com/jonathan/fitness-coach/internal/stream"
	"github.com/jonathan/fitness-coach/internal/types"
)

var (
	genServer      string
	genToken       string
	genUserID      string
	genProfilePath string
	genGoal        string
	genDays        int
	genExperience  string
	genEquipment   []string
	genContext     string
	genProgramID   string
	genChange      string
	genOutput      string
	genVerbose     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Stream a program from a running server",
	Long: `Post an intake profile to a running server and render the event stream as it arrives.

The profile is read from --profile (JSON) or built from --goal, --days and --experience.
With --program-id and --change the existing program is modified instead.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genServer, "server", "http://localhost:8080", "Base URL of the server")
	generateCmd.Flags().StringVar(&genToken, "token", "", "Bearer token (defaults to COACH_TOKEN)")
	generateCmd.Flags().StringVar(&genUserID, "user-id", "", "User ID to generate for (required)")
	generateCmd.Flags().StringVarP(&genProfilePath, "profile", "p", "", "Path to an intake profile JSON file")
	generateCmd.Flags().StringVar(&genGoal, "goal", "", "Training goal, e.g. strength")
	generateCmd.Flags().IntVar(&genDays, "days", 0, "Training days per week")
	generateCmd.Flags().StringVar(&genExperience, "experience", "", "beginner, intermediate or advanced")
	generateCmd.Flags().StringSliceVar(&genEquipment, "equipment", nil, "Available equipment (comma separated)")
	generateCmd.Flags().StringVar(&genContext, "context", "", "Free-text context for the generator")
	generateCmd.Flags().StringVar(&genProgramID, "program-id", "", "Existing program to modify")
	generateCmd.Flags().StringVar(&genChange, "change", "", "Requested change (with --program-id)")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "Write the final program JSON to this file")
	generateCmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "Print every exercise as phases arrive")
	_ = generateCmd.MarkFlagRequired("user-id")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	userID, err := uuid.Parse(genUserID)
	if err != nil {
		return fmt.Errorf("invalid --user-id: %w", err)
	}
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	if genProgramID != "" && genChange == "" {
		return fmt.Errorf("--change is required with --program-id")
	}

	token := genToken
	if token == "" {
		token = os.Getenv("COACH_TOKEN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	client := stream.NewClient(genServer, token)
	onUpdate := func(u stream.Update) { renderUpdate(out, u, genVerbose) }

	var result *stream.Result
	if genProgramID != "" {
		programID, err := uuid.Parse(genProgramID)
		if err != nil {
			return fmt.Errorf("invalid --program-id: %w", err)
		}
		result, err = client.Modify(ctx, &types.ModifyRequest{
			UserID:              userID,
			CurrentProgram:      types.Program{ID: &programID},
			ModificationRequest: genChange,
			IntakeData:          profile,
			Context:             genContext,
		}, onUpdate)
		if err != nil {
			return err
		}
	} else {
		result, err = client.Generate(ctx, &types.GenerateRequest{
			UserID:     userID,
			IntakeData: profile,
			Context:    genContext,
		}, onUpdate)
		if err != nil {
			return err
		}
	}

	if genVerbose {
		observability.NewPrinter(out).PrintProgram(&result.Program, result.SavedProgram)
	}

	if genOutput != "" {
		data, err := json.MarshalIndent(result.Program, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode program: %w", err)
		}
		if err := os.WriteFile(genOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Program written to %s\n", genOutput)
	}
	return nil
}

// loadProfile reads --profile or assembles a profile from the individual flags
func loadProfile() (*types.IntakeProfile, error) {
	var profile types.IntakeProfile
	if genProfilePath != "" {
		data, err := os.ReadFile(genProfilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile: %w", err)
		}
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse profile: %w", err)
		}
	}
	if genGoal != "" {
		profile.Goal = genGoal
	}
	if genDays > 0 {
		profile.DaysAvailable = genDays
	}
	if genExperience != "" {
		profile.Experience = genExperience
	}
	if len(genEquipment) > 0 {
		profile.Equipment = genEquipment
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &profile, nil
}

// renderUpdate prints one stream update for a terminal
func renderUpdate(w io.Writer, u stream.Update, verbose bool) {
	switch u.Kind {
	case stream.EventProgress:
		_, _ = fmt.Fprintf(w, "[%3d%%] %-10s %s\n", u.Progress.Progress, u.Progress.Stage, u.Progress.Message)
	case stream.EventPhase:
		p := u.Phase.Phase
		_, _ = fmt.Fprintf(w, "  phase %d/%d: %s (%d weeks, %d workouts, %d kcal)\n",
			u.Phase.PhaseNumber, u.Phase.TotalPhases, p.Name, p.DurationWeeks, len(p.Workouts), p.Nutrition.DailyCalories)
		if verbose {
			observability.NewPrinter(w).PrintPhase(&p, u.Phase.TotalPhases)
		}
	case stream.EventProgramMeta:
		_, _ = fmt.Fprintf(w, "Program: %s (%d weeks)\n", u.Meta.Name, u.Meta.TotalWeeks)
	case stream.EventComplete:
		if saved := u.Complete.SavedProgram; saved != nil {
			_, _ = fmt.Fprintf(w, "Saved program %s: %s, %d phases, %d weeks\n", saved.ID, saved.Name, saved.TotalPhases, saved.TotalWeeks)
		} else {
			_, _ = fmt.Fprintln(w, "Program complete")
		}
	case stream.EventError:
		_, _ = fmt.Fprintf(w, "Error: %s\n", u.Error)
	}
}
