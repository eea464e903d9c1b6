// Package pipeline orchestrates a program generation run: structure planning,
// sequential phase generation with validation and hydration, whole-program
// checks and the final commit, streaming progress along the way.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/fitness-coach/internal/generation"
	"github.com/jonathan/fitness-coach/internal/hydration"
	"github.com/jonathan/fitness-coach/internal/llm"
	"github.com/jonathan/fitness-coach/internal/progress"
	"github.com/jonathan/fitness-coach/internal/stream"
	"github.com/jonathan/fitness-coach/internal/types"
	"github.com/jonathan/fitness-coach/internal/validation"
)

// DefaultProgramName is used when the structure planner does not name the program
const DefaultProgramName = "Custom Program"

// DefaultMaxPhases caps the phase count when no limit is configured
const DefaultMaxPhases = 8

// Progress percentages per stage. Phase generation spans phaseStart..phaseEnd.
const (
	percentAnalyzing  = 5
	phaseStart        = 10
	phaseEnd          = 80
	percentProcessing = 85
	percentValidating = 90
	percentSaving     = 95
)

// Committer persists the assembled program
type Committer interface {
	Commit(ctx context.Context, program *types.Program) (*types.SavedProgram, error)
}

// Config holds the pipeline settings
type Config struct {
	StructureTier llm.ModelTier
	PhaseTier     llm.ModelTier
	MaxPhases     int
}

// RunOptions is the input of one run
type RunOptions struct {
	UserID  uuid.UUID
	Profile types.IntakeProfile
	Context string

	// Modification runs set CurrentProgram and ModificationRequest.
	// PhaseCount pins the number of phases; when zero it is taken from CurrentProgram.
	CurrentProgram      *types.Program
	ModificationRequest string
	PhaseCount          int
}

// IsModification reports whether the run revises an existing program
func (o *RunOptions) IsModification() bool {
	return o.CurrentProgram != nil
}

func (o *RunOptions) pinnedPhaseCount() int {
	if !o.IsModification() {
		return 0
	}
	if o.PhaseCount > 0 {
		return o.PhaseCount
	}
	if o.CurrentProgram.TotalPhases > 0 {
		return o.CurrentProgram.TotalPhases
	}
	return len(o.CurrentProgram.Phases)
}

// Result is the outcome of a successful run
type Result struct {
	Program *types.Program
	Saved   *types.SavedProgram
}

// Pipeline runs generation requests. It holds no per-run state and is safe
// for concurrent use.
type Pipeline struct {
	planner   *generation.Planner
	phases    *generation.PhaseGenerator
	committer Committer
	maxPhases int
}

// New creates a pipeline over the content generator and committer
func New(client llm.Client, committer Committer, cfg Config) *Pipeline {
	if cfg.StructureTier == "" {
		cfg.StructureTier = llm.TierStandard
	}
	if cfg.PhaseTier == "" {
		cfg.PhaseTier = llm.TierAdvanced
	}
	if cfg.MaxPhases <= 0 {
		cfg.MaxPhases = DefaultMaxPhases
	}
	return &Pipeline{
		planner:   generation.NewPlanner(client, cfg.StructureTier),
		phases:    generation.NewPhaseGenerator(client, cfg.PhaseTier),
		committer: committer,
		maxPhases: cfg.MaxPhases,
	}
}

// run carries the state of a single execution
type run struct {
	id      uuid.UUID
	opts    RunOptions
	out     *stream.Stream
	tracker *progress.Tracker
	// first transport failure, checked between stages
	writeErr error
}

// Run executes one generation or modification run, writing events to out.
// A failed run emits exactly one error event and returns the cause.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions, out *stream.Stream) (*Result, error) {
	r := &run{id: uuid.New(), opts: opts, out: out}
	r.tracker = progress.NewTracker(func(gp types.GenerationProgress) {
		if err := out.Progress(gp); err != nil && r.writeErr == nil {
			r.writeErr = err
		}
	})

	log.Printf("[pipeline] run %s started (user %s, modification=%t)", r.id, opts.UserID, opts.IsModification())
	result, err := p.execute(ctx, r)
	if err != nil {
		r.fail(err)
		return nil, err
	}
	log.Printf("[pipeline] run %s complete: program %s", r.id, result.Saved.ID)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, r *run) (*Result, error) {
	opts := &r.opts

	if err := r.update(types.StageAnalyzing, "Analyzing your profile and planning the program", percentAnalyzing); err != nil {
		return nil, err
	}

	planned, err := p.planner.Plan(ctx, generation.StructureRequest{
		Profile:             opts.Profile,
		Context:             opts.Context,
		ModificationRequest: opts.ModificationRequest,
		ExistingPhaseCount:  opts.pinnedPhaseCount(),
	})
	if err != nil {
		return nil, err
	}
	structure := planned.Structure

	var parseCause error
	if planned.ParseErr != nil {
		parseCause = planned.ParseErr
	}
	if err := validation.ValidateStructure(structure, p.maxPhases, parseCause); err != nil {
		return nil, err
	}

	total := structure.TotalPhases
	if err := r.update(types.StageGenerating, fmt.Sprintf("Program outline ready: %d phases", total), phaseStart); err != nil {
		return nil, err
	}

	current := map[int]*types.ValidatedPhase{}
	if opts.IsModification() {
		for i := range opts.CurrentProgram.Phases {
			ph := &opts.CurrentProgram.Phases[i]
			current[ph.PhaseNumber] = ph
		}
	}

	phases := make([]types.ValidatedPhase, 0, total)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Generating phase %d of %d", n, total)
		if err := r.update(types.StageGenerating, msg, progress.PhaseSpan(phaseStart, phaseEnd, n-1, total)); err != nil {
			return nil, err
		}

		phase, err := p.generatePhase(ctx, r, structure, n, current[n])
		if err != nil {
			return nil, err
		}
		if err := r.out.Phase(*phase, total); err != nil {
			return nil, err
		}
		phases = append(phases, *phase)

		msg = fmt.Sprintf("Phase %d of %d ready", n, total)
		if err := r.update(types.StageGenerating, msg, progress.PhaseSpan(phaseStart, phaseEnd, n, total)); err != nil {
			return nil, err
		}
	}

	if err := r.update(types.StageProcessing, "Assembling your program", percentProcessing); err != nil {
		return nil, err
	}
	program := assemble(opts, structure, phases)
	if err := r.out.ProgramMeta(program.Meta); err != nil {
		return nil, err
	}

	if err := r.update(types.StageValidating, "Checking the complete program", percentValidating); err != nil {
		return nil, err
	}
	if err := validation.ValidateProgram(program); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.update(types.StageSaving, "Saving your program", percentSaving); err != nil {
		return nil, err
	}
	saved, err := p.committer.Commit(ctx, program)
	if err != nil {
		return nil, err
	}
	program.ID = &saved.ID

	if err := r.update(types.StageComplete, "Your program is ready", 100); err != nil {
		return nil, err
	}
	if err := r.out.Complete(*program, saved); err != nil {
		return nil, err
	}
	return &Result{Program: program, Saved: saved}, nil
}

// generatePhase runs generate, validate and hydrate for one phase
func (p *Pipeline) generatePhase(
	ctx context.Context,
	r *run,
	structure *types.ProgramStructure,
	phaseNumber int,
	currentPhase *types.ValidatedPhase,
) (*types.ValidatedPhase, error) {
	raw, err := p.phases.Generate(ctx, generation.PhaseRequest{
		Profile:             r.opts.Profile,
		Structure:           structure,
		PhaseNumber:         phaseNumber,
		CurrentPhase:        currentPhase,
		ModificationRequest: r.opts.ModificationRequest,
	})
	if err != nil {
		return nil, err
	}

	validated, err := validation.ValidatePhase(raw.Body, phaseNumber)
	if err != nil {
		var vf *validation.ValidationFailed
		if raw.ParseErr != nil && errors.As(err, &vf) {
			vf.Cause = raw.ParseErr
		}
		return nil, err
	}

	hydrated := hydration.Hydrate(*validated, r.opts.Profile.ExperienceLevel())
	return &hydrated, nil
}

// assemble builds the program from the structure and the hydrated phases
func assemble(opts *RunOptions, structure *types.ProgramStructure, phases []types.ValidatedPhase) *types.Program {
	program := &types.Program{
		UserID:      opts.UserID,
		TotalPhases: structure.TotalPhases,
		Phases:      phases,
	}
	if opts.IsModification() && opts.CurrentProgram.ID != nil {
		id := *opts.CurrentProgram.ID
		program.ID = &id
	}

	name := structure.ProgramName
	if name == "" && opts.IsModification() {
		name = opts.CurrentProgram.Meta.Name
	}
	if name == "" {
		name = DefaultProgramName
	}
	description := structure.Description
	if description == "" && opts.IsModification() {
		description = opts.CurrentProgram.Meta.Description
	}
	program.Meta = types.ProgramMeta{
		Name:        name,
		Description: description,
		TotalWeeks:  program.TotalWeeks(),
	}
	return program
}

func (r *run) update(stage types.Stage, message string, percent int) error {
	if err := r.tracker.Update(stage, message, percent); err != nil {
		return err
	}
	return r.writeErr
}

// fail reports a fatal error once, as a progress update followed by the error event
func (r *run) fail(err error) {
	message := errorMessage(err)
	log.Printf("[pipeline] run %s failed: %v", r.id, err)
	if r.tracker.IsTerminal() || r.out.Closed() {
		return
	}
	_ = r.tracker.Fail(message)
	if err := r.out.Fail(message); err != nil {
		log.Printf("[pipeline] run %s: failed to write error event: %v", r.id, err)
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "generation canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "generation timed out"
	default:
		return err.Error()
	}
}
