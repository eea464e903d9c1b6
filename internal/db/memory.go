package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation names used for fault injection on MemoryStore transactions
const (
	OpCreateProgram               = "create_program"
	OpUpdateProgram               = "update_program"
	OpUpsertWorkoutPlan           = "upsert_workout_plan"
	OpCreateWorkout               = "create_workout"
	OpCreateExercise              = "create_exercise"
	OpFindOrCreateLibraryExercise = "find_or_create_library_exercise"
	OpCreateNutritionPlan         = "create_nutrition_plan"
	OpCommit                      = "commit"
)

// Fault makes the operation Op fail with Err once it has succeeded After times
// within a transaction
type Fault struct {
	Op    string
	After int
	Err   error
}

// Counts is the number of committed rows per table
type Counts struct {
	Programs       int
	WorkoutPlans   int
	Workouts       int
	Exercises      int
	Library        int
	NutritionPlans int
}

type memoryState struct {
	programs  map[uuid.UUID]ProgramRecord
	plans     map[uuid.UUID]WorkoutPlanRecord
	workouts  map[uuid.UUID]WorkoutRecord
	exercises map[uuid.UUID]ExerciseRecord
	library   map[string]LibraryExercise
	nutrition map[uuid.UUID]NutritionPlanRecord

	// seq records insertion order of workouts and exercises, breaking ties
	// between rows with the same position
	seq     map[uuid.UUID]int64
	nextSeq int64
}

func newMemoryState() memoryState {
	return memoryState{
		programs:  map[uuid.UUID]ProgramRecord{},
		plans:     map[uuid.UUID]WorkoutPlanRecord{},
		workouts:  map[uuid.UUID]WorkoutRecord{},
		exercises: map[uuid.UUID]ExerciseRecord{},
		library:   map[string]LibraryExercise{},
		nutrition: map[uuid.UUID]NutritionPlanRecord{},
		seq:       map[uuid.UUID]int64{},
	}
}

func (s memoryState) clone() memoryState {
	c := newMemoryState()
	for k, v := range s.programs {
		c.programs[k] = v
	}
	for k, v := range s.plans {
		v.ProgressionProtocol = cloneStrings(v.ProgressionProtocol)
		c.plans[k] = v
	}
	for k, v := range s.workouts {
		v.Warmup = cloneStrings(v.Warmup)
		v.Cooldown = cloneStrings(v.Cooldown)
		c.workouts[k] = v
	}
	for k, v := range s.exercises {
		if v.LibraryExerciseID != nil {
			id := *v.LibraryExerciseID
			v.LibraryExerciseID = &id
		}
		c.exercises[k] = v
	}
	for k, v := range s.library {
		c.library[k] = v
	}
	for k, v := range s.nutrition {
		if v.EndDate != nil {
			end := *v.EndDate
			v.EndDate = &end
		}
		c.nutrition[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	c.nextSeq = s.nextSeq
	return c
}

func (s *memoryState) record(id uuid.UUID) {
	s.nextSeq++
	s.seq[id] = s.nextSeq
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// MemoryStore is an in-memory ProgramStore. Transactions work on a private
// copy of the state that replaces the committed state on Commit, so readers
// never observe uncommitted rows. Transactions are serialized.
type MemoryStore struct {
	// txSem holds a token while a transaction is open
	txSem chan struct{}

	mu     sync.RWMutex
	state  memoryState
	faults []Fault
	now    func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{txSem: make(chan struct{}, 1), state: newMemoryState(), now: time.Now}
}

// InjectFault registers a fault applied to every subsequent transaction
func (s *MemoryStore) InjectFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, f)
}

// ClearFaults removes all injected faults
func (s *MemoryStore) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
}

// Counts returns committed row counts
func (s *MemoryStore) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Programs:       len(s.state.programs),
		WorkoutPlans:   len(s.state.plans),
		Workouts:       len(s.state.workouts),
		Exercises:      len(s.state.exercises),
		Library:        len(s.state.library),
		NutritionPlans: len(s.state.nutrition),
	}
}

// NutritionHistory returns every nutrition version of a phase, oldest first
func (s *MemoryStore) NutritionHistory(programID uuid.UUID, phaseNumber int) []NutritionPlanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []NutritionPlanRecord
	for _, n := range s.state.nutrition {
		if n.ProgramID == programID && n.PhaseNumber == phaseNumber {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

// BeginTx starts a transaction. It blocks while another transaction is open
// or until ctx is done.
func (s *MemoryStore) BeginTx(ctx context.Context) (ProgramTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case s.txSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.RLock()
	tx := &memoryTx{
		store:  s,
		state:  s.state.clone(),
		faults: append([]Fault(nil), s.faults...),
		counts: map[string]int{},
		now:    s.now,
	}
	s.mu.RUnlock()
	return tx, nil
}

// GetProgramGraph reads a committed program. Returns nil if it does not exist.
func (s *MemoryStore) GetProgramGraph(_ context.Context, id uuid.UUID) (*ProgramGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.state.clone()
	program, ok := state.programs[id]
	if !ok {
		return nil, nil
	}

	graph := &ProgramGraph{Program: program}
	for _, plan := range state.sortedPlans(id) {
		pg := PlanGraph{Plan: plan}
		for _, w := range state.sortedWorkouts(plan.ID) {
			pg.Workouts = append(pg.Workouts, WorkoutGraph{Workout: w, Exercises: state.sortedExercises(w.ID)})
		}
		graph.Plans = append(graph.Plans, pg)
	}
	for _, n := range state.nutrition {
		if n.ProgramID == id && n.EndDate == nil {
			graph.Nutrition = append(graph.Nutrition, n)
		}
	}
	sort.Slice(graph.Nutrition, func(i, j int) bool { return graph.Nutrition[i].PhaseNumber < graph.Nutrition[j].PhaseNumber })
	return graph, nil
}

func (s memoryState) sortedPlans(programID uuid.UUID) []WorkoutPlanRecord {
	var plans []WorkoutPlanRecord
	for _, p := range s.plans {
		if p.ProgramID == programID {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].PhaseNumber < plans[j].PhaseNumber })
	return plans
}

func (s memoryState) sortedWorkouts(planID uuid.UUID) []WorkoutRecord {
	var workouts []WorkoutRecord
	for _, w := range s.workouts {
		if w.WorkoutPlanID == planID {
			workouts = append(workouts, w)
		}
	}
	sort.Slice(workouts, func(i, j int) bool {
		if workouts[i].DayNumber != workouts[j].DayNumber {
			return workouts[i].DayNumber < workouts[j].DayNumber
		}
		return s.seq[workouts[i].ID] < s.seq[workouts[j].ID]
	})
	return workouts
}

func (s memoryState) sortedExercises(workoutID uuid.UUID) []ExerciseRecord {
	var exercises []ExerciseRecord
	for _, e := range s.exercises {
		if e.WorkoutID == workoutID {
			exercises = append(exercises, e)
		}
	}
	sort.Slice(exercises, func(i, j int) bool {
		if exercises[i].SortOrder != exercises[j].SortOrder {
			return exercises[i].SortOrder < exercises[j].SortOrder
		}
		return s.seq[exercises[i].ID] < s.seq[exercises[j].ID]
	})
	return exercises
}

// memoryTx implements ProgramTx over a private copy of the store state
type memoryTx struct {
	store  *MemoryStore
	state  memoryState
	faults []Fault
	counts map[string]int
	now    func() time.Time
	done   bool
}

// check applies injected faults and rejects use after the transaction ended
func (t *memoryTx) check(op string) error {
	if t.done {
		return ErrTxDone
	}
	n := t.counts[op]
	for _, f := range t.faults {
		if f.Op == op && n >= f.After {
			return f.Err
		}
	}
	t.counts[op] = n + 1
	return nil
}

func (t *memoryTx) GetProgram(_ context.Context, id uuid.UUID) (*ProgramRecord, error) {
	if t.done {
		return nil, ErrTxDone
	}
	p, ok := t.state.programs[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memoryTx) CreateProgram(_ context.Context, p *ProgramRecord) error {
	if err := t.check(OpCreateProgram); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, exists := t.state.programs[p.ID]; exists {
		return fmt.Errorf("program %s already exists", p.ID)
	}
	now := t.now()
	p.CreatedAt, p.UpdatedAt = now, now
	t.state.programs[p.ID] = *p
	return nil
}

func (t *memoryTx) UpdateProgram(_ context.Context, p *ProgramRecord) error {
	if err := t.check(OpUpdateProgram); err != nil {
		return err
	}
	existing, ok := t.state.programs[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.UserID = existing.UserID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = t.now()
	t.state.programs[p.ID] = *p
	return nil
}

func (t *memoryTx) ListWorkoutPlans(_ context.Context, programID uuid.UUID) ([]WorkoutPlanRecord, error) {
	if t.done {
		return nil, ErrTxDone
	}
	return t.state.sortedPlans(programID), nil
}

func (t *memoryTx) UpsertWorkoutPlan(_ context.Context, plan *WorkoutPlanRecord) error {
	if err := t.check(OpUpsertWorkoutPlan); err != nil {
		return err
	}
	if _, ok := t.state.programs[plan.ProgramID]; !ok {
		return fmt.Errorf("program %s does not exist", plan.ProgramID)
	}
	for id, other := range t.state.plans {
		if id != plan.ID && other.ProgramID == plan.ProgramID && other.PhaseNumber == plan.PhaseNumber {
			return fmt.Errorf("phase %d already exists for program %s", plan.PhaseNumber, plan.ProgramID)
		}
	}

	now := t.now()
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	if existing, ok := t.state.plans[plan.ID]; ok {
		plan.CreatedAt = existing.CreatedAt
	} else {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	stored := *plan
	stored.ProgressionProtocol = cloneStrings(plan.ProgressionProtocol)
	t.state.plans[plan.ID] = stored
	return nil
}

func (t *memoryTx) DeleteWorkoutPlan(ctx context.Context, id uuid.UUID) error {
	if err := t.DeleteWorkouts(ctx, id); err != nil {
		return err
	}
	delete(t.state.plans, id)
	return nil
}

func (t *memoryTx) DeleteWorkouts(_ context.Context, planID uuid.UUID) error {
	if t.done {
		return ErrTxDone
	}
	for id, w := range t.state.workouts {
		if w.WorkoutPlanID != planID {
			continue
		}
		for eid, e := range t.state.exercises {
			if e.WorkoutID == id {
				delete(t.state.exercises, eid)
				delete(t.state.seq, eid)
			}
		}
		delete(t.state.workouts, id)
		delete(t.state.seq, id)
	}
	return nil
}

func (t *memoryTx) CreateWorkout(_ context.Context, w *WorkoutRecord) error {
	if err := t.check(OpCreateWorkout); err != nil {
		return err
	}
	if _, ok := t.state.plans[w.WorkoutPlanID]; !ok {
		return fmt.Errorf("workout plan %s does not exist", w.WorkoutPlanID)
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	stored := *w
	stored.Warmup = cloneStrings(w.Warmup)
	stored.Cooldown = cloneStrings(w.Cooldown)
	t.state.workouts[w.ID] = stored
	t.state.record(w.ID)
	return nil
}

func (t *memoryTx) CreateExercise(_ context.Context, e *ExerciseRecord) error {
	if err := t.check(OpCreateExercise); err != nil {
		return err
	}
	if _, ok := t.state.workouts[e.WorkoutID]; !ok {
		return fmt.Errorf("workout %s does not exist", e.WorkoutID)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	stored := *e
	if e.LibraryExerciseID != nil {
		id := *e.LibraryExerciseID
		stored.LibraryExerciseID = &id
	}
	t.state.exercises[e.ID] = stored
	t.state.record(e.ID)
	return nil
}

func (t *memoryTx) FindOrCreateLibraryExercise(_ context.Context, name string) (*LibraryExercise, error) {
	if err := t.check(OpFindOrCreateLibraryExercise); err != nil {
		return nil, err
	}
	normalized := NormalizeExerciseName(name)
	if normalized == "" {
		return nil, fmt.Errorf("exercise name cannot be empty")
	}
	if ex, ok := t.state.library[normalized]; ok {
		return &ex, nil
	}
	ex := LibraryExercise{
		ID:             uuid.New(),
		Name:           name,
		NameNormalized: normalized,
		Category:       DefaultExerciseCategory,
		Equipment:      DefaultExerciseEquipment,
		CreatedAt:      t.now(),
	}
	t.state.library[normalized] = ex
	return &ex, nil
}

func (t *memoryTx) EndActiveNutritionPlans(_ context.Context, programID uuid.UUID, phaseNumber int, at time.Time) error {
	if t.done {
		return ErrTxDone
	}
	for id, n := range t.state.nutrition {
		if n.ProgramID == programID && n.PhaseNumber == phaseNumber && n.EndDate == nil {
			end := at
			n.EndDate = &end
			t.state.nutrition[id] = n
		}
	}
	return nil
}

func (t *memoryTx) CreateNutritionPlan(_ context.Context, n *NutritionPlanRecord) error {
	if err := t.check(OpCreateNutritionPlan); err != nil {
		return err
	}
	if n.EndDate == nil {
		for _, other := range t.state.nutrition {
			if other.ProgramID == n.ProgramID && other.PhaseNumber == n.PhaseNumber && other.EndDate == nil {
				return fmt.Errorf("phase %d already has an active nutrition plan", n.PhaseNumber)
			}
		}
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	t.state.nutrition[n.ID] = *n
	return nil
}

func (t *memoryTx) Commit(_ context.Context) error {
	if err := t.check(OpCommit); err != nil {
		if err != ErrTxDone {
			t.finish()
		}
		return err
	}
	t.store.mu.Lock()
	t.store.state = t.state
	t.store.mu.Unlock()
	t.finish()
	return nil
}

func (t *memoryTx) Rollback(_ context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.finish()
	return nil
}

func (t *memoryTx) finish() {
	t.done = true
	t.state = memoryState{}
	<-t.store.txSem
}
