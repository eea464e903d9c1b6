package types

// Stage is a pipeline state reported to the consumer
type Stage string

// Stages in the order a run passes through them
const (
	StageIdle       Stage = "idle"
	StageAnalyzing  Stage = "analyzing"
	StageGenerating Stage = "generating"
	StageProcessing Stage = "processing"
	StageValidating Stage = "validating"
	StageSaving     Stage = "saving"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// stageOrder ranks the non-error stages
var stageOrder = map[Stage]int{
	StageIdle:       0,
	StageAnalyzing:  1,
	StageGenerating: 2,
	StageProcessing: 3,
	StageValidating: 4,
	StageSaving:     5,
	StageComplete:   6,
}

// Rank returns the position of a stage in the run order.
// StageError and unknown stages return -1.
func (s Stage) Rank() int {
	if r, ok := stageOrder[s]; ok {
		return r
	}
	return -1
}

// IsTerminal reports whether no transition can leave the stage
func (s Stage) IsTerminal() bool {
	return s == StageComplete || s == StageError
}

// GenerationProgress is the pipeline state at an instant. Never persisted.
type GenerationProgress struct {
	Stage    Stage  `json:"stage"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
}
