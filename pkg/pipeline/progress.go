package pipeline

// Stage identifies one pipeline phase for progress reporting.
type Stage string

const (
	StageNormalizing Stage = "normalizing"
	StageFetching    Stage = "fetching_knowledge"
	StageSegmenting  Stage = "segmenting"
	StageRanking     Stage = "ranking"
	StageSelecting   Stage = "selecting_excerpts"
	StageGenerating  Stage = "generating"
	StageBinding     Stage = "binding_sources"
	StageValidating  Stage = "validating"
	StageAssembling  Stage = "assembling"
)

// IsValid checks if the stage is one of the known values.
func (s Stage) IsValid() bool {
	switch s {
	case StageNormalizing, StageFetching, StageSegmenting, StageRanking,
		StageSelecting, StageGenerating, StageBinding, StageValidating,
		StageAssembling:
		return true
	default:
		return false
	}
}

// Update is a read-only progress snapshot delivered to the caller's sink.
// Fraction is monotonically non-decreasing over a run. CurrentStep and
// TotalSteps are set during generation only.
type Update struct {
	Stage       Stage   `json:"stage"`
	CurrentStep int     `json:"current_step,omitempty"`
	TotalSteps  int     `json:"total_steps,omitempty"`
	Detail      string  `json:"detail,omitempty"`
	Fraction    float64 `json:"fraction"`
}

// ProgressFunc receives progress updates. It must not block: the pipeline
// calls it inline and does not await it.
type ProgressFunc func(Update)

// Fraction milestones per stage. Generation interpolates between its start
// and end marks per completed chunk.
const (
	fractionNormalized = 0.05
	fractionFetched    = 0.15
	fractionSegmented  = 0.22
	fractionRanked     = 0.28
	fractionSelected   = 0.38
	fractionGenerated  = 0.85
	fractionBound      = 0.92
	fractionValidated  = 0.97
	fractionDone       = 1.00
)

// reporter wraps the caller's sink and enforces monotone fractions.
type reporter struct {
	sink ProgressFunc
	last float64
}

func (r *reporter) report(update Update) {
	if r.sink == nil {
		return
	}
	if update.Fraction < r.last {
		update.Fraction = r.last
	}
	r.last = update.Fraction
	r.sink(update)
}
