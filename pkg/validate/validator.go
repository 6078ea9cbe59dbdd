// Package validate scores generated steps and enforces the quality gates
// that decide whether a step makes it into the final document.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/traindoc-io/traindoc/pkg/models"
)

// Confidence base weights over the top three source scores.
var topSourceWeights = [3]float64{0.50, 0.30, 0.20}

// Confidence multipliers.
const (
	multiplierFourSources  = 1.25
	multiplierThreeSources = 1.15
	multiplierTwoSources   = 1.08
	multiplierBothKinds    = 1.12
	multiplierStrongMatch  = 1.10
	strongMatchThreshold   = 0.50
)

// ValidatorParams carry the acceptance thresholds.
type ValidatorParams struct {
	MinActions      int
	MaxActions      int
	MinContentWords int
	MinConfidence   float64
}

// Validator applies confidence scoring and hard gates to step drafts.
type Validator struct {
	params ValidatorParams
}

// NewValidator creates a validator.
func NewValidator(params ValidatorParams) *Validator {
	return &Validator{params: params}
}

// Validate scores one draft against its bound sources and decides acceptance.
// Every failing gate records its own rejection reason.
func (v *Validator) Validate(draft *models.StepDraft, sources []models.SourceRef) models.ValidatedStep {
	confidence := Confidence(sources)
	step := models.ValidatedStep{
		Draft:      *draft,
		Sources:    sources,
		Confidence: confidence,
		Quality:    models.QualityFromConfidence(confidence),
	}

	if n := len(draft.Actions); n < v.params.MinActions || n > v.params.MaxActions {
		step.RejectionReasons = append(step.RejectionReasons,
			fmt.Sprintf("action count %d outside allowed range [%d, %d]", n, v.params.MinActions, v.params.MaxActions))
	}
	for _, action := range draft.Actions {
		if word := FirstWord(action); !IsStrongVerb(word) || IsWeakOpener(action) {
			step.RejectionReasons = append(step.RejectionReasons,
				fmt.Sprintf("action %q does not begin with an allowed strong verb", action))
		}
	}
	if words := len(strings.Fields(draft.Content)); words < v.params.MinContentWords {
		step.RejectionReasons = append(step.RejectionReasons,
			fmt.Sprintf("content has %d words, below minimum %d", words, v.params.MinContentWords))
	}
	if !hasKind(sources, models.SourceTranscript) {
		step.RejectionReasons = append(step.RejectionReasons,
			"no transcript source reference")
	}
	if len(sources) == 0 {
		step.RejectionReasons = append(step.RejectionReasons,
			"no source references at all")
	}
	if confidence < v.params.MinConfidence {
		step.RejectionReasons = append(step.RejectionReasons,
			fmt.Sprintf("confidence %.2f below threshold %.2f", confidence, v.params.MinConfidence))
	}

	if !titleStartsWithActionVerb(draft.Title) {
		step.Warnings = append(step.Warnings,
			fmt.Sprintf("title %q does not begin with an action verb or gerund", draft.Title))
	}

	step.Accepted = len(step.RejectionReasons) == 0
	return step
}

// Confidence computes the multi-factor confidence for a set of sources:
// a weighted average of the top three match scores, boosted by source count,
// kind diversity, and any single strong match, clipped once at the end.
func Confidence(sources []models.SourceRef) float64 {
	if len(sources) == 0 {
		return 0
	}

	scores := make([]float64, len(sources))
	for i, src := range sources {
		scores[i] = src.MatchScore
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	base := 0.0
	for i, weight := range topSourceWeights {
		if i < len(scores) {
			base += weight * scores[i]
		}
	}

	confidence := base
	switch {
	case len(sources) >= 4:
		confidence *= multiplierFourSources
	case len(sources) == 3:
		confidence *= multiplierThreeSources
	case len(sources) == 2:
		confidence *= multiplierTwoSources
	}
	if hasKind(sources, models.SourceTranscript) && hasKind(sources, models.SourceKnowledge) {
		confidence *= multiplierBothKinds
	}
	for _, src := range sources {
		if src.MatchScore > strongMatchThreshold {
			confidence *= multiplierStrongMatch
			break
		}
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

func hasKind(sources []models.SourceRef, kind models.SourceKind) bool {
	for _, src := range sources {
		if src.Kind == kind {
			return true
		}
	}
	return false
}

// titleStartsWithActionVerb accepts titles opening with a strong verb or a
// gerund form of one.
func titleStartsWithActionVerb(title string) bool {
	word := FirstWord(title)
	if IsStrongVerb(word) {
		return true
	}
	if strings.HasSuffix(word, "ing") {
		stem := strings.TrimSuffix(word, "ing")
		// Handle doubled consonants and dropped trailing e: running -> run,
		// configuring -> configure.
		if IsStrongVerb(stem) || IsStrongVerb(stem+"e") {
			return true
		}
		if len(stem) > 1 && stem[len(stem)-1] == stem[len(stem)-2] && IsStrongVerb(stem[:len(stem)-1]) {
			return true
		}
	}
	return false
}
