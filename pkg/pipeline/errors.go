package pipeline

import "fmt"

// ErrorKind classifies pipeline failures for callers and the API layer.
type ErrorKind string

const (
	// KindInvalidInput covers empty/undecodable transcripts and bad options.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindInsufficientContent means no chunk survived filtering.
	KindInsufficientContent ErrorKind = "insufficient_content"
	// KindNoValidSteps means every generated draft was rejected.
	KindNoValidSteps ErrorKind = "no_valid_steps"
	// KindJobTimeout means the whole-job soft timeout elapsed.
	KindJobTimeout ErrorKind = "job_timeout"
	// KindCancelled means the caller cancelled the job.
	KindCancelled ErrorKind = "cancelled"
	// KindInternal marks invariant violations.
	KindInternal ErrorKind = "internal"
)

// IsValid checks if the error kind is one of the known values.
func (k ErrorKind) IsValid() bool {
	switch k {
	case KindInvalidInput, KindInsufficientContent, KindNoValidSteps,
		KindJobTimeout, KindCancelled, KindInternal:
		return true
	default:
		return false
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// insufficientContentMessage builds the numbered remediation message for
// content eliminated by filtering.
func insufficientContentMessage(detail string, importanceThreshold float64) string {
	return fmt.Sprintf(`no usable instructional content remained after filtering: %s. Options:
1. Lower importance_threshold (currently %.2f) to keep more topic chunks.
2. Submit a longer or clearer transcript with more instructional content.
3. Reduce qa_density_threshold if the session was question-driven.`, detail, importanceThreshold)
}

// noValidStepsMessage builds the numbered remediation message for runs where
// every draft was rejected.
func noValidStepsMessage(reasons []string, minConfidence float64) string {
	detail := "no rejection details recorded"
	if len(reasons) > 0 {
		detail = ""
		for i, reason := range reasons {
			if i > 0 {
				detail += "; "
			}
			detail += reason
		}
	}
	return fmt.Sprintf(`every generated step was rejected (%s). Options:
1. Lower min_confidence_threshold (currently %.2f).
2. Provide knowledge URLs so steps can cite supporting material.
3. Submit a longer or clearer transcript.`, detail, minConfidence)
}
