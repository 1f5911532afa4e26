package generation

import (
	"context"
	"errors"
	"fmt"

	"rationalist/internal/report"
)

// Phase names the generation step, used in errors and LLM phase tags.
type Phase string

const (
	PhaseAnalyze    Phase = "analyze"
	PhaseStructure  Phase = "structure"
	PhasePrioritize Phase = "prioritize"
	PhasePlan       Phase = "plan"
	PhaseSynthesize Phase = "synthesize"
)

type AnalyzeInput struct {
	Problem string
	// Context is optional free-form background.
	Context string
}

type StructureInput struct {
	Objective string
	Type      report.BreakdownType
	// Feedback carries the user's redirection when the tree is regenerated.
	Feedback string
}

type PrioritizeInput struct {
	Issues   []string
	Feedback string
}

type PlanInput struct {
	Issues   []string
	Feedback string
}

type SynthesizeInput struct {
	Objective string
	Context   string
}

// Gateway is the remote reasoning capability, one operation per phase.
// Implementations retry transient failures internally and report a final
// failure as *Error.
type Gateway interface {
	Analyze(ctx context.Context, in AnalyzeInput) (report.Analysis, error)
	Structure(ctx context.Context, in StructureInput) (report.Tree, error)
	Prioritize(ctx context.Context, in PrioritizeInput) (report.Prioritization, error)
	Plan(ctx context.Context, in PlanInput) ([]report.WorkplanItem, error)
	Synthesize(ctx context.Context, in SynthesizeInput) (report.Synthesis, error)
}

// Error is a generation that failed after retries.
type Error struct {
	Phase Phase
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "generation failed"
	}
	return fmt.Sprintf("%s generation failed: %v", e.Phase, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(phase Phase, cause error) error {
	if cause == nil {
		return nil
	}
	var gErr *Error
	if errors.As(cause, &gErr) {
		return cause
	}
	return &Error{Phase: phase, Cause: cause}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr, true
	}
	return nil, false
}
