package report

import (
	"strings"
)

// Report accumulates the artifacts of one guided session. Fields are only
// ever replaced as a whole; nil means the phase has not produced output yet.
type Report struct {
	OriginalProblem string          `json:"originalProblem"`
	Analysis        *Analysis       `json:"analysis"`
	IssueTree       *Tree           `json:"issueTree"`
	Prioritization  *Prioritization `json:"prioritization"`
	Workplan        []WorkplanItem  `json:"workplan"`
	Synthesis       *Synthesis      `json:"synthesis"`
}

// Analysis is the SMART evaluation of the stated objective.
type Analysis struct {
	Specific            bool     `json:"specific"`
	Measurable          bool     `json:"measurable"`
	Actionable          bool     `json:"actionable"`
	Relevant            bool     `json:"relevant"`
	TimeBound           bool     `json:"timeBound"`
	Feedback            string   `json:"feedback"`
	ImprovedStatement   string   `json:"improvedStatement"`
	Stakeholders        []string `json:"stakeholders,omitempty"`
	RecommendedApproach string   `json:"recommendedApproach,omitempty"`
	ChallengerQuestions []string `json:"challengerQuestions"`
	IdentifiedBiases    []string `json:"identifiedBiases,omitempty"`
}

type WorkplanItem struct {
	Issue      string `json:"issue"`
	Hypothesis string `json:"hypothesis"`
	Analysis   string `json:"analysis"`
	Source     string `json:"source,omitempty"`
	Timing     string `json:"timing"`
}

type Recommendation struct {
	Text            string   `json:"text"`
	ActionableSteps []string `json:"actionableSteps"`
	Stakeholders    []string `json:"stakeholders"`
	Resources       []string `json:"resources"`
}

type Synthesis struct {
	Summary        string         `json:"summary"`
	Recommendation Recommendation `json:"recommendation"`
}

// Objective returns the statement later phases should work from: the
// improved statement when the analysis produced one, else the raw problem.
func (r *Report) Objective() string {
	if r == nil {
		return ""
	}
	if r.Analysis != nil {
		if s := strings.TrimSpace(r.Analysis.ImprovedStatement); s != "" {
			return s
		}
	}
	return strings.TrimSpace(r.OriginalProblem)
}

// Stage names the furthest step that has produced data.
type Stage int

const (
	StageEmpty Stage = iota
	StageAnalyzed
	StageStructured
	StagePrioritized
	StagePlanned
	StageSynthesized
)

func (r *Report) Stage() Stage {
	switch {
	case r == nil:
		return StageEmpty
	case r.Synthesis != nil:
		return StageSynthesized
	case r.Workplan != nil:
		return StagePlanned
	case r.Prioritization != nil:
		return StagePrioritized
	case r.IssueTree != nil:
		return StageStructured
	case r.Analysis != nil:
		return StageAnalyzed
	default:
		return StageEmpty
	}
}

// Clone returns a deep copy that shares no slices or pointers with r.
func (r *Report) Clone() Report {
	if r == nil {
		return Report{}
	}
	out := Report{OriginalProblem: r.OriginalProblem}
	if r.Analysis != nil {
		a := *r.Analysis
		a.Stakeholders = cloneStrings(a.Stakeholders)
		a.ChallengerQuestions = cloneStrings(a.ChallengerQuestions)
		a.IdentifiedBiases = cloneStrings(a.IdentifiedBiases)
		out.Analysis = &a
	}
	if r.IssueTree != nil {
		t := r.IssueTree.Clone()
		out.IssueTree = &t
	}
	if r.Prioritization != nil {
		p := Prioritization{Summary: r.Prioritization.Summary}
		if r.Prioritization.Items != nil {
			p.Items = append([]MatrixItem{}, r.Prioritization.Items...)
		}
		out.Prioritization = &p
	}
	if r.Workplan != nil {
		out.Workplan = append([]WorkplanItem{}, r.Workplan...)
	}
	if r.Synthesis != nil {
		s := *r.Synthesis
		s.Recommendation.ActionableSteps = cloneStrings(s.Recommendation.ActionableSteps)
		s.Recommendation.Stakeholders = cloneStrings(s.Recommendation.Stakeholders)
		s.Recommendation.Resources = cloneStrings(s.Recommendation.Resources)
		out.Synthesis = &s
	}
	return out
}

// CheckConsistency reports cross-field mismatches: prioritised labels that
// are not issue leaves and workplan issues that were not prioritised. The
// model may paraphrase labels, so callers log these rather than fail.
func (r *Report) CheckConsistency() []string {
	if r == nil {
		return nil
	}
	var warnings []string
	if r.IssueTree != nil && r.Prioritization != nil {
		leaves := make(map[string]struct{})
		for _, l := range r.IssueTree.IssueLabels() {
			leaves[normalizeLabel(l)] = struct{}{}
		}
		for _, it := range r.Prioritization.Items {
			if _, ok := leaves[normalizeLabel(it.Label)]; !ok {
				warnings = append(warnings, "prioritized item is not an issue leaf: "+it.Label)
			}
		}
	}
	if r.Prioritization != nil && r.Workplan != nil {
		selected := make(map[string]struct{})
		for _, l := range PriorityLabels(r.Prioritization.Items) {
			selected[normalizeLabel(l)] = struct{}{}
		}
		for _, w := range r.Workplan {
			if _, ok := selected[normalizeLabel(w.Issue)]; !ok {
				warnings = append(warnings, "workplan issue was not prioritized: "+w.Issue)
			}
		}
	}
	return warnings
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
