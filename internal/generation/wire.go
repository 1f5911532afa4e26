package generation

import (
	"fmt"
	"strings"

	"rationalist/internal/report"
)

// Wire types mirror the field names the model is asked to produce.

type wireAnalysis struct {
	IsSpecific            bool     `json:"isSpecific"`
	IsMeasurable          bool     `json:"isMeasurable"`
	IsActionable          bool     `json:"isActionable"`
	IsRelevant            bool     `json:"isRelevant"`
	IsTimeBound           bool     `json:"isTimeBound"`
	Feedback              string   `json:"feedback"`
	ImprovedStatement     string   `json:"improvedStatement"`
	PotentialStakeholders []string `json:"potentialStakeholders"`
	RecommendedApproach   string   `json:"recommendedApproach"`
	ChallengerQuestions   []string `json:"challengerQuestions"`
	IdentifiedBiases      []string `json:"identifiedBiases"`
}

func (w wireAnalysis) toReport() (report.Analysis, error) {
	if strings.TrimSpace(w.ImprovedStatement) == "" {
		return report.Analysis{}, fmt.Errorf("analysis has no improved statement")
	}
	return report.Analysis{
		Specific:            w.IsSpecific,
		Measurable:          w.IsMeasurable,
		Actionable:          w.IsActionable,
		Relevant:            w.IsRelevant,
		TimeBound:           w.IsTimeBound,
		Feedback:            w.Feedback,
		ImprovedStatement:   strings.TrimSpace(w.ImprovedStatement),
		Stakeholders:        w.PotentialStakeholders,
		RecommendedApproach: w.RecommendedApproach,
		ChallengerQuestions: w.ChallengerQuestions,
		IdentifiedBiases:    w.IdentifiedBiases,
	}, nil
}

type wireNode struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Explanation string     `json:"explanation"`
	Type        string     `json:"type"`
	Children    []wireNode `json:"children"`
}

func (w wireNode) toReport() report.Node {
	n := report.Node{
		ID:          w.ID,
		Label:       w.Label,
		Explanation: w.Explanation,
		Kind:        report.NodeKind(w.Type),
	}
	if len(w.Children) > 0 {
		n.Children = make([]report.Node, len(w.Children))
		for i, c := range w.Children {
			n.Children[i] = c.toReport()
		}
	}
	return n
}

type wireTree struct {
	Root            wireNode `json:"root"`
	MECEExplanation string   `json:"meceExplanation"`
}

func (w wireTree) toReport() (report.Tree, error) {
	t := report.Tree{Root: w.Root.toReport(), MECEExplanation: w.MECEExplanation}
	t.AssignMissingIDs()
	t.Normalize()
	if err := t.Validate(); err != nil {
		return report.Tree{}, fmt.Errorf("invalid issue tree: %w", err)
	}
	return t, nil
}

type wireMatrixItem struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Impact        string `json:"impact"`
	Effort        string `json:"effort"`
	Quadrant      string `json:"quadrant"`
	Reasoning     string `json:"reasoning"`
	IsParetoTop20 bool   `json:"isParetoTop20"`
}

type wirePrioritization struct {
	Items         []wireMatrixItem `json:"items"`
	ParetoSummary string           `json:"paretoSummary"`
}

// toReport converts matrix items. An unreadable quadrant is derived from
// impact and effort when both are present.
func (w wirePrioritization) toReport() (report.Prioritization, error) {
	out := report.Prioritization{
		Items:   make([]report.MatrixItem, 0, len(w.Items)),
		Summary: w.ParetoSummary,
	}
	for i, it := range w.Items {
		impact, impErr := report.ParseLevel(it.Impact)
		effort, effErr := report.ParseLevel(it.Effort)
		quadrant, err := report.ParseQuadrant(it.Quadrant)
		if err != nil {
			if impErr != nil || effErr != nil {
				return report.Prioritization{}, fmt.Errorf("item %d (%q): %w", i, it.Label, err)
			}
			quadrant = report.QuadrantFor(impact, effort)
		}
		out.Items = append(out.Items, report.MatrixItem{
			ID:        it.ID,
			Label:     strings.TrimSpace(it.Label),
			Impact:    impact,
			Effort:    effort,
			Quadrant:  quadrant,
			Reasoning: it.Reasoning,
			IsTop20:   it.IsParetoTop20,
		})
	}
	return out, nil
}

type wireWorkplanItem struct {
	Issue      string `json:"issue"`
	Hypothesis string `json:"hypothesis"`
	Analysis   string `json:"analysis"`
	Source     string `json:"source"`
	Timing     string `json:"timing"`
}

func workplanToReport(items []wireWorkplanItem) []report.WorkplanItem {
	out := make([]report.WorkplanItem, 0, len(items))
	for _, it := range items {
		out = append(out, report.WorkplanItem(it))
	}
	return out
}

type wireSynthesis struct {
	Synthesis      string `json:"synthesis"`
	Recommendation struct {
		Text            string   `json:"text"`
		ActionableSteps []string `json:"actionableSteps"`
		Stakeholders    []string `json:"stakeholders"`
		Resources       []string `json:"resources"`
	} `json:"recommendation"`
}

func (w wireSynthesis) toReport() report.Synthesis {
	return report.Synthesis{
		Summary: w.Synthesis,
		Recommendation: report.Recommendation{
			Text:            w.Recommendation.Text,
			ActionableSteps: w.Recommendation.ActionableSteps,
			Stakeholders:    w.Recommendation.Stakeholders,
			Resources:       w.Recommendation.Resources,
		},
	}
}
