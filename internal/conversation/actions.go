package conversation

import (
	"strings"

	"rationalist/internal/report"
	"rationalist/internal/transcript"
)

// Action values offered to the user.
const (
	ActionConfirmAnalysis       = "confirm_smart"
	ActionRefineAnalysis        = "refine_smart"
	ActionTypeFormulaic         = "type_formulaic"
	ActionTypeThematic          = "type_thematic"
	ActionConfirmTree           = "confirm_tree"
	ActionRefineTree            = "refine_tree"
	ActionConfirmPrioritization = "confirm_prioritization"
	ActionRefinePrioritization  = "refine_prioritization"
	ActionConfirmPlan           = "confirm_plan"
	ActionRefinePlan            = "refine_plan"
)

func analysisChoices() []transcript.Action {
	return []transcript.Action{
		{Label: "Proceed", Value: ActionConfirmAnalysis, Style: transcript.StylePrimary},
		{Label: "Refine Definition", Value: ActionRefineAnalysis, Style: transcript.StyleSecondary},
	}
}

func breakdownChoices() []transcript.Action {
	return []transcript.Action{
		{
			Label:     "Quantitative Drivers",
			Value:     ActionTypeFormulaic,
			Style:     transcript.StylePrimary,
			Rationale: "Best for problems involving metrics, revenue, or costs. We will map the specific drivers that mathematically lead to your target.",
		},
		{
			Label:     "Qualitative Pillars",
			Value:     ActionTypeThematic,
			Style:     transcript.StylePrimary,
			Rationale: "Best for ambiguous strategic challenges like market positioning or organization. We will break this into distinct conceptual themes.",
		},
	}
}

func treeChoices() []transcript.Action {
	return []transcript.Action{
		{Label: "Yes, Prioritize Now", Value: ActionConfirmTree, Style: transcript.StylePrimary},
		{Label: "Refine Structure", Value: ActionRefineTree, Style: transcript.StyleSecondary},
	}
}

func prioritizationChoices() []transcript.Action {
	return []transcript.Action{
		{Label: "Generate Plan", Value: ActionConfirmPrioritization, Style: transcript.StylePrimary},
		{Label: "Adjust Focus", Value: ActionRefinePrioritization, Style: transcript.StyleSecondary},
	}
}

func planChoices() []transcript.Action {
	return []transcript.Action{
		{Label: "Final Synthesis", Value: ActionConfirmPlan, Style: transcript.StylePrimary},
		{Label: "Refine Plan", Value: ActionRefinePlan, Style: transcript.StyleSecondary},
	}
}

// resolveAction maps the generic values (confirm, refine, formulaic,
// thematic) onto the canonical value for the phase.
func resolveAction(phase Phase, value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "confirm":
		switch phase {
		case PhaseDefine:
			return ActionConfirmAnalysis
		case PhaseStructure:
			return ActionConfirmTree
		case PhasePrioritize:
			return ActionConfirmPrioritization
		case PhasePlan:
			return ActionConfirmPlan
		}
	case "refine":
		switch phase {
		case PhaseDefine:
			return ActionRefineAnalysis
		case PhaseStructure:
			return ActionRefineTree
		case PhasePrioritize:
			return ActionRefinePrioritization
		case PhasePlan:
			return ActionRefinePlan
		}
	case "formulaic":
		return ActionTypeFormulaic
	case "thematic":
		return ActionTypeThematic
	}
	return v
}

func breakdownFor(value string) (report.BreakdownType, bool) {
	switch value {
	case ActionTypeFormulaic:
		return report.BreakdownFormulaic, true
	case ActionTypeThematic:
		return report.BreakdownThematic, true
	}
	return "", false
}

func offers(actions []transcript.Action, value string) bool {
	for _, a := range actions {
		if a.Value == value {
			return true
		}
	}
	return false
}
