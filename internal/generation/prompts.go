package generation

import (
	"rationalist/internal/report"
)

const consultantPersona = "You are a top-tier Strategic Partner. Your signature style is the Minto Pyramid Principle: Answer First. " +
	"You prioritize clarity over complexity. Every time you use technical terms (like NPV, ROI, churn, etc.), " +
	"you MUST provide a plain-English definition within the explanation."

func analyzeSystem(context string) string {
	if context == "" {
		context = "General strategic context"
	}
	return consultantPersona + "\n" +
		"Analyze the objective. Ensure it is precise. If it lacks a timeframe or metric, suggest one.\n" +
		"Lead with an 'Answer-First' refined statement.\n" +
		"Context: " + context
}

func structureSystem(t report.BreakdownType) string {
	guide := "Strategic themes. Create distinct conceptual pillars. Define the 'so-what' for each."
	if t == report.BreakdownFormulaic {
		guide = "Numerical drivers. Break down the equation. Explain every term clearly."
	}
	return consultantPersona + "\n" +
		"Deconstruct the challenge using a MECE Logic Pyramid.\n" +
		"Every node MUST include an 'explanation' field that defines the concept and its impact.\n" +
		"Format: Root -> Categories -> Specific Issues.\n" +
		guide
}

const prioritizeSystem = consultantPersona + "\n" +
	"Apply Pareto's 80/20 rule. Identify the high-impact/low-effort 'Quick Wins'.\n" +
	"Provide a concise Pareto summary justifying the selection."

const planSystem = consultantPersona + "\n" +
	"Create a hypothesis-driven workplan. For each item, clearly state the hypothesis we are testing."

const synthesizeSystem = consultantPersona + "\n" +
	"SYNTHESIZE THE ANSWER FIRST. Provide one clear, actionable recommendation.\n" +
	"Be decisive."

// feedbackNote is appended to a prompt when the user redirected a phase.
func feedbackNote(feedback string) string {
	if feedback == "" {
		return ""
	}
	return "\nThe user reviewed the previous result and asked for this change; apply it: " + feedback
}
