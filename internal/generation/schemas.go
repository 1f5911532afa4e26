package generation

// Response schemas, written as JSON Schema. The Gemini client converts them
// to its own schema type; the validation middleware checks responses
// against them.

func str() map[string]any     { return map[string]any{"type": "string"} }
func boolean() map[string]any { return map[string]any{"type": "boolean"} }
func strList() map[string]any {
	return map[string]any{"type": "array", "items": str()}
}

func object(props map[string]any, required ...string) map[string]any {
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

var analysisSchema = object(map[string]any{
	"isSpecific":            boolean(),
	"isMeasurable":          boolean(),
	"isActionable":          boolean(),
	"isRelevant":            boolean(),
	"isTimeBound":           boolean(),
	"feedback":              str(),
	"improvedStatement":     str(),
	"potentialStakeholders": strList(),
	"recommendedApproach":   str(),
	"challengerQuestions":   strList(),
	"identifiedBiases":      strList(),
}, "isSpecific", "isMeasurable", "isActionable", "isRelevant", "isTimeBound", "feedback", "improvedStatement", "challengerQuestions")

func nodeProps(children map[string]any) map[string]any {
	props := map[string]any{
		"id":          str(),
		"label":       str(),
		"explanation": str(),
		"type":        str(),
	}
	if children != nil {
		props["children"] = map[string]any{"type": "array", "items": children}
	}
	return props
}

var issueNodeSchema = object(nodeProps(nil), "id", "label", "explanation")

// children is optional: a category may arrive with no issues at all.
var categoryNodeSchema = object(nodeProps(issueNodeSchema), "id", "label", "explanation")

var treeSchema = object(map[string]any{
	"root":            object(nodeProps(categoryNodeSchema), "id", "label", "explanation", "children"),
	"meceExplanation": str(),
}, "root", "meceExplanation")

var prioritizationSchema = object(map[string]any{
	"items": map[string]any{
		"type": "array",
		"items": object(map[string]any{
			"id":            str(),
			"label":         str(),
			"impact":        map[string]any{"type": "string", "enum": []string{"High", "Low"}},
			"effort":        map[string]any{"type": "string", "enum": []string{"High", "Low"}},
			"quadrant":      str(),
			"reasoning":     str(),
			"isParetoTop20": boolean(),
		}, "id", "label", "quadrant", "reasoning", "isParetoTop20"),
	},
	"paretoSummary": str(),
}, "items", "paretoSummary")

var workplanSchema = map[string]any{
	"type": "array",
	"items": object(map[string]any{
		"issue":      str(),
		"hypothesis": str(),
		"analysis":   str(),
		"source":     str(),
		"timing":     str(),
	}, "issue", "hypothesis", "analysis", "timing"),
}

var synthesisSchema = object(map[string]any{
	"synthesis": str(),
	"recommendation": object(map[string]any{
		"text":            str(),
		"actionableSteps": strList(),
		"stakeholders":    strList(),
		"resources":       strList(),
	}, "text", "actionableSteps", "stakeholders", "resources"),
}, "synthesis", "recommendation")
