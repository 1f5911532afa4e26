package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// FakeClient returns deterministic, minimal JSON payloads per phase for
// offline runs and tests. The phase comes from WithPhase.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	phase := PhaseFrom(ctx)
	var obj any
	switch phase {
	case "analyze":
		obj = map[string]any{
			"isSpecific":            false,
			"isMeasurable":          false,
			"isActionable":          true,
			"isRelevant":            true,
			"isTimeBound":           false,
			"feedback":              "fake feedback: add a metric and a deadline",
			"improvedStatement":     "Increase Q4 revenue by 15% within 90 days",
			"potentialStakeholders": []string{"CFO", "Head of Sales"},
			"recommendedApproach":   "fake approach",
			"challengerQuestions":   []string{"What changed last quarter?"},
			"identifiedBiases":      []string{"recency bias"},
		}
	case "structure":
		obj = map[string]any{
			"root": map[string]any{
				"id": "root", "label": "Increase Q4 revenue by 15% within 90 days", "explanation": "objective", "type": "root",
				"children": []any{
					map[string]any{
						"id": "c1", "label": "Volume", "explanation": "units sold", "type": "category",
						"children": []any{
							map[string]any{"id": "i1", "label": "New customer acquisition", "explanation": "fake", "type": "issue"},
							map[string]any{"id": "i2", "label": "Churn reduction", "explanation": "fake", "type": "issue"},
						},
					},
					map[string]any{
						"id": "c2", "label": "Price", "explanation": "revenue per unit", "type": "category",
						"children": []any{
							map[string]any{"id": "i3", "label": "Discount discipline", "explanation": "fake", "type": "issue"},
						},
					},
				},
			},
			"meceExplanation": "fake: revenue = volume x price",
		}
	case "prioritize":
		obj = map[string]any{
			"items": []any{
				map[string]any{"id": "p1", "label": "New customer acquisition", "impact": "High", "effort": "High", "quadrant": "Major Projects", "reasoning": "fake", "isParetoTop20": true},
				map[string]any{"id": "p2", "label": "Churn reduction", "impact": "High", "effort": "Low", "quadrant": "Quick Wins", "reasoning": "fake", "isParetoTop20": false},
				map[string]any{"id": "p3", "label": "Discount discipline", "impact": "Low", "effort": "Low", "quadrant": "Fill Ins", "reasoning": "fake", "isParetoTop20": false},
			},
			"paretoSummary": "fake pareto summary",
		}
	case "plan":
		obj = []any{
			map[string]any{"issue": "New customer acquisition", "hypothesis": "fake", "analysis": "funnel review", "source": "CRM", "timing": "Weeks 1-3"},
			map[string]any{"issue": "Churn reduction", "hypothesis": "fake", "analysis": "cohort analysis", "timing": "Weeks 2-4"},
		}
	case "synthesize":
		obj = map[string]any{
			"synthesis": "fake synthesis",
			"recommendation": map[string]any{
				"text":            "Focus on churn first, then acquisition.",
				"actionableSteps": []string{"Launch retention offer"},
				"stakeholders":    []string{"Head of Sales"},
				"resources":       []string{"CRM export"},
			},
		}
	default:
		return nil, Permanent(fmt.Errorf("fake llm: no payload for phase %q", phase))
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
