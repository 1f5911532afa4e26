package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rationalist/internal/llm"
	"rationalist/internal/report"
)

const (
	DefaultRetries = 2
	DefaultBackoff = time.Second
)

type Options struct {
	// Retries is the number of extra attempts after a failed call.
	Retries int
	Backoff time.Duration
}

func DefaultOptions() Options {
	return Options{Retries: DefaultRetries, Backoff: DefaultBackoff}
}

// LLMGateway implements Gateway on top of an LLMClient. Responses are
// repaired and schema checked, and the whole call is retried.
type LLMGateway struct {
	client llm.LLMClient
}

func NewLLMGateway(client llm.LLMClient, opts Options) *LLMGateway {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &LLMGateway{
		client: llm.Wrap(client, llm.Retry(opts.Retries, opts.Backoff), llm.ValidateJSON()),
	}
}

func (g *LLMGateway) Close() error { return g.client.Close() }

// generate runs one call. decode parses and converts the response; it runs
// inside the retried unit, so output that passes the schema but cannot be
// converted gets another attempt.
func (g *LLMGateway) generate(ctx context.Context, phase Phase, req llm.Request, decode func(json.RawMessage) error) error {
	req.Decode = decode
	_, err := g.client.GenerateJSON(llm.WithPhase(ctx, string(phase)), req)
	return err
}

func unmarshalWire(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (g *LLMGateway) Analyze(ctx context.Context, in AnalyzeInput) (report.Analysis, error) {
	problem := strings.TrimSpace(in.Problem)
	if problem == "" {
		return report.Analysis{}, newError(PhaseAnalyze, fmt.Errorf("problem statement is required"))
	}
	var a report.Analysis
	err := g.generate(ctx, PhaseAnalyze, llm.Request{
		System: analyzeSystem(strings.TrimSpace(in.Context)),
		Prompt: fmt.Sprintf("Analyze: %q", problem),
		Schema: analysisSchema,
		Level:  llm.ModelLevelLow,
	}, func(raw json.RawMessage) error {
		var w wireAnalysis
		if err := unmarshalWire(raw, &w); err != nil {
			return err
		}
		out, err := w.toReport()
		if err != nil {
			return err
		}
		a = out
		return nil
	})
	if err != nil {
		return report.Analysis{}, newError(PhaseAnalyze, err)
	}
	return a, nil
}

func (g *LLMGateway) Structure(ctx context.Context, in StructureInput) (report.Tree, error) {
	if !in.Type.Valid() {
		return report.Tree{}, newError(PhaseStructure, fmt.Errorf("unknown breakdown type %q", in.Type))
	}
	var t report.Tree
	err := g.generate(ctx, PhaseStructure, llm.Request{
		System: structureSystem(in.Type),
		Prompt: fmt.Sprintf("Structure: %q", in.Objective) + feedbackNote(strings.TrimSpace(in.Feedback)),
		Schema: treeSchema,
		Level:  llm.ModelLevelHigh,
	}, func(raw json.RawMessage) error {
		var w wireTree
		if err := unmarshalWire(raw, &w); err != nil {
			return err
		}
		out, err := w.toReport()
		if err != nil {
			return err
		}
		t = out
		return nil
	})
	if err != nil {
		return report.Tree{}, newError(PhaseStructure, err)
	}
	return t, nil
}

func (g *LLMGateway) Prioritize(ctx context.Context, in PrioritizeInput) (report.Prioritization, error) {
	var p report.Prioritization
	err := g.generate(ctx, PhasePrioritize, llm.Request{
		System: prioritizeSystem,
		Prompt: "Prioritize the issues in the input." + feedbackNote(strings.TrimSpace(in.Feedback)),
		Input:  in.Issues,
		Schema: prioritizationSchema,
		Level:  llm.ModelLevelHigh,
	}, func(raw json.RawMessage) error {
		var w wirePrioritization
		if err := unmarshalWire(raw, &w); err != nil {
			return err
		}
		out, err := w.toReport()
		if err != nil {
			return err
		}
		p = out
		return nil
	})
	if err != nil {
		return report.Prioritization{}, newError(PhasePrioritize, err)
	}
	return p, nil
}

func (g *LLMGateway) Plan(ctx context.Context, in PlanInput) ([]report.WorkplanItem, error) {
	var plan []report.WorkplanItem
	err := g.generate(ctx, PhasePlan, llm.Request{
		System: planSystem,
		Prompt: "Workplan for the issues in the input." + feedbackNote(strings.TrimSpace(in.Feedback)),
		Input:  in.Issues,
		Schema: workplanSchema,
		Level:  llm.ModelLevelLow,
	}, func(raw json.RawMessage) error {
		var w []wireWorkplanItem
		if err := unmarshalWire(raw, &w); err != nil {
			return err
		}
		plan = workplanToReport(w)
		return nil
	})
	if err != nil {
		return nil, newError(PhasePlan, err)
	}
	return plan, nil
}

func (g *LLMGateway) Synthesize(ctx context.Context, in SynthesizeInput) (report.Synthesis, error) {
	var syn report.Synthesis
	err := g.generate(ctx, PhaseSynthesize, llm.Request{
		System: synthesizeSystem,
		Prompt: fmt.Sprintf("Synthesize: %q. Context: %s", in.Objective, in.Context),
		Schema: synthesisSchema,
		Level:  llm.ModelLevelHigh,
	}, func(raw json.RawMessage) error {
		var w wireSynthesis
		if err := unmarshalWire(raw, &w); err != nil {
			return err
		}
		syn = w.toReport()
		return nil
	})
	if err != nil {
		return report.Synthesis{}, newError(PhaseSynthesize, err)
	}
	return syn, nil
}
