package conversation

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rationalist/internal/generation"
	"rationalist/internal/llm"
	"rationalist/internal/report"
	"rationalist/internal/transcript"
)

// stubGateway delegates to the fake LLM gateway, recording inputs. A phase
// listed in fail returns a generation error instead.
type stubGateway struct {
	inner generation.Gateway

	mu        sync.Mutex
	fail      map[generation.Phase]bool
	calls     map[generation.Phase]int
	structure []generation.StructureInput
	prio      []generation.PrioritizeInput
	plans     []generation.PlanInput
	synth     []generation.SynthesizeInput
	block     chan struct{}
}

func newStub() *stubGateway {
	return &stubGateway{
		inner: generation.NewLLMGateway(llm.NewFakeClient(), generation.Options{Retries: 0}),
		fail:  map[generation.Phase]bool{},
		calls: map[generation.Phase]int{},
	}
}

func (s *stubGateway) enter(p generation.Phase) error {
	s.mu.Lock()
	s.calls[p]++
	failing := s.fail[p]
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	if failing {
		return &generation.Error{Phase: p, Cause: errors.New("upstream unavailable")}
	}
	return nil
}

func (s *stubGateway) setFail(p generation.Phase, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[p] = v
}

func (s *stubGateway) count(p generation.Phase) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[p]
}

func (s *stubGateway) Analyze(ctx context.Context, in generation.AnalyzeInput) (report.Analysis, error) {
	if err := s.enter(generation.PhaseAnalyze); err != nil {
		return report.Analysis{}, err
	}
	return s.inner.Analyze(ctx, in)
}

func (s *stubGateway) Structure(ctx context.Context, in generation.StructureInput) (report.Tree, error) {
	s.mu.Lock()
	s.structure = append(s.structure, in)
	s.mu.Unlock()
	if err := s.enter(generation.PhaseStructure); err != nil {
		return report.Tree{}, err
	}
	return s.inner.Structure(ctx, in)
}

func (s *stubGateway) Prioritize(ctx context.Context, in generation.PrioritizeInput) (report.Prioritization, error) {
	s.mu.Lock()
	s.prio = append(s.prio, in)
	s.mu.Unlock()
	if err := s.enter(generation.PhasePrioritize); err != nil {
		return report.Prioritization{}, err
	}
	return s.inner.Prioritize(ctx, in)
}

func (s *stubGateway) Plan(ctx context.Context, in generation.PlanInput) ([]report.WorkplanItem, error) {
	s.mu.Lock()
	s.plans = append(s.plans, in)
	s.mu.Unlock()
	if err := s.enter(generation.PhasePlan); err != nil {
		return nil, err
	}
	return s.inner.Plan(ctx, in)
}

func (s *stubGateway) Synthesize(ctx context.Context, in generation.SynthesizeInput) (report.Synthesis, error) {
	s.mu.Lock()
	s.synth = append(s.synth, in)
	s.mu.Unlock()
	if err := s.enter(generation.PhaseSynthesize); err != nil {
		return report.Synthesis{}, err
	}
	return s.inner.Synthesize(ctx, in)
}

type recorder struct {
	mu      sync.Mutex
	msgs    []transcript.Message
	loading []bool
	ready   []report.Report
}

func (r *recorder) OnMessage(m transcript.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) OnLoading(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = append(r.loading, v)
}

func (r *recorder) OnReportReady(rep report.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = append(r.ready, rep)
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newEngine(gw generation.Gateway, n Notifier) *Engine {
	return New(gw, WithNotifier(n), WithLogger(quietLogger()))
}

func lastPending(e *Engine) []string {
	msgs := e.Messages()
	var values []string
	for _, a := range msgs[len(msgs)-1].PendingActions {
		values = append(values, a.Value)
	}
	return values
}

func actionCount(e *Engine) int {
	n := 0
	for _, m := range e.Messages() {
		if len(m.PendingActions) > 0 {
			n++
		}
	}
	return n
}

// driveToPlan runs a fresh engine up to the plan decision.
func driveToPlan(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	_, err := e.SubmitText(ctx, "Revenue is down, need to fix it")
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionConfirmAnalysis)
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionTypeFormulaic)
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionConfirmTree)
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionConfirmPrioritization)
	require.NoError(t, err)
	require.Equal(t, PhasePlan, e.State().Phase)
}

func TestFullSessionProducesReport(t *testing.T) {
	gw := newStub()
	rec := &recorder{}
	e := newEngine(gw, rec)
	ctx := context.Background()

	assert.Equal(t, PhaseDefine, e.State().Phase)
	require.Len(t, e.Messages(), 1)

	out, err := e.SubmitText(ctx, "Revenue is down, need to fix it")
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	rep := e.Report()
	assert.Equal(t, "Revenue is down, need to fix it", rep.OriginalProblem)
	require.NotNil(t, rep.Analysis)
	assert.Equal(t, []string{ActionConfirmAnalysis, ActionRefineAnalysis}, lastPending(e))
	assert.True(t, e.State().AwaitingChoice)

	_, err = e.SubmitChoice(ctx, ActionConfirmAnalysis)
	require.NoError(t, err)
	assert.Equal(t, PhaseStructure, e.State().Phase)
	assert.Equal(t, []string{ActionTypeFormulaic, ActionTypeThematic}, lastPending(e))

	_, err = e.SubmitChoice(ctx, ActionTypeFormulaic)
	require.NoError(t, err)
	require.Len(t, gw.structure, 1)
	assert.Equal(t, "Increase Q4 revenue by 15% within 90 days", gw.structure[0].Objective)
	assert.Equal(t, report.BreakdownFormulaic, gw.structure[0].Type)
	assert.Equal(t, report.BreakdownFormulaic, e.State().Breakdown)

	_, err = e.SubmitChoice(ctx, ActionConfirmTree)
	require.NoError(t, err)
	assert.Equal(t, PhasePrioritize, e.State().Phase)
	assert.Equal(t, []string{"New customer acquisition", "Churn reduction", "Discount discipline"}, gw.prio[0].Issues)

	_, err = e.SubmitChoice(ctx, ActionConfirmPrioritization)
	require.NoError(t, err)
	assert.Equal(t, PhasePlan, e.State().Phase)
	assert.Equal(t, []string{"New customer acquisition", "Churn reduction"}, gw.plans[0].Issues)

	_, err = e.SubmitChoice(ctx, ActionConfirmPlan)
	require.NoError(t, err)
	st := e.State()
	assert.Equal(t, PhaseDone, st.Phase)
	assert.True(t, st.ReportReady)
	assert.False(t, st.AwaitingChoice)

	rep = e.Report()
	assert.Equal(t, report.StageSynthesized, rep.Stage())
	assert.Equal(t, "fake synthesis", rep.Synthesis.Summary)
	assert.Empty(t, rep.CheckConsistency())

	require.Len(t, rec.ready, 1)
	assert.Equal(t, rep, rec.ready[0])
	assert.LessOrEqual(t, actionCount(e), 1)
	assert.Equal(t, []bool{true, false, true, false, true, false, true, false, true, false}, rec.loading)
}

func TestEvolveAccumulatesContext(t *testing.T) {
	gw := newStub()
	rec := &recorder{}
	e := newEngine(gw, rec)
	ctx := context.Background()
	driveToPlan(t, e)
	_, err := e.SubmitChoice(ctx, "confirm")
	require.NoError(t, err)

	before := e.Report()
	_, err = e.SubmitText(ctx, "Also consider EU market")
	require.NoError(t, err)
	_, err = e.SubmitText(ctx, "Budget is capped")
	require.NoError(t, err)

	require.Len(t, gw.synth, 3)
	assert.Empty(t, gw.synth[0].Context)
	assert.Equal(t, "Additional Context: Also consider EU market", gw.synth[1].Context)
	assert.Equal(t, "Additional Context: Also consider EU market\nAdditional Context: Budget is capped", gw.synth[2].Context)

	after := e.Report()
	assert.Equal(t, before.IssueTree, after.IssueTree)
	assert.Equal(t, before.Workplan, after.Workplan)
	assert.Equal(t, PhaseDone, e.State().Phase)
	assert.Len(t, rec.ready, 3)
}

func TestBlankTextIsIgnored(t *testing.T) {
	gw := newStub()
	e := newEngine(gw, nil)

	out, err := e.SubmitText(context.Background(), "   \n\t")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Len(t, e.Messages(), 1)
	assert.Zero(t, gw.count(generation.PhaseAnalyze))
}

func TestFailedGenerationRestoresState(t *testing.T) {
	gw := newStub()
	e := newEngine(gw, nil)
	ctx := context.Background()
	_, err := e.SubmitText(ctx, "Revenue is down, need to fix it")
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionConfirmAnalysis)
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionTypeThematic)
	require.NoError(t, err)

	before := e.Report()
	stateBefore := e.State()
	gw.setFail(generation.PhasePrioritize, true)

	_, err = e.SubmitChoice(ctx, ActionConfirmTree)
	gErr, ok := generation.AsError(err)
	require.True(t, ok)
	assert.Equal(t, generation.PhasePrioritize, gErr.Phase)

	assert.Equal(t, before, e.Report())
	assert.Equal(t, stateBefore, e.State())
	msgs := e.Messages()
	assert.Contains(t, msgs[len(msgs)-1].Text, "Prioritization failed")
	assert.Equal(t, []string{ActionConfirmTree, ActionRefineTree}, lastPending(e))

	gw.setFail(generation.PhasePrioritize, false)
	_, err = e.SubmitChoice(ctx, ActionConfirmTree)
	require.NoError(t, err)
	assert.Equal(t, PhasePrioritize, e.State().Phase)
}

func TestFailedAnalysisKeepsProblemUnset(t *testing.T) {
	gw := newStub()
	gw.setFail(generation.PhaseAnalyze, true)
	e := newEngine(gw, nil)

	_, err := e.SubmitText(context.Background(), "Revenue is down")
	require.Error(t, err)
	assert.Equal(t, report.Report{}, e.Report())
	assert.Equal(t, PhaseDefine, e.State().Phase)
	assert.False(t, e.State().Refining)
}

func TestFailedRefineStaysRefining(t *testing.T) {
	gw := newStub()
	e := newEngine(gw, nil)
	ctx := context.Background()
	_, err := e.SubmitText(ctx, "Revenue is down")
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionConfirmAnalysis)
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionTypeFormulaic)
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionRefineTree)
	require.NoError(t, err)
	require.True(t, e.State().Refining)

	gw.setFail(generation.PhaseStructure, true)
	_, err = e.SubmitText(ctx, "split by region")
	require.Error(t, err)
	assert.True(t, e.State().Refining)
	assert.Equal(t, PhaseStructure, e.State().Phase)
}

func TestRefineRerunsSamePhase(t *testing.T) {
	gw := newStub()
	e := newEngine(gw, nil)
	ctx := context.Background()
	_, err := e.SubmitText(ctx, "Revenue is down")
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionConfirmAnalysis)
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionTypeFormulaic)
	require.NoError(t, err)

	_, err = e.SubmitChoice(ctx, "refine")
	require.NoError(t, err)
	st := e.State()
	assert.True(t, st.Refining)
	assert.False(t, st.AwaitingChoice)

	_, err = e.SubmitText(ctx, "split by region")
	require.NoError(t, err)
	require.Len(t, gw.structure, 2)
	assert.Equal(t, report.BreakdownFormulaic, gw.structure[1].Type)
	assert.Equal(t, "split by region", gw.structure[1].Feedback)
	st = e.State()
	assert.Equal(t, PhaseStructure, st.Phase)
	assert.False(t, st.Refining)
	assert.Equal(t, []string{ActionConfirmTree, ActionRefineTree}, lastPending(e))
}

func TestRefineAnalysisPrefillsAndReplacesProblem(t *testing.T) {
	gw := newStub()
	e := newEngine(gw, nil)
	ctx := context.Background()
	_, err := e.SubmitText(ctx, "Revenue is down")
	require.NoError(t, err)

	out, err := e.SubmitChoice(ctx, ActionRefineAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "Increase Q4 revenue by 15% within 90 days", out.Prefill)

	_, err = e.SubmitText(ctx, "Grow EU revenue 10% this year")
	require.NoError(t, err)
	assert.Equal(t, "Grow EU revenue 10% this year", e.Report().OriginalProblem)
	assert.Equal(t, 2, gw.count(generation.PhaseAnalyze))
	assert.Equal(t, PhaseDefine, e.State().Phase)
}

func TestRefinePlanRerunsWorkplanWithFeedback(t *testing.T) {
	gw := newStub()
	e := newEngine(gw, nil)
	ctx := context.Background()
	driveToPlan(t, e)

	_, err := e.SubmitChoice(ctx, ActionRefinePlan)
	require.NoError(t, err)
	_, err = e.SubmitText(ctx, "shorter timelines")
	require.NoError(t, err)

	require.Len(t, gw.plans, 2)
	assert.Equal(t, "shorter timelines", gw.plans[1].Feedback)
	assert.Equal(t, gw.plans[0].Issues, gw.plans[1].Issues)
	assert.Equal(t, PhasePlan, e.State().Phase)
	assert.Equal(t, []string{ActionConfirmPlan, ActionRefinePlan}, lastPending(e))
}

func TestStaleChoiceIsNoop(t *testing.T) {
	gw := newStub()
	e := newEngine(gw, nil)
	ctx := context.Background()
	_, err := e.SubmitText(ctx, "Revenue is down")
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionConfirmAnalysis)
	require.NoError(t, err)

	before := e.Report()
	n := len(e.Messages())
	for _, v := range []string{ActionConfirmAnalysis, ActionConfirmPlan, "confirm", "bogus", ""} {
		out, err := e.SubmitChoice(ctx, v)
		require.NoError(t, err)
		assert.False(t, out.Accepted, v)
	}
	assert.Equal(t, before, e.Report())
	assert.Len(t, e.Messages(), n)
	assert.Equal(t, []string{ActionTypeFormulaic, ActionTypeThematic}, lastPending(e))
}

func TestTextWhileAwaitingChoiceIsIgnored(t *testing.T) {
	gw := newStub()
	e := newEngine(gw, nil)
	ctx := context.Background()
	_, err := e.SubmitText(ctx, "Revenue is down")
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionConfirmAnalysis)
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionTypeThematic)
	require.NoError(t, err)

	n := len(e.Messages())
	out, err := e.SubmitText(ctx, "hello?")
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Len(t, e.Messages(), n)
	assert.True(t, e.State().AwaitingChoice)
}

func TestConcurrentSubmissionIsBusy(t *testing.T) {
	gw := newStub()
	gw.block = make(chan struct{})
	e := newEngine(gw, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := e.SubmitText(ctx, "Revenue is down")
		done <- err
	}()
	require.Eventually(t, e.Loading, time.Second, 5*time.Millisecond)

	_, err := e.SubmitText(ctx, "again")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = e.SubmitChoice(ctx, ActionConfirmAnalysis)
	assert.ErrorIs(t, err, ErrBusy)

	close(gw.block)
	require.NoError(t, <-done)
	assert.False(t, e.Loading())
	assert.Equal(t, 1, gw.count(generation.PhaseAnalyze))
}

// emptyTreeGateway returns a tree whose only category has no issues.
type emptyTreeGateway struct{ *stubGateway }

func (g emptyTreeGateway) Structure(ctx context.Context, in generation.StructureInput) (report.Tree, error) {
	t := report.Tree{Root: report.Node{ID: "root", Label: in.Objective, Children: []report.Node{{ID: "1", Label: "Empty"}}}}
	t.Normalize()
	return t, nil
}

func TestConfirmTreeWithoutIssues(t *testing.T) {
	gw := emptyTreeGateway{newStub()}
	e := newEngine(gw, nil)
	ctx := context.Background()
	_, err := e.SubmitText(ctx, "Revenue is down")
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionConfirmAnalysis)
	require.NoError(t, err)
	_, err = e.SubmitChoice(ctx, ActionTypeThematic)
	require.NoError(t, err)

	_, err = e.SubmitChoice(ctx, ActionConfirmTree)
	assert.ErrorIs(t, err, ErrNothingToPrioritize)
	assert.Zero(t, gw.count(generation.PhasePrioritize))
	assert.Equal(t, PhaseStructure, e.State().Phase)
	assert.Equal(t, []string{ActionConfirmTree, ActionRefineTree}, lastPending(e))
}

func TestConfirmPrioritizationWithoutSelection(t *testing.T) {
	seed := report.Report{
		OriginalProblem: "p",
		Analysis:        &report.Analysis{ImprovedStatement: "o"},
		IssueTree:       &report.Tree{Root: report.Node{ID: "root", Label: "o"}},
		Prioritization: &report.Prioritization{Items: []report.MatrixItem{
			{Label: "a", Quadrant: report.QuadrantFillIns},
		}},
	}
	gw := newStub()
	e := Resume(gw, seed, WithLogger(quietLogger()))
	require.Equal(t, PhasePrioritize, e.State().Phase)

	_, err := e.SubmitChoice(context.Background(), ActionConfirmPrioritization)
	assert.ErrorIs(t, err, ErrNothingToPlan)
	assert.Zero(t, gw.count(generation.PhasePlan))
	assert.Equal(t, seed, e.Report())
}

func TestResumeCompletedReportEvolves(t *testing.T) {
	gw := newStub()
	seedEngine := newEngine(gw, nil)
	driveToPlan(t, seedEngine)
	_, err := seedEngine.SubmitChoice(context.Background(), ActionConfirmPlan)
	require.NoError(t, err)
	seed := seedEngine.Report()

	e := Resume(gw, seed, WithLogger(quietLogger()))
	st := e.State()
	assert.Equal(t, PhaseDone, st.Phase)
	assert.True(t, st.ReportReady)
	assert.Equal(t, seed, e.Report())

	_, err = e.SubmitText(context.Background(), "Also consider EU market")
	require.NoError(t, err)
	assert.Equal(t, "Additional Context: Also consider EU market", gw.synth[len(gw.synth)-1].Context)
}

func TestResumePartialReportReoffersDecision(t *testing.T) {
	seed := report.Report{
		OriginalProblem: "p",
		Analysis:        &report.Analysis{ImprovedStatement: "o"},
	}
	e := Resume(newStub(), seed, WithLogger(quietLogger()))
	assert.Equal(t, PhaseDefine, e.State().Phase)
	assert.Equal(t, []string{ActionConfirmAnalysis, ActionRefineAnalysis}, lastPending(e))
}

func TestResolveAction(t *testing.T) {
	assert.Equal(t, ActionConfirmTree, resolveAction(PhaseStructure, " Confirm "))
	assert.Equal(t, ActionRefinePlan, resolveAction(PhasePlan, "refine"))
	assert.Equal(t, ActionTypeThematic, resolveAction(PhaseStructure, "thematic"))
	assert.Equal(t, "confirm", resolveAction(PhaseDone, "confirm"))
}
