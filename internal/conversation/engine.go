package conversation

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"rationalist/internal/generation"
	"rationalist/internal/report"
	"rationalist/internal/transcript"
)

type Phase string

const (
	PhaseDefine     Phase = "define"
	PhaseStructure  Phase = "structure"
	PhasePrioritize Phase = "prioritize"
	PhasePlan       Phase = "plan"
	PhaseDone       Phase = "done"
)

var (
	ErrBusy                = errors.New("conversation: a generation is already in progress")
	ErrNothingToPrioritize = errors.New("conversation: the issue tree has no issues to prioritize")
	ErrNothingToPlan       = errors.New("conversation: the prioritization selected no issues to plan")
)

// Notifier receives engine output as it happens. Calls are made after the
// state they describe has been committed, outside the engine lock.
type Notifier interface {
	OnMessage(msg transcript.Message)
	OnLoading(loading bool)
	OnReportReady(r report.Report)
}

type State struct {
	Phase          Phase                `json:"phase"`
	Refining       bool                 `json:"refining"`
	AwaitingChoice bool                 `json:"awaitingChoice"`
	Loading        bool                 `json:"loading"`
	Breakdown      report.BreakdownType `json:"breakdown,omitempty"`
	ReportReady    bool                 `json:"reportReady"`
}

// Outcome reports what a submission did. Prefill, when set, is text the
// input box should be pre-filled with.
type Outcome struct {
	Accepted bool   `json:"accepted"`
	Prefill  string `json:"prefill,omitempty"`
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine runs one guided session. Only one submission is processed at a
// time; a concurrent submission fails with ErrBusy.
type Engine struct {
	gw       generation.Gateway
	notifier Notifier
	logger   *log.Logger
	busy     *semaphore.Weighted
	loading  atomic.Bool

	mu        sync.RWMutex
	phase     Phase
	refining  bool
	breakdown report.BreakdownType
	offered   []transcript.Action
	rep       report.Report
	notes     []string
	log       *transcript.Log
}

// savepoint is everything a failed generation must put back.
type savepoint struct {
	phase     Phase
	refining  bool
	breakdown report.BreakdownType
	offered   []transcript.Action
	rep       report.Report
	notes     []string
}

func New(gw generation.Gateway, opts ...Option) *Engine {
	return Resume(gw, report.Report{}, opts...)
}

// Resume starts a session from an existing report. A report with a
// synthesis lands in the done phase, ready to be evolved; a partial report
// lands on its furthest phase with that phase's decision offered again.
func Resume(gw generation.Gateway, seed report.Report, opts ...Option) *Engine {
	e := &Engine{
		gw:     gw,
		logger: log.Default(),
		busy:   semaphore.NewWeighted(1),
		phase:  PhaseDefine,
		rep:    seed.Clone(),
		log:    transcript.New(),
	}
	for _, opt := range opts {
		opt(e)
	}

	switch e.rep.Stage() {
	case report.StageSynthesized:
		e.phase = PhaseDone
		e.say("Report loaded. Share additional context and I will evolve the recommendation.")
	case report.StagePlanned:
		e.phase = PhasePlan
		e.offer("Ready to finalize recommendations?", planChoices())
	case report.StagePrioritized:
		e.phase = PhasePrioritize
		e.offer("Are these the right levers for 80% impact?", prioritizationChoices())
	case report.StageStructured:
		e.phase = PhaseStructure
		e.breakdown = report.BreakdownThematic
		e.offer("Does this structured breakdown align with your mental model?", treeChoices())
	case report.StageAnalyzed:
		e.offer("Shall we proceed with this objective?", analysisChoices())
	default:
		e.say("Phase 1: **Define**. Describe the challenge you want to solve.")
	}
	return e
}

func (e *Engine) say(text string) transcript.Message {
	return e.log.Append(transcript.SpeakerAssistant, transcript.KindPlainText, text, nil)
}

func (e *Engine) offer(text string, actions []transcript.Action) transcript.Message {
	e.offered = actions
	return e.log.Append(transcript.SpeakerAssistant, transcript.KindPlainText, text, nil, actions...)
}

func (e *Engine) userSays(text string) transcript.Message {
	return e.log.Append(transcript.SpeakerUser, transcript.KindPlainText, text, nil)
}

func (e *Engine) saveLocked() savepoint {
	return savepoint{
		phase:     e.phase,
		refining:  e.refining,
		breakdown: e.breakdown,
		offered:   append([]transcript.Action(nil), e.offered...),
		rep:       e.rep.Clone(),
		notes:     append([]string(nil), e.notes...),
	}
}

func (e *Engine) restoreLocked(s savepoint) {
	e.phase = s.phase
	e.refining = s.refining
	e.breakdown = s.breakdown
	e.offered = s.offered
	e.rep = s.rep
	e.notes = s.notes
}

// SubmitText handles free-text input. Blank input is ignored. After the
// report is complete, text evolves the synthesis; while refining it is
// feedback for the current phase; in the define phase it is the problem
// statement. Anywhere else the engine is waiting for a choice and the
// text is ignored.
func (e *Engine) SubmitText(ctx context.Context, input string) (Outcome, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return Outcome{}, nil
	}
	if !e.busy.TryAcquire(1) {
		return Outcome{}, ErrBusy
	}
	defer e.busy.Release(1)

	e.mu.Lock()
	prev := e.saveLocked()
	switch {
	case e.rep.Synthesis != nil:
		msg := e.userSays(input)
		e.offered = nil
		e.mu.Unlock()
		e.emit(msg)
		return Outcome{Accepted: true}, e.runSynthesis(ctx, prev, text)

	case e.refining:
		e.refining = false
		e.offered = nil
		msg := e.userSays(input)
		phase := e.phase
		e.mu.Unlock()
		e.emit(msg)
		return Outcome{Accepted: true}, e.regenerate(ctx, prev, phase, text)

	case e.phase == PhaseDefine:
		e.offered = nil
		msg := e.userSays(input)
		e.mu.Unlock()
		e.emit(msg)
		return Outcome{Accepted: true}, e.runAnalysis(ctx, prev, text, false)
	}
	e.mu.Unlock()
	e.logger.Printf("conversation: text ignored in phase %s while awaiting a choice", prev.phase)
	return Outcome{}, nil
}

// regenerate re-runs the generation of the phase being refined, using the
// text as feedback.
func (e *Engine) regenerate(ctx context.Context, prev savepoint, phase Phase, feedback string) error {
	switch phase {
	case PhaseDefine:
		return e.runAnalysis(ctx, prev, feedback, true)
	case PhaseStructure:
		t := prev.breakdown
		if !t.Valid() {
			t = report.BreakdownThematic
		}
		return e.runStructure(ctx, prev, t, feedback)
	case PhasePrioritize:
		return e.runPrioritization(ctx, prev, feedback)
	case PhasePlan:
		return e.runPlan(ctx, prev, feedback)
	}
	e.logger.Printf("conversation: refine requested in phase %s has no generation", phase)
	e.mu.Lock()
	e.restoreLocked(prev)
	e.mu.Unlock()
	return nil
}

// SubmitChoice handles a selected action. Values that are not currently
// offered (stale buttons, wrong phase) are ignored.
func (e *Engine) SubmitChoice(ctx context.Context, value string) (Outcome, error) {
	if !e.busy.TryAcquire(1) {
		return Outcome{}, ErrBusy
	}
	defer e.busy.Release(1)

	e.mu.Lock()
	action := resolveAction(e.phase, value)
	if !offers(e.offered, action) {
		phase := e.phase
		e.mu.Unlock()
		e.logger.Printf("conversation: ignoring action %q in phase %s", value, phase)
		return Outcome{}, nil
	}
	prev := e.saveLocked()
	e.offered = nil
	e.log.ClearPendingActions()

	switch e.phase {
	case PhaseDefine:
		switch action {
		case ActionConfirmAnalysis:
			m1 := e.userSays("Confirmed. Proceed to structure.")
			e.phase = PhaseStructure
			m2 := e.offer("Phase 2: **Structure**. How should we break down this challenge?", breakdownChoices())
			e.mu.Unlock()
			e.emit(m1, m2)
			return Outcome{Accepted: true}, nil
		case ActionRefineAnalysis:
			e.refining = true
			prefill := ""
			if e.rep.Analysis != nil {
				prefill = e.rep.Analysis.ImprovedStatement
			}
			m := e.say("Understood. What aspects of the objective need adjustment?")
			e.mu.Unlock()
			e.emit(m)
			return Outcome{Accepted: true, Prefill: prefill}, nil
		}

	case PhaseStructure:
		if t, ok := breakdownFor(action); ok {
			label := "Thematic breakdown"
			if t == report.BreakdownFormulaic {
				label = "Formulaic breakdown"
			}
			m := e.userSays(label)
			e.mu.Unlock()
			e.emit(m)
			return Outcome{Accepted: true}, e.runStructure(ctx, prev, t, "")
		}
		switch action {
		case ActionConfirmTree:
			m := e.userSays("Structure verified.")
			e.mu.Unlock()
			e.emit(m)
			return Outcome{Accepted: true}, e.runPrioritization(ctx, prev, "")
		case ActionRefineTree:
			return e.enterRefining("How should we pivot the breakdown?")
		}

	case PhasePrioritize:
		switch action {
		case ActionConfirmPrioritization:
			m := e.userSays("Priorities approved.")
			e.mu.Unlock()
			e.emit(m)
			return Outcome{Accepted: true}, e.runPlan(ctx, prev, "")
		case ActionRefinePrioritization:
			return e.enterRefining("Which areas should we prioritize instead?")
		}

	case PhasePlan:
		switch action {
		case ActionConfirmPlan:
			m := e.userSays("Plan approved.")
			e.mu.Unlock()
			e.emit(m)
			return Outcome{Accepted: true}, e.runSynthesis(ctx, prev, "")
		case ActionRefinePlan:
			return e.enterRefining("What should change in the plan?")
		}
	}

	// An offered value with no handler: put everything back.
	e.restoreLocked(prev)
	e.mu.Unlock()
	e.logger.Printf("conversation: action %q has no handler in phase %s", action, prev.phase)
	return Outcome{}, nil
}

// enterRefining must be called with e.mu held; it releases it.
func (e *Engine) enterRefining(prompt string) (Outcome, error) {
	e.refining = true
	m := e.say(prompt)
	e.mu.Unlock()
	e.emit(m)
	return Outcome{Accepted: true}, nil
}

// call runs one gateway operation with the loading flag raised.
func (e *Engine) call(fn func() error) error {
	e.loading.Store(true)
	e.notifyLoading(true)
	defer func() {
		e.loading.Store(false)
		e.notifyLoading(false)
	}()
	return fn()
}

// fail puts the session back to the savepoint, tells the user which phase
// failed and re-offers the choices they had.
func (e *Engine) fail(prev savepoint, text string, err error) error {
	e.mu.Lock()
	e.restoreLocked(prev)
	m := e.log.Append(transcript.SpeakerAssistant, transcript.KindPlainText, text, nil, prev.offered...)
	e.mu.Unlock()
	e.emit(m)
	e.logger.Printf("conversation: %v", err)
	return err
}

func (e *Engine) runAnalysis(ctx context.Context, prev savepoint, problem string, revised bool) error {
	var a report.Analysis
	err := e.call(func() error {
		var err error
		a, err = e.gw.Analyze(ctx, generation.AnalyzeInput{Problem: problem})
		return err
	})
	if err != nil {
		return e.fail(prev, "Analysis failed. Please try again.", err)
	}

	text := "Refining objective parameters for analytical precision:"
	if revised {
		text = "Revised objective:"
	}
	e.mu.Lock()
	e.rep.OriginalProblem = problem
	e.rep.Analysis = &a
	e.phase = PhaseDefine
	e.offered = analysisChoices()
	m := e.log.Append(transcript.SpeakerAssistant, transcript.KindAnalysisResult, text, a, e.offered...)
	e.mu.Unlock()
	e.emit(m)
	return nil
}

func (e *Engine) runStructure(ctx context.Context, prev savepoint, t report.BreakdownType, feedback string) error {
	objective := prev.rep.Objective()
	var tree report.Tree
	err := e.call(func() error {
		var err error
		tree, err = e.gw.Structure(ctx, generation.StructureInput{Objective: objective, Type: t, Feedback: feedback})
		return err
	})
	if err != nil {
		return e.fail(prev, "Structuring failed. Please try again.", err)
	}

	text := "I have deconstructed your challenge into a logical pyramid of drivers:"
	if feedback != "" {
		text = "Revised logic map:"
	}
	e.mu.Lock()
	e.rep.IssueTree = &tree
	e.breakdown = t
	e.phase = PhaseStructure
	m1 := e.log.Append(transcript.SpeakerAssistant, transcript.KindTreeResult, text, tree.Clone())
	m2 := e.offer("Does this structured breakdown align with your mental model?", treeChoices())
	e.mu.Unlock()
	e.emit(m1, m2)
	return nil
}

func (e *Engine) runPrioritization(ctx context.Context, prev savepoint, feedback string) error {
	issues := prev.rep.IssueTree.IssueLabels()
	if len(issues) == 0 {
		return e.fail(prev, "There are no issues in the breakdown to prioritize. Refine the structure first.", ErrNothingToPrioritize)
	}
	var p report.Prioritization
	err := e.call(func() error {
		var err error
		p, err = e.gw.Prioritize(ctx, generation.PrioritizeInput{Issues: issues, Feedback: feedback})
		return err
	})
	if err != nil {
		return e.fail(prev, "Prioritization failed. Please try again.", err)
	}

	text := "Applying the 80/20 rule to identify the high-impact factors:"
	if feedback != "" {
		text = "Revised prioritization:"
	}
	e.mu.Lock()
	e.rep.Prioritization = &p
	e.phase = PhasePrioritize
	m1 := e.log.Append(transcript.SpeakerAssistant, transcript.KindMatrixResult, text, p)
	m2 := e.offer("Are these the right levers for 80% impact?", prioritizationChoices())
	warnings := e.rep.CheckConsistency()
	e.mu.Unlock()
	e.emit(m1, m2)
	e.warn(warnings)
	return nil
}

func (e *Engine) runPlan(ctx context.Context, prev savepoint, feedback string) error {
	var labels []string
	if prev.rep.Prioritization != nil {
		labels = report.PriorityLabels(prev.rep.Prioritization.Items)
	}
	if len(labels) == 0 {
		return e.fail(prev, "None of the prioritized issues stand out as high priority. Adjust the prioritization first.", ErrNothingToPlan)
	}
	var plan []report.WorkplanItem
	err := e.call(func() error {
		var err error
		plan, err = e.gw.Plan(ctx, generation.PlanInput{Issues: labels, Feedback: feedback})
		return err
	})
	if err != nil {
		return e.fail(prev, "Planning failed. Please try again.", err)
	}
	if plan == nil {
		plan = []report.WorkplanItem{}
	}

	text := "I have constructed a hypothesis-led action plan for the priority issues:"
	if feedback != "" {
		text = "Revised action plan:"
	}
	e.mu.Lock()
	e.rep.Workplan = plan
	e.phase = PhasePlan
	m1 := e.log.Append(transcript.SpeakerAssistant, transcript.KindWorkplanResult, text, append([]report.WorkplanItem(nil), plan...))
	m2 := e.offer("Ready to finalize recommendations?", planChoices())
	warnings := e.rep.CheckConsistency()
	e.mu.Unlock()
	e.emit(m1, m2)
	e.warn(warnings)
	return nil
}

// runSynthesis produces the synthesis. extra is new context from the user
// when evolving a finished report; earlier context is kept and resent.
func (e *Engine) runSynthesis(ctx context.Context, prev savepoint, extra string) error {
	notes := append([]string(nil), prev.notes...)
	if extra != "" {
		notes = append(notes, extra)
	}
	in := generation.SynthesizeInput{Objective: prev.rep.Objective(), Context: evolveContext(notes)}
	var s report.Synthesis
	err := e.call(func() error {
		var err error
		s, err = e.gw.Synthesize(ctx, in)
		return err
	})
	if err != nil {
		return e.fail(prev, "Synthesis failed. Please try again.", err)
	}

	text := "Strategic intent synthesized. You can now access the full report or continue refining logic below."
	if extra != "" {
		text = "Strategy evolved. Core recommendations updated."
	}
	e.mu.Lock()
	e.rep.Synthesis = &s
	e.notes = notes
	e.phase = PhaseDone
	m := e.log.Append(transcript.SpeakerAssistant, transcript.KindSynthesisResult, text, s)
	ready := e.rep.Clone()
	e.mu.Unlock()
	e.emit(m)
	if e.notifier != nil {
		e.notifier.OnReportReady(ready)
	}
	return nil
}

func evolveContext(notes []string) string {
	if len(notes) == 0 {
		return ""
	}
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = "Additional Context: " + n
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) emit(msgs ...transcript.Message) {
	if e.notifier == nil {
		return
	}
	for _, m := range msgs {
		e.notifier.OnMessage(m)
	}
}

func (e *Engine) notifyLoading(v bool) {
	if e.notifier != nil {
		e.notifier.OnLoading(v)
	}
}

func (e *Engine) warn(warnings []string) {
	for _, w := range warnings {
		e.logger.Printf("conversation: consistency: %s", w)
	}
}

func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return State{
		Phase:          e.phase,
		Refining:       e.refining,
		AwaitingChoice: len(e.offered) > 0,
		Loading:        e.loading.Load(),
		Breakdown:      e.breakdown,
		ReportReady:    e.rep.Synthesis != nil,
	}
}

// Report returns a deep copy of the current report.
func (e *Engine) Report() report.Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rep.Clone()
}

func (e *Engine) Messages() []transcript.Message {
	return e.log.Messages()
}

func (e *Engine) Loading() bool {
	return e.loading.Load()
}
