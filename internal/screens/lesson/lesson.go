// Package lesson is the lesson screen: stage tabs over concept pages, the
// quiz and the coding workspace with its terminal pane.
package lesson

import (
	"context"
	"time"

	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/jay060412/stepcode/internal/content"
	"github.com/jay060412/stepcode/internal/llm"
	"github.com/jay060412/stepcode/internal/profile"
	"github.com/jay060412/stepcode/internal/remoterun"
	"github.com/jay060412/stepcode/internal/router"
	"github.com/jay060412/stepcode/internal/runner"
	"github.com/jay060412/stepcode/internal/screen"
	"github.com/jay060412/stepcode/internal/session"
	"github.com/jay060412/stepcode/internal/stages"
	"github.com/jay060412/stepcode/internal/tutor"
	"github.com/jay060412/stepcode/internal/ui/components"
	"github.com/jay060412/stepcode/internal/ui/layout"
)

// Deps is everything a lesson needs from the host.
type Deps struct {
	Catalog  *content.Catalog
	Track    content.Track
	Lesson   content.Lesson
	Profile  *profile.Profile
	Repo     profile.Repo
	Runner   *runner.Runner
	Remote   *remoterun.Client
	Provider llm.Provider
	Tutor    *tutor.Service
}

// execSession is the slice of runner.Session and remoterun.Session the
// terminal pane drives. Both satisfy it.
type execSession interface {
	Run(ctx context.Context, code string) error
	ProvideInput(value string) error
	Stop()
	Output() string
	AwaitingInput() bool
	Done() <-chan struct{}
}

// Screen is the lesson screen model.
type Screen struct {
	deps Deps
	orch *stages.Orchestrator

	// Concept stage.
	pageIdx int

	// Quiz stage.
	quiz   *session.Session
	choice components.MultiChoice

	// Coding stage.
	coding *session.Session
	editor textarea.Model
	input  textinput.Model
	exec   execSession
	// inputFocused routes keys to the terminal input line while the run
	// is suspended on it.
	inputFocused bool

	fb        feedback
	tutorText string
	finished  bool
}

var _ screen.Screen = (*Screen)(nil)

// New opens a lesson at its first applicable stage.
func New(d Deps) *Screen {
	ed := textarea.New()
	ed.ShowLineNumbers = true
	ed.Focus()

	in := textinput.New()
	in.Placeholder = "program input"

	s := &Screen{
		deps:   d,
		orch:   stages.New(d.Catalog, d.Track, d.Lesson, d.Profile, d.Repo),
		editor: ed,
		input:  in,
	}
	s.enterStage(s.orch.Current())
	return s
}

// enterStage prepares the state for a stage, restoring its saved session
// where one exists.
func (s *Screen) enterStage(st stages.Stage) {
	s.fb = feedback{}
	s.tutorText = ""
	switch st {
	case stages.StageConcept:
		s.pageIdx = 0
	case stages.StageQuiz:
		sess, err := s.orch.StageSession(stages.StageQuiz)
		if err != nil {
			return
		}
		s.quiz = sess
		s.loadQuizProblem()
	case stages.StageCoding:
		sess, err := s.orch.StageSession(stages.StageCoding)
		if err != nil {
			return
		}
		s.coding = sess
		s.loadCodingProblem()
	}
}

func (s *Screen) loadQuizProblem() {
	idx := s.quiz.Current()
	p, err := s.quiz.Problem(idx)
	if err != nil {
		return
	}
	cp := p.(content.ConceptProblem)
	options := s.quiz.Options(idx)
	correct := 0
	for i, o := range options {
		if o == cp.Answer {
			correct = i
		}
	}
	s.choice = components.NewMultiChoice(cp.Prompt, options, correct)
}

func (s *Screen) loadCodingProblem() {
	idx := s.coding.Current()
	p, err := s.coding.Problem(idx)
	if err != nil {
		return
	}
	cp := p.(content.CodingProblem)
	draft := s.coding.Draft(idx)
	if draft == "" {
		draft = s.orch.SavedDraft(cp.ID)
	}
	if draft == "" {
		draft = cp.StarterCode
	}
	s.editor.SetValue(draft)
	s.exec = nil
	s.inputFocused = false
}

// newExec builds the execution session for the track's language. Step runs
// in the embedded interpreter, everything else goes through the remote
// service with the simulation fallback.
func (s *Screen) newExec() execSession {
	if s.deps.Track.Language == string(runner.LangStep) {
		s.deps.Runner.SetLanguage(runner.LangStep)
		return s.deps.Runner.Session()
	}
	var sim *remoterun.Simulator
	if s.deps.Provider != nil {
		sim = remoterun.NewSimulator(s.deps.Provider)
	}
	return remoterun.NewSession(s.deps.Track.Language, s.deps.Remote, sim)
}

// Init implements screen.Screen.
func (s *Screen) Init() tea.Cmd { return nil }

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// Update drives the whole lesson flow.
func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if s.exec == nil {
			return s, nil
		}
		if s.exec.AwaitingInput() && !s.inputFocused {
			s.inputFocused = true
			s.input.SetValue("")
			return s, tea.Batch(s.input.Focus(), tick())
		}
		select {
		case <-s.exec.Done():
			return s, nil
		default:
			return s, tick()
		}

	case tutorMsg:
		s.tutorText = msg.text
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	return s.forward(msg)
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.fb.visible {
		if key == "enter" {
			return s.dismissFeedback()
		}
		return s, nil
	}
	if s.tutorText != "" && key == "esc" {
		s.tutorText = ""
		return s, nil
	}

	// Stage tabs: free jumps.
	switch key {
	case "1", "2", "3":
		want := stages.Stage(int(key[0] - '1'))
		if err := s.orch.Jump(want); err == nil {
			s.saveCurrentStage()
			s.enterStage(want)
		}
		return s, nil
	case "ctrl+t":
		return s, s.askTutor()
	}

	switch s.orch.Current() {
	case stages.StageConcept:
		return s.handleConceptKey(key)
	case stages.StageQuiz:
		return s.handleQuizKey(msg)
	case stages.StageCoding:
		return s.handleCodingKey(msg)
	}
	return s, nil
}

func (s *Screen) handleConceptKey(key string) (screen.Screen, tea.Cmd) {
	pages := s.deps.Lesson.Pages
	switch key {
	case "left", "h":
		if s.pageIdx > 0 {
			s.pageIdx--
		}
	case "right", "l", " ":
		if s.pageIdx < len(pages)-1 {
			s.pageIdx++
		}
	case "enter":
		if s.pageIdx == len(pages)-1 {
			return s.finishStage(nil)
		}
		s.pageIdx++
	}
	return s, nil
}

func (s *Screen) handleQuizKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.quiz == nil {
		return s, nil
	}
	before := s.choice.Submitted
	var cmd tea.Cmd
	s.choice, cmd = s.choice.Update(msg)

	if !before && s.choice.Submitted {
		idx := s.quiz.Current()
		chosen := s.choice.Options[s.choice.ChosenIndex]
		if err := s.quiz.RecordDraft(idx, chosen); err != nil {
			return s, cmd
		}
		res, err := s.quiz.Submit(idx)
		if err != nil {
			return s, cmd
		}
		s.fb = feedback{visible: true, result: res}
	}
	return s, cmd
}

func (s *Screen) handleCodingKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.coding == nil {
		return s, nil
	}
	idx := s.coding.Current()

	switch msg.String() {
	case "ctrl+r":
		code := s.editor.Value()
		if err := s.coding.RecordDraft(idx, code); err != nil {
			return s, nil
		}
		s.exec = s.newExec()
		if err := s.exec.Run(context.Background(), code); err != nil {
			return s, nil
		}
		return s, tick()
	case "ctrl+x":
		if s.exec != nil {
			s.exec.Stop()
			s.inputFocused = false
		}
		return s, nil
	case "ctrl+s":
		if s.exec != nil {
			s.coding.RecordOutput(idx, s.exec.Output())
		}
		if err := s.coding.RecordDraft(idx, s.editor.Value()); err == nil {
			if res, err := s.coding.Submit(idx); err == nil {
				s.fb = feedback{visible: true, result: res}
			}
		}
		return s, nil
	case "ctrl+n":
		// Try again before submitting: clear draft and output.
		if err := s.coding.Reset(idx); err == nil {
			s.exec = nil
			s.inputFocused = false
			s.loadCodingProblem()
		}
		return s, nil
	case "enter":
		if s.inputFocused {
			value := s.input.Value()
			s.input.SetValue("")
			s.inputFocused = false
			if s.exec != nil {
				s.exec.ProvideInput(value)
			}
			return s, tick()
		}
	}

	var cmd tea.Cmd
	if s.inputFocused {
		s.input, cmd = s.input.Update(msg)
	} else {
		s.editor, cmd = s.editor.Update(msg)
	}
	return s, cmd
}

// dismissFeedback advances past a graded problem, finishing the stage when
// it was the last one.
func (s *Screen) dismissFeedback() (screen.Screen, tea.Cmd) {
	s.fb.visible = false
	switch s.orch.Current() {
	case stages.StageQuiz:
		_, done, missed := s.quiz.Advance()
		if done {
			return s.finishStage(missed)
		}
		s.loadQuizProblem()
	case stages.StageCoding:
		_, done, missed := s.coding.Advance()
		if done {
			return s.finishStage(missed)
		}
		s.loadCodingProblem()
	}
	return s, nil
}

func (s *Screen) finishStage(missed []string) (screen.Screen, tea.Cmd) {
	out := s.orch.FinishStage(context.Background(), missed)
	if !out.Finished {
		s.enterStage(s.orch.Current())
		return s, nil
	}
	s.finished = true
	// Pop back to where the lesson was opened from; the refresh lets the
	// screen below recompute derived state.
	return s, func() tea.Msg { return router.PopScreenMsg{} }
}

func (s *Screen) saveCurrentStage() {
	switch s.orch.Current() {
	case stages.StageQuiz:
		if s.quiz != nil {
			s.orch.SaveStage(stages.StageQuiz, s.quiz.Snapshot())
		}
	case stages.StageCoding:
		if s.coding != nil {
			s.coding.RecordDraft(s.coding.Current(), s.editor.Value())
			s.orch.SaveStage(stages.StageCoding, s.coding.Snapshot())
		}
	}
}

// askTutor sends the current problem and draft to the tutor off the update
// loop.
func (s *Screen) askTutor() tea.Cmd {
	if s.deps.Tutor == nil {
		return nil
	}
	var prompt, extra string
	switch s.orch.Current() {
	case stages.StageConcept:
		page := s.deps.Lesson.Pages[s.pageIdx]
		prompt = "Explain this again more simply."
		extra = page.Body
	case stages.StageQuiz:
		if s.quiz == nil {
			return nil
		}
		p, err := s.quiz.Problem(s.quiz.Current())
		if err != nil {
			return nil
		}
		prompt = "Give me a hint for this question without revealing the answer."
		extra = p.PromptText()
	case stages.StageCoding:
		if s.coding == nil {
			return nil
		}
		p, err := s.coding.Problem(s.coding.Current())
		if err != nil {
			return nil
		}
		prompt = "My code does not work yet. What should I look at?"
		extra = p.PromptText() + "\n\nMy code:\n" + s.editor.Value()
	}
	tut := s.deps.Tutor
	return func() tea.Msg {
		return tutorMsg{text: tut.Complete(context.Background(), prompt, extra)}
	}
}

func (s *Screen) forward(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	if s.orch.Current() == stages.StageCoding {
		if s.inputFocused {
			s.input, cmd = s.input.Update(msg)
		} else {
			s.editor, cmd = s.editor.Update(msg)
		}
	}
	return s, cmd
}

// Title implements screen.Screen.
func (s *Screen) Title() string { return s.deps.Lesson.Title }

// KeyHints provides the footer hints for the active stage.
func (s *Screen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "1-3", Description: "Stage"}}
	switch s.orch.Current() {
	case stages.StageConcept:
		hints = append(hints, layout.KeyHint{Key: "←→", Description: "Pages"})
	case stages.StageQuiz:
		hints = append(hints, layout.KeyHint{Key: "Enter", Description: "Answer"})
	case stages.StageCoding:
		hints = append(hints, layout.KeyHint{Key: "Ctrl+R", Description: "Run"})
	}
	return append(hints,
		layout.KeyHint{Key: "Ctrl+T", Description: "Tutor"},
		layout.KeyHint{Key: "Esc", Description: "Back"},
	)
}
