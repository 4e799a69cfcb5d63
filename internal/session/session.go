package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/jay060412/stepcode/internal/content"
)

// Session errors. The UI maps these to inline validation messages; none of
// them mutate state.
var (
	ErrIndexOutOfRange = errors.New("session: problem index out of range")
	ErrAlreadyResolved = errors.New("session: problem already resolved")
	ErrEmptyDraft      = errors.New("session: empty submission")
)

// Status is the per-problem lifecycle within one stage attempt.
type Status int

const (
	StatusUnanswered Status = iota // no draft yet
	StatusAnswered                 // draft present, not yet submitted
	StatusResolved                 // submitted; result frozen
)

// Result is the frozen outcome of one submission. Once recorded for an
// index it never changes for the remainder of the session.
type Result struct {
	// Correct reports whether the submission matched the expected answer.
	Correct bool `json:"correct"`

	// Feedback is the explanatory text shown to the learner.
	Feedback string `json:"feedback"`

	// Output is the captured program output at submission time (coding
	// problems only, empty for concept problems).
	Output string `json:"output,omitempty"`
}

// DraftSyncer receives best-effort draft saves. Implementations must not
// block the caller for long; errors are swallowed.
type DraftSyncer interface {
	SyncDraft(problemID, draft string)
}

// Session drives submission and sequencing for the problems of one stage
// (quiz or coding) of one lesson. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	problems []content.Problem
	current  int

	drafts  map[int]string
	outputs map[int]string
	results map[int]*Result

	// options holds the shuffled option order for each concept problem,
	// fixed at stage entry so the learner sees a stable layout.
	options map[int][]string

	syncer DraftSyncer

	// rng overrides the shuffle source; nil means the shared global one.
	rng *rand.Rand
}

// Option configures a Session at construction.
type Option func(*Session)

// WithSyncer installs the best-effort draft sync target.
func WithSyncer(s DraftSyncer) Option {
	return func(sess *Session) { sess.syncer = s }
}

// WithRand overrides the shuffle source, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(sess *Session) { sess.rng = r }
}

func (s *Session) shuffle(n int, swap func(i, j int)) {
	if s.rng != nil {
		s.rng.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}

// New starts a stage attempt over the given problems. Multiple-choice
// option order is randomized here, once, and stays stable until the next
// stage entry constructs a new Session.
func New(problems []content.Problem, opts ...Option) *Session {
	s := &Session{
		problems: problems,
		drafts:   make(map[int]string),
		outputs:  make(map[int]string),
		results:  make(map[int]*Result),
		options:  make(map[int][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	for i, p := range problems {
		cp, ok := p.(content.ConceptProblem)
		if !ok {
			continue
		}
		shuffled := make([]string, len(cp.Options))
		copy(shuffled, cp.Options)
		s.shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		s.options[i] = shuffled
	}
	return s
}

// Len returns the number of problems in the stage.
func (s *Session) Len() int { return len(s.problems) }

// Current returns the index of the problem the learner is on.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Problem returns the problem at index.
func (s *Session) Problem(index int) (content.Problem, error) {
	if index < 0 || index >= len(s.problems) {
		return nil, ErrIndexOutOfRange
	}
	return s.problems[index], nil
}

// Options returns the shuffled option order for a concept problem, stable
// for the lifetime of this Session. Nil for coding problems.
func (s *Session) Options(index int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options[index]
}

// Status reports the lifecycle state of the problem at index.
func (s *Session) Status(index int) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.results[index] != nil:
		return StatusResolved
	case s.drafts[index] != "":
		return StatusAnswered
	default:
		return StatusUnanswered
	}
}

// Draft returns the learner's current draft for index.
func (s *Session) Draft(index int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[index]
}

// RecordDraft stores the learner's in-progress answer. It is rejected once
// the index is resolved. The draft is synced to the profile adapter in the
// background; sync failure is invisible here.
func (s *Session) RecordDraft(index int, value string) error {
	if index < 0 || index >= len(s.problems) {
		return ErrIndexOutOfRange
	}
	s.mu.Lock()
	if s.results[index] != nil {
		s.mu.Unlock()
		return ErrAlreadyResolved
	}
	s.drafts[index] = value
	syncer := s.syncer
	s.mu.Unlock()

	if syncer != nil {
		go syncer.SyncDraft(s.problems[index].ProblemID(), value)
	}
	return nil
}

// RecordOutput captures the runner's output buffer for a coding problem,
// to be graded on the next Submit. Rejected once resolved.
func (s *Session) RecordOutput(index int, output string) error {
	if index < 0 || index >= len(s.problems) {
		return ErrIndexOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results[index] != nil {
		return ErrAlreadyResolved
	}
	s.outputs[index] = output
	return nil
}

// Submit grades the problem at index and freezes the result. It is
// idempotent: after the first resolution, further calls return the stored
// result unchanged.
func (s *Session) Submit(index int) (Result, error) {
	if index < 0 || index >= len(s.problems) {
		return Result{}, ErrIndexOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.results[index]; r != nil {
		return *r, nil
	}

	var res Result
	switch p := s.problems[index].(type) {
	case content.ConceptProblem:
		res.Correct = s.drafts[index] == p.Answer
		res.Feedback = conceptFeedback(p, res.Correct)
	case content.CodingProblem:
		if strings.TrimSpace(s.drafts[index]) == "" {
			return Result{}, ErrEmptyDraft
		}
		res.Output = s.outputs[index]
		res.Correct = strings.TrimSpace(res.Output) == strings.TrimSpace(p.ExpectedOutput)
		res.Feedback = codingFeedback(p, res.Correct)
	default:
		return Result{}, fmt.Errorf("session: unknown problem kind %T", p)
	}

	s.results[index] = &res
	return res, nil
}

// Result returns the frozen result for index, reporting whether one exists.
func (s *Session) Result(index int) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[index]
	if !ok {
		return Result{}, false
	}
	return *r, true
}

// Advance moves to the next unresolved problem. When every problem is
// resolved it finalizes the stage: done is true and missed holds the ids of
// the problems answered incorrectly, in problem order, for the orchestrator.
func (s *Session) Advance() (next int, done bool, missed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.problems) == 0 {
		return 0, true, nil
	}
	for i := range s.problems {
		idx := (s.current + 1 + i) % len(s.problems)
		if s.results[idx] == nil {
			s.current = idx
			return idx, false, nil
		}
	}

	for i, p := range s.problems {
		if !s.results[i].Correct {
			missed = append(missed, p.ProblemID())
		}
	}
	return s.current, true, missed
}

// Reset clears the draft and captured output for an unresolved index, a
// learner-initiated try-again before submitting. Resolved problems cannot
// be reset.
func (s *Session) Reset(index int) error {
	if index < 0 || index >= len(s.problems) {
		return ErrIndexOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results[index] != nil {
		return ErrAlreadyResolved
	}
	delete(s.drafts, index)
	delete(s.outputs, index)
	return nil
}

func conceptFeedback(p content.ConceptProblem, correct bool) string {
	if correct {
		if p.Explanation != "" {
			return "Correct! " + p.Explanation
		}
		return "Correct!"
	}
	msg := fmt.Sprintf("Incorrect. The answer is %q.", p.Answer)
	if p.Explanation != "" {
		msg += " " + p.Explanation
	}
	return msg
}

func codingFeedback(p content.CodingProblem, correct bool) string {
	if correct {
		if p.Explanation != "" {
			return "Correct! " + p.Explanation
		}
		return "Correct!"
	}
	msg := "Output does not match the expected result."
	if p.Hint != "" {
		msg += " Hint: " + p.Hint
	}
	return msg
}
