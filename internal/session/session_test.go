package session

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jay060412/stepcode/internal/content"
)

func quizProblems() []content.Problem {
	return []content.Problem{
		content.ConceptProblem{
			ID:      "q1",
			Prompt:  "Pick A.",
			Options: []string{"A", "B", "C"},
			Answer:  "A",
		},
		content.ConceptProblem{
			ID:          "q2",
			Prompt:      "Pick B.",
			Options:     []string{"A", "B"},
			Answer:      "B",
			Explanation: "B is the one.",
		},
	}
}

func codingProblems() []content.Problem {
	return []content.Problem{
		content.CodingProblem{
			ID:             "c1",
			Prompt:         "Print Hello then 10.",
			ExpectedOutput: "Hello\n10",
			Hint:           "Two print calls.",
		},
	}
}

func TestSubmitConceptExactMatch(t *testing.T) {
	s := New(quizProblems())

	if err := s.RecordDraft(0, "A"); err != nil {
		t.Fatalf("RecordDraft: %v", err)
	}
	res, err := s.Submit(0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Correct {
		t.Error("exact match graded incorrect")
	}

	if err := s.RecordDraft(1, "A"); err != nil {
		t.Fatalf("RecordDraft: %v", err)
	}
	res, err = s.Submit(1)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Correct {
		t.Error("wrong option graded correct")
	}
	if res.Feedback == "" {
		t.Error("missing feedback on incorrect answer")
	}
}

func TestSubmitCodingTrimmedOutputEquality(t *testing.T) {
	s := New(codingProblems())
	if err := s.RecordDraft(0, "print(\"Hello\")\nprint(10)"); err != nil {
		t.Fatalf("RecordDraft: %v", err)
	}
	if err := s.RecordOutput(0, "Hello\n10\n"); err != nil {
		t.Fatalf("RecordOutput: %v", err)
	}
	res, err := s.Submit(0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Correct {
		t.Errorf("trailing newline should be trimmed before comparison, output %q", res.Output)
	}
	if res.Output != "Hello\n10\n" {
		t.Errorf("captured output not preserved: %q", res.Output)
	}
}

func TestSubmitCodingWrongOutput(t *testing.T) {
	s := New(codingProblems())
	if err := s.RecordDraft(0, "print(\"Hello\")"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordOutput(0, "Hello\n"); err != nil {
		t.Fatal(err)
	}
	res, err := s.Submit(0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Correct {
		t.Error("mismatched output graded correct")
	}
}

func TestSubmitCodingRequiresDraft(t *testing.T) {
	s := New(codingProblems())
	if _, err := s.Submit(0); !errors.Is(err, ErrEmptyDraft) {
		t.Fatalf("expected ErrEmptyDraft, got %v", err)
	}
	if _, ok := s.Result(0); ok {
		t.Error("rejected submission left a result behind")
	}
}

func TestSubmitIdempotent(t *testing.T) {
	s := New(quizProblems())
	if err := s.RecordDraft(0, "A"); err != nil {
		t.Fatal(err)
	}
	first, err := s.Submit(0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// A later draft change must be rejected, and re-submitting must
	// return the frozen result.
	if err := s.RecordDraft(0, "B"); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("post-resolve draft: expected ErrAlreadyResolved, got %v", err)
	}
	second, err := s.Submit(0)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second submit changed the result: %+v vs %+v", first, second)
	}
}

func TestResetPreSubmitOnly(t *testing.T) {
	s := New(codingProblems())
	if err := s.RecordDraft(0, "print(1)"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordOutput(0, "1\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(0); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.Draft(0) != "" || s.Status(0) != StatusUnanswered {
		t.Error("Reset did not clear draft state")
	}

	if err := s.RecordDraft(0, "print(\"Hello\")\nprint(10)"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordOutput(0, "Hello\n10"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(0); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(0); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("post-resolve Reset: expected ErrAlreadyResolved, got %v", err)
	}
}

func TestAdvanceSequencingAndMissed(t *testing.T) {
	s := New(quizProblems())

	if err := s.RecordDraft(0, "B"); err != nil { // wrong
		t.Fatal(err)
	}
	if _, err := s.Submit(0); err != nil {
		t.Fatal(err)
	}
	next, done, _ := s.Advance()
	if done || next != 1 {
		t.Fatalf("Advance after first submit: next=%d done=%v", next, done)
	}

	if err := s.RecordDraft(1, "B"); err != nil { // right
		t.Fatal(err)
	}
	if _, err := s.Submit(1); err != nil {
		t.Fatal(err)
	}
	_, done, missed := s.Advance()
	if !done {
		t.Fatal("Advance did not finalize after last resolution")
	}
	if !reflect.DeepEqual(missed, []string{"q1"}) {
		t.Errorf("missed = %v, want [q1]", missed)
	}
}

func TestAdvanceSkipsResolvedIndices(t *testing.T) {
	s := New(append(quizProblems(), content.ConceptProblem{
		ID: "q3", Prompt: "Pick A.", Options: []string{"A", "B"}, Answer: "A",
	}))

	// Resolve the middle problem out of order, then walk from the start.
	if err := s.RecordDraft(1, "B"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(1); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordDraft(0, "A"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(0); err != nil {
		t.Fatal(err)
	}
	next, done, _ := s.Advance()
	if done || next != 2 {
		t.Fatalf("expected jump over resolved index 1 to 2, got next=%d done=%v", next, done)
	}
}

func TestOptionsShuffledOncePerEntry(t *testing.T) {
	problems := quizProblems()
	rng := rand.New(rand.NewPCG(7, 11))
	s := New(problems, WithRand(rng))

	got := s.Options(0)
	want := []string{"A", "B", "C"}
	sortedGot := append([]string(nil), got...)
	sort.Strings(sortedGot)
	if !reflect.DeepEqual(sortedGot, want) {
		t.Fatalf("options are not a permutation: %v", got)
	}

	// Stable within the session.
	if !reflect.DeepEqual(s.Options(0), got) {
		t.Error("option order changed within one stage entry")
	}

	// A fresh entry reshuffles; with enough tries some seed must differ.
	differed := false
	for seed := uint64(0); seed < 20; seed++ {
		fresh := New(problems, WithRand(rand.New(rand.NewPCG(seed, seed))))
		if !reflect.DeepEqual(fresh.Options(0), got) {
			differed = true
			break
		}
	}
	if !differed {
		t.Error("option order never varies across stage entries")
	}
}

type recordingSyncer struct {
	mu     sync.Mutex
	drafts map[string]string
	seen   chan struct{}
}

func (r *recordingSyncer) SyncDraft(problemID, draft string) {
	r.mu.Lock()
	r.drafts[problemID] = draft
	r.mu.Unlock()
	r.seen <- struct{}{}
}

func TestRecordDraftSyncsInBackground(t *testing.T) {
	syncer := &recordingSyncer{drafts: make(map[string]string), seen: make(chan struct{}, 4)}
	s := New(quizProblems(), WithSyncer(syncer))

	if err := s.RecordDraft(0, "A"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-syncer.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("draft sync never fired")
	}
	syncer.mu.Lock()
	got := syncer.drafts["q1"]
	syncer.mu.Unlock()
	if got != "A" {
		t.Errorf("synced draft = %q, want A", got)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	problems := quizProblems()
	s := New(problems, WithRand(rand.New(rand.NewPCG(3, 5))))

	if err := s.RecordDraft(0, "B"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(0); err != nil {
		t.Fatal(err)
	}
	s.Advance()
	if err := s.RecordDraft(1, "B"); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()

	fresh := New(problems) // fresh shuffle, then overwritten by Restore
	fresh.Restore(snap)

	if fresh.Current() != s.Current() {
		t.Errorf("current index not restored: %d vs %d", fresh.Current(), s.Current())
	}
	if fresh.Draft(1) != "B" {
		t.Errorf("draft not restored: %q", fresh.Draft(1))
	}
	wantRes, _ := s.Result(0)
	gotRes, ok := fresh.Result(0)
	if !ok || !reflect.DeepEqual(wantRes, gotRes) {
		t.Errorf("result not restored: %+v vs %+v", gotRes, wantRes)
	}
	if !reflect.DeepEqual(fresh.Options(0), s.Options(0)) {
		t.Error("restored option order differs from the snapshotted one")
	}
	if fresh.Status(0) != StatusResolved || fresh.Status(1) != StatusAnswered {
		t.Errorf("statuses not restored: %v %v", fresh.Status(0), fresh.Status(1))
	}
}
