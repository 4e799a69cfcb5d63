package stages

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"sync"
	"testing"

	"github.com/jay060412/stepcode/internal/content"
	"github.com/jay060412/stepcode/internal/gapfiller"
	"github.com/jay060412/stepcode/internal/profile"
	"github.com/jay060412/stepcode/internal/session"
)

func testTrack() content.Track {
	return content.Track{
		ID:       "step",
		Name:     "Step Basics",
		Language: "step",
		Lessons: []content.Lesson{
			fullLesson(),
			{ID: "l2", Title: "Two", TrackID: "step", Pages: []content.ConceptPage{{Title: "p", Body: "b"}}},
			{ID: "l3", Title: "Three", TrackID: "step", Pages: []content.ConceptPage{{Title: "p", Body: "b"}}},
		},
	}
}

func fullLesson() content.Lesson {
	return content.Lesson{
		ID:      "l1",
		Title:   "One",
		TrackID: "step",
		Pages:   []content.ConceptPage{{Title: "intro", Body: "text"}},
		ConceptProblems: []content.ConceptProblem{
			{ID: "q1", Prompt: "Pick A.", Options: []string{"A", "B"}, Answer: "A"},
		},
		CodingProblems: []content.CodingProblem{
			{ID: "c1", Prompt: "Print Hello then 10.", ExpectedOutput: "Hello\n10"},
		},
	}
}

type fakeRepo struct {
	updates []profile.Update
	fail    error
}

func (r *fakeRepo) Get(context.Context, string) (profile.Profile, error) {
	return profile.Profile{}, nil
}

func (r *fakeRepo) Insert(context.Context, profile.Profile) error { return nil }

func (r *fakeRepo) Update(_ context.Context, _ string, u profile.Update) error {
	if r.fail != nil {
		return r.fail
	}
	r.updates = append(r.updates, u)
	return nil
}

func TestApplicableStages(t *testing.T) {
	if got := Applicable(fullLesson()); !reflect.DeepEqual(got, []Stage{StageConcept, StageQuiz, StageCoding}) {
		t.Errorf("full lesson stages = %v", got)
	}
	quizOnly := content.Lesson{ConceptProblems: []content.ConceptProblem{{ID: "q"}}}
	if got := Applicable(quizOnly); !reflect.DeepEqual(got, []Stage{StageQuiz}) {
		t.Errorf("quiz-only stages = %v", got)
	}
	if got := Applicable(content.Lesson{}); got != nil {
		t.Errorf("empty lesson stages = %v", got)
	}
}

func TestFreeJumpsForwardOnlyCompletion(t *testing.T) {
	track := testTrack()
	prof := &profile.Profile{ID: "u1"}
	o := New(nil, track, fullLesson(), prof, nil)

	if o.Current() != StageConcept {
		t.Fatalf("entry stage = %v", o.Current())
	}

	// Free jump forward and back.
	if err := o.Jump(StageCoding); err != nil {
		t.Fatalf("Jump coding: %v", err)
	}
	if err := o.Jump(StageConcept); err != nil {
		t.Fatalf("Jump back: %v", err)
	}
	if o.Current() != StageConcept {
		t.Errorf("current = %v", o.Current())
	}

	// Completion walks forward through the fixed order.
	out := o.FinishStage(context.Background(), nil)
	if out.Finished {
		t.Fatal("lesson finished with stages remaining")
	}
	if o.Current() != StageQuiz {
		t.Errorf("after concept finish, current = %v", o.Current())
	}

	// A jump to an absent stage fails.
	bare := New(nil, track, content.Lesson{ID: "x", ConceptProblems: fullLesson().ConceptProblems}, prof, nil)
	if err := bare.Jump(StageCoding); !errors.Is(err, ErrStageUnavailable) {
		t.Errorf("jump to absent stage: %v", err)
	}
}

func TestStageSessionSnapshotsSurviveJumps(t *testing.T) {
	prof := &profile.Profile{ID: "u1"}
	o := New(nil, testTrack(), fullLesson(), prof, nil)

	sess, err := o.StageSession(StageQuiz)
	if err != nil {
		t.Fatalf("StageSession: %v", err)
	}
	if err := sess.RecordDraft(0, "A"); err != nil {
		t.Fatal(err)
	}
	o.SaveStage(StageQuiz, sess.Snapshot())

	// Jump away and back: the restored session still has the draft and
	// the same option order.
	restored, err := o.StageSession(StageQuiz)
	if err != nil {
		t.Fatalf("StageSession again: %v", err)
	}
	if restored.Draft(0) != "A" {
		t.Errorf("draft lost across jump: %q", restored.Draft(0))
	}
	if !reflect.DeepEqual(restored.Options(0), sess.Options(0)) {
		t.Error("option order changed across jump")
	}

	if _, err := o.StageSession(StageConcept); !errors.Is(err, ErrStageUnavailable) {
		t.Errorf("concept stage has no session, got %v", err)
	}
}

// Lesson with one coding problem whose expected output is "Hello\n10":
// a correct submission completes the lesson and recomputes progress.
func TestCodingLessonEndToEnd(t *testing.T) {
	track := testTrack()
	prof := &profile.Profile{ID: "u1"}
	repo := &fakeRepo{}
	o := New(nil, track, fullLesson(), prof, repo, session.WithSyncer(nil))
	ctx := context.Background()

	// Concept pages read.
	if out := o.FinishStage(ctx, nil); out.Finished {
		t.Fatal("finished after concept stage")
	}

	// Quiz answered correctly.
	quiz, err := o.StageSession(StageQuiz)
	if err != nil {
		t.Fatal(err)
	}
	if err := quiz.RecordDraft(0, "A"); err != nil {
		t.Fatal(err)
	}
	if _, err := quiz.Submit(0); err != nil {
		t.Fatal(err)
	}
	_, done, missed := quiz.Advance()
	if !done || missed != nil {
		t.Fatalf("quiz advance: done=%v missed=%v", done, missed)
	}
	if out := o.FinishStage(ctx, missed); out.Finished {
		t.Fatal("finished before coding stage")
	}

	// Coding problem: output matches after trim.
	coding, err := o.StageSession(StageCoding)
	if err != nil {
		t.Fatal(err)
	}
	if err := coding.RecordDraft(0, "print(\"Hello\")\nprint(10)"); err != nil {
		t.Fatal(err)
	}
	if err := coding.RecordOutput(0, "Hello\n10\n"); err != nil {
		t.Fatal(err)
	}
	res, err := coding.Submit(0)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Correct {
		t.Fatalf("expected correct, feedback %q", res.Feedback)
	}
	_, done, missed = coding.Advance()
	if !done || missed != nil {
		t.Fatalf("coding advance: done=%v missed=%v", done, missed)
	}

	out := o.FinishStage(ctx, missed)
	if !out.Finished || !out.LessonCompleted {
		t.Fatalf("lesson not completed: %+v", out)
	}
	if out.Progress != 33 { // 1 of 3 lessons
		t.Errorf("progress = %d, want 33", out.Progress)
	}
	if !prof.CompletedSet()["l1"] {
		t.Error("lesson not in completed set")
	}
	if len(prof.MissedConcepts) != 0 {
		t.Errorf("clean run added missed concepts: %v", prof.MissedConcepts)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("expected one persisted update, got %d", len(repo.updates))
	}
	if repo.updates[0].Progress == nil || *repo.updates[0].Progress != 33 {
		t.Errorf("persisted update missing progress: %+v", repo.updates[0])
	}
}

func TestMissedProblemsMergeOnOrdinaryCompletion(t *testing.T) {
	prof := &profile.Profile{ID: "u1"}
	o := New(nil, testTrack(), fullLesson(), prof, nil)
	ctx := context.Background()

	o.FinishStage(ctx, nil)            // concept
	o.FinishStage(ctx, []string{"q1"}) // quiz missed
	out := o.FinishStage(ctx, nil)     // coding clean

	if !out.LessonCompleted {
		t.Fatal("lesson should still complete with missed problems")
	}
	if len(prof.MissedConcepts) != 1 || prof.MissedConcepts[0].ProblemID != "q1" {
		t.Fatalf("missed concepts = %v", prof.MissedConcepts)
	}
	if prof.MissedConcepts[0].Mastered {
		t.Error("ordinary completion must not mark mastered")
	}
}

// Synthetic review lesson answered correctly: the entry flips to mastered,
// no completion or progress change happens, and the learner routes back to
// the review view.
func TestReviewLessonEndToEnd(t *testing.T) {
	missedProblem := content.ConceptProblem{
		ID: "q1", Prompt: "Pick A.", Options: []string{"A", "B"}, Answer: "A",
	}
	prof := &profile.Profile{
		ID:             "u1",
		Progress:       33,
		MissedConcepts: gapfiller.Merge(nil, []content.Problem{missedProblem}),
	}
	repo := &fakeRepo{}
	review := gapfiller.ReviewLesson(gapfiller.Snapshot(missedProblem))
	o := New(nil, testTrack(), review, prof, repo, session.WithSyncer(nil))
	ctx := context.Background()

	// Review lessons enter at the matching stage directly.
	if o.Current() != StageQuiz {
		t.Fatalf("entry stage = %v, want quiz", o.Current())
	}

	sess, err := o.StageSession(StageQuiz)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.RecordDraft(0, "A"); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.Submit(0); err != nil {
		t.Fatal(err)
	}
	_, done, missed := sess.Advance()
	if !done {
		t.Fatal("single-problem review did not finalize")
	}

	out := o.FinishStage(ctx, missed)
	if !out.Finished || !out.RouteToGapFiller {
		t.Fatalf("review outcome = %+v", out)
	}
	if out.MasteredProblemID != "q1" {
		t.Errorf("mastered id = %q", out.MasteredProblemID)
	}
	if out.LessonCompleted || prof.CompletedSet()[content.ReviewLessonID] {
		t.Error("review lesson must not mark completion")
	}
	if prof.Progress != 33 {
		t.Errorf("progress changed on review: %d", prof.Progress)
	}
	if !prof.MissedConcepts[0].Mastered {
		t.Error("review success did not set mastered")
	}
	if len(repo.updates) != 1 || repo.updates[0].Progress != nil {
		t.Errorf("review persisted wrong fields: %+v", repo.updates)
	}
}

func TestReviewLessonMissedAgainStaysUnmastered(t *testing.T) {
	missedProblem := content.ConceptProblem{
		ID: "q1", Prompt: "Pick A.", Options: []string{"A", "B"}, Answer: "A",
	}
	prof := &profile.Profile{
		ID:             "u1",
		MissedConcepts: gapfiller.Merge(nil, []content.Problem{missedProblem}),
	}
	review := gapfiller.ReviewLesson(gapfiller.Snapshot(missedProblem))
	o := New(nil, testTrack(), review, prof, nil)

	out := o.FinishStage(context.Background(), []string{"q1"})
	if out.MasteredProblemID != "" {
		t.Errorf("missed-again review marked mastered: %+v", out)
	}
	if len(prof.MissedConcepts) != 1 {
		t.Fatalf("re-miss duplicated the entry: %v", prof.MissedConcepts)
	}
	if prof.MissedConcepts[0].Mastered {
		t.Error("re-missed entry mastered")
	}
}

func TestPersistenceFailureIsNonFatal(t *testing.T) {
	prof := &profile.Profile{ID: "u1"}
	repo := &fakeRepo{fail: errors.New("network down")}
	o := New(nil, testTrack(), fullLesson(), prof, repo, session.WithSyncer(nil))
	ctx := context.Background()

	o.FinishStage(ctx, nil)
	o.FinishStage(ctx, nil)
	out := o.FinishStage(ctx, nil)

	if out.SyncErr == nil {
		t.Fatal("sync failure not surfaced")
	}
	// Optimistic local state stands.
	if !out.LessonCompleted || !prof.CompletedSet()["l1"] || prof.Progress != 33 {
		t.Errorf("local state rolled back on sync failure: %+v", prof)
	}
}

func TestDraftSyncStoresIntoProfileSettings(t *testing.T) {
	prof := &profile.Profile{ID: "u1"}
	repo := &fakeRepo{}
	o := New(nil, testTrack(), fullLesson(), prof, repo)

	s := &profileDraftSyncer{o: o}
	s.SyncDraft("step-01-c1", "print(\"Hello\")")

	if got := prof.Settings["draft:step-01-c1"]; got != "print(\"Hello\")" {
		t.Errorf("draft not stored in settings, got %q", got)
	}
	if len(repo.updates) != 1 || repo.updates[0].Settings == nil {
		t.Fatalf("expected one settings update, got %+v", repo.updates)
	}
	if (*repo.updates[0].Settings)["draft:step-01-c1"] != "print(\"Hello\")" {
		t.Errorf("persisted settings missing draft: %+v", *repo.updates[0].Settings)
	}
}

// Progress divides the completed count by the lesson count of the whole
// curriculum. Finishing a lesson in a short track must not inflate the
// percentage past what the other tracks still hold open.
func TestProgressCountsLessonsAcrossAllTracks(t *testing.T) {
	cTrack := content.Track{
		ID:       "c",
		Name:     "C Basics",
		Language: "c",
		Lessons: []content.Lesson{
			{ID: "c-l1", Title: "One", TrackID: "c", Pages: []content.ConceptPage{{Title: "p", Body: "b"}}},
			{ID: "c-l2", Title: "Two", TrackID: "c", Pages: []content.ConceptPage{{Title: "p", Body: "b"}}},
		},
	}
	catalog := &content.Catalog{Tracks: []content.Track{testTrack(), cTrack}}

	// One step lesson already done; finishing a c lesson makes 2 of 5.
	prof := &profile.Profile{ID: "u1", CompletedLessonIDs: []string{"l2"}}
	o := New(catalog, cTrack, cTrack.Lessons[0], prof, nil)

	out := o.FinishStage(context.Background(), nil)
	if !out.Finished || !out.LessonCompleted {
		t.Fatalf("concept-only lesson not completed: %+v", out)
	}
	if want := profile.ComputeProgress(2, 5); out.Progress != want {
		t.Errorf("progress = %d, want %d", out.Progress, want)
	}
	if out.Progress == 100 {
		t.Error("progress hit 100 with lessons still open in other tracks")
	}
}

// Drafts sync on a background goroutine while the coding screen reads them
// back. Both sides go through the orchestrator's lock.
func TestDraftSyncConcurrentWithSavedDraftRead(t *testing.T) {
	prof := &profile.Profile{ID: "u1"}
	o := New(nil, testTrack(), fullLesson(), prof, nil)
	s := &profileDraftSyncer{o: o}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.SyncDraft("c1", strconv.Itoa(i))
		}
	}()
	for i := 0; i < 100; i++ {
		o.SavedDraft("c1")
	}
	wg.Wait()

	if got := o.SavedDraft("c1"); got != "99" {
		t.Errorf("final draft = %q, want %q", got, "99")
	}
}

func TestDraftSyncFailureKeepsLocalDraft(t *testing.T) {
	prof := &profile.Profile{ID: "u1"}
	repo := &fakeRepo{fail: errors.New("network down")}
	o := New(nil, testTrack(), fullLesson(), prof, repo)

	s := &profileDraftSyncer{o: o}
	s.SyncDraft("step-01-c1", "x = 1")

	if got := prof.Settings["draft:step-01-c1"]; got != "x = 1" {
		t.Errorf("local draft lost on sync failure, got %q", got)
	}
}
