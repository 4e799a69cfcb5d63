// Package stages sequences the concept, quiz and coding stages of a lesson
// and applies the end-of-lesson policy: missed-concept merging, completion
// marking and progress recomputation.
package stages

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jay060412/stepcode/internal/content"
	"github.com/jay060412/stepcode/internal/gapfiller"
	"github.com/jay060412/stepcode/internal/profile"
	"github.com/jay060412/stepcode/internal/session"
)

// Stage identifies one tab of a lesson.
type Stage int

const (
	StageConcept Stage = iota
	StageQuiz
	StageCoding
)

func (s Stage) String() string {
	switch s {
	case StageConcept:
		return "concept"
	case StageQuiz:
		return "quiz"
	case StageCoding:
		return "coding"
	default:
		return "unknown"
	}
}

// ErrStageUnavailable is returned for jumps to a stage the lesson has no
// content for.
var ErrStageUnavailable = errors.New("stages: stage not available in this lesson")

// Applicable lists the lesson's stages in fixed order. A stage is present
// iff the lesson has content for it.
func Applicable(lesson content.Lesson) []Stage {
	var out []Stage
	if lesson.HasConceptStage() {
		out = append(out, StageConcept)
	}
	if lesson.HasQuizStage() {
		out = append(out, StageQuiz)
	}
	if lesson.HasCodingStage() {
		out = append(out, StageCoding)
	}
	return out
}

// Outcome is what the end-of-lesson policy decided. SyncErr carries a
// persistence failure; local state stands regardless, so callers show it
// as a dismissable alert, not a rollback.
type Outcome struct {
	// Finished is false while there are further stages to complete.
	Finished bool

	// LessonCompleted is true when an ordinary lesson was marked done.
	LessonCompleted bool

	// Progress is the recomputed percentage after completion.
	Progress int

	// MasteredProblemID names the review problem promoted to mastered,
	// empty when the review was missed again or this was no review.
	MasteredProblemID string

	// RouteToGapFiller sends the learner back to the review view.
	RouteToGapFiller bool

	SyncErr error
}

// Orchestrator drives one lesson-in-progress: a current-stage pointer over
// the applicable stages, per-stage session snapshots for free tab jumps,
// and the finalization policy.
type Orchestrator struct {
	catalog *content.Catalog
	track   content.Track
	lesson  content.Lesson

	prof *profile.Profile
	repo profile.Repo // nil means no persistence

	stages  []Stage
	current int

	// snapshots keep quiz and coding state alive across stage jumps
	// within this lesson. Dropped with the orchestrator on exit.
	snapshots map[Stage]session.Snapshot

	// missed accumulates this run's missed problem ids across stages.
	missed []string

	sessionOpts []session.Option

	// draftMu guards prof.Settings against the background draft syncer.
	draftMu sync.Mutex
}

// New opens a lesson. The entry stage is the first applicable one, which
// for a synthetic review lesson is the stage matching the problem's kind.
// Progress after completion is computed against the catalog's lesson count
// across all tracks; a nil catalog falls back to the track's own count.
// Stage sessions sync drafts into the profile unless an option overrides
// the syncer.
func New(catalog *content.Catalog, track content.Track, lesson content.Lesson, prof *profile.Profile, repo profile.Repo, opts ...session.Option) *Orchestrator {
	o := &Orchestrator{
		catalog:   catalog,
		track:     track,
		lesson:    lesson,
		prof:      prof,
		repo:      repo,
		stages:    Applicable(lesson),
		snapshots: make(map[Stage]session.Snapshot),
	}
	o.sessionOpts = append([]session.Option{session.WithSyncer(&profileDraftSyncer{o: o})}, opts...)
	return o
}

// profileDraftSyncer keeps coding drafts in the profile settings under a
// draft:<problemID> key. Best effort: persistence errors are dropped, the
// in-memory draft stays authoritative for the session.
type profileDraftSyncer struct {
	o *Orchestrator
}

func (s *profileDraftSyncer) SyncDraft(problemID, draft string) {
	s.o.draftMu.Lock()
	settings := make(map[string]string, len(s.o.prof.Settings)+1)
	for k, v := range s.o.prof.Settings {
		settings[k] = v
	}
	settings["draft:"+problemID] = draft
	s.o.prof.Settings = settings
	s.o.draftMu.Unlock()
	if s.o.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.o.repo.Update(ctx, s.o.prof.ID, profile.Update{Settings: &settings})
}

// Lesson returns the lesson being worked.
func (o *Orchestrator) Lesson() content.Lesson { return o.lesson }

// SavedDraft returns the draft stored in the profile for a problem, or ""
// when none exists. Readers go through here because the draft syncer
// swaps the settings map from its own goroutine.
func (o *Orchestrator) SavedDraft(problemID string) string {
	o.draftMu.Lock()
	defer o.draftMu.Unlock()
	return o.prof.Settings["draft:"+problemID]
}

// Stages returns the applicable stages in order.
func (o *Orchestrator) Stages() []Stage { return o.stages }

// Current returns the stage the learner is on.
func (o *Orchestrator) Current() Stage {
	if len(o.stages) == 0 {
		return StageConcept
	}
	return o.stages[o.current]
}

// Jump moves to any applicable stage. Tabs are freely revisitable; only
// completion is forward-only.
func (o *Orchestrator) Jump(stage Stage) error {
	for i, s := range o.stages {
		if s == stage {
			o.current = i
			return nil
		}
	}
	return ErrStageUnavailable
}

// StageSession builds the session for an assessable stage, restoring the
// stage's snapshot when the learner has been here before.
func (o *Orchestrator) StageSession(stage Stage) (*session.Session, error) {
	var problems []content.Problem
	switch stage {
	case StageQuiz:
		for _, p := range o.lesson.ConceptProblems {
			problems = append(problems, p)
		}
	case StageCoding:
		for _, p := range o.lesson.CodingProblems {
			problems = append(problems, p)
		}
	default:
		return nil, ErrStageUnavailable
	}
	if len(problems) == 0 {
		return nil, ErrStageUnavailable
	}
	sess := session.New(problems, o.sessionOpts...)
	if snap, ok := o.snapshots[stage]; ok {
		sess.Restore(snap)
	}
	return sess, nil
}

// SaveStage stores a stage's session state so a jump away and back does
// not lose drafts or results.
func (o *Orchestrator) SaveStage(stage Stage, snap session.Snapshot) {
	o.snapshots[stage] = snap
}

// FinishStage completes the current stage with the stage's missed problem
// ids. While later stages remain it advances the pointer; finishing the
// last applicable stage runs the end-of-lesson policy.
func (o *Orchestrator) FinishStage(ctx context.Context, missed []string) Outcome {
	o.missed = append(o.missed, missed...)
	if o.current+1 < len(o.stages) {
		o.current++
		return Outcome{}
	}
	return o.finishLesson(ctx)
}

func (o *Orchestrator) finishLesson(ctx context.Context) Outcome {
	out := Outcome{Finished: true}

	missedProblems := o.resolveMissed()
	o.prof.MissedConcepts = gapfiller.Merge(o.prof.MissedConcepts, missedProblems)

	if o.lesson.IsReview() {
		// A review lesson carries exactly one problem. Solving it
		// without missing promotes it to mastered; missing it again
		// was already handled by the merge above.
		id := o.reviewProblemID()
		if id != "" && !o.missedThisRun(id) {
			updated, ok := gapfiller.MarkMastered(o.prof.MissedConcepts, id)
			if ok {
				o.prof.MissedConcepts = updated
				out.MasteredProblemID = id
			}
		}
		out.RouteToGapFiller = true
		out.SyncErr = o.persist(ctx, profile.Update{
			MissedConcepts: &o.prof.MissedConcepts,
		})
		return out
	}

	o.prof.MarkCompleted(o.lesson.ID)
	o.prof.Progress = profile.ComputeProgress(len(o.prof.CompletedLessonIDs), o.totalLessons())

	out.LessonCompleted = true
	out.Progress = o.prof.Progress
	out.SyncErr = o.persist(ctx, profile.Update{
		Progress:           &o.prof.Progress,
		CompletedLessonIDs: &o.prof.CompletedLessonIDs,
		MissedConcepts:     &o.prof.MissedConcepts,
	})
	return out
}

// totalLessons is the denominator for progress. Completing a lesson in one
// track must not inflate the percentage against another track's count.
func (o *Orchestrator) totalLessons() int {
	if o.catalog != nil {
		return o.catalog.TotalLessons()
	}
	return o.track.TotalLessons()
}

// persist pushes the update through the adapter. Failure is returned, not
// acted on: the optimistic local state stands.
func (o *Orchestrator) persist(ctx context.Context, u profile.Update) error {
	if o.repo == nil {
		return nil
	}
	return o.repo.Update(ctx, o.prof.ID, u)
}

func (o *Orchestrator) resolveMissed() []content.Problem {
	var out []content.Problem
	for _, id := range o.missed {
		if p, ok := o.lessonProblem(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (o *Orchestrator) lessonProblem(id string) (content.Problem, bool) {
	for _, p := range o.lesson.ConceptProblems {
		if p.ID == id {
			return p, true
		}
	}
	for _, p := range o.lesson.CodingProblems {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (o *Orchestrator) reviewProblemID() string {
	if len(o.lesson.ConceptProblems) == 1 {
		return o.lesson.ConceptProblems[0].ID
	}
	if len(o.lesson.CodingProblems) == 1 {
		return o.lesson.CodingProblems[0].ID
	}
	return ""
}

func (o *Orchestrator) missedThisRun(id string) bool {
	for _, m := range o.missed {
		if m == id {
			return true
		}
	}
	return false
}
