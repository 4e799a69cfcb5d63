// Package gapfiller maintains the learner's missed-concepts collection and
// builds the synthetic single-problem review lessons used to clear it.
package gapfiller

import (
	"github.com/jay060412/stepcode/internal/content"
)

// MissedConcept is a snapshot of a problem the learner got wrong, plus the
// mastered flag. It is a copy, not a reference: the review path must keep
// working even if the curriculum entry changes or disappears.
type MissedConcept struct {
	ProblemID      string       `json:"problem_id"`
	Kind           content.Kind `json:"kind"`
	Prompt         string       `json:"prompt"`
	Options        []string     `json:"options,omitempty"`
	Answer         string       `json:"answer,omitempty"`
	StarterCode    string       `json:"starter_code,omitempty"`
	ExpectedOutput string       `json:"expected_output,omitempty"`
	Hint           string       `json:"hint,omitempty"`
	Explanation    string       `json:"explanation,omitempty"`
	Mastered       bool         `json:"mastered"`
}

// Snapshot copies a problem into its missed-concept form, not mastered.
func Snapshot(p content.Problem) MissedConcept {
	mc := MissedConcept{
		ProblemID: p.ProblemID(),
		Kind:      p.ProblemKind(),
		Prompt:    p.PromptText(),
	}
	switch v := p.(type) {
	case content.ConceptProblem:
		mc.Options = append([]string(nil), v.Options...)
		mc.Answer = v.Answer
		mc.Hint = v.Hint
		mc.Explanation = v.Explanation
	case content.CodingProblem:
		mc.StarterCode = v.StarterCode
		mc.ExpectedOutput = v.ExpectedOutput
		mc.Hint = v.Hint
		mc.Explanation = v.Explanation
	}
	return mc
}

// Problem reconstructs the assessable problem from the snapshot.
func (mc MissedConcept) Problem() content.Problem {
	if mc.Kind == content.KindCoding {
		return content.CodingProblem{
			ID:             mc.ProblemID,
			Prompt:         mc.Prompt,
			StarterCode:    mc.StarterCode,
			ExpectedOutput: mc.ExpectedOutput,
			Hint:           mc.Hint,
			Explanation:    mc.Explanation,
		}
	}
	return content.ConceptProblem{
		ID:          mc.ProblemID,
		Prompt:      mc.Prompt,
		Options:     append([]string(nil), mc.Options...),
		Answer:      mc.Answer,
		Hint:        mc.Hint,
		Explanation: mc.Explanation,
	}
}

// Merge folds this run's missed problems into the long-term collection. An
// already-present entry is refreshed and reset to not-mastered rather than
// duplicated; new entries are appended in the order missed. The input slice
// is not mutated.
func Merge(existing []MissedConcept, missed []content.Problem) []MissedConcept {
	merged := append([]MissedConcept(nil), existing...)
	index := make(map[string]int, len(merged))
	for i, mc := range merged {
		index[mc.ProblemID] = i
	}
	for _, p := range missed {
		if i, ok := index[p.ProblemID()]; ok {
			merged[i] = Snapshot(p)
			continue
		}
		merged = append(merged, Snapshot(p))
		index[p.ProblemID()] = len(merged) - 1
	}
	return merged
}

// MarkMastered flips the entry for problemID to mastered, reporting whether
// the entry exists. The input slice is not mutated.
func MarkMastered(existing []MissedConcept, problemID string) ([]MissedConcept, bool) {
	out := append([]MissedConcept(nil), existing...)
	for i := range out {
		if out[i].ProblemID == problemID {
			out[i].Mastered = true
			return out, true
		}
	}
	return out, false
}

// Partition splits the collection into the not-yet-mastered and mastered
// lists shown by the review view, preserving order within each.
func Partition(all []MissedConcept) (unmastered, mastered []MissedConcept) {
	for _, mc := range all {
		if mc.Mastered {
			mastered = append(mastered, mc)
		} else {
			unmastered = append(unmastered, mc)
		}
	}
	return unmastered, mastered
}

// FilterKind keeps only entries of the given kind. An empty kind keeps
// everything.
func FilterKind(all []MissedConcept, kind content.Kind) []MissedConcept {
	if kind == "" {
		return all
	}
	var out []MissedConcept
	for _, mc := range all {
		if mc.Kind == kind {
			out = append(out, mc)
		}
	}
	return out
}

// ReviewLesson builds the one-problem synthetic lesson for a selected
// missed concept. It carries the reserved sentinel id and only the content
// sequence matching the problem's kind, so the lesson enters directly at
// the quiz or coding stage.
func ReviewLesson(mc MissedConcept) content.Lesson {
	lesson := content.Lesson{
		ID:    content.ReviewLessonID,
		Title: "Review",
	}
	switch p := mc.Problem().(type) {
	case content.ConceptProblem:
		lesson.ConceptProblems = []content.ConceptProblem{p}
	case content.CodingProblem:
		lesson.CodingProblems = []content.CodingProblem{p}
	}
	return lesson
}
