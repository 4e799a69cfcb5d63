package content

// Curriculum content is immutable once loaded. Only the learner's
// relationship to a problem (mastered / missed / unattempted) is mutable
// state, and that lives in the profile, keyed by problem id — never here.

// Kind tags the two assessable problem shapes.
type Kind string

const (
	KindConcept Kind = "concept"
	KindCoding  Kind = "coding"
)

// LessonStatus is derived from the learner's completed-lesson set at view
// time. It is never stored.
type LessonStatus string

const (
	StatusLocked    LessonStatus = "locked"
	StatusCurrent   LessonStatus = "current"
	StatusCompleted LessonStatus = "completed"
)

// ReviewLessonID is the sentinel id of the synthetic single-problem review
// lesson built by the gap filler. It never appears in the static curriculum.
const ReviewLessonID = "gap-filler-review"

// Track is a language track: an ordered sequence of lessons.
type Track struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Language string   `json:"language"` // "step" or "c"
	Lessons  []Lesson `json:"lessons"`
}

// Lesson is a named unit of content. The three content sequences determine
// which stages the lesson has; any of them may be empty.
type Lesson struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	TrackID         string           `json:"track_id"`
	Pages           []ConceptPage    `json:"pages,omitempty"`
	ConceptProblems []ConceptProblem `json:"concept_problems,omitempty"`
	CodingProblems  []CodingProblem  `json:"coding_problems,omitempty"`
}

// ConceptPage is a static explanatory unit: text plus example code and its
// expected output.
type ConceptPage struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	Example        string `json:"example,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
}

// ConceptProblem is a multiple-choice assessment item. Correctness is exact
// string equality of the chosen option against Answer.
type ConceptProblem struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Hint        string   `json:"hint,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// CodingProblem is a free-form code-submission item graded by strict
// trimmed output comparison against ExpectedOutput.
type CodingProblem struct {
	ID             string `json:"id"`
	Prompt         string `json:"prompt"`
	StarterCode    string `json:"starter_code,omitempty"`
	ExpectedOutput string `json:"expected_output"`
	Hint           string `json:"hint,omitempty"`
	Explanation    string `json:"explanation,omitempty"`
}

// Problem is the uniform view the session machine works with.
type Problem interface {
	ProblemID() string
	ProblemKind() Kind
	PromptText() string
}

func (p ConceptProblem) ProblemID() string { return p.ID }

func (p ConceptProblem) ProblemKind() Kind { return KindConcept }

func (p ConceptProblem) PromptText() string { return p.Prompt }

func (p CodingProblem) ProblemID() string { return p.ID }

func (p CodingProblem) ProblemKind() Kind { return KindCoding }

func (p CodingProblem) PromptText() string { return p.Prompt }

// HasConceptStage reports whether the lesson has concept pages.
func (l Lesson) HasConceptStage() bool { return len(l.Pages) > 0 }

// HasQuizStage reports whether the lesson has concept problems.
func (l Lesson) HasQuizStage() bool { return len(l.ConceptProblems) > 0 }

// HasCodingStage reports whether the lesson has coding problems.
func (l Lesson) HasCodingStage() bool { return len(l.CodingProblems) > 0 }

// IsReview reports whether the lesson is the synthetic review lesson.
func (l Lesson) IsReview() bool { return l.ID == ReviewLessonID }

// Status derives the lesson's lifecycle status from the learner's
// completed set: the first uncompleted lesson in track order is current,
// everything after it is locked.
func (t Track) Status(lessonID string, completed map[string]bool) LessonStatus {
	current := ""
	for _, l := range t.Lessons {
		if !completed[l.ID] {
			current = l.ID
			break
		}
	}
	switch {
	case completed[lessonID]:
		return StatusCompleted
	case lessonID == current:
		return StatusCurrent
	default:
		return StatusLocked
	}
}

// LessonByID finds a lesson in the track, reporting whether it exists.
func (t Track) LessonByID(id string) (Lesson, bool) {
	for _, l := range t.Lessons {
		if l.ID == id {
			return l, true
		}
	}
	return Lesson{}, false
}
