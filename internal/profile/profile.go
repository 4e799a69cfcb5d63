// Package profile holds the learner's long-term record and the contracts
// of the external persistence and auth adapters that own it.
package profile

import (
	"context"
	"math"
	"time"

	"github.com/jay060412/stepcode/internal/gapfiller"
)

// Role is the learner's access level.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Profile is the learner record. Mutations always come from completed
// sessions; in-progress answering only touches drafts.
type Profile struct {
	// ID is the external auth identity key.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Progress is the overall completion percentage, derived from the
	// completed set and re-stored on every lesson completion.
	Progress int `json:"progress"`

	// CompletedLessonIDs is a set; insertion order carries no meaning.
	CompletedLessonIDs []string `json:"completed_lesson_ids"`

	// MissedConcepts is the ordered missed-problem collection the gap
	// filler reviews from.
	MissedConcepts []gapfiller.MissedConcept `json:"missed_concepts"`

	// LastTrackID is the track the learner most recently opened.
	LastTrackID string `json:"last_track_id"`

	Role     Role   `json:"role"`
	IsBanned bool   `json:"is_banned"`
	Theme    string `json:"theme"`

	// Settings is a free-form preference bag.
	Settings map[string]string `json:"settings,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// CompletedSet returns the completed lesson ids as a set.
func (p Profile) CompletedSet() map[string]bool {
	set := make(map[string]bool, len(p.CompletedLessonIDs))
	for _, id := range p.CompletedLessonIDs {
		set[id] = true
	}
	return set
}

// MarkCompleted adds a lesson id to the completed set. Re-completing an
// already-completed lesson is a no-op; uniqueness holds before counting.
func (p *Profile) MarkCompleted(lessonID string) {
	for _, id := range p.CompletedLessonIDs {
		if id == lessonID {
			return
		}
	}
	p.CompletedLessonIDs = append(p.CompletedLessonIDs, lessonID)
}

// ComputeProgress derives the overall percentage from completed count over
// total lessons, rounded and clamped to 100. A zero total yields zero.
func ComputeProgress(completed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(completed) / float64(total)))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// Update is a partial-field upsert: nil fields are left unchanged. Slices
// and maps are pointers too, so clearing a collection is expressible.
type Update struct {
	Name               *string
	Progress           *int
	CompletedLessonIDs *[]string
	MissedConcepts     *[]gapfiller.MissedConcept
	LastTrackID        *string
	Role               *Role
	IsBanned           *bool
	Theme              *string
	Settings           *map[string]string
}

// Apply folds the update into a profile and stamps UpdatedAt.
func (u Update) Apply(p *Profile, now time.Time) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Progress != nil {
		p.Progress = *u.Progress
	}
	if u.CompletedLessonIDs != nil {
		p.CompletedLessonIDs = *u.CompletedLessonIDs
	}
	if u.MissedConcepts != nil {
		p.MissedConcepts = *u.MissedConcepts
	}
	if u.LastTrackID != nil {
		p.LastTrackID = *u.LastTrackID
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	if u.IsBanned != nil {
		p.IsBanned = *u.IsBanned
	}
	if u.Theme != nil {
		p.Theme = *u.Theme
	}
	if u.Settings != nil {
		p.Settings = *u.Settings
	}
	p.UpdatedAt = now
}

// Repo is the persistence adapter contract. Implementations return errors
// rather than panicking; callers treat update failure as non-fatal and keep
// their optimistic in-memory state.
type Repo interface {
	Get(ctx context.Context, id string) (Profile, error)
	Insert(ctx context.Context, p Profile) error
	Update(ctx context.Context, id string, u Update) error
}
