package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed data/*.json
var curriculumFS embed.FS

// Catalog is the loaded, validated curriculum: every track, in name order.
type Catalog struct {
	Tracks []Track

	problems map[string]Problem // problem id → problem, across all tracks
}

// Load parses and validates the embedded curriculum. It is called once at
// startup; any validation failure is a startup error, not a runtime one.
func Load() (*Catalog, error) {
	return loadFrom(curriculumFS, "data")
}

func loadFrom(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read curriculum dir: %w", err)
	}

	cat := &Catalog{problems: make(map[string]Problem)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := dir + "/" + entry.Name()
		raw, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := validateTrack(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		var track Track
		if err := json.Unmarshal(raw, &track); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if err := cat.addTrack(track); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
	}

	sort.Slice(cat.Tracks, func(i, j int) bool {
		return cat.Tracks[i].Name < cat.Tracks[j].Name
	})
	return cat, nil
}

// addTrack applies the cross-field checks the schema cannot express.
func (c *Catalog) addTrack(track Track) error {
	for _, lesson := range track.Lessons {
		if lesson.TrackID != track.ID {
			return fmt.Errorf("lesson %s: track_id %q does not match track %q", lesson.ID, lesson.TrackID, track.ID)
		}
		if lesson.ID == ReviewLessonID {
			return fmt.Errorf("lesson id %q is reserved", ReviewLessonID)
		}
		for _, p := range lesson.ConceptProblems {
			if !optionListed(p.Options, p.Answer) {
				return fmt.Errorf("problem %s: answer is not among the options", p.ID)
			}
			if err := c.registerProblem(p); err != nil {
				return err
			}
		}
		for _, p := range lesson.CodingProblems {
			if err := c.registerProblem(p); err != nil {
				return err
			}
		}
	}
	c.Tracks = append(c.Tracks, track)
	return nil
}

func (c *Catalog) registerProblem(p Problem) error {
	if _, exists := c.problems[p.ProblemID()]; exists {
		return fmt.Errorf("duplicate problem id %q", p.ProblemID())
	}
	c.problems[p.ProblemID()] = p
	return nil
}

func optionListed(options []string, answer string) bool {
	for _, o := range options {
		if o == answer {
			return true
		}
	}
	return false
}

// TrackByID finds a track, reporting whether it exists.
func (c *Catalog) TrackByID(id string) (Track, bool) {
	for _, t := range c.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// ProblemByID resolves a problem id across all tracks.
func (c *Catalog) ProblemByID(id string) (Problem, bool) {
	p, ok := c.problems[id]
	return p, ok
}

// TotalLessons counts lessons in a track.
func (t Track) TotalLessons() int {
	return len(t.Lessons)
}

// TotalLessons counts lessons across every track. Progress percentages are
// always computed against this, never stored totals.
func (c *Catalog) TotalLessons() int {
	total := 0
	for _, t := range c.Tracks {
		total += t.TotalLessons()
	}
	return total
}
