package session

// Snapshot is the serializable per-index state of a stage attempt. Stage
// tabs within one lesson snapshot on exit and restore on re-entry, so a
// jump back to the concept pages does not lose quiz drafts or results.
type Snapshot struct {
	ProblemIDs []string         `json:"problem_ids"`
	Current    int              `json:"current"`
	Drafts     map[int]string   `json:"drafts,omitempty"`
	Outputs    map[int]string   `json:"outputs,omitempty"`
	Results    map[int]Result   `json:"results,omitempty"`
	Options    map[int][]string `json:"options,omitempty"`
}

// Snapshot captures the session's current per-index state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ProblemIDs: make([]string, len(s.problems)),
		Current:    s.current,
		Drafts:     make(map[int]string, len(s.drafts)),
		Outputs:    make(map[int]string, len(s.outputs)),
		Results:    make(map[int]Result, len(s.results)),
		Options:    make(map[int][]string, len(s.options)),
	}
	for i, p := range s.problems {
		snap.ProblemIDs[i] = p.ProblemID()
	}
	for i, d := range s.drafts {
		snap.Drafts[i] = d
	}
	for i, o := range s.outputs {
		snap.Outputs[i] = o
	}
	for i, r := range s.results {
		snap.Results[i] = *r
	}
	for i, opts := range s.options {
		dup := make([]string, len(opts))
		copy(dup, opts)
		snap.Options[i] = dup
	}
	return snap
}

// Restore overwrites the session's per-index state from a snapshot taken
// over the same problem sequence. Indices beyond the current problem count
// are dropped. The snapshot's option order replaces the fresh shuffle so
// the learner sees the layout they left.
func (s *Session) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = snap.Current
	if s.current < 0 || s.current >= len(s.problems) {
		s.current = 0
	}
	s.drafts = make(map[int]string)
	s.outputs = make(map[int]string)
	s.results = make(map[int]*Result)
	for i, d := range snap.Drafts {
		if i >= 0 && i < len(s.problems) {
			s.drafts[i] = d
		}
	}
	for i, o := range snap.Outputs {
		if i >= 0 && i < len(s.problems) {
			s.outputs[i] = o
		}
	}
	for i, r := range snap.Results {
		if i >= 0 && i < len(s.problems) {
			res := r
			s.results[i] = &res
		}
	}
	for i, opts := range snap.Options {
		if i >= 0 && i < len(s.problems) {
			dup := make([]string, len(opts))
			copy(dup, opts)
			s.options[i] = dup
		}
	}
}
