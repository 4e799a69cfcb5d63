package runner

import (
	"context"
	"sync"
)

// Language selects an execution path.
type Language string

const (
	// LangStep runs in the embedded interpreter.
	LangStep Language = "step"
	// LangC runs through the remote compile service.
	LangC Language = "c"
)

// Runner owns the execution session for the currently selected language.
// The session is created lazily on first run and reused across runs within
// that selection; there is no ambient global instance, hosts construct
// and inject a Runner where it is needed.
type Runner struct {
	mu   sync.Mutex
	lang Language
	sess *Session
}

// New creates a Runner for the given language selection.
func New(lang Language) *Runner {
	return &Runner{lang: lang}
}

// Language returns the current language selection.
func (r *Runner) Language() Language {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lang
}

// Session returns the current session, creating it on first use.
func (r *Runner) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionLocked()
}

func (r *Runner) sessionLocked() *Session {
	if r.sess == nil {
		r.sess = NewSession()
	}
	return r.sess
}

// SetLanguage switches the selected language. An active run is stopped
// first, and the session is rebuilt for the new selection.
func (r *Runner) SetLanguage(lang Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lang == r.lang {
		return
	}
	if r.sess != nil {
		r.sess.Stop()
	}
	r.lang = lang
	r.sess = nil
}

// Run starts executing src on the current session. Returns ErrRunActive if
// a run is already in flight.
func (r *Runner) Run(ctx context.Context, src string) error {
	r.mu.Lock()
	sess := r.sessionLocked()
	r.mu.Unlock()
	return sess.Run(ctx, src)
}

// Stop cancels any active run.
func (r *Runner) Stop() {
	r.mu.Lock()
	sess := r.sess
	r.mu.Unlock()
	if sess != nil {
		sess.Stop()
	}
}
