package remoterun

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle phase of a remote execution session.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateAwaitingInput
	StateDone
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAwaitingInput:
		return "awaiting-input"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// ErrRunActive is returned by Run when another run is still in flight.
var ErrRunActive = errors.New("remoterun: a run is already active")

// ErrNotAwaitingInput is returned by ProvideInput when no input request is
// pending.
var ErrNotAwaitingInput = errors.New("remoterun: session is not awaiting input")

// StoppedMarker is the single chunk appended when a run is cancelled.
const StoppedMarker = "\n[stopped]\n"

// Session drives one compile-or-simulate run. The loop prefers the real
// compile service on every iteration and treats its answers as
// authoritative; the model simulation only fills in while the service is
// unreachable. The loop runs on its own goroutine, never blocks the host,
// and checks for cancellation between iterations.
type Session struct {
	mu sync.Mutex

	id       string
	language string
	client   *Client
	sim      *Simulator

	state   State
	chunks  []string
	pending chan string
	cancel  context.CancelFunc
	done    chan struct{}

	// shown is the cumulative transcript already appended, used to strip
	// the replayed prefix from each new simulation response.
	shown string
}

// NewSession creates an idle session. client may be nil (simulation only)
// and sim may be nil (service only); at least one must be set for Run to
// make progress.
func NewSession(language string, client *Client, sim *Simulator) *Session {
	return &Session{
		id:       uuid.NewString(),
		language: language,
		client:   client,
		sim:      sim,
		state:    StateIdle,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Output returns the concatenated output buffer.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.chunks, "")
}

// Done returns a channel closed when the current run finishes. Returns nil
// if no run has started.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// AwaitingInput reports whether the session is suspended on an input
// request.
func (s *Session) AwaitingInput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAwaitingInput
}

func (s *Session) activeLocked() bool {
	return s.state == StateRunning || s.state == StateAwaitingInput
}

// Run starts executing code on a new goroutine and returns immediately.
func (s *Session) Run(ctx context.Context, code string) error {
	s.mu.Lock()
	if s.activeLocked() {
		s.mu.Unlock()
		return ErrRunActive
	}
	s.chunks = nil
	s.shown = ""
	s.state = StateRunning
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.loop(runCtx, code)
	}()
	return nil
}

func (s *Session) loop(ctx context.Context, code string) {
	var inputs []string

	for {
		if ctx.Err() != nil {
			s.markStopped()
			return
		}

		// The real service wins whenever it answers, including compile
		// failures: those are results, not outages.
		if s.client != nil {
			res, err := s.client.Run(ctx, code, inputs)
			if err == nil {
				s.finishFromService(res)
				return
			}
			if ctx.Err() != nil {
				s.markStopped()
				return
			}
		}

		if s.sim == nil {
			s.fail("execution service unavailable")
			return
		}

		text, err := s.sim.Transcript(ctx, s.language, code, inputs)
		if err != nil {
			if ctx.Err() != nil {
				s.markStopped()
				return
			}
			s.fail("execution service and simulation both unavailable")
			return
		}

		if i := strings.Index(text, EndMarker); i >= 0 {
			s.appendDelta(text[:i])
			s.finish(StateDone)
			return
		}
		if i := strings.Index(text, InputMarker); i >= 0 {
			s.appendDelta(text[:i])
			value, ok := s.awaitInput(ctx)
			if !ok {
				return
			}
			inputs = append(inputs, value)
			continue
		}

		// No marker: treat the whole transcript as final output.
		s.appendDelta(text)
		s.finish(StateDone)
		return
	}
}

func (s *Session) finishFromService(res RunResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	if !res.Success {
		s.chunks = append(s.chunks, "\nError: "+res.Error+"\n")
		s.state = StateFailed
		return
	}
	s.appendDeltaLocked(res.Stdout)
	if res.Stderr != "" {
		s.chunks = append(s.chunks, res.Stderr)
	}
	s.state = StateDone
}

// appendDelta appends the part of the cumulative transcript not yet shown.
// Simulation responses replay from the start, so an unchanged prefix is
// stripped; a diverging transcript is appended whole.
func (s *Session) appendDelta(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendDeltaLocked(text)
}

func (s *Session) appendDeltaLocked(text string) {
	if s.state == StateStopped {
		return
	}
	delta := text
	if strings.HasPrefix(text, s.shown) {
		delta = text[len(s.shown):]
	}
	if delta != "" {
		s.chunks = append(s.chunks, delta)
	}
	s.shown = text
}

// awaitInput parks the loop until the host supplies a value or the run is
// cancelled. The supplied value is echoed into the buffer and counted into
// the shown transcript, since the next simulation replay echoes it too.
func (s *Session) awaitInput(ctx context.Context) (string, bool) {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return "", false
	}
	pending := make(chan string, 1)
	s.pending = pending
	s.state = StateAwaitingInput
	s.mu.Unlock()

	select {
	case value := <-pending:
		s.mu.Lock()
		if s.state == StateStopped {
			s.mu.Unlock()
			return "", false
		}
		s.chunks = append(s.chunks, value+"\n")
		s.shown += value + "\n"
		s.state = StateRunning
		s.pending = nil
		s.mu.Unlock()
		return value, true
	case <-ctx.Done():
		s.markStopped()
		return "", false
	}
}

// ProvideInput resolves the pending input request with value.
func (s *Session) ProvideInput(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingInput || s.pending == nil {
		return ErrNotAwaitingInput
	}
	s.pending <- value
	s.pending = nil
	return nil
}

// Stop cancels the run: the pending input handle, if any, is resolved so
// the loop goroutine never hangs, exactly one stopped marker is appended,
// and later output is suppressed. Stop on a finished session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.activeLocked() {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.chunks = append(s.chunks, StoppedMarker)
	if s.pending != nil {
		s.pending <- ""
		s.pending = nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *Session) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.state = StateStopped
	s.chunks = append(s.chunks, StoppedMarker)
}

func (s *Session) finish(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.state = st
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.chunks = append(s.chunks, "\nError: "+msg+"\n")
	s.state = StateFailed
}
