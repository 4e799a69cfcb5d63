package runner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jay060412/stepcode/internal/script"
)

// State is the lifecycle phase of an execution session.
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
var ErrRunActive = errors.New("runner: a run is already active")

// ErrNotAwaitingInput is returned by ProvideInput when no input request is
// pending.
var ErrNotAwaitingInput = errors.New("runner: session is not awaiting input")

// StoppedMarker is the single chunk appended when a run is cancelled.
const StoppedMarker = "\n[stopped]\n"

// errorLineRe extracts the source line from a runtime error message.
var errorLineRe = regexp.MustCompile(`line (\d+)`)

// Session is one in-browser-style interpreter run: an ordered output
// buffer, a suspended/running state and, while suspended, the single
// pending input handle. All methods are safe for concurrent use; the
// interpreter runs on its own goroutine and only ever blocks itself.
type Session struct {
	mu sync.Mutex

	id      string
	state   State
	chunks  []string
	pending chan string
	cancel  context.CancelFunc
	done    chan struct{}

	// errLine is the extracted source line of the last runtime error, 0
	// when none could be extracted. Hosts use it to highlight the editor.
	errLine int
}

// NewSession creates an idle session with a fresh id.
func NewSession() *Session {
	return &Session{id: uuid.NewString(), state: StateIdle}
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

// Chunks returns a copy of the ordered output chunks.
func (s *Session) Chunks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// ErrorLine returns the extracted source line of the last runtime error,
// or 0 when none is known.
func (s *Session) ErrorLine() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errLine
}

// Done returns a channel closed when the current run finishes. Returns nil
// if no run has started.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// active reports whether a run is in flight. Caller holds the lock.
func (s *Session) activeLocked() bool {
	return s.state == StateRunning || s.state == StateAwaitingInput
}

// Run transforms and executes src on a new goroutine. Calls that would
// block for input instead suspend the interpreter goroutine against this
// session's pending handle. Run itself returns immediately.
//
// The transform mutates the tree parsed from the learner's own source, so
// runtime error positions refer to the editor's line numbers rather than a
// reprinted layout.
func (s *Session) Run(ctx context.Context, src string) error {
	s.mu.Lock()
	if s.activeLocked() {
		s.mu.Unlock()
		return ErrRunActive
	}
	s.chunks = nil
	s.errLine = 0
	s.state = StateRunning
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.execute(runCtx, src)
	}()
	return nil
}

func (s *Session) execute(ctx context.Context, src string) {
	prog, err := script.Parse(src)
	if err != nil {
		s.finishWithError(err, 0)
		return
	}
	script.Transform(prog)

	in := script.NewInterp(s.writer(), s.writer(), s.bridge(ctx))
	err = in.Run(ctx, prog)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	if err != nil {
		if errors.Is(err, script.ErrStopped) {
			s.state = StateStopped
			s.chunks = append(s.chunks, StoppedMarker)
			return
		}
		s.state = StateFailed
		s.chunks = append(s.chunks, formatError(err))
		s.errLine = extractLine(err.Error())
		return
	}
	s.state = StateDone
}

func (s *Session) finishWithError(err error, line int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.state = StateFailed
	s.chunks = append(s.chunks, formatError(err))
	if line == 0 {
		line = extractLine(err.Error())
	}
	s.errLine = line
}

// writer returns an io.Writer that appends program output to the buffer as
// it streams. Writes after a stop are dropped.
func (s *Session) writer() *sessionWriter {
	return &sessionWriter{s: s}
}

type sessionWriter struct{ s *Session }

func (w *sessionWriter) Write(p []byte) (int, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	if w.s.state == StateStopped {
		return len(p), nil
	}
	w.s.chunks = append(w.s.chunks, string(p))
	return len(p), nil
}

// bridge is the async input substitute. It appends the prompt, registers
// the pending handle, flips the session to awaiting-input, and parks the
// interpreter goroutine until the host supplies a value or the run stops.
func (s *Session) bridge(ctx context.Context) script.InputFunc {
	return func(prompt string) (string, error) {
		s.mu.Lock()
		if s.state != StateRunning {
			s.mu.Unlock()
			return "", errors.New("run is not active")
		}
		if prompt != "" {
			s.chunks = append(s.chunks, prompt)
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
				return "", errors.New("run stopped")
			}
			// Echo the supplied value, immediately after the program's own
			// output up to the suspension point.
			s.chunks = append(s.chunks, value+"\n")
			s.state = StateRunning
			s.pending = nil
			s.mu.Unlock()
			return value, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// AwaitingInput reports whether the session is suspended on an input
// request.
func (s *Session) AwaitingInput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAwaitingInput
}

// ProvideInput resolves the pending input request with value. The
// interpreter resumes exactly where it suspended.
func (s *Session) ProvideInput(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingInput || s.pending == nil {
		return ErrNotAwaitingInput
	}
	s.pending <- value
	s.pending = nil
	// State transitions back to running on the interpreter goroutine once
	// it consumes the value.
	return nil
}

// Stop cancels the run. Any pending input handle is resolved with an empty
// value so the interpreter goroutine never hangs, the session flips to
// stopped, and exactly one stopped marker is appended. Output appends after
// Stop are suppressed. Stop on a finished or idle session is a no-op.
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

func formatError(err error) string {
	return fmt.Sprintf("\nError: %s\n", err.Error())
}

// extractLine pulls a 1-based source line out of an error message.
// Returns 0 when the message carries no line information.
func extractLine(msg string) int {
	m := errorLineRe.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
