package runner

import (
	"context"
	"strings"
	"testing"
	"time"
)

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if s.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("session never reached %s (state: %s, output: %q)", want, s.State(), s.Output())
		case <-time.After(time.Millisecond):
		}
	}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not finish (state: %s)", s.State())
	}
}

func TestRun_StreamsOutput(t *testing.T) {
	s := NewSession()
	if err := s.Run(context.Background(), "print(\"one\")\nprint(\"two\")\n"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitDone(t, s)

	if s.State() != StateDone {
		t.Errorf("state = %s, want done", s.State())
	}
	if s.Output() != "one\ntwo\n" {
		t.Errorf("output = %q", s.Output())
	}
}

func TestRun_SuspendAndResume(t *testing.T) {
	src := `
name = input("Name: ")
print("Hello " + name)
`
	s := NewSession()
	if err := s.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitState(t, s, StateAwaitingInput)

	// Prompt is flushed before suspension.
	if s.Output() != "Name: " {
		t.Errorf("output before input = %q", s.Output())
	}

	if err := s.ProvideInput("Ada"); err != nil {
		t.Fatalf("ProvideInput: %v", err)
	}
	waitDone(t, s)

	// Echoed input appears directly after the prompt, before later output.
	want := "Name: Ada\nHello Ada\n"
	if s.Output() != want {
		t.Errorf("output = %q, want %q", s.Output(), want)
	}
	if s.State() != StateDone {
		t.Errorf("state = %s, want done", s.State())
	}
}

func TestRun_NestedHelperSuspends(t *testing.T) {
	src := `
fun ask()
    return input("? ")
end
a = ask()
b = ask()
print(a + b)
`
	s := NewSession()
	if err := s.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, val := range []string{"foo", "bar"} {
		waitState(t, s, StateAwaitingInput)
		if err := s.ProvideInput(val); err != nil {
			t.Fatalf("ProvideInput(%q): %v", val, err)
		}
	}
	waitDone(t, s)

	if !strings.HasSuffix(s.Output(), "foobar\n") {
		t.Errorf("output = %q", s.Output())
	}
}

func TestRun_SecondRunRejectedWhileActive(t *testing.T) {
	s := NewSession()
	if err := s.Run(context.Background(), "x = input()\n"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitState(t, s, StateAwaitingInput)

	if err := s.Run(context.Background(), "print(1)\n"); err != ErrRunActive {
		t.Errorf("second Run error = %v, want ErrRunActive", err)
	}

	s.Stop()
	waitDone(t, s)
}

func TestStop_ResolvesPendingInput(t *testing.T) {
	s := NewSession()
	if err := s.Run(context.Background(), "x = input()\nprint(\"after\")\n"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitState(t, s, StateAwaitingInput)

	s.Stop()
	waitDone(t, s)

	if s.State() != StateStopped {
		t.Errorf("state = %s, want stopped", s.State())
	}
	out := s.Output()
	if strings.Count(out, StoppedMarker) != 1 {
		t.Errorf("want exactly one stopped marker, output = %q", out)
	}
	if strings.Contains(out, "after") {
		t.Errorf("output appended after stop: %q", out)
	}

	// A new run is allowed after the stop.
	if err := s.Run(context.Background(), "print(\"fresh\")\n"); err != nil {
		t.Fatalf("Run after stop: %v", err)
	}
	waitDone(t, s)
	if s.Output() != "fresh\n" {
		t.Errorf("output = %q", s.Output())
	}
}

func TestStop_Idempotent(t *testing.T) {
	s := NewSession()
	s.Stop() // idle: no-op
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestRun_RuntimeErrorSurfacedWithLine(t *testing.T) {
	src := "print(\"ok\")\nprint(boom)\n"
	s := NewSession()
	if err := s.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitDone(t, s)

	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
	out := s.Output()
	if !strings.Contains(out, "ok\n") {
		t.Errorf("output before the error is missing: %q", out)
	}
	if !strings.Contains(out, "Error:") {
		t.Errorf("error marker missing: %q", out)
	}
	if s.ErrorLine() != 2 {
		t.Errorf("ErrorLine = %d, want 2", s.ErrorLine())
	}
}

// Blank lines and comments do not survive canonical reprinting, so the
// interpreter runs the tree parsed from the source as written and error
// lines stay aligned with the editor.
func TestRun_ErrorLineMatchesEditorLayout(t *testing.T) {
	src := "# warm up\nprint(\"ok\")\n\nprint(boom)\n"
	s := NewSession()
	if err := s.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitDone(t, s)

	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
	if s.ErrorLine() != 4 {
		t.Errorf("ErrorLine = %d, want 4", s.ErrorLine())
	}
}

func TestRun_UnparseableSourceFailsVisibly(t *testing.T) {
	// `await` on a non-call does not parse, so the run fails at parse
	// with a visible error.
	s := NewSession()
	if err := s.Run(context.Background(), "x = await 5\n"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitDone(t, s)
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestProvideInput_WhenNotAwaiting(t *testing.T) {
	s := NewSession()
	if err := s.ProvideInput("x"); err != ErrNotAwaitingInput {
		t.Errorf("error = %v, want ErrNotAwaitingInput", err)
	}
}

func TestRunner_LanguageSwitchStopsActiveRun(t *testing.T) {
	r := New(LangStep)
	if err := r.Run(context.Background(), "x = input()\n"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	sess := r.Session()
	waitState(t, sess, StateAwaitingInput)

	r.SetLanguage(LangC)
	waitDone(t, sess)

	if sess.State() != StateStopped {
		t.Errorf("old session state = %s, want stopped", sess.State())
	}
	if r.Session() == sess {
		t.Error("session not rebuilt after language switch")
	}
	if r.Language() != LangC {
		t.Errorf("language = %s, want c", r.Language())
	}
}
