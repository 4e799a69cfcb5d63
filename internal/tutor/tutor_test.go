package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jay060412/stepcode/internal/llm"
)

func TestCompleteReturnsText(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: "Try printing the variable first."})
	s := New(mock)

	got := s.Complete(context.Background(), "Why is my loop empty?", "for i in range(0, 0)")
	if got != "Try printing the variable first." {
		t.Errorf("Complete = %q", got)
	}
	if len(mock.Calls) != 1 {
		t.Fatalf("calls = %d", len(mock.Calls))
	}
	content := mock.Calls[0].Messages[0].Content
	if !strings.Contains(content, "range(0, 0)") || !strings.Contains(content, "Why is my loop empty?") {
		t.Errorf("prompt missing context or question: %q", content)
	}
}

func TestCompleteFailuresReturnSentinel(t *testing.T) {
	ctx := context.Background()

	// Missing configuration.
	if got := New(nil).Complete(ctx, "help", ""); got != Unavailable {
		t.Errorf("nil provider: %q", got)
	}

	// Provider error.
	failing := llm.NewMockProvider(llm.MockResponse{Err: errors.New("boom")})
	if got := New(failing).Complete(ctx, "help", ""); got != Unavailable {
		t.Errorf("provider error: %q", got)
	}

	// Blank prompt.
	mock := llm.NewMockProvider(llm.MockResponse{Text: "unused"})
	if got := New(mock).Complete(ctx, "   ", ""); got != Unavailable {
		t.Errorf("blank prompt: %q", got)
	}
	if len(mock.Calls) != 0 {
		t.Error("blank prompt reached the provider")
	}

	// Empty completion.
	empty := llm.NewMockProvider(llm.MockResponse{Text: "  \n "})
	if got := New(empty).Complete(ctx, "help", ""); got != Unavailable {
		t.Errorf("empty completion: %q", got)
	}
}
