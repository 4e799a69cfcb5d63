// Package tutor is the AI helper surface: a single plain-text completion
// call with a by-value sentinel for every failure mode.
package tutor

import (
	"context"
	"strings"

	"github.com/jay060412/stepcode/internal/llm"
)

// Unavailable is returned for provider failure or missing configuration.
// Callers detect it by value comparison, never by error inspection.
const Unavailable = "AI tutor is currently unavailable."

const systemPrompt = `You are a friendly coding tutor inside a beginner
programming course. Explain in plain language, keep answers short, and
never hand over a full solution; nudge the learner toward it instead.`

// Service answers learner questions. A nil provider is a valid unconfigured
// state; every Complete call then returns Unavailable.
type Service struct {
	provider llm.Provider
}

// New builds a tutor over a configured provider, which may be nil.
func New(provider llm.Provider) *Service {
	return &Service{provider: provider}
}

// Complete asks the tutor. extra carries problem or lesson context to
// ground the answer; it may be empty. On any failure the sentinel
// Unavailable is returned instead of an error.
func (s *Service) Complete(ctx context.Context, prompt, extra string) string {
	if s.provider == nil || strings.TrimSpace(prompt) == "" {
		return Unavailable
	}

	content := prompt
	if extra != "" {
		content = "Context:\n" + extra + "\n\nQuestion:\n" + prompt
	}

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, "tutor"), llm.Request{
		System:    systemPrompt,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: content}},
		MaxTokens: 1024,
	})
	if err != nil {
		return Unavailable
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Unavailable
	}
	return text
}
