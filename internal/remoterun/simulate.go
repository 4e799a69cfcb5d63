package remoterun

import (
	"context"
	"fmt"
	"strings"

	"github.com/jay060412/stepcode/internal/llm"
)

// Transcript markers the model is instructed to emit. InputMarker means
// the program is waiting on a line of input; EndMarker means it exited.
const (
	InputMarker = "<<INPUT>>"
	EndMarker   = "<<END>>"
)

const simulateSystem = `You simulate a terminal running a learner's program.
Reply with the program's exact output only, no commentary and no code fences.
When the program waits for a line of input, stop and emit ` + InputMarker + `.
When the program exits, emit ` + EndMarker + ` after the final output.
Each time you are shown the program again with more input values, replay the
full transcript from the start, consuming the inputs in order.`

// Simulator asks a text model to act as the terminal for a program the
// real service could not run.
type Simulator struct {
	provider llm.Provider
}

// NewSimulator builds a simulator over a configured provider.
func NewSimulator(p llm.Provider) *Simulator {
	return &Simulator{provider: p}
}

// Transcript requests the simulated terminal transcript for code with the
// inputs supplied so far. The returned text may contain InputMarker or
// EndMarker; the session loop interprets them.
func (s *Simulator) Transcript(ctx context.Context, language, code string, inputs []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n\nProgram:\n%s\n", language, code)
	if len(inputs) > 0 {
		b.WriteString("\nInput lines supplied so far, in order:\n")
		for _, in := range inputs {
			b.WriteString(in)
			b.WriteString("\n")
		}
	} else {
		b.WriteString("\nNo input has been supplied yet.\n")
	}

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, "simulate"), llm.Request{
		System:    simulateSystem,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
		MaxTokens: 1024,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
