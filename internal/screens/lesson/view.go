package lesson

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/jay060412/stepcode/internal/stages"
	"github.com/jay060412/stepcode/internal/ui/theme"
)

var stageLabels = map[stages.Stage]string{
	stages.StageConcept: "Learn",
	stages.StageQuiz:    "Quiz",
	stages.StageCoding:  "Code",
}

// View implements screen.Screen.
func (s *Screen) View(width, height int) string {
	var b strings.Builder

	b.WriteString(s.renderTabs(width))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 1))))
	b.WriteString("\n")

	body := height - 4
	switch {
	case s.fb.visible:
		b.WriteString(s.renderFeedback(width))
	case s.tutorText != "":
		b.WriteString(s.renderTutor(width))
	default:
		switch s.orch.Current() {
		case stages.StageConcept:
			b.WriteString(s.renderConcept(width))
		case stages.StageQuiz:
			b.WriteString(s.renderQuiz(width))
		case stages.StageCoding:
			b.WriteString(s.renderCoding(width, body))
		}
	}

	return b.String()
}

// renderTabs draws one numbered tab per applicable stage; the jump keys
// match the numbers.
func (s *Screen) renderTabs(width int) string {
	var parts []string
	for _, st := range s.orch.Stages() {
		label := fmt.Sprintf(" %d %s ", int(st)+1, stageLabels[st])
		if st == s.orch.Current() {
			parts = append(parts, theme.ButtonActive.Render(label))
		} else {
			parts = append(parts, lipgloss.NewStyle().Foreground(theme.TextDim).Render(label))
		}
	}
	row := strings.Join(parts, " ")
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, row)
}

func (s *Screen) renderConcept(width int) string {
	pages := s.deps.Lesson.Pages
	if len(pages) == 0 {
		return ""
	}
	page := pages[s.pageIdx]

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Primary).
		Bold(true).
		Render(page.Title))
	b.WriteString("\n\n")

	bodyStyle := lipgloss.NewStyle().
		Width(min(width-8, 72)).
		Foreground(theme.Text)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bodyStyle.Render(page.Body)))
	b.WriteString("\n")

	if page.Example != "" {
		example := page.Example
		if page.ExpectedOutput != "" {
			example += "\n\n" + lipgloss.NewStyle().Foreground(theme.TextDim).Render("output:") +
				"\n" + lipgloss.NewStyle().Foreground(theme.Secondary).Render(page.ExpectedOutput)
		}
		card := theme.Card.Width(min(width-8, 72)).Render(example)
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	pos := fmt.Sprintf("page %d/%d", s.pageIdx+1, len(pages))
	hint := "←/→ turn pages"
	if s.pageIdx == len(pages)-1 {
		hint = "enter to continue"
	}
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render(pos + "   " + hint))
	return b.String()
}

func (s *Screen) renderQuiz(width int) string {
	if s.quiz == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("  Question %d/%d", s.quiz.Current()+1, s.quiz.Len())))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.choice.View()))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("↑/↓ select   enter submit   ctrl+t tutor"))
	return b.String()
}

// renderCoding splits the content area into the editor pane and the
// terminal pane.
func (s *Screen) renderCoding(width, height int) string {
	if s.coding == nil {
		return ""
	}
	idx := s.coding.Current()
	p, err := s.coding.Problem(idx)
	if err != nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Foreground(theme.Text).
		Bold(true).
		Render("  " + p.PromptText()))
	b.WriteString("\n\n")

	paneWidth := (width - 6) / 2
	paneHeight := max(height-8, 5)

	s.editor.SetWidth(paneWidth - 4)
	s.editor.SetHeight(paneHeight - 2)
	editorPane := theme.Card.Width(paneWidth).Render(s.editor.View())

	terminalPane := theme.Card.Width(paneWidth).Render(s.renderTerminal(paneWidth-4, paneHeight-2))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, " ", editorPane, " ", terminalPane))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("ctrl+r run   ctrl+s submit   ctrl+x stop   ctrl+n try again   ctrl+t tutor"))
	return b.String()
}

func (s *Screen) renderTerminal(width, height int) string {
	var b strings.Builder
	if s.exec == nil {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render("ctrl+r to run"))
	} else {
		out := s.exec.Output()
		lines := strings.Split(out, "\n")
		// Keep the tail visible.
		keep := height
		if s.inputFocused {
			keep--
		}
		if keep > 0 && len(lines) > keep {
			lines = lines[len(lines)-keep:]
		}
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Render(strings.Join(lines, "\n")))
		if s.inputFocused {
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Render("> "))
			b.WriteString(s.input.View())
		}
	}
	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func (s *Screen) renderFeedback(width int) string {
	var b strings.Builder
	b.WriteString("\n\n")
	if s.fb.result.Correct {
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Render(theme.Correct.Render("Correct!")))
	} else {
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Render(theme.Incorrect.Render("Not quite")))
	}
	b.WriteString("\n\n")

	if s.fb.result.Feedback != "" {
		fbStyle := lipgloss.NewStyle().
			Width(min(width-8, 70)).
			Foreground(theme.Text)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, fbStyle.Render(s.fb.result.Feedback)))
		b.WriteString("\n\n")
	}

	if s.fb.result.Output != "" && !s.fb.result.Correct {
		card := theme.Card.Width(min(width-8, 70)).Render(
			lipgloss.NewStyle().Foreground(theme.TextDim).Render("your output:") + "\n" + s.fb.result.Output)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))
		b.WriteString("\n\n")
	}

	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("enter to continue"))
	return b.String()
}

func (s *Screen) renderTutor(width int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Secondary).
		Bold(true).
		Render("Tutor"))
	b.WriteString("\n\n")
	card := theme.Card.Width(min(width-8, 72)).Render(s.tutorText)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("esc to close"))
	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
