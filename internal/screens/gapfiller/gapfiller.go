// Package gapfiller is the review screen over the learner's missed
// concepts: pick one, re-attempt it as a single-problem lesson.
package gapfiller

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/jay060412/stepcode/internal/content"
	gap "github.com/jay060412/stepcode/internal/gapfiller"
	"github.com/jay060412/stepcode/internal/llm"
	"github.com/jay060412/stepcode/internal/profile"
	"github.com/jay060412/stepcode/internal/remoterun"
	"github.com/jay060412/stepcode/internal/router"
	"github.com/jay060412/stepcode/internal/runner"
	"github.com/jay060412/stepcode/internal/screen"
	"github.com/jay060412/stepcode/internal/screens/lesson"
	"github.com/jay060412/stepcode/internal/tutor"
	"github.com/jay060412/stepcode/internal/ui/theme"
)

// Services is everything the review flow needs from the host.
type Services struct {
	Catalog  *content.Catalog
	Track    content.Track
	Profile  *profile.Profile
	Repo     profile.Repo
	Runner   *runner.Runner
	Remote   *remoterun.Client
	Provider llm.Provider
	Tutor    *tutor.Service
}

// Screen lists missed concepts, unmastered first, and opens the selected
// one as a review lesson.
type Screen struct {
	svc    Services
	cursor int
	kind   content.Kind // "" shows everything
}

var _ screen.Screen = (*Screen)(nil)

// New creates the review screen.
func New(svc Services) *Screen {
	return &Screen{svc: svc}
}

// unmastered is the selectable list under the active kind filter. It is
// recomputed from the profile every time so entries mastered in a review
// lesson disappear as soon as that lesson pops.
func (s *Screen) unmastered() []gap.MissedConcept {
	filtered := gap.FilterKind(s.svc.Profile.MissedConcepts, s.kind)
	open, _ := gap.Partition(filtered)
	return open
}

func (s *Screen) mastered() []gap.MissedConcept {
	filtered := gap.FilterKind(s.svc.Profile.MissedConcepts, s.kind)
	_, done := gap.Partition(filtered)
	return done
}

// Init implements screen.Screen.
func (s *Screen) Init() tea.Cmd { return nil }

// Update implements screen.Screen.
func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	open := s.unmastered()
	if s.cursor >= len(open) {
		s.cursor = max(len(open)-1, 0)
	}

	switch key.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(open)-1 {
			s.cursor++
		}
	case "f":
		s.kind = nextKind(s.kind)
		s.cursor = 0
	case "enter":
		if len(open) == 0 {
			return s, nil
		}
		return s, s.openReview(open[s.cursor])
	}
	return s, nil
}

func nextKind(k content.Kind) content.Kind {
	switch k {
	case "":
		return content.KindConcept
	case content.KindConcept:
		return content.KindCoding
	default:
		return ""
	}
}

func (s *Screen) openReview(mc gap.MissedConcept) tea.Cmd {
	review := gap.ReviewLesson(mc)
	return func() tea.Msg {
		return router.PushScreenMsg{Screen: lesson.New(lesson.Deps{
			Catalog:  s.svc.Catalog,
			Track:    s.svc.Track,
			Lesson:   review,
			Profile:  s.svc.Profile,
			Repo:     s.svc.Repo,
			Runner:   s.svc.Runner,
			Remote:   s.svc.Remote,
			Provider: s.svc.Provider,
			Tutor:    s.svc.Tutor,
		})}
	}
}

// View implements screen.Screen.
func (s *Screen) View(width, height int) string {
	open := s.unmastered()
	done := s.mastered()

	var b []string

	filterLabel := "all"
	if s.kind != "" {
		filterLabel = string(s.kind)
	}
	b = append(b, lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("  showing: %s   f to filter", filterLabel)), "")

	if len(open) == 0 && len(done) == 0 {
		b = append(b, lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\nNothing to review. Miss a problem and it shows up here."))
		return lipgloss.JoinVertical(lipgloss.Left, b...)
	}

	b = append(b, lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render("  To review"))
	if len(open) == 0 {
		b = append(b, lipgloss.NewStyle().Foreground(theme.TextDim).Render("    all caught up"))
	}
	for i, mc := range open {
		prefix := "    "
		line := fmt.Sprintf("%s%s %s", prefix, kindTag(mc.Kind), mc.Prompt)
		if i == s.cursor {
			line = fmt.Sprintf("  > %s %s", kindTag(mc.Kind), mc.Prompt)
			b = append(b, theme.Selected.Render(line))
		} else {
			b = append(b, theme.Unselected.Render(line))
		}
	}

	if len(done) > 0 {
		b = append(b, "", lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Bold(true).
			Render("  Mastered"))
		for _, mc := range done {
			b = append(b, lipgloss.NewStyle().
				Foreground(theme.TextDim).
				Render(fmt.Sprintf("    ✓ %s %s", kindTag(mc.Kind), mc.Prompt)))
		}
	}

	b = append(b, "", lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render("  ↑/↓ select   enter review   esc back"))
	return lipgloss.JoinVertical(lipgloss.Left, b...)
}

func kindTag(k content.Kind) string {
	if k == content.KindCoding {
		return "[code]"
	}
	return "[quiz]"
}

// Title implements screen.Screen.
func (s *Screen) Title() string { return "Gap Filler" }

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
