// Package home is the entry screen: track picker, lesson list with derived
// status, and the doors into the gap filler.
package home

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/jay060412/stepcode/internal/content"
	"github.com/jay060412/stepcode/internal/llm"
	"github.com/jay060412/stepcode/internal/profile"
	"github.com/jay060412/stepcode/internal/remoterun"
	"github.com/jay060412/stepcode/internal/router"
	"github.com/jay060412/stepcode/internal/runner"
	"github.com/jay060412/stepcode/internal/screen"
	gapscreen "github.com/jay060412/stepcode/internal/screens/gapfiller"
	"github.com/jay060412/stepcode/internal/screens/lesson"
	"github.com/jay060412/stepcode/internal/tutor"
	"github.com/jay060412/stepcode/internal/ui/components"
	"github.com/jay060412/stepcode/internal/ui/theme"
)

// Services bundles everything the screens downstream need.
type Services struct {
	Catalog  *content.Catalog
	Profile  *profile.Profile
	Repo     profile.Repo
	Runner   *runner.Runner
	Remote   *remoterun.Client
	Provider llm.Provider
	Tutor    *tutor.Service
}

// HomeScreen shows the selected track's lessons with their derived status.
type HomeScreen struct {
	svc      Services
	trackIdx int
	menu     components.Menu
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates the home screen, restoring the learner's last track.
func New(svc Services) *HomeScreen {
	h := &HomeScreen{svc: svc}
	for i, t := range svc.Catalog.Tracks {
		if t.ID == svc.Profile.LastTrackID {
			h.trackIdx = i
		}
	}
	h.rebuildMenu()
	return h
}

func (h *HomeScreen) track() content.Track {
	return h.svc.Catalog.Tracks[h.trackIdx]
}

func (h *HomeScreen) rebuildMenu() {
	track := h.track()
	completed := h.svc.Profile.CompletedSet()

	var items []components.MenuItem
	for _, l := range track.Lessons {
		l := l
		status := track.Status(l.ID, completed)
		items = append(items, components.MenuItem{
			Label:    lessonLabel(l, status),
			Disabled: status == content.StatusLocked,
			Action: func() tea.Cmd {
				return h.openLesson(l)
			},
		})
	}
	items = append(items, components.MenuItem{
		Label: "Gap Filler",
		Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: gapscreen.New(gapscreen.Services{
					Catalog:  h.svc.Catalog,
					Track:    h.track(),
					Profile:  h.svc.Profile,
					Repo:     h.svc.Repo,
					Runner:   h.svc.Runner,
					Remote:   h.svc.Remote,
					Provider: h.svc.Provider,
					Tutor:    h.svc.Tutor,
				})}
			}
		},
	})
	items = append(items, components.MenuItem{
		Label:  "Quit",
		Action: func() tea.Cmd { return tea.Quit },
	})
	h.menu = components.NewMenu(items)
}

func lessonLabel(l content.Lesson, status content.LessonStatus) string {
	switch status {
	case content.StatusCompleted:
		return "✓ " + l.Title
	case content.StatusCurrent:
		return "▶ " + l.Title
	default:
		return "🔒 " + l.Title
	}
}

func (h *HomeScreen) openLesson(l content.Lesson) tea.Cmd {
	// Remember the track the learner worked in last. Best effort.
	h.svc.Profile.LastTrackID = h.track().ID
	return func() tea.Msg {
		return router.PushScreenMsg{Screen: lesson.New(lesson.Deps{
			Catalog:  h.svc.Catalog,
			Track:    h.track(),
			Lesson:   l,
			Profile:  h.svc.Profile,
			Repo:     h.svc.Repo,
			Runner:   h.svc.Runner,
			Remote:   h.svc.Remote,
			Provider: h.svc.Provider,
			Tutor:    h.svc.Tutor,
		})}
	}
}

// Init implements screen.Screen.
func (h *HomeScreen) Init() tea.Cmd { return nil }

// Resume refreshes the lesson statuses after a lesson above pops.
func (h *HomeScreen) Resume() tea.Cmd {
	h.rebuildMenu()
	return nil
}

// Update handles track switching and menu navigation.
func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "tab", "right", "l":
			h.trackIdx = (h.trackIdx + 1) % len(h.svc.Catalog.Tracks)
			h.rebuildMenu()
			return h, nil
		case "shift+tab", "left":
			h.trackIdx = (h.trackIdx - 1 + len(h.svc.Catalog.Tracks)) % len(h.svc.Catalog.Tracks)
			h.rebuildMenu()
			return h, nil
		}
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

// View renders the track tabs, progress bar and lesson menu.
func (h *HomeScreen) View(width, height int) string {
	var tabs string
	for i, t := range h.svc.Catalog.Tracks {
		label := " " + t.Name + " "
		if i == h.trackIdx {
			tabs += theme.ButtonActive.Render(label) + " "
		} else {
			tabs += theme.ButtonInactive.Render(label) + " "
		}
	}

	bar := components.NewProgressBar("Progress", float64(h.svc.Profile.Progress)/100, true, width-8)

	body := lipgloss.JoinVertical(lipgloss.Left,
		"",
		"  "+tabs,
		"",
		"  "+bar.View(),
		"",
		h.menu.View(),
		"",
		theme.Hint.Render(fmt.Sprintf("  %d lessons · Tab switches track", h.track().TotalLessons())),
	)
	return body
}

// Title implements screen.Screen.
func (h *HomeScreen) Title() string { return "Lessons" }
