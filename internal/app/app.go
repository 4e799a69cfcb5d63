package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/jay060412/stepcode/internal/content"
	"github.com/jay060412/stepcode/internal/llm"
	"github.com/jay060412/stepcode/internal/profile"
	"github.com/jay060412/stepcode/internal/remoterun"
	"github.com/jay060412/stepcode/internal/router"
	"github.com/jay060412/stepcode/internal/runner"
	"github.com/jay060412/stepcode/internal/screen"
	"github.com/jay060412/stepcode/internal/screens/home"
	"github.com/jay060412/stepcode/internal/tutor"
	"github.com/jay060412/stepcode/internal/ui/layout"
	"github.com/jay060412/stepcode/internal/ui/theme"
)

// Options carries the assembled collaborators into the UI.
type Options struct {
	Catalog  *content.Catalog
	Profile  *profile.Profile
	Repo     profile.Repo
	Runner   *runner.Runner
	Remote   *remoterun.Client
	Provider llm.Provider
	Tutor    *tutor.Service
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router  *router.Router
	profile *profile.Profile
	width   int
	height  int
}

// newAppModel creates the root model with the home screen on the stack.
func newAppModel(opts Options) AppModel {
	homeScreen := home.New(home.Services{
		Catalog:  opts.Catalog,
		Profile:  opts.Profile,
		Repo:     opts.Repo,
		Runner:   opts.Runner,
		Remote:   opts.Remote,
		Provider: opts.Provider,
		Tutor:    opts.Tutor,
	})
	return AppModel{
		router:  router.New(homeScreen),
		profile: opts.Profile,
	}
}

func (m AppModel) Init() tea.Cmd {
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.profile.Progress, m.width)

	var footerHints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = hp.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run applies the profile's theme and starts the Bubble Tea program.
func Run(opts Options) error {
	theme.Apply(opts.Profile.Theme)
	p := tea.NewProgram(newAppModel(opts))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
