package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/jay060412/stepcode/internal/ui/layout"
)

// Screen is one routed view: the lesson list, a lesson, the gap filler.
// The router owns the stack; screens never render the frame chrome.
type Screen interface {
	// Init returns an initial command when the screen is first pushed.
	Init() tea.Cmd

	// Update handles messages and returns the updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface for screens that want their
// own footer key hints instead of the defaults.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}
