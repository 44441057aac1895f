package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DachengChen/asksql/chat"
)

// View is the interface every TUI panel must implement.
// Each view is a self-contained Bubble Tea sub-model.
type View interface {
	// Init returns an initial command.
	Init() tea.Cmd

	// Update handles messages and returns updated view + command.
	Update(msg tea.Msg) (View, tea.Cmd)

	// View renders the view content (without chrome: header and status
	// bar are rendered by the App).
	View() string

	// Name returns the label used by jump mode.
	Name() string

	// ShortHelp returns key bindings for the bottom help bar.
	ShortHelp() []KeyBinding

	// SetSize is called when the terminal is resized.
	SetSize(width, height int)

	// WantsTextInput reports whether printable keys belong to the view.
	WantsTextInput() bool

	// SetSnapshot hands the view the latest conversation state.
	SetSnapshot(snap chat.Snapshot)
}

// KeyBinding describes a keyboard shortcut for the help bar.
type KeyBinding struct {
	Key  string
	Desc string
}
