// view_sql.go — SQL detail panel.
//
// Shows the latest SQL answer with its explanation (tables, joins, select
// items, filters with provenance, grouping, ordering, limit, validation)
// and, below it, the result of the last :run, :explain or :analyze.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DachengChen/asksql/chat"
	"github.com/DachengChen/asksql/contract"
)

type SQLView struct {
	viewport *Viewport
	sql      *contract.SQLResponse
	target   string // database the SQL runs against, "" when none

	running string   // "running", "explaining"... while a call is in flight
	output  []string // rendered result of the last call
	errText string

	width  int
	height int
}

func NewSQLView(target string) *SQLView {
	return &SQLView{
		viewport: NewViewport(80, 20),
		target:   target,
	}
}

func (v *SQLView) Name() string         { return "SQL" }
func (v *SQLView) WantsTextInput() bool { return false }

func (v *SQLView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.viewport.SetSize(width, height-3)
}

func (v *SQLView) ShortHelp() []KeyBinding {
	keys := []KeyBinding{
		{Key: "↑/↓", Desc: "scroll"},
		{Key: "w", Desc: "wrap"},
		{Key: "Tab", Desc: "chat"},
	}
	if v.target != "" {
		keys = append(keys,
			KeyBinding{Key: ":run", Desc: "execute"},
			KeyBinding{Key: ":explain", Desc: "plan"},
		)
	}
	return keys
}

func (v *SQLView) Init() tea.Cmd { return nil }

// SetSnapshot picks up a new SQL answer; results of the previous one are
// dropped.
func (v *SQLView) SetSnapshot(snap chat.Snapshot) {
	if snap.LastSQL != v.sql {
		v.sql = snap.LastSQL
		v.output = nil
		v.errText = ""
	}
	v.refresh()
}

// SetRunning marks a database call as in flight.
func (v *SQLView) SetRunning(what string) {
	v.running = what
	v.errText = ""
	v.refresh()
}

func (v *SQLView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		v.handleKey(msg)

	case QueryResultMsg:
		v.running = ""
		if msg.Err != nil {
			v.errText = msg.Err.Error()
			v.output = nil
		} else {
			v.output = formatResult(msg.Result)
		}
		v.refresh()

	case ExplainResultMsg:
		v.running = ""
		if msg.Err != nil {
			v.errText = msg.Err.Error()
			v.output = nil
		} else {
			v.output = formatPlan(msg.Result, msg.Analyze)
		}
		v.refresh()
	}
	return v, nil
}

func (v *SQLView) handleKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "up", "k":
		v.viewport.ScrollUp(1)
	case "down", "j":
		v.viewport.ScrollDown(1)
	case "left", "h":
		v.viewport.ScrollLeft(4)
	case "right", "l":
		v.viewport.ScrollRight(4)
	case "pgup":
		v.viewport.PageUp()
	case "pgdown":
		v.viewport.PageDown()
	case "g", "home":
		v.viewport.Home()
	case "G", "end":
		v.viewport.End()
	case "w":
		v.viewport.ToggleWrap()
	}
}

func (v *SQLView) refresh() {
	lines := renderSQLDetails(v.sql)
	switch {
	case v.running != "":
		lines = append(lines, "", StyleDimmed.Render(v.running+" against "+v.target+"..."))
	case v.errText != "":
		lines = append(lines, "", StyleError.Render("ERROR: "+v.errText))
	case len(v.output) > 0:
		lines = append(lines, "")
		lines = append(lines, v.output...)
	}
	v.viewport.SetContentLines(lines)
}

func (v *SQLView) View() string {
	status := StyleDimmed.Render("no database profile configured")
	if v.target != "" {
		status = StyleSuccess.Render("⚡ " + v.target)
	}
	return lipgloss.JoinVertical(lipgloss.Left, status, "", v.viewport.Render())
}
