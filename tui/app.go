// app.go is the top-level Bubble Tea model that orchestrates the views.
//
// Flow:
//  1. The chat view is the only route; the SQL panel sits beside it and
//     is reached with Tab or /sql.
//  2. Turns run in tea.Cmds against the chat.Store; the store signals
//     every change and the App redistributes a fresh snapshot.
//  3. :run / :explain / :analyze send the latest SQL through the
//     optional database runner.
//
// Key design decisions:
//   - Command mode (`:`) for app commands, typed in the chat prompt or,
//     from the SQL panel, after pressing ":"
//   - Jump mode (`/`) for quick view switching
//   - Help overlay (F1, or `?` outside the chat prompt)
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DachengChen/asksql/applog"
	"github.com/DachengChen/asksql/chat"
	"github.com/DachengChen/asksql/db"
)

// View indices.
const (
	TabChat = iota
	TabSQL
)

// InputMode determines what keystrokes do outside the chat prompt.
type InputMode int

const (
	ModeNormal InputMode = iota
	ModeCommand
	ModeJump
)

// SQLRunner executes generated SQL. *db.DB implements it.
type SQLRunner interface {
	Execute(ctx context.Context, sql string) (*db.QueryResult, error)
	Explain(ctx context.Context, sql string, analyze bool) (*db.ExplainResult, error)
	Target() string
}

// App is the root Bubble Tea model.
type App struct {
	ctx     context.Context
	cancel  context.CancelFunc
	store   *chat.Store
	runner  SQLRunner
	backend string
	version string

	changed     chan struct{}
	unsubscribe func()

	views     []View
	chatView  *ChatView
	sqlView   *SQLView
	activeTab int

	width     int
	height    int
	mode      InputMode
	cmdInput  string
	showHelp  bool
	statusMsg string
}

// NewApp creates the application. runner may be nil when no database
// profile is configured.
func NewApp(ctx context.Context, store *chat.Store, runner SQLRunner, backend, version string) *App {
	ctx, cancel := context.WithCancel(ctx)
	a := &App{
		ctx:     ctx,
		cancel:  cancel,
		store:   store,
		runner:  runner,
		backend: backend,
		version: version,
		changed: make(chan struct{}, 1),
	}
	a.unsubscribe = store.OnChange(func(chat.Snapshot) {
		select {
		case a.changed <- struct{}{}:
		default:
		}
	})

	target := ""
	if runner != nil {
		target = runner.Target()
	}
	a.chatView = NewChatView(ctx, store, backend)
	a.sqlView = NewSQLView(target)
	a.views = []View{a.chatView, a.sqlView}
	a.distribute(store.Snapshot())
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.chatView.Init(), a.watchStore())
}

// watchStore waits for the next store change. The snapshot is taken when
// the message is built, so bursts collapse into the latest state.
func (a *App) watchStore() tea.Cmd {
	changed, store, ctx := a.changed, a.store, a.ctx
	return func() tea.Msg {
		select {
		case <-changed:
			return StoreChangedMsg{Snapshot: store.Snapshot()}
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *App) distribute(snap chat.Snapshot) {
	for _, v := range a.views {
		v.SetSnapshot(snap)
	}
}

// shutdown stops the store watcher and in-flight turns.
func (a *App) shutdown() tea.Cmd {
	a.unsubscribe()
	a.cancel()
	return tea.Quit
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// header(1) + border(2) + status bar(1)
		contentW := a.width - 2
		contentH := a.height - 4
		for _, v := range a.views {
			v.SetSize(contentW, contentH)
		}
		return a, nil

	case StoreChangedMsg:
		a.distribute(msg.Snapshot)
		return a, a.watchStore()

	case TurnDoneMsg:
		a.distribute(a.store.Snapshot())
		return a, nil

	case CommandMsg:
		return a, a.executeCommand(msg.Input)

	case JumpMsg:
		a.jumpToView(msg.Name)
		return a, nil

	case StatusMsg:
		a.statusMsg = string(msg)
		return a, nil

	case QueryResultMsg:
		if msg.Err != nil {
			a.store.PushSystemText("run failed: " + msg.Err.Error())
		} else {
			a.statusMsg = "query finished " + msg.Result.Status()
		}
		a.distribute(a.store.Snapshot())
		a.activeTab = TabSQL
		_, cmd := a.sqlView.Update(msg)
		return a, cmd

	case ExplainResultMsg:
		if msg.Err != nil {
			a.store.PushSystemText("explain failed: " + msg.Err.Error())
		}
		a.distribute(a.store.Snapshot())
		a.activeTab = TabSQL
		_, cmd := a.sqlView.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	// Blink and spinner ticks belong to the chat view whichever is active.
	_, cmd := a.chatView.Update(msg)
	return a, cmd
}

// handleKey processes keyboard input.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, a.shutdown()
	case "f1":
		a.showHelp = !a.showHelp
		return a, nil
	}

	if a.showHelp {
		switch msg.String() {
		case "esc", "?", "q":
			a.showHelp = false
		}
		return a, nil
	}

	switch a.mode {
	case ModeCommand:
		return a.handleCommandMode(msg)
	case ModeJump:
		return a.handleJumpMode(msg)
	}

	if msg.String() == "tab" {
		a.activeTab = (a.activeTab + 1) % len(a.views)
		a.statusMsg = ""
		return a, nil
	}

	active := a.views[a.activeTab]
	if !active.WantsTextInput() {
		switch msg.String() {
		case ":":
			a.mode = ModeCommand
			a.cmdInput = ""
			return a, nil
		case "/":
			a.mode = ModeJump
			a.cmdInput = ""
			return a, nil
		case "?":
			a.showHelp = true
			return a, nil
		case "esc":
			a.activeTab = TabChat
			return a, nil
		}
	}

	a.statusMsg = ""
	updated, cmd := active.Update(msg)
	a.views[a.activeTab] = updated
	return a, cmd
}

func (a *App) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		cmd := a.executeCommand(a.cmdInput)
		a.mode = ModeNormal
		a.cmdInput = ""
		return a, cmd
	case "esc":
		a.mode = ModeNormal
		a.cmdInput = ""
		return a, nil
	case "backspace":
		a.cmdInput = dropLastRune(a.cmdInput)
		return a, nil
	}
	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		a.cmdInput += string(msg.Runes)
	}
	return a, nil
}

func (a *App) handleJumpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.jumpToView(a.cmdInput)
		a.mode = ModeNormal
		a.cmdInput = ""
		return a, nil
	case "esc":
		a.mode = ModeNormal
		a.cmdInput = ""
		return a, nil
	case "backspace":
		a.cmdInput = dropLastRune(a.cmdInput)
		return a, nil
	}
	if msg.Type == tea.KeyRunes {
		a.cmdInput += string(msg.Runes)
	}
	return a, nil
}

func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

func (a *App) jumpToView(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	for i, v := range a.views {
		if strings.HasPrefix(strings.ToLower(v.Name()), name) {
			a.activeTab = i
			a.statusMsg = ""
			return
		}
	}
	a.statusMsg = "view not found: " + name
}

func (a *App) executeCommand(input string) tea.Cmd {
	input = strings.ToLower(strings.TrimSpace(input))
	switch input {
	case "q", "quit":
		return a.shutdown()
	case "reset":
		a.store.Reset()
		a.distribute(a.store.Snapshot())
		a.activeTab = TabChat
		a.statusMsg = "conversation reset"
		return nil
	case "run":
		return a.runSQL()
	case "explain":
		return a.explainSQL(false)
	case "analyze":
		return a.explainSQL(true)
	case "sql", "chat":
		a.jumpToView(input)
		return nil
	case "help", "h":
		a.showHelp = true
		return nil
	default:
		a.statusMsg = "unknown command: " + input
		return nil
	}
}

// runnableSQL returns the latest SQL if it can be sent to the runner;
// otherwise it sets the status line and returns "".
func (a *App) runnableSQL() string {
	sql := a.store.LastSQL()
	switch {
	case sql == nil:
		a.statusMsg = "no SQL yet"
	case a.runner == nil:
		a.statusMsg = "no database profile configured (set database.profile in ~/.asksql/config.json)"
	case !db.CanRun(sql.Dialect):
		a.statusMsg = fmt.Sprintf("%s SQL cannot run against a PostgreSQL connection", sql.Dialect)
	default:
		return sql.SQL
	}
	return ""
}

func (a *App) runSQL() tea.Cmd {
	sql := a.runnableSQL()
	if sql == "" {
		return nil
	}
	a.sqlView.SetRunning("running")
	a.activeTab = TabSQL
	applog.Event("DB", "running latest SQL")

	runner, ctx := a.runner, a.ctx
	return func() tea.Msg {
		result, err := runner.Execute(ctx, sql)
		return QueryResultMsg{SQL: sql, Result: result, Err: err}
	}
}

func (a *App) explainSQL(analyze bool) tea.Cmd {
	sql := a.runnableSQL()
	if sql == "" {
		return nil
	}
	if analyze {
		a.sqlView.SetRunning("analyzing")
	} else {
		a.sqlView.SetRunning("explaining")
	}
	a.activeTab = TabSQL

	runner, ctx := a.runner, a.ctx
	return func() tea.Msg {
		result, err := runner.Explain(ctx, sql, analyze)
		return ExplainResultMsg{SQL: sql, Analyze: analyze, Result: result, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}

	var inner string
	if a.showHelp {
		inner = a.renderHelp()
	} else {
		inner = a.views[a.activeTab].View()
	}

	frame := StyleBorder.
		Width(a.width - 2).
		Height(max(a.height-4, 0)).
		Render(inner)

	return a.renderHeader() + "\n" + frame + "\n" + a.renderStatusBar()
}

// renderHeader draws logo, version, view tabs and the backend.
func (a *App) renderHeader() string {
	left := StyleBold.Render("🐘 asksql") + StyleDimmed.Render(" v"+a.version) + "  "
	for i, v := range a.views {
		if i == a.activeTab {
			left += StyleTabActive.Render(v.Name())
		} else {
			left += StyleTabInactive.Render(v.Name())
		}
	}

	right := StyleDimmed.Render(a.backend)
	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return lipgloss.NewStyle().
		Width(a.width).
		Render(left + strings.Repeat(" ", gap) + right)
}

func (a *App) renderStatusBar() string {
	var content string

	switch a.mode {
	case ModeCommand:
		content = StylePrompt.Render(":") + a.cmdInput + "█"
	case ModeJump:
		content = StylePrompt.Render("/") + a.cmdInput + "█"
	default:
		if a.statusMsg != "" {
			content = a.statusMsg
		} else {
			var parts []string
			for _, h := range a.helpItems() {
				parts = append(parts, StyleHelpKey.Render(h.Key)+" "+StyleHelpDesc.Render(h.Desc))
			}
			content = strings.Join(parts, "  │  ")
		}
	}

	return StyleStatusBar.Width(a.width).Render(content)
}

func (a *App) helpItems() []KeyBinding {
	global := []KeyBinding{
		{Key: "F1", Desc: "help"},
		{Key: "Ctrl+C", Desc: "quit"},
	}
	return append(a.views[a.activeTab].ShortHelp(), global...)
}

func (a *App) renderHelp() string {
	help := []string{
		StyleTitle.Render("⌨ asksql Keyboard Shortcuts"),
		"",
		StyleHelpKey.Render("Tab") + "              Switch between chat and SQL",
		StyleHelpKey.Render("/sql  /chat") + "      Jump to a view",
		StyleHelpKey.Render("F1") + "               Toggle this help",
		StyleHelpKey.Render("Ctrl+C") + "           Quit",
		"",
		StyleTitle.Render("Chat"),
		"",
		StyleHelpKey.Render("Enter") + "            Send question / submit clarification",
		StyleHelpKey.Render("←/→ ↑/↓ space") + "    Choose options in a clarification",
		StyleHelpKey.Render("Esc / Ctrl+F") + "     Close / reopen the clarification form",
		StyleHelpKey.Render("Ctrl+N") + "           Next suggested question after a refusal",
		StyleHelpKey.Render("PgUp/PgDn") + "        Scroll the conversation",
		"",
		StyleTitle.Render("Commands"),
		"",
		StyleHelpKey.Render(":run") + "             Execute the latest SQL (read-only)",
		StyleHelpKey.Render(":explain") + "         Show its query plan",
		StyleHelpKey.Render(":analyze") + "         EXPLAIN ANALYZE it",
		StyleHelpKey.Render(":reset") + "           Start a new conversation",
		StyleHelpKey.Render(":quit") + "            Quit",
		"",
		StyleDimmed.Render("Press F1 or Esc to close"),
	}

	return lipgloss.NewStyle().
		Width(max(a.width-4, 0)).
		Padding(1, 2).
		Render(strings.Join(help, "\n"))
}
