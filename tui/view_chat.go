// view_chat.go — conversation view.
//
// Shows the message log, a prompt, a spinner while a turn is in flight,
// and the clarify form when the newest answer asks for clarification.
// Turns run inside tea.Cmds; the store publishes state changes that the
// App hands back through SetSnapshot.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DachengChen/asksql/chat"
	"github.com/DachengChen/asksql/contract"
)

type ChatView struct {
	ctx     context.Context
	store   *chat.Store
	backend string

	viewport *Viewport
	input    textinput.Model
	spinner  spinner.Model

	snap       chat.Snapshot
	form       *ClarifyForm
	retry      *ClarifyForm              // last submitted form, reopened if the turn fails
	dismissed  *contract.ClarifyResponse // form closed with Esc for this clarify
	suggestion int

	width  int
	height int
}

func NewChatView(ctx context.Context, store *chat.Store, backend string) *ChatView {
	ti := textinput.New()
	ti.Prompt = "Ask> "
	ti.PromptStyle = StylePrompt
	ti.Placeholder = "Ask a question about your data (:help for commands)"
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StyleWarning

	v := &ChatView{
		ctx:        ctx,
		store:      store,
		backend:    backend,
		viewport:   NewViewport(80, 20),
		input:      ti,
		spinner:    sp,
		suggestion: -1,
	}
	v.viewport.Follow(true)
	v.SetSnapshot(store.Snapshot())
	return v
}

func (v *ChatView) Name() string         { return "Chat" }
func (v *ChatView) WantsTextInput() bool { return true }

func (v *ChatView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.input.Width = max(width-8, 10)
	v.layout()
}

func (v *ChatView) ShortHelp() []KeyBinding {
	if v.form != nil {
		return []KeyBinding{
			{Key: "←/→", Desc: "choose"},
			{Key: "Enter", Desc: "submit"},
			{Key: "Esc", Desc: "type instead"},
			{Key: "Tab", Desc: "SQL"},
		}
	}
	keys := []KeyBinding{{Key: "Enter", Desc: "send"}}
	if len(v.suggestions()) > 0 {
		keys = append(keys, KeyBinding{Key: "Ctrl+N", Desc: "suggestion"})
	}
	if v.dismissed != nil && v.pendingClarify() == v.dismissed {
		keys = append(keys, KeyBinding{Key: "Ctrl+F", Desc: "form"})
	}
	return append(keys,
		KeyBinding{Key: "PgUp/PgDn", Desc: "scroll"},
		KeyBinding{Key: "Tab", Desc: "SQL"},
		KeyBinding{Key: ":run", Desc: "execute"},
	)
}

func (v *ChatView) Init() tea.Cmd {
	return textinput.Blink
}

// SetSnapshot re-renders the log and opens or closes the clarify form.
func (v *ChatView) SetSnapshot(snap chat.Snapshot) {
	if len(snap.Messages) != len(v.snap.Messages) {
		v.suggestion = -1
	}
	v.snap = snap
	v.viewport.SetContentLines(v.renderLog())

	pending := v.pendingClarify()
	switch {
	case pending == nil:
		v.closeForm()
		if !snap.IsLoading {
			v.retry = nil
		}
	case pending == v.dismissed:
	case v.form == nil || v.form.Response() != pending:
		v.openForm(pending)
	}
	v.layout()
}

// pendingClarify is the last clarification while it is still the newest
// assistant answer, it has fields to fill in and nothing is in flight.
// User and system messages after it (a failed submit) keep it pending.
func (v *ChatView) pendingClarify() *contract.ClarifyResponse {
	clarify := v.snap.LastClarify
	if v.snap.IsLoading || !clarify.Actionable() {
		return nil
	}
	for i := len(v.snap.Messages) - 1; i >= 0; i-- {
		m := v.snap.Messages[i]
		if m.Role != chat.RoleAssistant {
			continue
		}
		if m.Kind == chat.KindClarify && m.Clarify == clarify {
			return clarify
		}
		return nil
	}
	return nil
}

// openForm shows the form for resp, keeping the choices of a failed
// submit for the same clarification.
func (v *ChatView) openForm(resp *contract.ClarifyResponse) {
	if v.retry != nil && v.retry.Response() == resp {
		v.form = v.retry
	} else {
		v.form = NewClarifyForm(resp)
	}
	v.input.Blur()
}

func (v *ChatView) suggestions() []string {
	if len(v.snap.Messages) == 0 {
		return nil
	}
	last := v.snap.Messages[len(v.snap.Messages)-1]
	if last.Kind != chat.KindBlocked {
		return nil
	}
	return last.Blocked.SuggestedQuestions
}

func (v *ChatView) closeForm() {
	v.form = nil
	v.input.Focus()
}

func (v *ChatView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd := v.handleKey(msg)
		v.layout()
		return v, cmd

	case spinner.TickMsg:
		if !v.snap.IsLoading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *ChatView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "pgup":
		v.viewport.PageUp()
		return nil
	case "pgdown":
		v.viewport.PageDown()
		return nil
	case "ctrl+k":
		v.viewport.ScrollUp(1)
		return nil
	case "ctrl+j":
		v.viewport.ScrollDown(1)
		return nil
	}

	if v.form != nil {
		switch msg.String() {
		case "enter":
			text, answers, err := v.form.Submit()
			if err != nil {
				return nil
			}
			v.retry = v.form
			v.dismissed = nil
			v.closeForm()
			return v.submit(text, answers)
		case "esc":
			v.dismissed = v.form.Response()
			v.closeForm()
			return nil
		}
		return v.form.Update(msg)
	}

	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(v.input.Value())
		if text == "" {
			return nil
		}
		v.input.Reset()
		switch {
		case strings.HasPrefix(text, ":"):
			return func() tea.Msg { return CommandMsg{Input: strings.TrimPrefix(text, ":")} }
		case strings.HasPrefix(text, "/"):
			return func() tea.Msg { return JumpMsg{Name: strings.TrimPrefix(text, "/")} }
		}
		return v.send(text)

	case "ctrl+n":
		if qs := v.suggestions(); len(qs) > 0 {
			v.suggestion = (v.suggestion + 1) % len(qs)
			v.input.SetValue(qs[v.suggestion])
			v.input.CursorEnd()
		}
		return nil

	case "ctrl+f":
		if pending := v.pendingClarify(); pending != nil {
			v.dismissed = nil
			v.openForm(pending)
		}
		return nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return cmd
}

// send runs a free-text turn.
func (v *ChatView) send(text string) tea.Cmd {
	store, ctx := v.store, v.ctx
	return tea.Batch(
		func() tea.Msg {
			store.SendMessage(ctx, text)
			return TurnDoneMsg{}
		},
		v.spinner.Tick,
	)
}

// submit answers the pending clarification.
func (v *ChatView) submit(text string, answers map[string]any) tea.Cmd {
	store, ctx := v.store, v.ctx
	return tea.Batch(
		func() tea.Msg {
			store.SubmitClarify(ctx, text, answers)
			return TurnDoneMsg{}
		},
		v.spinner.Tick,
	)
}

func (v *ChatView) renderLog() []string {
	if len(v.snap.Messages) == 0 {
		return []string{
			StyleTitle.Render("asksql") + StyleDimmed.Render(" ("+v.backend+")"),
			"",
			"Ask a question about your data, for example:",
			"  • Which customers had the highest sales in 2024?",
			"  • How many orders were paid last month?",
			"",
			StyleDimmed.Render("The assistant may ask you to clarify before it writes SQL."),
			StyleDimmed.Render("Tab shows the latest SQL and its explanation."),
		}
	}

	var lines []string
	for _, m := range v.snap.Messages {
		lines = append(lines, renderMessage(m)...)
		lines = append(lines, "")
	}
	return lines
}

// bottom renders everything below the log.
func (v *ChatView) bottom() string {
	var parts []string
	if v.snap.IsLoading {
		parts = append(parts, v.spinner.View()+StyleDimmed.Render(" waiting for the assistant..."))
	}
	if v.form != nil {
		parts = append(parts, v.form.View())
	} else {
		parts = append(parts, v.input.View())
	}
	return strings.Join(parts, "\n")
}

func (v *ChatView) layout() {
	if v.height == 0 {
		return
	}
	// title + blank line + scroll indicator
	h := v.height - 3 - lipgloss.Height(v.bottom())
	v.viewport.SetSize(v.width, max(h, 1))
}

func (v *ChatView) View() string {
	title := StyleTitle.Render("Chat")
	if v.snap.SessionID != "" {
		title += StyleDimmed.Render("  session " + v.snap.SessionID)
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, v.viewport.Render(), "", v.bottom())
}
