// messages.go defines Bubble Tea messages used for async communication.
//
// Chat turns and database calls run inside tea.Cmds and report back
// through these types, so the UI never blocks.
package tui

import (
	"github.com/DachengChen/asksql/chat"
	"github.com/DachengChen/asksql/db"
)

// StoreChangedMsg carries a snapshot published by chat.Store.OnChange.
type StoreChangedMsg struct {
	Snapshot chat.Snapshot
}

// TurnDoneMsg is sent when SendMessage or SubmitClarify returns.
type TurnDoneMsg struct{}

// QueryResultMsg is sent when :run completes.
type QueryResultMsg struct {
	SQL    string
	Result *db.QueryResult
	Err    error
}

// ExplainResultMsg is sent when :explain or :analyze completes.
type ExplainResultMsg struct {
	SQL     string
	Analyze bool
	Result  *db.ExplainResult
	Err     error
}

// CommandMsg is a ":" command typed into the chat prompt.
type CommandMsg struct {
	Input string
}

// JumpMsg is a "/" view jump typed into the chat prompt.
type JumpMsg struct {
	Name string
}

// StatusMsg is a transient status message for the status bar.
type StatusMsg string
