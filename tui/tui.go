package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DachengChen/asksql/chat"
	"github.com/DachengChen/asksql/transport"
)

// Options configures Start.
type Options struct {
	Transport transport.Transport
	Runner    SQLRunner // nil when no database profile is configured
	Version   string
}

// Start creates a conversation over opts.Transport and runs the TUI until
// the user quits or ctx is cancelled.
func Start(ctx context.Context, opts Options) error {
	store := chat.NewStore(opts.Transport)
	app := NewApp(ctx, store, opts.Runner, opts.Transport.Name(), opts.Version)
	defer app.shutdown()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
