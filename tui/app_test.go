package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/asksql/chat"
	"github.com/DachengChen/asksql/contract"
	"github.com/DachengChen/asksql/db"
	"github.com/DachengChen/asksql/transport"
)

// collect runs cmd and every command of a batch, returning their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// press sends a key and feeds every resulting message back into the app.
func press(a *App, k tea.KeyMsg) {
	_, cmd := a.Update(k)
	for _, msg := range collect(cmd) {
		a.Update(msg)
	}
}

func typeText(a *App, s string) {
	for _, r := range s {
		a.Update(runes(string(r)))
	}
}

// fixed answers every request with resp.
type fixed struct{ resp contract.ChatResponse }

func (f fixed) Name() string { return "fixed" }

func (f fixed) Send(context.Context, *contract.ChatRequest) (contract.ChatResponse, error) {
	return f.resp, nil
}

type fakeRunner struct {
	mu       sync.Mutex
	executed []string
	err      error
}

func (r *fakeRunner) Target() string { return "postgres@localhost:5432/shop" }

func (r *fakeRunner) Execute(_ context.Context, sql string) (*db.QueryResult, error) {
	r.mu.Lock()
	r.executed = append(r.executed, sql)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return &db.QueryResult{
		Columns:  []string{"customer_name", "total_sales"},
		Rows:     [][]string{{"Acme", "1200.50"}},
		RowCount: 1,
		Elapsed:  3 * time.Millisecond,
	}, nil
}

func (r *fakeRunner) Explain(_ context.Context, sql string, analyze bool) (*db.ExplainResult, error) {
	return &db.ExplainResult{Lines: []string{"Seq Scan on orders  (cost=0.00..1.01 rows=1 width=8)"}}, nil
}

func newTestApp(t *testing.T, tr transport.Transport, runner SQLRunner) (*App, *chat.Store) {
	t.Helper()
	store := chat.NewStore(tr)
	a := NewApp(context.Background(), store, runner, tr.Name(), "test")
	t.Cleanup(func() { a.shutdown() })
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return a, store
}

func TestAppClarifyThenSQL(t *testing.T) {
	a, store := newTestApp(t, transport.NewMock(0), nil)

	typeText(a, "total sales?")
	press(a, key(tea.KeyEnter))

	require.NotNil(t, a.chatView.form)
	assert.Equal(t, contract.ClarifyMetricDefinitionAmbiguous, a.chatView.form.Response().ClarifyType)
	assert.Contains(t, ansi.Strip(a.View()), `Which definition of "sales" do you mean?`)

	press(a, key(tea.KeyRight))
	press(a, key(tea.KeyEnter))

	assert.Nil(t, a.chatView.form)
	msgs := store.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "metric: Order amount (before refunds)", msgs[2].Text)
	require.NotNil(t, store.LastSQL())
	assert.Contains(t, store.LastSQL().SelectExprs(), "SUM(o.order_amount)")

	press(a, key(tea.KeyTab))
	assert.Equal(t, TabSQL, a.activeTab)
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 100})
	view := ansi.Strip(a.View())
	assert.Contains(t, view, "SUM(o.order_amount) AS total_sales")
	assert.Contains(t, view, "MOCK_MODE")
}

func TestAppEscDismissesForm(t *testing.T) {
	a, store := newTestApp(t, transport.NewMock(0), nil)

	typeText(a, "total sales?")
	press(a, key(tea.KeyEnter))
	require.NotNil(t, a.chatView.form)

	press(a, key(tea.KeyEsc))
	assert.Nil(t, a.chatView.form)

	press(a, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.NotNil(t, a.chatView.form)
	press(a, key(tea.KeyEsc))
	assert.Nil(t, a.chatView.form)

	// The free-text path still works while a clarification is pending.
	typeText(a, "hello")
	press(a, key(tea.KeyEnter))
	assert.Len(t, store.Messages(), 4)
	assert.NotNil(t, a.chatView.form)
}

// flaky answers from the mock unless down is set.
type flaky struct {
	mock *transport.Mock
	down bool
}

func (f *flaky) Name() string { return "flaky" }

func (f *flaky) Send(ctx context.Context, req *contract.ChatRequest) (contract.ChatResponse, error) {
	if f.down {
		return nil, errors.New("connection refused")
	}
	return f.mock.Send(ctx, req)
}

func TestAppFailedSubmitKeepsClarificationOpen(t *testing.T) {
	tr := &flaky{mock: transport.NewMock(0)}
	a, store := newTestApp(t, tr, nil)

	typeText(a, "total sales?")
	press(a, key(tea.KeyEnter))
	require.NotNil(t, a.chatView.form)
	pending := a.chatView.form.Response()

	tr.down = true
	press(a, key(tea.KeyRight))
	press(a, key(tea.KeyEnter))

	assert.Equal(t, "connection refused", store.LastError())
	assert.Same(t, pending, store.LastClarify())
	require.NotNil(t, a.chatView.form, "form reopens after a failed submit")
	assert.Same(t, pending, a.chatView.form.Response())
	assert.Equal(t, 0, a.chatView.form.fields[0].choice, "choice survives the failure")

	press(a, key(tea.KeyEsc))
	assert.Nil(t, a.chatView.form)
	press(a, tea.KeyMsg{Type: tea.KeyCtrlF})
	require.NotNil(t, a.chatView.form)

	tr.down = false
	press(a, key(tea.KeyEnter))
	assert.Nil(t, a.chatView.form)
	assert.Empty(t, store.LastError())
	require.NotNil(t, store.LastSQL())
	assert.Contains(t, store.LastSQL().SelectExprs(), "SUM(o.order_amount)")

	// The answered clarification stays in the log but is no longer pending.
	press(a, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.Nil(t, a.chatView.form)
}

func TestAppBlockedSuggestions(t *testing.T) {
	a, _ := newTestApp(t, transport.NewMock(0), nil)

	typeText(a, "delete all orders")
	press(a, key(tea.KeyEnter))

	press(a, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, "Which customers had the highest sales in 2024?", a.chatView.input.Value())
	press(a, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, "How many orders were paid last month?", a.chatView.input.Value())
}

func TestAppCommandsFromPrompt(t *testing.T) {
	a, store := newTestApp(t, transport.NewMock(0), nil)

	typeText(a, ":run")
	press(a, key(tea.KeyEnter))
	assert.Equal(t, "no SQL yet", a.statusMsg)

	store.SendMessage(context.Background(), "total sales?")
	store.SubmitClarify(context.Background(), "paid", map[string]any{"metric": "SUM(o.paid_amount)"})
	typeText(a, ":run")
	press(a, key(tea.KeyEnter))
	assert.Contains(t, a.statusMsg, "no database profile")

	typeText(a, "/sql")
	press(a, key(tea.KeyEnter))
	assert.Equal(t, TabSQL, a.activeTab)

	press(a, runes(":"))
	assert.Equal(t, ModeCommand, a.mode)
	for _, r := range "reset" {
		press(a, runes(string(r)))
	}
	press(a, key(tea.KeyEnter))
	assert.Equal(t, ModeNormal, a.mode)
	assert.Equal(t, TabChat, a.activeTab)
	assert.Empty(t, store.Messages())
	assert.Empty(t, store.SessionID())

	typeText(a, ":bogus")
	press(a, key(tea.KeyEnter))
	assert.Equal(t, "unknown command: bogus", a.statusMsg)
}

func TestAppRunRefusesOtherDialects(t *testing.T) {
	runner := &fakeRunner{}
	a, store := newTestApp(t, transport.NewMock(0), runner)

	store.SendMessage(context.Background(), "total sales?")
	store.SubmitClarify(context.Background(), "paid", map[string]any{"metric": "SUM(o.paid_amount)"})

	assert.Nil(t, a.executeCommand("run"))
	assert.Equal(t, "mysql SQL cannot run against a PostgreSQL connection", a.statusMsg)
	assert.Empty(t, runner.executed)
}

func TestAppRunAndExplain(t *testing.T) {
	runner := &fakeRunner{}
	pg := &contract.SQLResponse{SQL: "SELECT customer_name, total_sales FROM sales", Dialect: contract.DialectPostgres, SessionID: "s"}
	a, store := newTestApp(t, fixed{resp: pg}, runner)

	store.SendMessage(context.Background(), "top customers")

	for _, msg := range collect(a.executeCommand("run")) {
		a.Update(msg)
	}
	assert.Equal(t, []string{pg.SQL}, runner.executed)
	assert.Equal(t, TabSQL, a.activeTab)
	view := ansi.Strip(a.View())
	assert.Contains(t, view, "Acme")
	assert.Contains(t, view, "(1 row, 3ms)")

	for _, msg := range collect(a.executeCommand("explain")) {
		a.Update(msg)
	}
	assert.Contains(t, ansi.Strip(a.View()), "Seq Scan on orders")

	runner.err = errors.New("permission denied")
	for _, msg := range collect(a.executeCommand("run")) {
		a.Update(msg)
	}
	msgs := store.Messages()
	assert.Equal(t, "run failed: permission denied", msgs[len(msgs)-1].Text)
	assert.Contains(t, ansi.Strip(a.View()), "ERROR: permission denied")
}

func TestAppWatchStoreDeliversLatestSnapshot(t *testing.T) {
	a, store := newTestApp(t, transport.NewMock(0), nil)

	store.PushSystemText("one")
	store.PushSystemText("two")

	msg := a.watchStore()()
	changed, ok := msg.(StoreChangedMsg)
	require.True(t, ok, "got %T", msg)
	assert.Len(t, changed.Snapshot.Messages, 2)

	_, cmd := a.Update(changed)
	assert.NotNil(t, cmd)
	assert.Len(t, a.chatView.snap.Messages, 2)

	a.shutdown()
	assert.Nil(t, a.watchStore()())
}
