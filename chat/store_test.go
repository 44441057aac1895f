package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/DachengChen/asksql/contract"
	"github.com/DachengChen/asksql/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder wraps a transport and keeps every request it forwarded.
type recorder struct {
	mu       sync.Mutex
	next     transport.Transport
	requests []contract.ChatRequest
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Send(ctx context.Context, req *contract.ChatRequest) (contract.ChatResponse, error) {
	r.mu.Lock()
	r.requests = append(r.requests, *req)
	r.mu.Unlock()
	return r.next.Send(ctx, req)
}

// scripted answers each call with the next entry.
type scripted struct {
	mu    sync.Mutex
	calls int
	steps []func(*contract.ChatRequest) (contract.ChatResponse, error)
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Send(_ context.Context, req *contract.ChatRequest) (contract.ChatResponse, error) {
	s.mu.Lock()
	step := s.steps[s.calls]
	s.calls++
	s.mu.Unlock()
	return step(req)
}

func respond(resp contract.ChatResponse) func(*contract.ChatRequest) (contract.ChatResponse, error) {
	return func(*contract.ChatRequest) (contract.ChatResponse, error) { return resp, nil }
}

func fail(err error) func(*contract.ChatRequest) (contract.ChatResponse, error) {
	return func(*contract.ChatRequest) (contract.ChatResponse, error) { return nil, err }
}

// gate holds every call until the test answers it.
type gate struct {
	calls chan pending
}

type result struct {
	resp contract.ChatResponse
	err  error
}

type pending struct {
	req   *contract.ChatRequest
	reply chan result
}

func newGate() *gate { return &gate{calls: make(chan pending)} }

func (g *gate) Name() string { return "gate" }

func (g *gate) Send(ctx context.Context, req *contract.ChatRequest) (contract.ChatResponse, error) {
	p := pending{req: req, reply: make(chan result, 1)}
	g.calls <- p
	select {
	case r := <-p.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func goSend(s *Store, text string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.SendMessage(context.Background(), text)
	}()
	return done
}

func blocked(session string) *contract.BlockedResponse {
	return &contract.BlockedResponse{Reason: "no", SessionID: session}
}

func TestSendMessageIgnoresBlankInput(t *testing.T) {
	tr := &scripted{}
	s := NewStore(tr)
	notified := 0
	s.OnChange(func(Snapshot) { notified++ })

	for _, text := range []string{"", "   ", "\n\t "} {
		s.SendMessage(context.Background(), text)
	}

	assert.Empty(t, s.Messages())
	assert.False(t, s.IsLoading())
	assert.Zero(t, tr.calls)
	assert.Zero(t, notified)
}

func TestClarifyThenSQLWithMockBackend(t *testing.T) {
	rec := &recorder{next: transport.NewMock(0)}
	s := NewStore(rec)

	s.SendMessage(context.Background(), "  total sales?  ")

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, KindText, msgs[0].Kind)
	assert.Equal(t, "total sales?", msgs[0].Text)

	assert.Equal(t, RoleAssistant, msgs[1].Role)
	require.Equal(t, KindClarify, msgs[1].Kind)
	assert.Equal(t, contract.ClarifyMetricDefinitionAmbiguous, msgs[1].Clarify.ClarifyType)
	assert.NotEmpty(t, msgs[1].Clarify.Fields)
	assert.NotEmpty(t, s.SessionID())
	assert.Same(t, msgs[1].Clarify, s.LastClarify())
	assert.Nil(t, s.LastSQL())

	s.SubmitClarify(context.Background(), "paid amount", map[string]any{"metric": "SUM(o.paid_amount)"})

	msgs = s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "paid amount", msgs[2].Text)
	require.Equal(t, KindSQL, msgs[3].Kind)
	assert.Contains(t, msgs[3].SQL.SelectExprs(), "SUM(o.paid_amount)")
	assert.Same(t, msgs[3].SQL, s.LastSQL())
	assert.Same(t, msgs[1].Clarify, s.LastClarify())

	require.Len(t, rec.requests, 2)
	assert.Empty(t, rec.requests[0].SessionID)
	assert.Nil(t, rec.requests[0].Answers)
	assert.Equal(t, s.SessionID(), rec.requests[1].SessionID)
	assert.Equal(t, map[string]any{"metric": "SUM(o.paid_amount)"}, rec.requests[1].Answers)
}

func TestSessionAdoptedFromEveryAnswer(t *testing.T) {
	rec := &recorder{next: &scripted{steps: []func(*contract.ChatRequest) (contract.ChatResponse, error){
		respond(blocked("a")),
		respond(blocked("b")),
		fail(errors.New("down")),
	}}}
	s := NewStore(rec)

	s.SendMessage(context.Background(), "one")
	assert.Equal(t, "a", s.SessionID())

	s.SendMessage(context.Background(), "two")
	assert.Equal(t, "b", s.SessionID())

	s.SendMessage(context.Background(), "three")
	assert.Equal(t, "b", s.SessionID())

	require.Len(t, rec.requests, 3)
	assert.Equal(t, "", rec.requests[0].SessionID)
	assert.Equal(t, "a", rec.requests[1].SessionID)
	assert.Equal(t, "b", rec.requests[2].SessionID)
}

func TestLastSQLOnlyChangesOnSQLAnswers(t *testing.T) {
	sql := &contract.SQLResponse{SQL: "SELECT 1", Dialect: contract.DialectSQLite, SessionID: "s"}
	s := NewStore(&scripted{steps: []func(*contract.ChatRequest) (contract.ChatResponse, error){
		respond(sql),
		respond(&contract.ClarifyResponse{Question: "?", Fields: []contract.ClarifyField{{Key: "k", UI: contract.UIText}}, SessionID: "s"}),
		respond(blocked("s")),
	}})

	s.SendMessage(context.Background(), "one")
	s.SendMessage(context.Background(), "two")
	s.SendMessage(context.Background(), "three")

	assert.Same(t, sql, s.LastSQL())
	kinds := []Kind{}
	for _, m := range s.Messages() {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []Kind{KindText, KindSQL, KindText, KindClarify, KindText, KindBlocked}, kinds)
}

func TestLoadingIsSetOnlyWhileInFlight(t *testing.T) {
	g := newGate()
	s := NewStore(g)
	assert.False(t, s.IsLoading())

	done := goSend(s, "slow")
	p := <-g.calls
	assert.True(t, s.IsLoading())
	assert.Len(t, s.Messages(), 1)

	p.reply <- result{resp: blocked("s")}
	<-done
	assert.False(t, s.IsLoading())

	done = goSend(s, "fails")
	p = <-g.calls
	assert.True(t, s.IsLoading())
	p.reply <- result{err: errors.New("boom")}
	<-done
	assert.False(t, s.IsLoading())
}

func TestFailureIsRecordedAndCleared(t *testing.T) {
	s := NewStore(&scripted{steps: []func(*contract.ChatRequest) (contract.ChatResponse, error){
		fail(errors.New("connection refused")),
		respond(blocked("s")),
	}})

	s.SendMessage(context.Background(), "hello")

	assert.Equal(t, "connection refused", s.LastError())
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[1].Role)
	assert.Equal(t, KindText, msgs[1].Kind)
	assert.Equal(t, "request failed: connection refused", msgs[1].Text)
	assert.Empty(t, s.SessionID())

	s.SendMessage(context.Background(), "again")
	assert.Empty(t, s.LastError())
	assert.Equal(t, "s", s.SessionID())
}

func TestFailureWithoutMessageUsesFallback(t *testing.T) {
	s := NewStore(&scripted{steps: []func(*contract.ChatRequest) (contract.ChatResponse, error){
		fail(errors.New("")),
	}})

	s.SendMessage(context.Background(), "hello")
	assert.Equal(t, "request failed", s.LastError())
}

func TestMissingResponseIsSurfacedAsError(t *testing.T) {
	s := NewStore(&scripted{steps: []func(*contract.ChatRequest) (contract.ChatResponse, error){
		respond(nil),
	}})

	s.SendMessage(context.Background(), "hello")
	assert.Contains(t, s.LastError(), contract.ErrUnknownResponseType.Error())
	assert.False(t, s.IsLoading())
	assert.Len(t, s.Messages(), 2)
}

func TestResetClearsEverything(t *testing.T) {
	s := NewStore(transport.NewMock(0))
	s.SendMessage(context.Background(), "total sales?")
	s.SubmitClarify(context.Background(), "paid amount", map[string]any{"metric": "SUM(o.paid_amount)"})
	s.PushSystemText("note")
	require.NotNil(t, s.LastSQL())
	require.NotNil(t, s.LastClarify())

	for i := 0; i < 2; i++ {
		s.Reset()
		snap := s.Snapshot()
		assert.Empty(t, snap.Messages)
		assert.Empty(t, snap.SessionID)
		assert.Nil(t, snap.LastSQL)
		assert.Nil(t, snap.LastClarify)
		assert.Nil(t, s.LastClarify())
		assert.False(t, snap.IsLoading)
		assert.Empty(t, snap.LastError)
	}
}

func TestResetDropsAnswerOfEarlierTurn(t *testing.T) {
	g := newGate()
	s := NewStore(g)

	done := goSend(s, "before reset")
	p := <-g.calls
	s.Reset()
	assert.False(t, s.IsLoading())

	p.reply <- result{resp: blocked("old")}
	<-done

	assert.Empty(t, s.Messages())
	assert.Empty(t, s.SessionID())
	assert.False(t, s.IsLoading())
}

func TestOverlappingTurnsAppendInResolutionOrder(t *testing.T) {
	g := newGate()
	s := NewStore(g)

	done1 := goSend(s, "first")
	p1 := <-g.calls
	done2 := goSend(s, "second")
	p2 := <-g.calls

	p2.reply <- result{resp: blocked("s2")}
	<-done2
	p1.reply <- result{resp: blocked("s1")}
	<-done1

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, "s2", msgs[2].Blocked.SessionID)
	assert.Equal(t, "s1", msgs[3].Blocked.SessionID)
	assert.Equal(t, "s1", s.SessionID())
	assert.False(t, s.IsLoading())
}

func TestCancelledContextIsAFailedTurn(t *testing.T) {
	g := newGate()
	s := NewStore(g)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.SendMessage(ctx, "slow")
	}()
	<-g.calls
	cancel()
	<-done

	assert.Equal(t, context.Canceled.Error(), s.LastError())
	assert.False(t, s.IsLoading())
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	s := NewStore(transport.NewMock(0))
	var mu sync.Mutex
	var snaps []Snapshot
	unsubscribe := s.OnChange(func(snap Snapshot) {
		mu.Lock()
		snaps = append(snaps, snap)
		mu.Unlock()
	})

	s.SendMessage(context.Background(), "total sales?")

	mu.Lock()
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].IsLoading)
	assert.Len(t, snaps[0].Messages, 1)
	assert.False(t, snaps[1].IsLoading)
	assert.Len(t, snaps[1].Messages, 2)
	assert.NotNil(t, snaps[1].LastClarify)
	mu.Unlock()

	unsubscribe()
	s.Reset()
	mu.Lock()
	assert.Len(t, snaps, 2)
	mu.Unlock()
}

func TestMessagesUseClockAndUniqueIDs(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(transport.NewMock(0), WithClock(func() time.Time { return at }))

	s.SendMessage(context.Background(), "total sales?")
	s.PushSystemText("hello")

	seen := map[string]bool{}
	for _, m := range s.Messages() {
		assert.Equal(t, at, m.CreatedAt)
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
	msgs := s.Messages()
	assert.Regexp(t, `^u_`, msgs[0].ID)
	assert.Regexp(t, `^a_`, msgs[1].ID)
	assert.Regexp(t, `^s_`, msgs[2].ID)
	assert.Nil(t, msgs[0].Response())
	assert.Equal(t, contract.TypeClarify, msgs[1].Response().Type())
}
