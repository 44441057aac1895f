package mockserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/asksql/contract"
	"github.com/DachengChen/asksql/transport"
)

func postChat(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, transport.ChatPath, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, NewHandler(transport.NewMock(0)).Chat(c))
	return rec
}

func TestChatAssignsSession(t *testing.T) {
	rec := postChat(t, `{"message":"total sales?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp, err := contract.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, contract.TypeClarify, resp.Type())
	assert.Regexp(t, `^sess_[0-9a-f]{8}$`, resp.Session())
}

func TestChatKeepsSessionAndAnswers(t *testing.T) {
	rec := postChat(t, `{"session_id":"sess_keep","message":"paid","answers":{"metric":"SUM(o.paid_amount)"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp, err := contract.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	sql, ok := resp.(*contract.SQLResponse)
	require.True(t, ok, "got %T", resp)
	assert.Equal(t, "sess_keep", sql.SessionID)
	assert.Contains(t, sql.SelectExprs(), "SUM(o.paid_amount)")
}

func TestChatRejectsBadRequests(t *testing.T) {
	rec := postChat(t, `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postChat(t, `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "message is required", body.Error)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, NewHandler(transport.NewMock(0)).Health(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backend":"mock"`)
}

// The HTTP transport and the server agree on the wire contract.
func TestHTTPTransportAgainstServer(t *testing.T) {
	server := httptest.NewServer(New(transport.NewMock(0)))
	defer server.Close()

	client := transport.NewHTTP(server.URL, time.Second)
	resp, err := client.Send(context.Background(), &contract.ChatRequest{Message: "total sales?"})
	require.NoError(t, err)
	require.Equal(t, contract.TypeClarify, resp.Type())

	resp, err = client.Send(context.Background(), &contract.ChatRequest{
		SessionID: resp.Session(),
		Message:   "paid amount",
		Answers:   map[string]any{"metric": "SUM(o.paid_amount)"},
	})
	require.NoError(t, err)
	assert.Equal(t, contract.TypeSQL, resp.Type())

	resp, err = client.Send(context.Background(), &contract.ChatRequest{SessionID: "s", Message: "drop table orders"})
	require.NoError(t, err)
	assert.Equal(t, contract.TypeBlocked, resp.Type())
}
