package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/asksql/config"
	"github.com/DachengChen/asksql/contract"
	"github.com/DachengChen/asksql/transport"
)

type failing struct{}

func (failing) Name() string { return "failing" }
func (failing) Send(context.Context, *contract.ChatRequest) (contract.ChatResponse, error) {
	return nil, errors.New("connection refused")
}

func ask(t *testing.T, tr transport.Transport, question, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := runAsk(t.Context(), strings.NewReader(input), &out, tr, question)
	return out.String(), err
}

func TestRunAskClarifyByIndex(t *testing.T) {
	out, err := ask(t, transport.NewMock(0), "top customers by sales in 2024", "metric=1\n\n")
	require.NoError(t, err)

	assert.Contains(t, out, `? Which definition of "sales" do you mean?`)
	assert.Contains(t, out, "[2] Paid amount (after discounts and refunds) = SUM(o.paid_amount) (default)")
	assert.Contains(t, out, "-- mysql")
	assert.Contains(t, out, "SUM(o.order_amount) AS total_sales")
	assert.Contains(t, out, "validation: ")
}

func TestRunAskClarifyByLabelAndValue(t *testing.T) {
	out, err := ask(t, transport.NewMock(0), "sales", "metric=paid amount (after discounts and refunds)\n\n")
	require.NoError(t, err)
	assert.Contains(t, out, "SUM(o.paid_amount) AS total_sales")

	out, err = ask(t, transport.NewMock(0), "sales", "metric=SUM(o.order_amount)\n\n")
	require.NoError(t, err)
	assert.Contains(t, out, "SUM(o.order_amount) AS total_sales")
}

func TestRunAskEmptyLineTakesDefaults(t *testing.T) {
	out, err := ask(t, transport.NewMock(0), "sales", "\n")
	require.NoError(t, err)
	assert.Contains(t, out, "SUM(o.paid_amount) AS total_sales")
}

func TestRunAskReportsBadLinesAndRetries(t *testing.T) {
	out, err := ask(t, transport.NewMock(0), "sales", "metric=9\nregion=north\nmetric=2\nno equals\n\n")
	require.NoError(t, err)

	assert.Contains(t, out, `metric: no option "9"`)
	assert.Contains(t, out, `unknown field "region"`)
	assert.Contains(t, out, "expected key=value")
	assert.Contains(t, out, "SUM(o.paid_amount) AS total_sales")
}

func TestRunAskFreeTextReply(t *testing.T) {
	// The mock clarifies again until it gets a metric answer.
	out, err := ask(t, transport.NewMock(0), "sales", "the paid one\nmetric=2\n\n")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "? Which definition"))
	assert.Contains(t, out, "SUM(o.paid_amount)")
}

func TestRunAskBlocked(t *testing.T) {
	out, err := ask(t, transport.NewMock(0), "delete all orders", "")
	require.NoError(t, err)
	assert.Contains(t, out, "blocked: Only read-only questions are supported")
	assert.Contains(t, out, "  - How many orders were paid last month?")
}

func TestRunAskInputEnds(t *testing.T) {
	_, err := ask(t, transport.NewMock(0), "sales", "metric=1\n")
	assert.EqualError(t, err, "input ended before the clarification was answered")
}

func TestRunAskRejectsBlankQuestion(t *testing.T) {
	out, err := ask(t, transport.NewMock(0), "   ", "")
	assert.ErrorIs(t, err, errEmptyQuestion)
	assert.Empty(t, out)
}

func TestRunAskTransportError(t *testing.T) {
	_, err := ask(t, failing{}, "sales", "")
	assert.EqualError(t, err, "request failed: connection refused")
}

func TestParseAnswer(t *testing.T) {
	lo, hi := 1.0, 100.0
	number := contract.ClarifyField{Key: "top_n", UI: contract.UINumber, Min: &lo, Max: &hi}

	v, label, err := parseAnswer(number, "10")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
	assert.Equal(t, "10", label)

	_, _, err = parseAnswer(number, "500")
	assert.EqualError(t, err, "top_n: 500 is out of range")
	_, _, err = parseAnswer(number, "ten")
	assert.EqualError(t, err, `top_n: "ten" is not a number`)

	multi := contract.ClarifyField{Key: "region", UI: contract.UIMultiSelect, Options: []contract.ClarifyOption{
		{Value: "n", Label: "North"}, {Value: "s", Label: "South"},
	}}
	v, label, err = parseAnswer(multi, "1, south")
	require.NoError(t, err)
	assert.Equal(t, []any{"n", "s"}, v)
	assert.Equal(t, "North, South", label)

	rng := contract.ClarifyField{Key: "period", UI: contract.UIDateRange}
	v, label, err = parseAnswer(rng, "2024-01-01..2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"start": "2024-01-01", "end": "2024-12-31"}, v)
	assert.Equal(t, "2024-01-01 to 2024-12-31", label)

	_, _, err = parseAnswer(rng, "2024-12-31..2024-01-01")
	assert.EqualError(t, err, "period: end is before start")
	_, _, err = parseAnswer(rng, "last year..today")
	assert.EqualError(t, err, `period: start "last year" is not a 2006-01-02 date`)
	_, _, err = parseAnswer(rng, "2024-01-01..2024-13-01")
	assert.EqualError(t, err, `period: end "2024-13-01" is not a 2006-01-02 date`)

	unknown := contract.ClarifyField{Key: "x", UI: "slider"}
	v, _, err = parseAnswer(unknown, "anything")
	require.NoError(t, err)
	assert.Equal(t, "anything", v)
}

func TestApplyFlags(t *testing.T) {
	cfg := &config.AppConfig{Backend: config.DefaultBackendConfig()}
	applyFlags(cfg, flags{mode: config.ModeHTTP, backend: "http://api:9000", noFallback: true, profile: "prod"})

	assert.Equal(t, config.ModeHTTP, cfg.Backend.Mode)
	assert.Equal(t, "http://api:9000", cfg.Backend.BaseURL)
	assert.False(t, cfg.Backend.MockFallback)
	assert.Equal(t, "prod", cfg.Database.Profile)

	before := *cfg
	applyFlags(cfg, flags{})
	assert.Equal(t, before, *cfg)
}
