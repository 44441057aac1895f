package contract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func floatPtr(f float64) *float64 { return &f }

func sampleResponses() []ChatResponse {
	return []ChatResponse{
		&ClarifyResponse{
			ClarifyType: ClarifyTimeRangeMissing,
			Question:    "Which period?",
			Fields: []ClarifyField{
				{
					Key:  "period",
					UI:   UIDateRange,
					Hint: "YYYY-MM-DD",
				},
				{
					Key:     "top",
					UI:      UINumber,
					Default: 10.0,
					Min:     floatPtr(1),
					Max:     floatPtr(100),
				},
				{
					Key: "metric",
					UI:  UISingleSelect,
					Options: []ClarifyOption{
						{Value: "SUM(o.order_amount)", Label: "order amount"},
						{Value: "SUM(o.paid_amount)", Label: "paid amount"},
					},
					Default: "SUM(o.paid_amount)",
				},
			},
			SessionID:   "s-1",
			ContextHint: "pick one",
		},
		&SQLResponse{
			SQL:     "SELECT 1",
			Dialect: DialectPostgres,
			Explanation: &Explanation{
				Summary: "one",
				Tables:  []ExplainTable{{Name: "orders", Alias: "o", Role: RoleFact}},
				Joins: []ExplainJoin{{
					Type:        JoinLeft,
					Left:        ColumnRef{Table: "orders", Alias: "o", Column: "customer_id"},
					Right:       ColumnRef{Table: "customers", Alias: "c", Column: "id"},
					Cardinality: ManyToOne,
					Source:      JoinFromForeignKey,
				}},
				Select: []SelectItem{{
					Expr:         "SUM(o.paid_amount)",
					Alias:        "total",
					SemanticType: SemanticMetric,
					DataType:     &DataType{DBType: "decimal(18,2)", LogicalType: LogicalNumber, Unit: "CNY"},
				}},
				Filters: []Filter{
					{
						Expr:   "o.paid_at >= '2024-01-01'",
						Field:  &ColumnRef{Table: "orders", Alias: "o", Column: "paid_at"},
						Op:     "between",
						Value:  &FilterValue{Type: ValueDateRange, Extra: map[string]any{"start": "2024-01-01", "inclusive_start": true}},
						Source: FromClarified,
					},
					{Expr: "o.status = 'paid'", Value: &FilterValue{Type: ValueString, Raw: "'paid'"}, Source: FromInferred},
				},
				GroupBy: []ColumnRef{{Table: "customers", Alias: "c", Column: "customer_name"}},
				OrderBy: []OrderItem{{Expr: "total", Direction: SortDesc}},
				Limit:   &Limit{Value: 10, Source: FromDefault},
			},
			Validation: &Validation{
				Status:   ValidationWarn,
				Warnings: []ValidationWarning{{Code: "FULL_SCAN", Message: "no index on paid_at"}},
			},
			SessionID: "s-1",
		},
		&BlockedResponse{
			Reason:             "writes are not allowed",
			SuggestedQuestions: []string{"How many orders last week?"},
			SessionID:          "s-1",
		},
	}
}

func TestRoundTripKeepsDiscriminantAndProvenance(t *testing.T) {
	for _, want := range sampleResponses() {
		t.Run(string(want.Type()), func(t *testing.T) {
			data, err := Encode(want)
			require.NoError(t, err)
			assert.Equal(t, string(want.Type()), gjson.GetBytes(data, "type").String())

			got, err := Decode(data)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTripProvenanceTagsOnWire(t *testing.T) {
	data, err := Encode(sampleResponses()[1])
	require.NoError(t, err)

	assert.Equal(t, "clarified", gjson.GetBytes(data, "explanation.filters.0.source").String())
	assert.Equal(t, "inferred", gjson.GetBytes(data, "explanation.filters.1.source").String())
	assert.Equal(t, "default", gjson.GetBytes(data, "explanation.limit.source").String())
	assert.Equal(t, "fk", gjson.GetBytes(data, "explanation.joins.0.source").String())
	assert.True(t, gjson.GetBytes(data, "explanation.filters.0.value.inclusive_start").Bool())
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"chart","session_id":"s"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownResponseType))

	_, err = Decode([]byte(`{"session_id":"s","sql":"SELECT 1"}`))
	assert.True(t, errors.Is(err, ErrUnknownResponseType))
}

func TestDecodeRequiresSessionID(t *testing.T) {
	_, err := Decode([]byte(`{"type":"blocked","reason":"no"}`))
	assert.True(t, errors.Is(err, ErrMissingSessionID))
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownResponseType))
	assert.True(t, errors.Is(err, ErrMalformedResponse))

	_, err = Decode([]byte(`{"type":"sql","session_id":"s","sql":42}`))
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestIsViolation(t *testing.T) {
	for _, body := range []string{
		`{"type":"chart","session_id":"s"}`,
		`{"type":"blocked","reason":"no"}`,
		`not json`,
	} {
		_, err := Decode([]byte(body))
		assert.True(t, IsViolation(err), body)
	}
	assert.False(t, IsViolation(errors.New("connection refused")))
	assert.False(t, IsViolation(nil))
}

func TestMatchDispatchesEveryVariant(t *testing.T) {
	kinds := make([]string, 0, 3)
	for _, resp := range sampleResponses() {
		kind, err := Match(resp,
			func(*ClarifyResponse) string { return "clarify" },
			func(*SQLResponse) string { return "sql" },
			func(*BlockedResponse) string { return "blocked" },
		)
		require.NoError(t, err)
		kinds = append(kinds, kind)
	}
	assert.Equal(t, []string{"clarify", "sql", "blocked"}, kinds)

	_, err := Match[string](nil,
		func(*ClarifyResponse) string { return "" },
		func(*SQLResponse) string { return "" },
		func(*BlockedResponse) string { return "" },
	)
	assert.True(t, errors.Is(err, ErrUnknownResponseType))
}

func TestClarifyUIWidgetFailsClosed(t *testing.T) {
	for _, ui := range []ClarifyUI{UISingleSelect, UIMultiSelect, UIText, UINumber, UIDate, UIDateRange} {
		assert.True(t, ui.Known(), ui)
		assert.Equal(t, ui, ui.Widget())
	}
	assert.False(t, ClarifyUI("slider").Known())
	assert.Equal(t, UIText, ClarifyUI("slider").Widget())
}

func TestClarifyFieldHelpers(t *testing.T) {
	clarify := sampleResponses()[0].(*ClarifyResponse)
	metric := clarify.Fields[2]

	assert.Equal(t, 1, metric.DefaultIndex())
	assert.Equal(t, "order amount", metric.LabelFor("SUM(o.order_amount)"))
	assert.Equal(t, "COUNT(*)", metric.LabelFor("COUNT(*)"))
	assert.Equal(t, 0, clarify.Fields[0].DefaultIndex())

	assert.True(t, clarify.Actionable())
	assert.False(t, (&ClarifyResponse{SessionID: "s"}).Actionable())
}

func TestFilterValueKeepsUnknownKeys(t *testing.T) {
	var v FilterValue
	require.NoError(t, json.Unmarshal([]byte(`{"type":"date_range","start":"2024-01-01","end":"2025-01-01","exclusive_end":true}`), &v))

	assert.Equal(t, ValueDateRange, v.Type)
	assert.Empty(t, v.Raw)
	assert.Equal(t, map[string]any{"start": "2024-01-01", "end": "2025-01-01", "exclusive_end": true}, v.Extra)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"date_range","start":"2024-01-01","end":"2025-01-01","exclusive_end":true}`, string(out))
}

func TestChatRequestOmitsEmptySession(t *testing.T) {
	data, err := json.Marshal(&ChatRequest{Message: "total sales?"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"total sales?"}`, string(data))

	req := &ChatRequest{SessionID: "s", Message: "paid", Answers: map[string]any{"metric": "SUM(o.paid_amount)"}}
	assert.True(t, req.HasAnswers())
	data, err = json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"s","message":"paid","answers":{"metric":"SUM(o.paid_amount)"}}`, string(data))
}
