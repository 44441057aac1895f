package transport

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/DachengChen/asksql/contract"
)

// MockSessionID is used when the request does not carry a session yet.
const MockSessionID = "mock_session_001"

// writeIntent matches requests the mock refuses.
var writeIntent = regexp.MustCompile(`(?i)\b(drop|delete|truncate|update|insert|alter)\b`)

// Mock is a deterministic local backend for development and offline use.
//
// Rules:
//   - a message asking to modify data → blocked
//   - no answers, or no answers["metric"] → clarify the sales metric
//   - answers["metric"] set → SQL for the top 10 customers by that metric
type Mock struct {
	latency time.Duration
}

var _ Transport = (*Mock)(nil)

// NewMock creates a mock transport that waits latency before answering.
func NewMock(latency time.Duration) *Mock {
	return &Mock{latency: latency}
}

func (m *Mock) Name() string {
	return "mock"
}

func (m *Mock) Send(ctx context.Context, req *contract.ChatRequest) (contract.ChatResponse, error) {
	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = MockSessionID
	}

	if writeIntent.MatchString(req.Message) {
		return mockBlocked(sessionID), nil
	}

	metric, ok := metricAnswer(req.Answers["metric"])
	if !ok {
		return mockClarify(sessionID), nil
	}
	return mockSQL(sessionID, metric), nil
}

// metricAnswer turns any non-empty answer into SQL text. Lists are joined
// with commas. Missing, empty, zero and false values count as unanswered.
func metricAnswer(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case bool:
		return "true", v
	case float64:
		return fmt.Sprint(v), v != 0
	case int:
		return fmt.Sprint(v), v != 0
	case []any:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ","), true
	}
	return fmt.Sprint(v), true
}

func mockBlocked(sessionID string) *contract.BlockedResponse {
	return &contract.BlockedResponse{
		Reason: "Only read-only questions are supported; statements that modify data are not generated.",
		SuggestedQuestions: []string{
			"Which customers had the highest sales in 2024?",
			"How many orders were paid last month?",
		},
		SessionID: sessionID,
	}
}

func mockClarify(sessionID string) *contract.ClarifyResponse {
	return &contract.ClarifyResponse{
		ClarifyType: contract.ClarifyMetricDefinitionAmbiguous,
		Question:    `Which definition of "sales" do you mean?`,
		Fields: []contract.ClarifyField{
			{
				Key: "metric",
				UI:  contract.UISingleSelect,
				Options: []contract.ClarifyOption{
					{Value: "SUM(o.order_amount)", Label: "Order amount (before refunds)"},
					{Value: "SUM(o.paid_amount)", Label: "Paid amount (after discounts and refunds)"},
				},
				Default: "SUM(o.paid_amount)",
			},
		},
		SessionID:   sessionID,
		ContextHint: "The definitions give different results; pick the one to use in the SQL.",
	}
}

func mockSQL(sessionID, metric string) *contract.SQLResponse {
	sql := fmt.Sprintf(`SELECT
  c.customer_name AS customer_name,
  %s AS total_sales
FROM orders o
INNER JOIN customers c ON o.customer_id = c.id
WHERE o.province = 'Guangdong'
  AND o.paid_at >= '2024-01-01' AND o.paid_at < '2025-01-01'
GROUP BY c.customer_name
ORDER BY total_sales DESC
LIMIT 10;`, metric)

	definition := "Sum of order amount"
	if strings.Contains(metric, "paid_amount") {
		definition = "Sum of paid amount"
	}

	return &contract.SQLResponse{
		Dialect: contract.DialectMySQL,
		SQL:     sql,
		Explanation: &contract.Explanation{
			Summary: "Sales per customer in Guangdong for 2024, top 10.",
			Tables: []contract.ExplainTable{
				{Name: "orders", Alias: "o", Role: contract.RoleFact, Description: "Order fact table"},
				{Name: "customers", Alias: "c", Role: contract.RoleDimension, Description: "Customer dimension"},
			},
			Joins: []contract.ExplainJoin{{
				Type:        contract.JoinInner,
				Left:        contract.ColumnRef{Table: "orders", Alias: "o", Column: "customer_id"},
				Right:       contract.ColumnRef{Table: "customers", Alias: "c", Column: "id"},
				Cardinality: contract.ManyToOne,
				Reason:      "Fetch customer names and aggregate orders per customer",
				Source:      contract.JoinFromRelationCard,
			}},
			Select: []contract.SelectItem{
				{
					Expr:         "c.customer_name",
					Alias:        "customer_name",
					SemanticType: contract.SemanticDimension,
					DataType:     &contract.DataType{DBType: "varchar(128)", LogicalType: contract.LogicalString},
				},
				{
					Expr:         metric,
					Alias:        "total_sales",
					SemanticType: contract.SemanticMetric,
					DataType:     &contract.DataType{DBType: "decimal(18,2)", LogicalType: contract.LogicalNumber, Unit: "CNY"},
					Definition:   definition,
				},
			},
			Filters: []contract.Filter{
				{
					Expr:   "o.province = 'Guangdong'",
					Field:  &contract.ColumnRef{Table: "orders", Alias: "o", Column: "province"},
					Op:     "=",
					Value:  &contract.FilterValue{Type: contract.ValueString, Raw: "'Guangdong'"},
					Source: contract.FromUser,
				},
				{
					Expr:  "o.paid_at >= '2024-01-01' AND o.paid_at < '2025-01-01'",
					Field: &contract.ColumnRef{Table: "orders", Alias: "o", Column: "paid_at"},
					Op:    "between",
					Value: &contract.FilterValue{
						Type: contract.ValueDateRange,
						Extra: map[string]any{
							"start":           "2024-01-01",
							"end":             "2025-01-01",
							"inclusive_start": true,
							"exclusive_end":   true,
						},
					},
					Source: contract.FromDefault,
				},
			},
			GroupBy: []contract.ColumnRef{{Table: "customers", Alias: "c", Column: "customer_name"}},
			OrderBy: []contract.OrderItem{{Expr: "total_sales", Direction: contract.SortDesc}},
			Limit:   &contract.Limit{Value: 10, Source: contract.FromDefault},
		},
		Validation: &contract.Validation{
			Status:   contract.ValidationPass,
			Warnings: []contract.ValidationWarning{{Code: "MOCK_MODE", Message: "Example SQL returned by the mock backend"}},
		},
		SessionID: sessionID,
	}
}
