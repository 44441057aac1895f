package contract

import (
	"encoding/json"
	"fmt"
)

// Explanation describes how a generated statement maps onto the schema.
type Explanation struct {
	Summary string         `json:"summary,omitempty"`
	Tables  []ExplainTable `json:"tables,omitempty"`
	Joins   []ExplainJoin  `json:"joins,omitempty"`
	Select  []SelectItem   `json:"select,omitempty"`
	Filters []Filter       `json:"filters,omitempty"`
	GroupBy []ColumnRef    `json:"group_by,omitempty"`
	OrderBy []OrderItem    `json:"order_by,omitempty"`
	Limit   *Limit         `json:"limit,omitempty"`
}

// ExplainTable is a table referenced by the statement.
type ExplainTable struct {
	Name        string    `json:"name"`
	Alias       string    `json:"alias,omitempty"`
	Role        TableRole `json:"role,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Label renders "name alias" or just the name.
func (t ExplainTable) Label() string {
	if t.Alias == "" {
		return t.Name
	}
	return t.Name + " " + t.Alias
}

// ColumnRef points at a column of a (possibly aliased) table.
type ColumnRef struct {
	Table  string `json:"table"`
	Alias  string `json:"alias,omitempty"`
	Column string `json:"column"`
}

// String renders alias.column, falling back to table.column.
func (c ColumnRef) String() string {
	if c.Alias != "" {
		return c.Alias + "." + c.Column
	}
	return c.Table + "." + c.Column
}

// ExplainJoin is one join edge with its cardinality and provenance.
type ExplainJoin struct {
	Type        JoinType    `json:"type"`
	Left        ColumnRef   `json:"left"`
	Right       ColumnRef   `json:"right"`
	Cardinality Cardinality `json:"cardinality,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	Source      JoinSource  `json:"source,omitempty"`
}

// DataType is the physical and logical type of a selected expression.
type DataType struct {
	DBType      string      `json:"db_type"`
	LogicalType LogicalType `json:"logical_type"`
	Timezone    string      `json:"timezone,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	Format      string      `json:"format,omitempty"`
}

// SelectItem is one projected expression.
type SelectItem struct {
	Expr         string       `json:"expr"`
	Alias        string       `json:"alias,omitempty"`
	SemanticType SemanticType `json:"semantic_type,omitempty"`
	DataType     *DataType    `json:"data_type,omitempty"`
	Definition   string       `json:"definition,omitempty"`
}

// Filter is one WHERE predicate.
type Filter struct {
	Expr   string       `json:"expr"`
	Field  *ColumnRef   `json:"field,omitempty"`
	Op     string       `json:"op,omitempty"`
	Value  *FilterValue `json:"value,omitempty"`
	Source Provenance   `json:"source,omitempty"`
}

// FilterValue is an open object: "type" and "raw" are typed, every other
// key (start, end, inclusive_start, ...) is kept in Extra so nothing is
// lost when the value is re-encoded.
type FilterValue struct {
	Type  FilterValueType
	Raw   string
	Extra map[string]any
}

// MarshalJSON flattens Extra next to type and raw.
func (v FilterValue) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.Extra)+2)
	for k, val := range v.Extra {
		out[k] = val
	}
	out["type"] = v.Type
	if v.Raw != "" {
		out["raw"] = v.Raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the known keys from the rest.
func (v *FilterValue) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("filter value: %w", err)
	}
	*v = FilterValue{}
	for k, raw := range m {
		switch k {
		case "type":
			if err := json.Unmarshal(raw, &v.Type); err != nil {
				return fmt.Errorf("filter value type: %w", err)
			}
		case "raw":
			if err := json.Unmarshal(raw, &v.Raw); err != nil {
				return fmt.Errorf("filter value raw: %w", err)
			}
		default:
			var val any
			if err := json.Unmarshal(raw, &val); err != nil {
				return fmt.Errorf("filter value %s: %w", k, err)
			}
			if v.Extra == nil {
				v.Extra = make(map[string]any)
			}
			v.Extra[k] = val
		}
	}
	return nil
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expr      string        `json:"expr"`
	Direction SortDirection `json:"direction"`
}

// Limit is the row limit and where it came from.
type Limit struct {
	Value  int        `json:"value"`
	Source Provenance `json:"source,omitempty"`
}

// Validation is the backend's check of the generated statement.
type Validation struct {
	Status   ValidationStatus    `json:"status"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
}

// ValidationWarning is a coded warning.
type ValidationWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
