package contract

import (
	"encoding/json"
	"fmt"
)

// ChatResponse is the tagged union of everything the backend may answer.
// It is sealed: only the three response types in this package implement it.
type ChatResponse interface {
	// Type returns the discriminant.
	Type() ResponseType

	// Session returns the backend-assigned session id.
	Session() string

	isChatResponse()
}

var (
	_ ChatResponse = (*ClarifyResponse)(nil)
	_ ChatResponse = (*SQLResponse)(nil)
	_ ChatResponse = (*BlockedResponse)(nil)
)

// ─────────────────────────────────────────────────────────────────
// Clarify
// ─────────────────────────────────────────────────────────────────

// ClarifyOption is one choice of a select field.
type ClarifyOption struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// ClarifyField describes one input the user must fill in.
type ClarifyField struct {
	Key     string          `json:"key"`
	UI      ClarifyUI       `json:"ui"`
	Options []ClarifyOption `json:"options,omitempty"`
	Default any             `json:"default,omitempty"`

	// Min and Max bound number and date range inputs.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Hint is placeholder or help text.
	Hint string `json:"hint,omitempty"`
}

// DefaultIndex returns the index of the option matching Default, or 0.
func (f ClarifyField) DefaultIndex() int {
	if f.Default == nil {
		return 0
	}
	want := fmt.Sprint(f.Default)
	for i, o := range f.Options {
		if fmt.Sprint(o.Value) == want {
			return i
		}
	}
	return 0
}

// LabelFor returns the label of the option whose value equals v, or v
// itself formatted as text.
func (f ClarifyField) LabelFor(v any) string {
	want := fmt.Sprint(v)
	for _, o := range f.Options {
		if fmt.Sprint(o.Value) == want {
			return o.Label
		}
	}
	return want
}

// ClarifyResponse asks the user to disambiguate before SQL is generated.
type ClarifyResponse struct {
	ClarifyType ClarifyType    `json:"clarify_type"`
	Question    string         `json:"question"`
	Fields      []ClarifyField `json:"fields"`
	SessionID   string         `json:"session_id"`
	ContextHint string         `json:"context_hint,omitempty"`
}

func (*ClarifyResponse) Type() ResponseType { return TypeClarify }
func (r *ClarifyResponse) Session() string { return r.SessionID }
func (*ClarifyResponse) isChatResponse() {}

// Actionable reports whether the clarification has at least one field the
// user can answer.
func (r *ClarifyResponse) Actionable() bool {
	return r != nil && len(r.Fields) > 0
}

// MarshalJSON writes the "type" discriminant alongside the fields.
func (r ClarifyResponse) MarshalJSON() ([]byte, error) {
	type alias ClarifyResponse
	return json.Marshal(struct {
		Type ResponseType `json:"type"`
		alias
	}{TypeClarify, alias(r)})
}

// ─────────────────────────────────────────────────────────────────
// SQL
// ─────────────────────────────────────────────────────────────────

// SQLResponse carries a generated statement.
type SQLResponse struct {
	SQL         string       `json:"sql"`
	Dialect     SQLDialect   `json:"dialect"`
	Explanation *Explanation `json:"explanation,omitempty"`
	Validation  *Validation  `json:"validation,omitempty"`
	SessionID   string       `json:"session_id"`
}

func (*SQLResponse) Type() ResponseType { return TypeSQL }
func (r *SQLResponse) Session() string { return r.SessionID }
func (*SQLResponse) isChatResponse() {}

// MarshalJSON writes the "type" discriminant alongside the fields.
func (r SQLResponse) MarshalJSON() ([]byte, error) {
	type alias SQLResponse
	return json.Marshal(struct {
		Type ResponseType `json:"type"`
		alias
	}{TypeSQL, alias(r)})
}

// SelectExprs lists the select expressions of the explanation.
func (r *SQLResponse) SelectExprs() []string {
	if r == nil || r.Explanation == nil {
		return nil
	}
	exprs := make([]string, 0, len(r.Explanation.Select))
	for _, s := range r.Explanation.Select {
		exprs = append(exprs, s.Expr)
	}
	return exprs
}

// ─────────────────────────────────────────────────────────────────
// Blocked
// ─────────────────────────────────────────────────────────────────

// BlockedResponse is a refusal.
type BlockedResponse struct {
	Reason             string   `json:"reason"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
	SessionID          string   `json:"session_id"`
}

func (*BlockedResponse) Type() ResponseType { return TypeBlocked }
func (r *BlockedResponse) Session() string { return r.SessionID }
func (*BlockedResponse) isChatResponse() {}

// MarshalJSON writes the "type" discriminant alongside the fields.
func (r BlockedResponse) MarshalJSON() ([]byte, error) {
	type alias BlockedResponse
	return json.Marshal(struct {
		Type ResponseType `json:"type"`
		alias
	}{TypeBlocked, alias(r)})
}

// ─────────────────────────────────────────────────────────────────
// Exhaustive matching
// ─────────────────────────────────────────────────────────────────

// Match dispatches resp to the callback for its variant. Every variant
// needs a callback; nil resp yields ErrUnknownResponseType.
func Match[T any](
	resp ChatResponse,
	onClarify func(*ClarifyResponse) T,
	onSQL func(*SQLResponse) T,
	onBlocked func(*BlockedResponse) T,
) (T, error) {
	var zero T
	switch r := resp.(type) {
	case *ClarifyResponse:
		if r != nil {
			return onClarify(r), nil
		}
	case *SQLResponse:
		if r != nil {
			return onSQL(r), nil
		}
	case *BlockedResponse:
		if r != nil {
			return onBlocked(r), nil
		}
	}
	return zero, fmt.Errorf("%w: %T", ErrUnknownResponseType, resp)
}
